package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
)

// Handler wires the HTTP transport to the piezometry service.
type Handler struct {
	piezometrySvc piezometry.Service
	logger        *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(piezometrySvc piezometry.Service, logger *slog.Logger) *Handler {
	return &Handler{
		piezometrySvc: piezometrySvc,
		logger:        logger.With("component", "http.handler"),
	}
}

// Healthcheck reports liveness.
func (h *Handler) Healthcheck(c *gin.Context) {
	respondOK(c, "ok")
}

// TimeRanges lists the selectable ranges with their request bodies and legends.
func (h *Handler) TimeRanges(c *gin.Context) {
	target := piezometry.Target(c.DefaultQuery("target", string(piezometry.TargetPiezometer)))
	views, err := h.piezometrySvc.TimeRanges(c.Request.Context(), target)
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	respondOK(c, views)
}

// PiezometerStates classifies each requested piezometer.
func (h *Handler) PiezometerStates(c *gin.Context) {
	var req piezometry.StateRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.piezometrySvc.PiezometerStates(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	respondOK(c, resp)
}

// AquiferStates classifies aquifers from their member piezometers.
func (h *Handler) AquiferStates(c *gin.Context) {
	var req piezometry.AquiferStateRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.piezometrySvc.AquiferStates(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	respondOK(c, resp)
}

// Classify runs a strategy over readings supplied by the caller.
func (h *Handler) Classify(c *gin.Context) {
	var req piezometry.ClassifyRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.piezometrySvc.Classify(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	respondOK(c, resp)
}

// Export downloads one piezometer series as CSV.
func (h *Handler) Export(c *gin.Context) {
	var req piezometry.ExportRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.piezometrySvc.Export(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	c.Header("X-Export-Rows", strconv.Itoa(res.Rows))
	if res.ArchiveKey != "" {
		c.Header("X-Export-Archive-Key", res.ArchiveKey)
	}
	c.Data(http.StatusOK, res.ContentType+"; charset=utf-8", res.Data)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return false
	}
	return true
}
