package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/auth"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, authHandler *AuthHandler, authSvc auth.Service, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	router.GET("/healthcheck", handler.Healthcheck)

	authGroup := router.Group("/api/auth")
	{
		authGroup.GET("/verify", authHandler.Verify)
		authGroup.GET("/login", authHandler.Login)
		authGroup.GET("/callback", authHandler.Callback)
		authGroup.GET("/logout", authHandler.Logout)
	}

	api := router.Group("/api/piezometry", authMiddleware(authSvc, authHandler.cookieName))
	{
		api.GET("/time-ranges", handler.TimeRanges)
		api.POST("/piezometers/state", handler.PiezometerStates)
		api.POST("/aquifers/state", handler.AquiferStates)
		api.POST("/classify", handler.Classify)
		api.POST("/export", handler.Export)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
