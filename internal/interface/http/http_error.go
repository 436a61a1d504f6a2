package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hydrotwin/hydrotwin-api/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
	// Fields are merged into the error envelope.
	Fields gin.H
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped error.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// statusForCode maps application error codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case "invalid_input", "invalid_request":
		return http.StatusBadRequest
	case "invalid_token", "unauthorized":
		return http.StatusUnauthorized
	case "upstream_error", "oauth_exchange_failed":
		return http.StatusBadGateway
	case "auth_not_configured":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fromServiceError converts a domain error, keeping its code and message.
func fromServiceError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	if code == "" {
		code = "internal_error"
	}
	message := apperrors.MessageOf(err)
	if message == "" {
		message = errMessage(err)
	}
	return NewHTTPError(statusForCode(code), code, message, err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// respondOK wraps data in the success envelope.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   data,
		"ok":     true,
	})
}
