package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/auth"
	apperrors "github.com/hydrotwin/hydrotwin-api/pkg/errors"
)

const loginPath = "/api/auth/login"

// authMiddleware resolves the caller session from the session cookie or a
// bearer token. With auth disabled every caller is anonymous.
func authMiddleware(svc auth.Service, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !svc.Enabled() {
			setSession(c, auth.Session{Username: auth.AnonymousUser})
			c.Next()
			return
		}
		session, err := resolveSession(c, svc, cookieName)
		if err != nil {
			abortWithError(c, unauthorized(err))
			return
		}
		setSession(c, session)
		c.Next()
	}
}

func resolveSession(c *gin.Context, svc auth.Service, cookieName string) (auth.Session, error) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		if value, err := c.Cookie(cookieName); err == nil {
			token = value
		}
	}
	return svc.ValidateToken(c.Request.Context(), token)
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// unauthorized points the client at the login entry point.
func unauthorized(err error) *HTTPError {
	status := http.StatusUnauthorized
	code := "unauthorized"
	if err != nil && !apperrors.IsCode(err, "invalid_token") {
		status = http.StatusInternalServerError
		code = "auth_failed"
	}
	httpErr := NewHTTPError(status, code, "login required", err)
	if status == http.StatusUnauthorized {
		httpErr.Fields = gin.H{"cas_url": loginPath}
	}
	return httpErr
}
