package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/auth"
)

// AuthHandler serves the single sign-on endpoints.
type AuthHandler struct {
	svc        auth.Service
	cookieName string
	logger     *slog.Logger
}

// NewAuthHandler constructs the auth endpoints.
func NewAuthHandler(svc auth.Service, cookieName string, logger *slog.Logger) *AuthHandler {
	if cookieName == "" {
		cookieName = "hydrotwin_session"
	}
	return &AuthHandler{
		svc:        svc,
		cookieName: cookieName,
		logger:     logger.With("component", "http.auth"),
	}
}

// Verify returns the signed-in user or a 401 pointing at the login URL.
func (h *AuthHandler) Verify(c *gin.Context) {
	if !h.svc.Enabled() {
		respondOK(c, gin.H{"username": auth.AnonymousUser})
		return
	}
	session, err := resolveSession(c, h.svc, h.cookieName)
	if err != nil {
		abortWithError(c, unauthorized(err))
		return
	}
	respondOK(c, gin.H{
		"username":  session.Username,
		"email":     session.Email,
		"expiresAt": session.ExpiresAt,
	})
}

// Login redirects the browser to the identity provider.
func (h *AuthHandler) Login(c *gin.Context) {
	state, verifier, challenge, err := auth.NewOAuthState()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "auth_error", "failed to create oauth state", err))
		return
	}
	target, err := h.svc.LoginURL(c.Request.Context(), state, challenge)
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	setOAuthStateCookie(c, state, verifier)
	c.Redirect(http.StatusFound, target)
}

// Callback completes the code exchange and sets the session cookie.
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		clearOAuthStateCookie(c)
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", errParam, nil))
		return
	}
	stored, ok := readOAuthStateCookie(c)
	if !ok || stored.State != c.Query("state") {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "oauth state mismatch", nil))
		return
	}
	clearOAuthStateCookie(c)

	result, err := h.svc.Callback(c.Request.Context(), c.Query("code"), stored.CodeVerifier)
	if err != nil {
		abortWithError(c, fromServiceError(err))
		return
	}
	setSessionCookie(c, h.cookieName, result.Token, result.Session.ExpiresAt)
	c.Redirect(http.StatusFound, h.svc.PostLoginRedirect())
}

// Logout drops the session cookie and returns the provider logout URL, if any.
func (h *AuthHandler) Logout(c *gin.Context) {
	clearSessionCookie(c, h.cookieName)
	var logoutURL any
	if target := h.svc.LogoutURL(); target != "" {
		logoutURL = target
	}
	respondOK(c, gin.H{"cas_logout_url": logoutURL})
}
