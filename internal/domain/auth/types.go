package auth

import "time"

// Config drives authentication behavior.
type Config struct {
	Enabled    bool
	Secret     string
	SessionTTL time.Duration
	OIDC       OIDCConfig
}

// OIDCConfig holds the single sign-on provider settings.
type OIDCConfig struct {
	IssuerURL            string
	ClientID             string
	ClientSecret         string
	RedirectURL          string
	Scopes               []string
	UsernameClaim        string
	LogoutURL            string
	PostLoginRedirectURL string
}

// Session is the identity carried by the session token.
type Session struct {
	Subject   string    `json:"subject"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResult is returned once the provider callback succeeds.
type LoginResult struct {
	Token   string
	Session Session
}

// AnonymousUser is reported by verify when authentication is disabled.
const AnonymousUser = "anonymous"
