package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hydrotwin/hydrotwin-api/pkg/errors"
)

func TestService_IssueAndValidateToken(t *testing.T) {
	svc := newTestService(Config{Enabled: true, Secret: "test-secret", SessionTTL: time.Hour})

	token, session, err := svc.issueToken(Session{Subject: "42", Username: "jdoe", Email: "jdoe@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "42", got.Subject)
	require.Equal(t, "jdoe", got.Username)
	require.Equal(t, "jdoe@example.com", got.Email)
	require.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestService_ValidateTokenRejects(t *testing.T) {
	svc := newTestService(Config{Enabled: true, Secret: "test-secret", SessionTTL: time.Hour})

	_, err := svc.ValidateToken(context.Background(), "")
	require.True(t, apperrors.IsCode(err, "invalid_token"))

	other := newTestService(Config{Enabled: true, Secret: "other-secret", SessionTTL: time.Hour})
	foreign, _, err := other.issueToken(Session{Subject: "1", Username: "x"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), foreign)
	require.True(t, apperrors.IsCode(err, "invalid_token"))

	token, _, err := svc.issueToken(Session{Subject: "1", Username: "x"})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(context.Background(), token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestService_DisabledOrUnconfigured(t *testing.T) {
	svc := newTestService(Config{Secret: "s"})
	require.False(t, svc.Enabled())
	_, err := svc.LoginURL(context.Background(), "state", "challenge")
	require.True(t, apperrors.IsCode(err, "auth_not_configured"))

	svc = newTestService(Config{Enabled: true, Secret: "s"})
	_, err = svc.LoginURL(context.Background(), "state", "challenge")
	require.True(t, apperrors.IsCode(err, "auth_not_configured"))
	require.Equal(t, "/", svc.PostLoginRedirect())
	require.Empty(t, svc.LogoutURL())
}

func TestService_OIDCLoginFlow(t *testing.T) {
	idp := newFakeProvider(t)
	defer idp.Close()

	svc := newTestService(Config{
		Enabled:    true,
		Secret:     "test-secret",
		SessionTTL: time.Hour,
		OIDC: OIDCConfig{
			IssuerURL:   idp.URL,
			ClientID:    "hydrotwin",
			RedirectURL: "http://localhost:8080/api/auth/callback",
			LogoutURL:   idp.URL + "/logout",
		},
	})

	state, verifier, challenge, err := NewOAuthState()
	require.NoError(t, err)

	loginURL, err := svc.LoginURL(context.Background(), state, challenge)
	require.NoError(t, err)
	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	require.Equal(t, "/authorize", parsed.Path)
	require.Equal(t, state, parsed.Query().Get("state"))
	require.Equal(t, challenge, parsed.Query().Get("code_challenge"))
	require.Equal(t, "S256", parsed.Query().Get("code_challenge_method"))

	result, err := svc.Callback(context.Background(), "auth-code", verifier)
	require.NoError(t, err)
	require.Equal(t, verifier, idp.lastVerifier)
	require.Equal(t, "jdoe", result.Session.Username)
	require.Equal(t, "user-1", result.Session.Subject)

	session, err := svc.ValidateToken(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, "jdoe", session.Username)
	require.Equal(t, idp.URL+"/logout", svc.LogoutURL())
}

func TestService_CallbackRequiresCode(t *testing.T) {
	svc := newTestService(Config{Enabled: true, Secret: "s"})
	_, err := svc.Callback(context.Background(), "", "verifier")
	require.True(t, apperrors.IsCode(err, "invalid_request"))
}

func TestUsernameClaimFallback(t *testing.T) {
	claims := idClaims{Subject: "sub-1", Email: "a@b.c", Extra: map[string]any{"upn": "ACME\\jdoe"}}
	require.Equal(t, "ACME\\jdoe", claims.username("upn"))
	require.Equal(t, "a@b.c", claims.username(""))
	require.Equal(t, "sub-1", idClaims{Subject: "sub-1"}.username(""))
}

func TestCodeChallengeFromVerifier(t *testing.T) {
	// RFC 7636 appendix B
	require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeFromVerifier("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}

func newTestService(cfg Config) *service {
	return NewService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
}

type fakeProvider struct {
	*httptest.Server
	key          *rsa.PrivateKey
	lastVerifier string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := &fakeProvider{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"issuer":                                p.URL,
			"authorization_endpoint":                p.URL + "/authorize",
			"token_endpoint":                        p.URL + "/token",
			"jwks_uri":                              p.URL + "/jwks",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"keys": []map[string]any{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		p.lastVerifier = r.PostForm.Get("code_verifier")
		now := time.Now()
		idToken := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss":                p.URL,
			"aud":                "hydrotwin",
			"sub":                "user-1",
			"email":              "jdoe@example.com",
			"preferred_username": "jdoe",
			"iat":                now.Unix(),
			"exp":                now.Add(5 * time.Minute).Unix(),
		})
		idToken.Header["kid"] = "test-key"
		signed, err := idToken.SignedString(key)
		require.NoError(t, err)
		writeJSON(w, map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   300,
			"id_token":     signed,
		})
	})
	p.Server = httptest.NewServer(mux)
	return p
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
