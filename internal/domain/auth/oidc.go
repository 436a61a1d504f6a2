package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	apperrors "github.com/hydrotwin/hydrotwin-api/pkg/errors"
)

const defaultUsernameClaim = "preferred_username"

type oidcProvider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type idClaims struct {
	Subject           string         `json:"sub"`
	Email             string         `json:"email"`
	Name              string         `json:"name"`
	PreferredUsername string         `json:"preferred_username"`
	Extra             map[string]any `json:"-"`
}

func (c idClaims) username(claim string) string {
	if claim == "" {
		claim = defaultUsernameClaim
	}
	if v, ok := c.Extra[claim].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	for _, candidate := range []string{c.PreferredUsername, c.Email, c.Subject} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

// oidc discovers the provider once; a failed discovery is retried on the next call.
func (s *service) oidc(ctx context.Context) (*oidcProvider, error) {
	if !s.cfg.Enabled {
		return nil, apperrors.Wrap("auth_not_configured", "authentication is disabled", nil)
	}
	cfg := s.cfg.OIDC
	if strings.TrimSpace(cfg.IssuerURL) == "" || strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, apperrors.Wrap("auth_not_configured", "oidc provider is not configured", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider != nil {
		return s.provider, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, apperrors.Wrap("auth_error", "failed to initialize oidc provider", err)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	s.provider = &oidcProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}
	return s.provider, nil
}

func (p *oidcProvider) exchange(ctx context.Context, code, codeVerifier string) (idClaims, error) {
	token, err := p.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return idClaims{}, apperrors.Wrap("oauth_exchange_failed", "failed to exchange oauth code", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return idClaims{}, apperrors.Wrap("oauth_exchange_failed", "missing id_token in oauth response", nil)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return idClaims{}, apperrors.Wrap("invalid_token", "failed to verify id token", err)
	}
	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return idClaims{}, apperrors.Wrap("invalid_token", "failed to parse id token claims", err)
	}
	if err := idToken.Claims(&claims.Extra); err != nil {
		return idClaims{}, apperrors.Wrap("invalid_token", "failed to parse id token claims", err)
	}
	return claims, nil
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CodeChallengeFromVerifier computes the PKCE code challenge for a verifier.
func CodeChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewOAuthState returns a state, code verifier, and code challenge for PKCE.
func NewOAuthState() (state string, codeVerifier string, codeChallenge string, err error) {
	state, err = randomString(32)
	if err != nil {
		return "", "", "", err
	}
	codeVerifier, err = randomString(32)
	if err != nil {
		return "", "", "", err
	}
	codeChallenge = CodeChallengeFromVerifier(codeVerifier)
	return state, codeVerifier, codeChallenge, nil
}
