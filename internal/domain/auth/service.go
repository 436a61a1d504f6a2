package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	apperrors "github.com/hydrotwin/hydrotwin-api/pkg/errors"
)

const defaultSessionTTL = 8 * time.Hour

// Service exposes the single sign-on workflow and session tokens.
type Service interface {
	Enabled() bool
	LoginURL(ctx context.Context, state, codeChallenge string) (string, error)
	Callback(ctx context.Context, code, codeVerifier string) (LoginResult, error)
	ValidateToken(ctx context.Context, token string) (Session, error)
	LogoutURL() string
	PostLoginRedirect() string
}

type service struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	provider *oidcProvider
}

// NewService constructs a Service instance.
func NewService(cfg Config, logger *slog.Logger) Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	return &service{
		cfg:    cfg,
		logger: logger.With("component", "auth.service"),
		now:    time.Now,
	}
}

func (s *service) Enabled() bool {
	return s.cfg.Enabled
}

func (s *service) LogoutURL() string {
	return strings.TrimSpace(s.cfg.OIDC.LogoutURL)
}

func (s *service) PostLoginRedirect() string {
	if target := strings.TrimSpace(s.cfg.OIDC.PostLoginRedirectURL); target != "" {
		return target
	}
	return "/"
}

func (s *service) LoginURL(ctx context.Context, state, codeChallenge string) (string, error) {
	provider, err := s.oidc(ctx)
	if err != nil {
		return "", err
	}
	return provider.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

func (s *service) Callback(ctx context.Context, code, codeVerifier string) (LoginResult, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(codeVerifier) == "" {
		return LoginResult{}, apperrors.Wrap("invalid_request", "missing oauth code or verifier", nil)
	}
	provider, err := s.oidc(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	claims, err := provider.exchange(ctx, code, codeVerifier)
	if err != nil {
		return LoginResult{}, err
	}
	session := Session{
		Subject:  claims.Subject,
		Username: claims.username(s.cfg.OIDC.UsernameClaim),
		Email:    claims.Email,
	}
	if session.Subject == "" {
		return LoginResult{}, apperrors.Wrap("auth_error", "missing subject in id token", nil)
	}
	token, session, err := s.issueToken(session)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("user signed in", "username", session.Username)
	return LoginResult{Token: token, Session: session}, nil
}

func (s *service) ValidateToken(_ context.Context, token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Session{}, apperrors.Wrap("invalid_token", "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return Session{}, apperrors.Wrap("invalid_token", "token invalid", nil)
	}
	if claims.ExpiresAt == nil {
		return Session{}, apperrors.Wrap("invalid_token", "token missing expiry", nil)
	}
	return Session{
		Subject:   claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *service) issueToken(session Session) (string, Session, error) {
	now := s.now()
	session.ExpiresAt = now.Add(s.cfg.SessionTTL)
	claims := sessionClaims{
		Username: session.Username,
		Email:    session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Subject,
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", Session{}, apperrors.Wrap("auth_error", "failed to sign token", err)
	}
	return signed, session, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}
