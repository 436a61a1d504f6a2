package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/auth"
	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/config"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/exportstore"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/piezometrydb"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/readingcache"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/twinapi"
	httpiface "github.com/hydrotwin/hydrotwin-api/internal/interface/http"
)

func providePiezometryConfig(cfg *config.Config) piezometry.Config {
	return piezometry.Config{
		Location:         cfg.Piezometry.Location(),
		DateLayout:       cfg.Piezometry.DateLayout,
		CacheTTL:         cfg.Piezometry.CacheTTL,
		ExportDateLayout: cfg.Piezometry.ExportDateLayout,
	}
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	oidc := cfg.Auth.OIDC
	return auth.Config{
		Enabled:    cfg.Auth.Enabled,
		Secret:     cfg.Auth.Secret,
		SessionTTL: cfg.Auth.SessionTTL,
		OIDC: auth.OIDCConfig{
			IssuerURL:            oidc.IssuerURL,
			ClientID:             oidc.ClientID,
			ClientSecret:         oidc.ClientSecret,
			RedirectURL:          oidc.RedirectURL,
			Scopes:               oidc.Scopes,
			UsernameClaim:        oidc.UsernameClaim,
			LogoutURL:            oidc.LogoutURL,
			PostLoginRedirectURL: oidc.PostLoginRedirectURL,
		},
	}
}

func provideAuthHandler(cfg *config.Config, svc auth.Service, logger *slog.Logger) *httpiface.AuthHandler {
	return httpiface.NewAuthHandler(svc, cfg.Auth.CookieName, logger)
}

// provideReadingSource prefers the corporate database views and falls back to
// the twin API when no DSN is set or the database is unreachable.
func provideReadingSource(cfg *config.Config, logger *slog.Logger) (piezometry.ReadingSource, func()) {
	fallback := func() (piezometry.ReadingSource, func()) {
		logger.Info("piezometry twin api source enabled", "base_url", cfg.Piezometry.APIBaseURL)
		return twinapi.NewClient(cfg.Piezometry.APIBaseURL, cfg.Piezometry.APITimeout), func() {}
	}
	dsn := strings.TrimSpace(cfg.Piezometry.Postgres.DSN)
	if dsn == "" {
		return fallback()
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using twin api source", "error", err)
		return fallback()
	}
	if cfg.Piezometry.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Piezometry.Postgres.MaxConns
	}
	if cfg.Piezometry.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Piezometry.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using twin api source", "error", err)
		return fallback()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using twin api source", "error", err)
		pool.Close()
		return fallback()
	}
	logger.Info("piezometry postgres source enabled", "schema", cfg.Piezometry.Postgres.Schema)
	return piezometrydb.NewPostgresSource(pool, cfg.Piezometry.Postgres.Schema), pool.Close
}

func provideReadingCache(cfg *config.Config, logger *slog.Logger) (piezometry.ReadingCache, func()) {
	if cfg.Piezometry.CacheTTL <= 0 {
		logger.Info("reading cache disabled")
		return nil, func() {}
	}
	if cfg.Piezometry.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg.Piezometry.Valkey.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return readingcache.NewMemoryCache(), func() {}
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return readingcache.NewMemoryCache(), func() {}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
			client.Close()
		} else {
			logger.Info("reading valkey cache enabled", "addr", cfg.Piezometry.Valkey.Addr)
			return readingcache.NewValkeyCache(client, cfg.Piezometry.Valkey.Prefix), client.Close
		}
	}
	return readingcache.NewMemoryCache(), func() {}
}

func provideExportStorage(cfg *config.Config, logger *slog.Logger) piezometry.ExportStorage {
	s3 := cfg.Export.S3
	if !s3.Enabled {
		if cfg.Export.Memory {
			logger.Warn("export archive kept in memory, not for production use")
			return exportstore.NewMemoryStorage()
		}
		return nil
	}
	storage, err := exportstore.NewS3Storage(s3.Endpoint, s3.AccessKey, s3.SecretKey, s3.Bucket, s3.Region, logger)
	if err != nil {
		logger.Error("failed to create s3 export storage, exports will not be archived", "error", err)
		return nil
	}
	logger.Info("export archive enabled", "endpoint", s3.Endpoint, "bucket", s3.Bucket)
	return storage
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
