//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/hydrotwin/hydrotwin-api/internal/bootstrap"
	"github.com/hydrotwin/hydrotwin-api/internal/domain/auth"
	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/config"
	httpiface "github.com/hydrotwin/hydrotwin-api/internal/interface/http"
	"github.com/hydrotwin/hydrotwin-api/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		providePiezometryConfig,
		provideAuthConfig,
		provideReadingSource,
		provideReadingCache,
		provideExportStorage,
		piezometry.NewService,
		auth.NewService,
		httpiface.NewHandler,
		provideAuthHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
