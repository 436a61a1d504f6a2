package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hydrotwin/hydrotwin-api/internal/infra/config"
	"github.com/hydrotwin/hydrotwin-api/internal/infra/exportstore"
)

func TestProvideExportStorage(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cfg := &config.Config{}
	require.Nil(t, provideExportStorage(cfg, logger))

	cfg.Export.Memory = true
	storage := provideExportStorage(cfg, logger)
	require.IsType(t, &exportstore.MemoryStorage{}, storage)
}

func TestBuildValkeyOptions(t *testing.T) {
	opt, err := buildValkeyOptions("localhost:6379")
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:6379"}, opt.InitAddress)

	opt, err = buildValkeyOptions("redis://cache.internal:6380/0")
	require.NoError(t, err)
	require.Equal(t, []string{"cache.internal:6380"}, opt.InitAddress)
}
