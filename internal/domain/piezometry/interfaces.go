package piezometry

import (
	"context"
	"time"
)

// ReadingSource loads piezometer data from the corporate network.
type ReadingSource interface {
	Fetch(ctx context.Context, variables []string, body RequestBody) (Series, error)
	Piezometers(ctx context.Context, codes []string) ([]Piezometer, error)
}

// ReadingCache keeps recently fetched series for a short time.
type ReadingCache interface {
	Get(ctx context.Context, key string) (Series, bool, error)
	Set(ctx context.Context, key string, series Series, ttl time.Duration) error
}

// StoredObject describes an archived export.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}

// ExportStorage archives exported CSV files.
type ExportStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
}
