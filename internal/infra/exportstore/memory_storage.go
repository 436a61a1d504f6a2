package exportstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
)

// MemoryStorage keeps exports in memory. Selected by export.memory when S3 is off.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStorage constructs storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

// Put stores the blob and returns metadata.
func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, mimeType string) (piezometry.StoredObject, error) {
	stored := append([]byte(nil), data...)
	hash := md5.Sum(stored)
	s.mu.Lock()
	s.blobs[key] = stored
	s.mu.Unlock()
	return piezometry.StoredObject{
		Key:      key,
		Size:     int64(len(stored)),
		MimeType: mimeType,
		ETag:     hex.EncodeToString(hash[:]),
	}, nil
}

// Object returns a stored blob.
func (s *MemoryStorage) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	return data, ok
}

var _ piezometry.ExportStorage = (*MemoryStorage)(nil)
