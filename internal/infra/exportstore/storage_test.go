package exportstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoragePut(t *testing.T) {
	store := NewMemoryStorage()
	data := []byte("variablecode,date,type,value\n")

	obj, err := store.Put(context.Background(), "exports/P1/20240615/a.csv", data, "text/csv")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), obj.Size)
	require.Equal(t, "text/csv", obj.MimeType)
	require.Len(t, obj.ETag, 32)

	data[0] = 'X'
	stored, ok := store.Object(obj.Key)
	require.True(t, ok)
	require.Equal(t, byte('v'), stored[0])
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "minio:9000", sanitizeEndpoint("http://minio:9000"))
	require.Equal(t, "s3.example.com", sanitizeEndpoint(" https://s3.example.com/bucket/path "))
	require.Equal(t, "localhost:9000", sanitizeEndpoint("localhost:9000"))
	require.Equal(t, "", sanitizeEndpoint(""))
}
