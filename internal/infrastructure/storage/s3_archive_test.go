package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marketplace/orderflow/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "receipts",
		AccessKeyID:     "test-access",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
		KeyPrefix:       "receipts/",
	}
}

func TestNewS3Archive_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3Archive(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := testConfig("http://localhost:9000")
		cfg.Bucket = ""
		_, err := NewS3Archive(ctx, cfg)
		assert.ErrorContains(t, err, "bucket")
	})

	t.Run("half the credentials", func(t *testing.T) {
		cfg := testConfig("http://localhost:9000")
		cfg.SecretAccessKey = ""
		_, err := NewS3Archive(ctx, cfg)
		assert.ErrorContains(t, err, "set together")
	})

	t.Run("valid", func(t *testing.T) {
		archive, err := NewS3Archive(ctx, testConfig("localhost:9000"))
		require.NoError(t, err)
		assert.Equal(t, "receipts", archive.Bucket())
		assert.Equal(t, defaultPresignExpiration, archive.presignExpiration)
	})
}

func TestS3Archive_ObjectKey(t *testing.T) {
	archive, err := NewS3Archive(context.Background(), testConfig("http://localhost:9000"))
	require.NoError(t, err)

	assert.Equal(t, "receipts/o-1.pdf", archive.ObjectKey("o-1.pdf"))
	assert.Equal(t, "receipts/2026/o-1.pdf", archive.ObjectKey("/2026/o-1.pdf"))

	archive.keyPrefix = ""
	assert.Equal(t, "o-1.pdf", archive.ObjectKey("o-1.pdf"))
}

func TestS3Archive_DownloadURL(t *testing.T) {
	archive, err := NewS3Archive(context.Background(), testConfig("http://localhost:9000"),
		WithPresignExpiration(5*time.Minute))
	require.NoError(t, err)

	link, expiresAt, err := archive.DownloadURL(context.Background(), "receipts/o-1.pdf", 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link, "http://localhost:9000/receipts/receipts/o-1.pdf?"), link)
	assert.Contains(t, link, "X-Amz-Signature=")
	assert.Contains(t, link, "X-Amz-Expires=300")
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

	_, _, err = archive.DownloadURL(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestS3Archive_Put(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		ctype  string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path, ctype = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	archive, err := NewS3Archive(context.Background(), testConfig(server.URL))
	require.NoError(t, err)

	key, err := archive.Put(context.Background(), "o-1.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "receipts/o-1.pdf", key)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/receipts/receipts/o-1.pdf", path)
	assert.Equal(t, "application/pdf", ctype)

	_, err = archive.Put(context.Background(), " ", nil, "application/pdf")
	assert.Error(t, err)
}
