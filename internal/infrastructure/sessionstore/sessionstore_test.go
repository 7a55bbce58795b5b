package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marketplace/orderflow/internal/domain/identity"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *identity.Session {
	return &identity.Session{
		Token:     "tok",
		UserID:    "u-1",
		Name:      "Hana",
		Role:      order.RoleFinance,
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing file means no session")

	require.NoError(t, store.Save(ctx, sampleSession()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), loaded)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is fine")
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := sampleSession()
	require.NoError(t, store.Save(ctx, sess))
	sess.Token = "mutated"

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token)

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// fakeRedis records calls and serves canned values through the go-redis
// command result constructors
type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
		delete(f.values, k)
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2029, 12, 31, 23, 0, 0, 0, time.UTC)
	fake := newFakeRedis()
	store := NewRedisStoreWithClient(fake, "", "alice")
	store.now = func() time.Time { return now }

	assert.Equal(t, "orderflow:session:alice", store.Key())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, store.Save(ctx, sampleSession()))
	assert.Equal(t, time.Hour, fake.ttls[store.Key()])

	var raw identity.Session
	require.NoError(t, json.Unmarshal([]byte(fake.values[store.Key()]), &raw))
	assert.Equal(t, "u-1", raw.UserID)

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), loaded)

	require.NoError(t, store.Clear(ctx))
	_, ok := fake.values[store.Key()]
	assert.False(t, ok)
}

func TestRedisStore_ExpiredSessionIsNotStored(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := NewRedisStoreWithClient(fake, "p:", "bob")
	store.now = func() time.Time { return time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC) }

	fake.values[store.Key()] = "stale"
	require.NoError(t, store.Save(ctx, sampleSession()))
	_, ok := fake.values[store.Key()]
	assert.False(t, ok)
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	store := NewRedisStoreWithClient(fake, "", "")

	_, err := store.Load(ctx)
	assert.Error(t, err)
	assert.Error(t, store.Save(ctx, sampleSession()))
	assert.Error(t, store.Clear(ctx))
	assert.NoError(t, store.Close())
}

func TestFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, closeFn, err := NewFactory(config.SessionConfig{Backend: BackendMemory}, config.RedisConfig{}).Create(ctx)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, repo)
		assert.NoError(t, closeFn())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.json")
		repo, _, err := NewFactory(config.SessionConfig{Backend: BackendFile, Path: path}, config.RedisConfig{}).Create(ctx)
		require.NoError(t, err)
		require.IsType(t, &FileStore{}, repo)
		assert.Equal(t, path, repo.(*FileStore).Path())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := NewFactory(config.SessionConfig{Backend: "etcd"}, config.RedisConfig{}).Create(ctx)
		assert.Error(t, err)
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		_, _, err := NewFactory(
			config.SessionConfig{Backend: BackendRedis},
			config.RedisConfig{Host: "127.0.0.1", Port: 1},
			WithFileFallback(false),
		).Create(ctx)
		assert.Error(t, err)
	})

	t.Run("unreachable redis falls back to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "s.json")
		repo, _, err := NewFactory(
			config.SessionConfig{Backend: BackendRedis, Path: path},
			config.RedisConfig{Host: "127.0.0.1", Port: 1},
		).Create(ctx)
		require.NoError(t, err)
		assert.IsType(t, &FileStore{}, repo)
	})
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "/etc/s.json", ResolvePath("/etc/s.json"))
	assert.Equal(t, filepath.Join(home, ".orderflow", "s.json"), ResolvePath("~/.orderflow/s.json"))
	assert.Equal(t, filepath.Join(home, "s.json"), ResolvePath("s.json"))
}
