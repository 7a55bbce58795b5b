package sessionstore

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/marketplace/orderflow/internal/domain/identity"
	"github.com/marketplace/orderflow/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backend names accepted in session.backend
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Factory creates session repositories based on configuration
type Factory struct {
	session       config.SessionConfig
	redis         config.RedisConfig
	logger        *zap.Logger
	allowFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithFileFallback controls whether an unreachable Redis falls back to the
// file backend. Default is true.
func WithFileFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(session config.SessionConfig, redis config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		session:       session,
		redis:         redis,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the configured repository. The returned close function
// releases any connection held by it.
func (f *Factory) Create(ctx context.Context) (identity.SessionRepository, func() error, error) {
	noop := func() error { return nil }

	switch f.session.Backend {
	case BackendMemory:
		f.logger.Warn("Using in-memory session store, sign-in will not survive restarts")
		return NewMemoryStore(), noop, nil

	case BackendRedis:
		store, err := NewRedisStore(ctx, RedisConfig{
			Addr:      f.redis.Addr(),
			Password:  f.redis.Password,
			DB:        f.redis.DB,
			KeyPrefix: f.session.KeyPrefix,
			Profile:   currentProfile(),
		})
		if err == nil {
			f.logger.Info("Using Redis session store", zap.String("addr", f.redis.Addr()), zap.String("key", store.Key()))
			return store, store.Close, nil
		}
		if !f.allowFallback {
			return nil, nil, fmt.Errorf("failed to create Redis session store: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to file session store", zap.Error(err))
		return f.fileStore(), noop, nil

	case BackendFile, "":
		return f.fileStore(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", f.session.Backend)
	}
}

func (f *Factory) fileStore() *FileStore {
	store := NewFileStore(ResolvePath(f.session.Path))
	f.logger.Info("Using file session store", zap.String("path", store.Path()))
	return store
}

// ResolvePath expands a leading ~ and anchors relative paths in the user's
// home directory
func ResolvePath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(home, path)
	}
	return path
}

func currentProfile() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}
