package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	chatapp "github.com/marketplace/orderflow/internal/application/chat"
	orderapp "github.com/marketplace/orderflow/internal/application/order"
	"github.com/marketplace/orderflow/internal/application/receipt"
	"github.com/marketplace/orderflow/internal/application/session"
	"github.com/marketplace/orderflow/internal/domain/identity"
	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/config"
	"github.com/marketplace/orderflow/internal/infrastructure/printing"
	"github.com/marketplace/orderflow/internal/infrastructure/sessionstore"
	"github.com/marketplace/orderflow/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// app holds the client services of one CLI invocation
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	out      io.Writer
	sessions *session.Store
	orders   *orderapp.Service
	chat     *chatapp.Service
	receipts *receipt.Generator
	closers  []func() error
}

// appOption adjusts the wiring, mostly for tests
type appOption func(*appDeps)

type appDeps struct {
	repo     identity.SessionRepository
	renderer printing.PDFRenderer
}

// withSessionRepository replaces the configured session backend
func withSessionRepository(repo identity.SessionRepository) appOption {
	return func(d *appDeps) {
		d.repo = repo
	}
}

// withRenderer replaces the Chrome renderer
func withRenderer(r printing.PDFRenderer) appOption {
	return func(d *appDeps) {
		d.renderer = r
	}
}

// newApp wires the session store, the API client and the services on top of
// them, then restores the saved session
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer, opts ...appOption) (*app, error) {
	deps := &appDeps{}
	for _, opt := range opts {
		opt(deps)
	}
	a := &app{cfg: cfg, log: log, out: out}

	if deps.repo == nil {
		repo, closeRepo, err := sessionstore.NewFactory(cfg.Session, cfg.Redis,
			sessionstore.WithLogger(log),
			sessionstore.WithFileFallback(true),
		).Create(ctx)
		if err != nil {
			return nil, err
		}
		deps.repo = repo
		a.closers = append(a.closers, closeRepo)
	}

	// The client needs the session for its token and the session store
	// needs the client to sign in, so the token source is bound late.
	var sessions *session.Store
	client, err := api.NewClient(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout},
		api.WithLogger(log),
		api.WithTokenSource(api.TokenFunc(func() string { return sessions.Token() })),
		api.WithUnauthorizedHandler(func(ctx context.Context) { sessions.HandleUnauthorized(ctx) }),
	)
	if err != nil {
		return nil, err
	}
	sessions = session.NewStore(deps.repo, client, session.WithLogger(log))
	a.sessions = sessions

	machine := order.NewMachine(cfg.Policy.DomainPolicy())
	a.orders = orderapp.NewService(client, sessions, machine, orderapp.WithLogger(log))
	a.chat = chatapp.NewService(client, sessions,
		chatapp.WithLogger(log),
		chatapp.WithPollInterval(cfg.Chat.PollInterval),
		chatapp.WithStreaming(cfg.Chat.Stream),
	)

	if deps.renderer == nil {
		chrome := printing.NewChromedpRenderer(printing.ChromedpConfig{
			DefaultTimeout: cfg.Receipt.RenderTimeout,
			ExecPath:       cfg.Receipt.ChromePath,
			NoSandbox:      os.Geteuid() == 0,
			Logger:         log,
		})
		deps.renderer = chrome
		a.closers = append(a.closers, chrome.Close)
	}
	genOpts := []receipt.Option{
		receipt.WithRenderer(deps.renderer),
		receipt.WithCompanyName(cfg.Receipt.CompanyName),
		receipt.WithLogger(log),
	}
	if cfg.Receipt.Archive {
		archive, err := storage.NewS3Archive(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("receipt archive: %w", err)
		}
		genOpts = append(genOpts, receipt.WithArchive(archive))
	}
	a.receipts = receipt.NewGenerator(printing.NewTemplateEngine(printing.WithCurrency(cfg.Receipt.Currency)), genOpts...)

	if _, err := sessions.Hydrate(ctx); err != nil {
		// A broken session file only means signing in again
		log.Warn("Failed to restore session", zap.Error(err))
	}
	return a, nil
}

// Close releases the session backend and the browser
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}
