// Package app wires the booksms components together and owns the process
// lifecycle: startup order, background sweeps, and graceful shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booksms/internal/booksms/bot"
	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/config"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/library"
	"booksms/internal/booksms/nlp"
	"booksms/internal/booksms/ratelimit"
	"booksms/internal/booksms/store"
	"booksms/internal/booksms/webhook"
)

// sweepInterval paces the background housekeeping: expired rate-limit
// buckets, stale conversation rows, old audit rows.
const sweepInterval = 5 * time.Minute

// auditRetention is how long audit rows are kept.
const auditRetention = 30 * 24 * time.Hour

// App is the assembled application.
type App struct {
	cfg    *config.Config
	store  *store.Store
	convos *convo.Store
	limit  *ratelimit.Limiter
	server *http.Server
	done   chan struct{}
}

// New builds the application from cfg. The database is opened and migrated
// here; a failure leaves nothing to clean up.
func New(cfg *config.Config) (*App, error) {
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	convos := convo.NewStore(convo.StoreConfig{
		FastTTL:    cfg.Convo.FastTTL,
		DurableTTL: cfg.Convo.DurableTTL,
		Durable:    st,
	})
	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window)

	hosted := nlp.NewHostedProvider(nlp.Config{
		APIKey:  cfg.NLP.APIKey,
		BaseURL: cfg.NLP.BaseURL,
		Model:   cfg.NLP.Model,
		Timeout: cfg.NLP.Timeout,
	})
	classifier := nlp.NewClassifier(hosted)
	if classifier.HostedAvailable() {
		slog.Info("hosted classifier enabled", "model", cfg.NLP.Model)
	} else {
		slog.Info("hosted classifier disabled, using rules only")
	}

	router := commands.NewRouter()
	lib := library.New(st)
	lib.RegisterAll(router)

	b := bot.New(bot.Config{
		Classifier: classifier,
		Router:     router,
		Library:    lib,
		Convos:     convos,
		Limiter:    limiter,
		Audit:      st,
	})

	mux := http.NewServeMux()
	webhook.New(b).Register(mux)

	return &App{
		cfg:    cfg,
		store:  st,
		convos: convos,
		limit:  limiter,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		done: make(chan struct{}),
	}, nil
}

// Run starts the HTTP server and the background sweeper, then blocks until
// SIGINT/SIGTERM or a server failure.
func (a *App) Run() error {
	go a.sweepLoop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", a.cfg.ListenAddr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// Stop releases resources. Safe to call after Run returns.
func (a *App) Stop() {
	close(a.done)
	if err := a.store.Close(); err != nil {
		slog.Warn("store close failed", "err", err)
	}
}

// sweepLoop runs periodic housekeeping until Stop.
func (a *App) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

		buckets := a.limit.Sweep()
		convos, err := a.store.PruneConversations(ctx, a.convos.DurableTTL())
		if err != nil {
			slog.Warn("conversation prune failed", "err", err)
		}
		audit, err := a.store.PruneMessageLog(ctx, auditRetention)
		if err != nil {
			slog.Warn("audit prune failed", "err", err)
		}
		cancel()

		slog.Debug("sweep complete", "rate_buckets", buckets,
			"conversations", convos, "audit_rows", audit)
	}
}
