package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/roomchat-server/internal/broadcast"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/store"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/roomchat-server/internal/transport/http"
)

const auditQueueSize = 1024

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *core.Registry
	router          *core.Router
	hub             *broadcast.Hub
	ws              *transporthttp.WSHandler
	store           store.AuditStore
	recorder        *store.Recorder
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	gen, err := core.NewRandomCodeGenerator()
	if err != nil {
		return nil, fmt.Errorf("init code generator: %w", err)
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	var opts []core.RegistryOption
	if cfg.AuditDBPath != "" {
		st, err := sqlite.New(cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("init audit store: %w", err)
		}
		logger.Info().Str("db_path", cfg.AuditDBPath).Msg("audit store initialized")

		a.store = st
		a.recorder = store.NewRecorder(st, auditQueueSize, logger)
		opts = append(opts, core.WithObserver(a.recorder))
	}

	a.registry = core.NewRegistry(gen, opts...)
	a.hub = broadcast.NewHub(cfg.SubscriberBuffer)
	a.router = core.NewRouter(a.registry, a.hub)
	a.server, a.ws = transporthttp.NewServer(a.registry, a.router, a.hub, a.store, cfg, logger)

	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// The recorder keeps running until every session has left, so rooms closed on shutdown
	// are still persisted.
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorderDone := make(chan struct{})
	if a.recorder != nil {
		go func() {
			defer close(recorderDone)
			_ = a.recorder.Run(recorderCtx)
		}()
	} else {
		close(recorderDone)
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)

		// Shutdown does not track hijacked connections; drain them explicitly.
		if drainErr := a.ws.Drain(shutdownCtx); drainErr != nil {
			a.log.Warn().Err(drainErr).Msg("websocket sessions still open after shutdown timeout")
		}
		a.hub.Close()
		return err
	})

	err := g.Wait()

	stopRecorder()
	<-recorderDone
	a.cleanup()

	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.recorder != nil && a.recorder.Dropped() > 0 {
		a.log.Warn().Uint64("dropped", a.recorder.Dropped()).Msg("audit events dropped")
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
