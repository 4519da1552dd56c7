// Package app wires every loglite component into a single process and
// manages its lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"loglite/internal/config"
	"loglite/internal/httpapi"
	"loglite/internal/idgen"
	"loglite/internal/retention"
	"loglite/internal/search"
	"loglite/internal/store"
	"loglite/internal/tailer"
	"loglite/internal/writer"
	"loglite/pkg/types"
)

// App owns every long-lived component and the root HTTP server.
type App struct {
	config *types.Config
	logger *logrus.Logger

	db     interface{ Close() error }
	index  *search.Index
	writer *writer.Writer

	tailer    *tailer.Tailer
	retention *retention.Collector
	api       *httpapi.Server

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads configuration from configFile, then constructs every
// component in dependency order: relational store, index, allocator,
// writer, tailer, retention collector, HTTP API.
func New(configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.App.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	db, err := store.Open(cfg.Store.DBURL)
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}

	idx, err := search.Open(cfg.Search.IndexDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	apps := store.NewAppStore(db)
	sources := store.NewSourceStore(db)
	offsets := store.NewOffsetStore(db)
	events := store.NewEventStore(db)

	ids := idgen.New(cfg.App.NodeID)
	w := writer.New(ids, apps, events, idx)

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		index:     idx,
		writer:    w,
		tailer:    tailer.New(sources, offsets, w, logger, cfg.TailInterval(), cfg.Tailer.MaxWorkers),
		retention: retention.New(events, idx, logger, cfg.TTLInterval(), cfg.RetentionHorizon(), cfg.Retain.BatchSize),
		api:       httpapi.New(apps, sources, events, idx, w, logger),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: a.api.Router(),
	}

	return a, nil
}

// Start launches the background tasks and the HTTP listener. The HTTP
// server runs in its own goroutine so Start returns immediately.
func (a *App) Start() error {
	a.logger.WithFields(logrus.Fields{
		"addr": a.httpServer.Addr,
	}).Info("loglite: starting")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.tailer.Run(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.retention.Run(a.ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("loglite: http server stopped unexpectedly")
		}
	}()

	return nil
}

// Stop cancels the background tasks' context, gracefully drains the HTTP
// server, and closes the index and relational store.
func (a *App) Stop() error {
	a.logger.Info("loglite: stopping")
	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("loglite: http server shutdown error")
	}

	a.wg.Wait()

	if err := a.index.Close(); err != nil {
		a.logger.WithError(err).Error("loglite: failed to close index")
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("loglite: failed to close relational store")
	}

	a.logger.Info("loglite: stopped")
	return nil
}

// Run starts the application and blocks until SIGINT/SIGTERM, then stops
// it gracefully.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	a.logger.Info("loglite: shutdown signal received")

	return a.Stop()
}
