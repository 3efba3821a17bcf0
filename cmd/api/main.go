//	@title			Notedrop API
//	@version		1.0
//	@description	Anonymous note and file drop over pluggable storage backends.
//
//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notedrop/service/internal/cache"
	"github.com/notedrop/service/internal/classify"
	"github.com/notedrop/service/internal/config"
	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/store"
	"github.com/notedrop/service/internal/uploads"

	_ "github.com/notedrop/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	durable, err := openDurable(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "durable cache init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := durable.Close(); err != nil {
			log.Warn(ctx, "durable cache close failed", "error", err)
		}
	}()

	listings := cache.New[store.Entry](
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithMaxRecords(cfg.Cache.MaxRecords),
		cache.WithDurable(durable),
		cache.WithLogger(log),
	)
	classifier := classify.New(cfg.TextExtensions, cfg.PreviewMaxSize)

	// Wire dependencies: backends → store → handler
	backends := buildBackends(ctx, cfg, classifier, log)
	files, err := store.New(store.Options{
		Root:        cfg.UploadsRoot,
		Active:      cfg.StorageBackend,
		MaxFileSize: cfg.MaxFileSize,
		Cache:       listings,
		Logger:      log,
	}, backends...)
	if err != nil {
		log.Error(ctx, "store init failed", "error", err)
		os.Exit(1)
	}
	if reason := cfg.ActiveMissingReason(); reason != "" {
		log.Warn(ctx, "default storage backend is not configured", "backend", cfg.StorageBackend, "reason", reason)
	}
	uploadHandler := uploads.NewHandler(files, cfg.MaxFileSize, cfg.Cache.TTL, log)

	ids := make([]string, 0, len(backends))
	for _, b := range backends {
		ids = append(ids, b.ID())
	}

	router := newRouter(uploadHandler, ids, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info(ctx, "server listening", "port", cfg.Port, "env", cfg.AppEnv, "backend", cfg.StorageBackend)
		log.Info(ctx, "swagger UI at http://localhost:"+cfg.Port+"/swagger/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	log.Info(ctx, "shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "forced shutdown", "error", err)
		return
	}

	log.Info(ctx, "server stopped")
}
