package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/tracer"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/visitstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "medflow-notes: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	m := metrics.NewCollector(cfg.App.Name, prometheus.DefaultRegisterer)
	store := visitstore.New(cfg.Store, cfg.Breaker, m, log.Named("visitstore"))

	var revisions service.RevisionRepository
	if cfg.Journal.Enabled {
		db, err := database.Connect(cfg.Journal)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := database.Migrate(db, log); err != nil {
			return fmt.Errorf("migrating journal: %w", err)
		}
		revisions = repository.NewRevisionRepository(db)
		log.Info("edit journal stored in postgres", zap.String("host", cfg.Journal.Host))
	} else {
		revisions = repository.NewLogRepository(log.Named("journal"))
		log.Info("edit journal written to log only")
	}
	journal := service.NewJournalService(revisions, cfg.Journal.BufferSize, m, log.Named("journal"))
	defer journal.Shutdown()

	loader := service.NewNoteLoader(store, cfg.Store.FetchConcurrency, m, log.Named("loader"))
	notes := service.NewNotesService(store, loader, journal, m, log.Named("notes"))
	consultations := service.NewConsultationService(store, log.Named("consultations"))

	// The UI shows the list on open; a failed first load is not fatal.
	if _, err := notes.Reload(ctx); err != nil {
		log.Warn("initial note load failed", zap.Error(err))
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(cfg, v1.Handlers{
		Notes:         v1.NewNotesHandler(notes),
		Patients:      v1.NewPatientHandler(notes),
		Consultations: v1.NewConsultationHandler(consultations, cfg.Server.MaxUploadBytes),
		Health:        v1.NewHealthHandler(store, cfg.App.Version),
	}, m, prometheus.DefaultGatherer, log)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.Store.BaseURL),
			zap.String("env", cfg.App.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
