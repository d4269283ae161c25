package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnemet/SlideDiff/internal/ai"
	"github.com/gnemet/SlideDiff/internal/compare"
	"github.com/gnemet/SlideDiff/internal/config"
	"github.com/gnemet/SlideDiff/internal/database"
	"github.com/gnemet/SlideDiff/internal/i18n"
	"github.com/gnemet/SlideDiff/internal/logger"
	"github.com/gnemet/SlideDiff/internal/metrics"
	"github.com/gnemet/SlideDiff/internal/observer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Close()
	log := lg.Logger

	if err := i18n.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load translations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	service := compare.NewServiceFromConfig(cfg.Compare, m, log)

	narrator, err := ai.NewClient(ctx, cfg.AI, log)
	if err != nil {
		log.Warn().Err(err).Msg("AI narration unavailable")
		narrator = nil
	}
	defer narrator.Close()

	srv := &server{
		app:      cfg.Application,
		comparer: service,
		narrator: narrator,
		metrics:  m.Handler(),
		logger:   log.With().Str("component", "HTTP").Logger(),
	}

	var runs *database.RunStore
	if cfg.Database.Enabled() {
		db, err := database.NewConnection(ctx, cfg.Database.GetConnectStr(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("Database unavailable")
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare run log")
		}
		runs = database.NewRunStore(db)
		srv.runs = runs
	}

	if cfg.Application.Storage.Watch != "" {
		var runLog observer.RunLog
		if runs != nil {
			runLog = runs
		}
		obs := observer.NewObserver(cfg.Application.Storage, service, runLog, srv.narrator, log, nil)
		go func() {
			if err := obs.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Revision watcher stopped")
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Application.Addr(),
		Handler:           srv.routes(m.Middleware),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("version", cfg.Application.Version).Msgf("%s starting", cfg.Application.Name)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
