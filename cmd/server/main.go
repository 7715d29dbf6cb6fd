package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docrank/internal/api"
	"github.com/dgallion1/docrank/internal/config"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/version"
)

func main() {
	boot := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := config.LoadDotEnv(".env"); err != nil {
		boot.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		boot.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	profile, err := config.LoadProfile(cfg.Profile)
	if err != nil {
		log.Error("invalid ranking profile", "profile", cfg.Profile, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzer, err := pipeline.NewAnalyzer(profile, cfg.MaxConcurrentDocs, log)
	if err != nil {
		log.Error("failed to build analyzer", "error", err)
		os.Exit(1)
	}

	// Hot reload only applies to file-backed profiles.
	if cfg.WatchProfile {
		if _, err := config.Preset(cfg.Profile); err == nil {
			log.Warn("profile watch ignored for built-in preset", "profile", cfg.Profile)
		} else {
			pw, err := config.NewProfileWatcher(cfg.Profile, log)
			if err != nil {
				log.Error("failed to watch profile", "path", cfg.Profile, "error", err)
				os.Exit(1)
			}
			go pw.Run(ctx, func(p config.Profile) {
				if err := analyzer.SetProfile(p); err != nil {
					log.Warn("rejected reloaded profile", "error", err)
				}
			})
		}
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, analyzer, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cancel()
		orch.Stop()
	}()

	log.Info("starting docrank", "port", cfg.Port, "profile", profile.Name, "version", version.String())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
