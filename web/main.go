package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/framestore"
	"github.com/df07/go-whitted-raytracer/web/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Address, "addr", cfg.Address, "Address to serve on")
	flag.StringVar(&cfg.StoreDir, "store", cfg.StoreDir, "Frame cache directory (empty disables caching)")
	flag.StringVar(&cfg.ScenesDir, "scenes", cfg.ScenesDir, "Directory of JSON scene files")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Render workers (0 = all CPUs)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	core.SetLogger(logger)

	var store *framestore.Store
	if cfg.StoreDir != "" {
		if store, err = framestore.Open(cfg.StoreDir, cfg.StoreCodec); err != nil {
			logger.Error("failed to open frame store", "dir", cfg.StoreDir, "error", err)
			os.Exit(1)
		}
		logger.Info("frame cache enabled", "dir", cfg.StoreDir, "codec", cfg.StoreCodec.Name(), "frames", len(store.Keys()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Whitted Raytracer Web Server", "url", "http://localhost"+cfg.Address)
	if err := server.NewServer(cfg, store, logger).Start(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
