package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
	"golang.org/x/sync/errgroup"

	"recipestore"
	"recipestore/server"
	"recipestore/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg recipestore.ServiceConfig
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	state, err := newRecipeState(ctx, cfg)
	if err != nil {
		slog.Error("SETUP: Failed to create recipe state", "backend", cfg.Backend, "error", err)
		return
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(state, server.WithAllowedOrigins(cfg.AllowedOrigins...)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("SERVER: Starting", "addr", cfg.Addr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("SERVER: Stopped with error", "error", err)
		return
	}
	slog.Info("SERVER: Stopped")
}

func newRecipeState(ctx context.Context, cfg recipestore.ServiceConfig) (storage.RecipeState, error) {
	switch cfg.Backend {
	case "file":
		return storage.NewFileRecipeState(cfg.FilePath), nil
	case "memory":
		return storage.NewMemoryRecipeState(nil), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("RECIPES_S3_BUCKET is required for the s3 backend")
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, err
		}
		return storage.NewS3RecipeState(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
