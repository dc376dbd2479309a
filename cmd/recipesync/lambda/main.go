package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joeshaw/envdecode"

	"recipestore"
	"recipestore/client"
	"recipestore/store"
)

type Params struct {
	// BaseURL overrides RECIPES_BASE_URL for a single invocation.
	BaseURL string `json:"base_url,omitempty"`
}

type Results struct {
	Categories map[string]int `json:"categories"`
	Records    int            `json:"records"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var cfg recipestore.ClientConfig
		if err := envdecode.Decode(&cfg); err != nil {
			return Results{}, fmt.Errorf("failed to decode config: %w", err)
		}

		opts := []store.Option{store.WithOperationLogger(recipestore.NewStdoutOperationLogger())}
		if cfg.OtelEnabled {
			tracerProvider, meterProvider, otelShutdown, err := recipestore.InitOtel(ctx)
			if err != nil {
				slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
				return Results{}, err
			}
			defer func() {
				if err := otelShutdown(ctx); err != nil {
					slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
				}
			}()
			opts = append(opts, store.WithTracerProvider(tracerProvider), store.WithMeterProvider(meterProvider))
		}

		return countRecipes(ctx, cfg, params, opts...)
	}

	lambda.Start(fn)
}

// countRecipes loads the collection once and reports the records per category.
func countRecipes(ctx context.Context, cfg recipestore.ClientConfig, params Params, opts ...store.Option) (Results, error) {
	if params.BaseURL != "" {
		cfg.BaseURL = params.BaseURL
	}

	svc, err := client.NewClient(client.ClientOpts{
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
	})
	if err != nil {
		slog.Error("SETUP: Failed to create recipe client", "error", err)
		return Results{}, err
	}

	ctrl := store.New(svc, opts...)
	if err := ctrl.Init(ctx); err != nil {
		slog.Error("RESULT: Initial load failed", "error", err)
		return Results{}, err
	}

	col := ctrl.State().Collection
	results := Results{Categories: make(map[string]int, len(col)), Records: col.Len()}
	for _, name := range col.CategoryNames() {
		results.Categories[name] = len(col[name])
	}
	slog.Info("RESULT: Collection loaded", "categories", len(results.Categories), "records", results.Records)
	return results, nil
}
