package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"recipestore"
	"recipestore/client"
	"recipestore/slack"
	"recipestore/store"
)

func main() {
	ctx := context.Background()

	var cfg recipestore.ClientConfig
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	svc, err := client.NewClient(client.ClientOpts{
		BaseURL:    cfg.BaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create recipe client", "error", err)
		return
	}

	opLog, cleanup, err := newOperationLogger(cfg, httpClient)
	if err != nil {
		slog.Error("SETUP: Failed to create operation logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush operation log", "error", err)
		}
	}()

	opts := []store.Option{store.WithOperationLogger(opLog)}
	if cfg.OtelEnabled {
		tracerProvider, meterProvider, otelShutdown, err := recipestore.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()
		opts = append(opts, store.WithTracerProvider(tracerProvider), store.WithMeterProvider(meterProvider))

		var span trace.Span
		ctx, span = tracerProvider.Tracer(recipestore.TracerNameController).Start(ctx, "recipesync",
			trace.WithAttributes(attribute.String("recipes.base_url", cfg.BaseURL)))
		defer span.End()
	}

	ctrl := store.New(svc, opts...)
	cancel := ctrl.Subscribe(func(s store.State) {
		slog.Info("STATE: Collection updated",
			"categories", len(s.Collection),
			"records", s.Collection.Len(),
		)
	})
	defer cancel()

	if err := ctrl.Init(ctx); err != nil {
		slog.Error("RESULT: Initial load failed", "error", err)
		return
	}

	state := ctrl.State()
	for _, name := range state.Collection.CategoryNames() {
		slog.Info("RESULT: Category", "name", name, "records", len(state.Collection[name]))
	}
	if cfg.Dump {
		recipestore.DumpCollection(os.Stdout, state.Collection)
	}
}

// newOperationLogger fans operation entries out to stdout and, when
// configured, to a log file and a Slack channel.
func newOperationLogger(cfg recipestore.ClientConfig, httpClient *http.Client) (recipestore.OperationLogger, func() error, error) {
	loggers := recipestore.MultiOperationLogger{recipestore.NewStdoutOperationLogger()}
	cleanup := func() error { return nil }

	if cfg.SlackWebhookURL != "" {
		loggers = append(loggers, slack.NewNotifier(slack.NewClient(cfg.SlackWebhookURL, httpClient), cfg.SlackChannel))
	}

	if cfg.OperationLogPath != "" {
		logFile, err := os.OpenFile(cfg.OperationLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open log file: %w", err)
		}
		fileLogger := recipestore.NewFileOperationLogger(logFile)
		loggers = append(loggers, fileLogger)
		cleanup = func() error {
			return errors.Join(fileLogger.Flush(), logFile.Close())
		}
	}

	return loggers, cleanup, nil
}
