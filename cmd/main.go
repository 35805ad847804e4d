package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"prompt-gateway/handler"
	"prompt-gateway/internal/app"
)

func main() {
	ctx := context.Background()

	// ---- Logging ----
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: app.LogLevel(os.Getenv("LOG_LEVEL"))})))

	// ---- Configuration (read only here) ----
	cfg, err := app.ConfigFromEnv(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// ---- Dependencies ----
	svc, err := app.Build(ctx, cfg, &app.AWSFactory{})
	if err != nil {
		slog.Error("failed to build relay service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(svc)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
