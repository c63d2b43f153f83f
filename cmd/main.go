package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"aurora-qa/handler"
	"aurora-qa/internal/app"
	"aurora-qa/internal/config"
	"aurora-qa/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// ---- Service ----
	// No scrape endpoint behind API Gateway, so metrics stay off here.
	svc, err := app.Build(ctx, cfg, app.Deps{Logger: logger})
	if err != nil {
		logger.Fatal("failed to build ask service", zap.Error(err))
	}

	// ---- Handler ----
	h, err := handler.NewHandler(svc, handler.WithLogger(logger.Named("handler")))
	if err != nil {
		logger.Fatal("failed to create handler", zap.Error(err))
	}

	lambda.Start(h.Handle)
}
