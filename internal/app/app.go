// Package app wires configuration into a ready AskService. Both entry points
// build through it.
package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"aurora-qa/internal/config"
	"aurora-qa/internal/integrations/aurora"
	"aurora-qa/internal/integrations/paramstore"
	"aurora-qa/internal/metrics"
	"aurora-qa/internal/snapshot"
	"aurora-qa/internal/usecase"
)

type Deps struct {
	Logger *zap.Logger
	// Registerer receives the service metrics; nil disables them.
	Registerer prometheus.Registerer
	// Params overrides the SSM-backed parameter store.
	Params paramstore.Getter
	// ProviderOptions are appended to the client options derived from cfg.
	ProviderOptions []aurora.Option
}

// Build assembles provider client, snapshot cache, and AskService from cfg.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*usecase.AskService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var m *metrics.Metrics
	if deps.Registerer != nil {
		m = metrics.New(deps.Registerer)
	}

	messagesURL, token := cfg.MessagesURL, ""
	if cfg.ParamPrefix != "" {
		params := deps.Params
		if params == nil {
			p, err := newParamStore(ctx)
			if err != nil {
				return nil, err
			}
			params = p
		}
		settings, err := paramstore.LoadProviderSettings(ctx, params, cfg.ParamPrefix)
		if err != nil {
			return nil, fmt.Errorf("app: load provider settings: %w", err)
		}
		if settings.MessagesURL != "" {
			messagesURL = settings.MessagesURL
		}
		token = settings.Token
	}

	opts := append([]aurora.Option{
		aurora.WithToken(token),
		aurora.WithAttemptTimeout(cfg.FetchTimeout),
		aurora.WithMaxAttempts(cfg.FetchRetries),
		aurora.WithRateLimit(cfg.FetchRPS),
		aurora.WithLogger(logger.Named("aurora")),
	}, deps.ProviderOptions...)
	client, err := aurora.NewClient(messagesURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	cache, err := snapshot.New(client, cfg.CacheTTL,
		snapshot.WithLogger(logger.Named("snapshot")),
		snapshot.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	svc, err := usecase.NewAskService(cache, logger.Named("ask"), m, cfg.MaxQuestionLength, cfg.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	logger.Info("service configured",
		zap.String("messages_url", messagesURL),
		zap.Bool("token", token != ""),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("fetch_timeout", cfg.FetchTimeout),
		zap.Int("fetch_retries", cfg.FetchRetries),
	)
	return svc, nil
}

func newParamStore(ctx context.Context) (*paramstore.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	return client, nil
}
