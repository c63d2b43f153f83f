package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aurora-qa/internal/integrations/aurora"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, &Config{
		MessagesURL:       aurora.DefaultMessagesURL,
		FetchTimeout:      10 * time.Second,
		FetchRetries:      3,
		FetchRPS:          5,
		CacheTTL:          5 * time.Minute,
		MaxQuestionLength: 300,
		SampleSize:        5,
		LogLevel:          "info",
		LogFormat:         "json",
		HTTPAddr:          ":8000",
	}, cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AURORA_MESSAGES_URL", " http://localhost:9000/messages ")
	t.Setenv("AURORA_PARAM_PREFIX", "/aurora-qa/")
	t.Setenv("AURORA_FETCH_TIMEOUT", "2s")
	t.Setenv("AURORA_FETCH_RETRIES", "5")
	t.Setenv("AURORA_FETCH_RPS", "0.5")
	t.Setenv("AURORA_CACHE_TTL", "0s")
	t.Setenv("AURORA_MAX_QUESTION_LENGTH", "120")
	t.Setenv("AURORA_SAMPLE_SIZE", "10")
	t.Setenv("AURORA_LOG_LEVEL", "debug")
	t.Setenv("AURORA_LOG_FORMAT", "console")
	t.Setenv("AURORA_HTTP_ADDR", "127.0.0.1:9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/messages", cfg.MessagesURL)
	require.Equal(t, "/aurora-qa", cfg.ParamPrefix)
	require.Equal(t, 2*time.Second, cfg.FetchTimeout)
	require.Equal(t, 5, cfg.FetchRetries)
	require.Equal(t, 0.5, cfg.FetchRPS)
	require.Zero(t, cfg.CacheTTL)
	require.Equal(t, 120, cfg.MaxQuestionLength)
	require.Equal(t, 10, cfg.SampleSize)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "console", cfg.LogFormat)
	require.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
}

func TestLoad_URLMayComeFromParamStore(t *testing.T) {
	t.Setenv("AURORA_MESSAGES_URL", "")
	t.Setenv("AURORA_PARAM_PREFIX", "/aurora-qa")

	cfg, err := Load()
	require.NoError(t, err)
	require.Empty(t, cfg.MessagesURL)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing url":     {"AURORA_MESSAGES_URL": ""},
		"negative ttl":    {"AURORA_CACHE_TTL": "-1m"},
		"zero timeout":    {"AURORA_FETCH_TIMEOUT": "0s"},
		"bad duration":    {"AURORA_FETCH_TIMEOUT": "soon"},
		"no retries":      {"AURORA_FETCH_RETRIES": "0"},
		"negative rps":    {"AURORA_FETCH_RPS": "-1"},
		"unknown format":  {"AURORA_LOG_FORMAT": "xml"},
		"unknown level":   {"AURORA_LOG_LEVEL": "chatty"},
		"zero max length": {"AURORA_MAX_QUESTION_LENGTH": "0"},
		"negative sample": {"AURORA_SAMPLE_SIZE": "-2"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := (&Config{LogFormat: "xml"}).Validate()
	require.Error(t, err)
	for _, want := range []string{"messages_url", "fetch_timeout", "fetch_retries", "max_question_length", "log_format"} {
		require.ErrorContains(t, err, want)
	}
}
