package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aurora-qa/internal/config"
	"aurora-qa/internal/integrations/paramstore"
	"aurora-qa/internal/usecase"
)

const page = `{"total":2,"items":[
	{"id":"1","user_id":"u1","user_name":"Vikram Desai","timestamp":"2025-01-02T10:00:00Z","message":"I have 2 cars in the garage."},
	{"id":"2","user_id":"u2","user_name":"Layla Kawaguchi","timestamp":"2025-01-03T10:00:00Z","message":"Planning my trip to London on March 3."}
]}`

type mapGetter map[string]string

func (m mapGetter) GetParameter(_ context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", paramstore.ErrNotFound
	}
	return v, nil
}

func testConfig(url string) *config.Config {
	return &config.Config{
		MessagesURL:       url,
		FetchTimeout:      time.Second,
		FetchRetries:      1,
		CacheTTL:          time.Minute,
		MaxQuestionLength: 300,
		SampleSize:        5,
	}
}

func TestBuild_AnswersFromProvider(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	svc, err := Build(context.Background(), testConfig(srv.URL), Deps{Logger: zap.NewNop(), Registerer: reg})
	require.NoError(t, err)

	out, err := svc.Ask(context.Background(), usecase.AskInput{Question: "How many cars does Vikram Desai have?"})
	require.NoError(t, err)
	require.Equal(t, "Vikram Desai has 2 cars.", out.Answer)

	_, err = svc.Ask(context.Background(), usecase.AskInput{Question: "When is Layla planning her trip to London?"})
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	count, err := testutil.GatherAndCount(reg, "aurora_qa_provider_fetch_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestBuild_ParameterStoreOverridesProvider(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig("http://unused.invalid/messages")
	cfg.ParamPrefix = "/aurora-qa"
	params := mapGetter{
		"/aurora-qa/messages_url":   srv.URL,
		"/aurora-qa/messages_token": `{"token":"tok"}`,
	}

	svc, err := Build(context.Background(), cfg, Deps{Params: params})
	require.NoError(t, err)

	names, err := svc.MemberNames(context.Background())
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Equal(t, "Bearer tok", auth.Load())
}

type failingGetter struct{}

func (failingGetter) GetParameter(context.Context, string) (string, error) {
	return "", errors.New("throttled")
}

func TestBuild_ParameterStoreFailure(t *testing.T) {
	cfg := testConfig("")
	cfg.ParamPrefix = "/aurora-qa"

	_, err := Build(context.Background(), cfg, Deps{Params: failingGetter{}})
	require.ErrorContains(t, err, "load provider settings")
}

func TestBuild_ProviderDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	svc, err := Build(context.Background(), testConfig(srv.URL), Deps{})
	require.NoError(t, err)

	out, err := svc.Ask(context.Background(), usecase.AskInput{Question: "How many cars does Vikram Desai have?"})
	require.Equal(t, usecase.AnswerUnavailable, out.Answer)

	var uerr *usecase.Error
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, usecase.ErrorProviderUnavailable, uerr.Code)
}
