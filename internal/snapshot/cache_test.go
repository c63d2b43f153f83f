package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"aurora-qa/internal/domain"
	"aurora-qa/internal/metrics"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages []domain.RawPage
	errs  []error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *fakeFetcher) FetchRaw(ctx context.Context) (domain.RawPage, error) {
	n := int(f.calls.Add(1)) - 1
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < len(f.errs) && f.errs[n] != nil {
		return domain.RawPage{}, f.errs[n]
	}
	if len(f.pages) == 0 {
		return domain.RawPage{}, nil
	}
	if n >= len(f.pages) {
		n = len(f.pages) - 1
	}
	return f.pages[n], nil
}

func page(items ...string) domain.RawPage {
	p := domain.RawPage{Total: len(items)}
	for _, it := range items {
		p.Items = append(p.Items, json.RawMessage(it))
	}
	return p
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, time.Minute)
	require.Error(t, err)

	_, err = New(&fakeFetcher{}, -time.Second)
	require.Error(t, err)
}

func TestCache_GetBuildsIndexAndCaches(t *testing.T) {
	f := &fakeFetcher{pages: []domain.RawPage{
		page(`{"user_name":"Layla Kawaguchi","message":"hi"}`, `{"user_name":"Vikram Desai","message":"2 cars"}`, `"junk"`),
	}}
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c, err := New(f, time.Minute, WithClock(clk.now))
	require.NoError(t, err)

	s, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Records, 2)
	require.Equal(t, []string{"Layla Kawaguchi", "Vikram Desai"}, s.Index.Names())
	require.Equal(t, clk.t, s.FetchedAt)

	clk.advance(30 * time.Second)
	again, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Same(t, s, again)
	require.EqualValues(t, 1, f.calls.Load())

	clk.advance(time.Minute)
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, f.calls.Load())
}

func TestCache_ZeroTTLAlwaysRefetches(t *testing.T) {
	f := &fakeFetcher{pages: []domain.RawPage{page(`{"user_name":"A B"}`)}}
	c, err := New(f, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background())
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, f.calls.Load())
}

func TestCache_ServesStaleOnFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	f := &fakeFetcher{
		pages: []domain.RawPage{page(`{"user_name":"Layla Kawaguchi","message":"hi"}`)},
		errs:  []error{nil, errors.New("provider down")},
	}
	clk := &clock{t: time.Unix(0, 0)}
	c, err := New(f, time.Minute, WithClock(clk.now), WithLogger(zap.New(core)), WithMetrics(m))
	require.NoError(t, err)

	first, err := c.Get(context.Background())
	require.NoError(t, err)

	clk.advance(2 * time.Minute)
	stale, err := c.Get(context.Background())
	require.NoError(t, err)
	require.Same(t, first, stale)

	require.Equal(t, 1, logs.FilterMessage("provider fetch failed, serving stale snapshot").Len())
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFetchTotal.WithLabelValues(metrics.FetchOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFetchTotal.WithLabelValues(metrics.FetchStale)))
	require.Equal(t, 120.0, testutil.ToFloat64(m.SnapshotAge))
}

func TestCache_FailureWithoutSnapshot(t *testing.T) {
	down := errors.New("provider down")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c, err := New(&fakeFetcher{errs: []error{down}}, time.Minute, WithMetrics(m))
	require.NoError(t, err)

	_, err = c.Get(context.Background())
	require.ErrorIs(t, err, down)
	require.Nil(t, c.Current())
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFetchTotal.WithLabelValues(metrics.FetchError)))
}

func TestCache_ConcurrentGetsShareOneFetch(t *testing.T) {
	f := &fakeFetcher{
		pages: []domain.RawPage{page(`{"user_name":"A B"}`)},
		gate:  make(chan struct{}),
	}
	c, err := New(f, time.Hour)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := c.Get(context.Background())
			if err == nil {
				results[i] = s
			}
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Let stragglers reach the singleflight group before releasing the fetch.
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	require.EqualValues(t, 1, f.calls.Load())
	for _, s := range results {
		require.NotNil(t, s)
		require.Same(t, results[0], s)
	}
}

func TestCache_GetHonoursCallerContext(t *testing.T) {
	f := &fakeFetcher{
		pages: []domain.RawPage{page(`{"user_name":"A B"}`)},
		gate:  make(chan struct{}),
	}
	c, err := New(f, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The shared refresh still completes and publishes.
	close(f.gate)
	require.Eventually(t, func() bool { return c.Current() != nil }, time.Second, time.Millisecond)
}
