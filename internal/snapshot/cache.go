// Package snapshot keeps an immutable, fully indexed copy of the provider's
// messages and refreshes it on a TTL.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"aurora-qa/internal/domain"
	"aurora-qa/internal/logging"
	"aurora-qa/internal/members"
	"aurora-qa/internal/metrics"
)

// Fetcher returns the provider's current page of messages.
type Fetcher interface {
	FetchRaw(ctx context.Context) (domain.RawPage, error)
}

// Snapshot is never mutated after it is published.
type Snapshot struct {
	Raw       domain.RawPage
	Records   []domain.MessageRecord
	Index     *members.Index
	FetchedAt time.Time
}

// Age is how old s is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

type Option func(*Cache)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is a read-through cache of one Snapshot. A ttl of zero refetches on
// every Get; the last good snapshot is still kept as a fallback.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	group   singleflight.Group
	current atomic.Pointer[Snapshot]
}

func New(fetcher Fetcher, ttl time.Duration, opts ...Option) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("snapshot: fetcher must not be nil")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("snapshot: negative ttl %s", ttl)
	}
	c := &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a snapshot no older than the TTL, refreshing it when needed.
// Concurrent refreshes share one provider fetch. When a refresh fails and an
// older snapshot exists, the older snapshot is returned.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if s := c.current.Load(); s != nil && c.fresh(s) {
		c.metrics.SetSnapshotAge(s.Age(c.now()))
		return s, nil
	}

	// The shared refresh must not be torn down by one caller going away.
	ch := c.group.DoChan("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("snapshot: get: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		s := res.Val.(*Snapshot)
		c.metrics.SetSnapshotAge(s.Age(c.now()))
		return s, nil
	}
}

// Current returns the published snapshot without refreshing it.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

func (c *Cache) fresh(s *Snapshot) bool {
	return c.ttl > 0 && s.Age(c.now()) < c.ttl
}

func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	logger := logging.FromContext(ctx, c.logger)

	page, err := c.fetcher.FetchRaw(ctx)
	if err != nil {
		if prev := c.Current(); prev != nil {
			c.metrics.ObserveFetch(metrics.FetchStale)
			logger.Warn("provider fetch failed, serving stale snapshot",
				zap.Error(err),
				zap.Duration("age", prev.Age(c.now())),
			)
			return prev, nil
		}
		c.metrics.ObserveFetch(metrics.FetchError)
		return nil, fmt.Errorf("snapshot: refresh: %w", err)
	}

	records, skipped := page.Records()
	s := &Snapshot{
		Raw:       page,
		Records:   records,
		Index:     members.Build(records),
		FetchedAt: c.now(),
	}
	c.current.Store(s)
	c.metrics.ObserveFetch(metrics.FetchOK)

	logger.Info("snapshot refreshed",
		zap.Int("records", len(records)),
		zap.Int("members", s.Index.Len()),
		zap.Int("skipped", skipped),
	)
	return s, nil
}
