package lemma

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Store is the key-value backend of a Cache. *redis.Client satisfies it.
type Store interface {
	Lookup(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Cache serves lemmas from a Store and falls back to the wrapped Lemmatizer
// on a miss. Store failures are logged and treated as misses; lemmatizer
// failures are returned unchanged. A Cache is safe for concurrent use, and
// concurrent misses on one word share a single lemmatizer call.
type Cache struct {
	store   Store
	next    Lemmatizer
	prefix  string
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache wraps next with store. m may be nil.
func NewCache(store Store, next Lemmatizer, prefix string, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		store:   store,
		next:    next,
		prefix:  prefix,
		ttl:     ttl,
		metrics: m,
		logger:  logger.WithComponent("lemma-cache"),
	}
}

func (c *Cache) Lemma(ctx context.Context, word string) (string, error) {
	key := c.prefix + word
	if lemma, ok := c.get(ctx, key); ok {
		c.hit()
		return lemma, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if lemma, ok := c.get(ctx, key); ok {
			c.hit()
			return lemma, nil
		}
		c.miss()
		lemma, err := c.next.Lemma(ctx, word)
		if err != nil {
			return "", err
		}
		if err := c.store.Set(ctx, key, lemma, c.ttl); err != nil {
			c.logger.Error("cache set failed", "key", key, "error", err)
		}
		return lemma, nil
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

// Stats returns the hit and miss counts so far.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) get(ctx context.Context, key string) (string, bool) {
	lemma, found, err := c.store.Lookup(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return "", false
	}
	if !found || lemma == "" {
		return "", false
	}
	return lemma, true
}

func (c *Cache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.LemmaCacheHits.Inc()
	}
}

func (c *Cache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.LemmaCacheMisses.Inc()
	}
}
