package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"ragagent/internal/domain"
)

// Wrap decorates an embedder with an expiring LRU cache keyed by model name
// and text. Returns the embedder unchanged when caching is disabled.
func Wrap(e domain.Embedder, size int, ttl time.Duration) domain.Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float64](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  domain.Embedder
	cache *expirable.LRU[string, []float64]
}

func (l *lruEmbedder) Name() string { return l.next.Name() }

func (l *lruEmbedder) Prepare(ctx context.Context, corpus []string) error {
	return l.next.Prepare(ctx, corpus)
}

func (l *lruEmbedder) Dimension() int { return l.next.Dimension() }

func (l *lruEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(l.next.Name(), text)
	if cached, ok := l.cache.Get(key); ok {
		return cloneVector(cached), nil
	}
	vec, err := l.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneVector(vec))
	return vec, nil
}

func cacheKey(model, text string) string {
	h := sha1.Sum([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}

func cloneVector(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float64, len(values))
	copy(clone, values)
	return clone
}
