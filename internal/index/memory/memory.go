package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragagent/internal/domain"
	xerrors "ragagent/internal/pkg/errors"
)

// Metric is the similarity function used to rank records. It is fixed at
// construction: swapping metrics changes ranking order and is an observable
// behavior change, not an implementation detail.
type Metric string

const (
	// MetricCosine ranks by cosine similarity, higher is more similar.
	MetricCosine Metric = "cosine"
	// MetricDot ranks by raw dot product. Equivalent to cosine when the
	// embedder L2-normalizes its vectors.
	MetricDot Metric = "dot"
)

// Index is an in-memory vector index using a brute-force scan.
//
// Build and Reset take the write lock, Query the read lock, so queries see
// either the pre- or post-build state, never a partial one. The index is
// never partially rebuilt: Reset is all-or-nothing.
type Index struct {
	mu        sync.RWMutex
	metric    Metric
	built     bool
	dimension int
	records   []domain.Document
	vectors   [][]float64
}

// New creates an empty index ranking by the given metric.
func New(metric Metric) *Index {
	if metric == "" {
		metric = MetricCosine
	}
	return &Index{metric: metric}
}

// Build embeds every record and loads the index. Each record gets exactly
// one vector. Building twice without an explicit Reset fails with
// ErrAlreadyBuilt so vectors for the same logical collection are never
// silently duplicated.
func (ix *Index) Build(ctx context.Context, records []domain.Document, embedder domain.Embedder) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.built {
		return xerrors.ErrAlreadyBuilt
	}
	vectors := make([][]float64, 0, len(records))
	dimension := 0
	for _, rec := range records {
		vec, err := embedder.Embed(ctx, rec.Text)
		if err != nil {
			return fmt.Errorf("%w: embed record %s: %v", xerrors.ErrEmbedding, rec.ID, err)
		}
		if dimension == 0 {
			dimension = len(vec)
		}
		if len(vec) == 0 || len(vec) != dimension {
			return fmt.Errorf("%w: record %s has dimension %d, want %d", xerrors.ErrEmbedding, rec.ID, len(vec), dimension)
		}
		vectors = append(vectors, vec)
	}
	ix.records = append([]domain.Document(nil), records...)
	ix.vectors = vectors
	ix.dimension = dimension
	ix.built = true
	return nil
}

// Reset clears all records and vectors. Idempotent; always safe to call
// before a fresh Build.
func (ix *Index) Reset(_ context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.records = nil
	ix.vectors = nil
	ix.dimension = 0
	ix.built = false
	return nil
}

// Query returns up to k nearest records sorted by non-increasing similarity.
// Ties keep insertion order (stable sort), so identical inputs always yield
// identical ordered results. If k exceeds the stored count, all records are
// returned.
func (ix *Index) Query(_ context.Context, vector []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", xerrors.ErrInvalidK, k)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.vectors) == 0 {
		return nil, xerrors.ErrEmptyIndex
	}
	scores := make([]float64, len(ix.vectors))
	for i := range ix.vectors {
		scores[i] = ix.similarity(ix.vectors[i], vector)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for i := 0; i < k; i++ {
		j := idxs[i]
		results = append(results, domain.SearchResult{Document: ix.records[j], Score: scores[j]})
	}
	return results, nil
}

// Size returns the number of stored records.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

func (ix *Index) similarity(a, b []float64) float64 {
	switch ix.metric {
	case MetricDot:
		return dot(a, b)
	default:
		return cosine(a, b)
	}
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func cosine(a, b []float64) float64 {
	na := 0.0
	nb := 0.0
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (math.Sqrt(na) * math.Sqrt(nb))
}
