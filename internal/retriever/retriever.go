package retriever

import (
	"context"

	"ragagent/internal/domain"
)

// Retriever wraps an index with a fixed result count and a fixed embedding
// function for turning query text into a vector. Given an unchanged index
// snapshot it is a pure function of its input: no side effects, and
// embedding or index errors propagate unchanged.
type Retriever struct {
	index    domain.Index
	embedder domain.Embedder
	k        int
}

func New(index domain.Index, embedder domain.Embedder, k int) *Retriever {
	if k <= 0 {
		k = 4
	}
	return &Retriever{index: index, embedder: embedder, k: k}
}

// K returns the fixed result count.
func (r *Retriever) K() int { return r.k }

// Retrieve embeds the query text and returns the k nearest records.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.SearchResult, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.index.Query(ctx, vec, r.k)
}
