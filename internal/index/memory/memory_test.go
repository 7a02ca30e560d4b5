package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"ragagent/internal/domain"
	"ragagent/internal/index/memory"
	xerrors "ragagent/internal/pkg/errors"
)

type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Prepare(context.Context, []string) error { return nil }

func (f *fakeEmbedder) Dimension() int { return 2 }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func testCorpus() ([]domain.Document, *fakeEmbedder) {
	docs := []domain.Document{
		{ID: "a", Text: "alpha"},
		{ID: "b", Text: "beta"},
		{ID: "c", Text: "gamma"},
	}
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"alpha": {1, 0},
		"beta":  {0.7, 0.7},
		"gamma": {0, 1},
	}}
	return docs, emb
}

func TestQueryRanksByNonIncreasingSimilarity(t *testing.T) {
	docs, emb := testCorpus()
	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))

	results, err := ix.Query(context.Background(), []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "a", results[0].Document.ID)
	require.Equal(t, "b", results[1].Document.ID)
	require.Equal(t, "c", results[2].Document.ID)
	for i := 1; i < len(results); i++ {
		require.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestQueryReturnsMinOfKAndSize(t *testing.T) {
	docs, emb := testCorpus()
	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))

	results, err := ix.Query(context.Background(), []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	results, err = ix.Query(context.Background(), []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestQueryInvalidK(t *testing.T) {
	docs, emb := testCorpus()
	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))

	for _, k := range []int{0, -1} {
		_, err := ix.Query(context.Background(), []float64{1, 0}, k)
		require.ErrorIs(t, err, xerrors.ErrInvalidK)
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	ix := memory.New(memory.MetricCosine)
	_, err := ix.Query(context.Background(), []float64{1, 0}, 1)
	require.ErrorIs(t, err, xerrors.ErrEmptyIndex)
}

func TestBuildTwiceWithoutReset(t *testing.T) {
	docs, emb := testCorpus()
	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))
	require.ErrorIs(t, ix.Build(context.Background(), docs, emb), xerrors.ErrAlreadyBuilt)
}

func TestResetThenRebuildDropsOldRecords(t *testing.T) {
	docs, emb := testCorpus()
	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))
	require.NoError(t, ix.Reset(context.Background()))
	require.Equal(t, 0, ix.Size())

	fresh := []domain.Document{{ID: "d", Text: "delta"}}
	emb.vectors["delta"] = []float64{0.5, 0.5}
	require.NoError(t, ix.Build(context.Background(), fresh, emb))

	results, err := ix.Query(context.Background(), []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "d", results[0].Document.ID)
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	docs := []domain.Document{
		{ID: "first", Text: "one"},
		{ID: "second", Text: "two"},
		{ID: "third", Text: "three"},
	}
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"one":   {1, 0},
		"two":   {1, 0},
		"three": {1, 0},
	}}
	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))

	results, err := ix.Query(context.Background(), []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Equal(t, "first", results[0].Document.ID)
	require.Equal(t, "second", results[1].Document.ID)
	require.Equal(t, "third", results[2].Document.ID)
}

func TestQueryDeterministic(t *testing.T) {
	docs, emb := testCorpus()
	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))

	first, err := ix.Query(context.Background(), []float64{0.6, 0.4}, 3)
	require.NoError(t, err)
	second, err := ix.Query(context.Background(), []float64{0.6, 0.4}, 3)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBuildDimensionMismatch(t *testing.T) {
	docs := []domain.Document{
		{ID: "a", Text: "alpha"},
		{ID: "b", Text: "beta"},
	}
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"alpha": {1, 0},
		"beta":  {1, 0, 0},
	}}
	ix := memory.New(memory.MetricCosine)
	err := ix.Build(context.Background(), docs, emb)
	require.ErrorIs(t, err, xerrors.ErrEmbedding)
	require.Equal(t, 0, ix.Size())
}
