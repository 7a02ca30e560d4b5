package tfidf_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"ragagent/internal/embedding/tfidf"
	xerrors "ragagent/internal/pkg/errors"
)

var corpus = []string{
	"inflation rose sharply last quarter",
	"equity markets rallied on strong earnings",
	"bond yields climbed while bond prices fell",
}

func TestEmbedRequiresPrepare(t *testing.T) {
	e := tfidf.NewEmbedder()
	_, err := e.Embed(context.Background(), "anything")
	require.ErrorIs(t, err, xerrors.ErrEmbedding)
}

func TestPrepareEmptyCorpus(t *testing.T) {
	e := tfidf.NewEmbedder()
	require.ErrorIs(t, e.Prepare(context.Background(), nil), xerrors.ErrEmbedding)
}

func TestEmbedDeterministic(t *testing.T) {
	e1 := tfidf.NewEmbedder()
	require.NoError(t, e1.Prepare(context.Background(), corpus))
	e2 := tfidf.NewEmbedder()
	require.NoError(t, e2.Prepare(context.Background(), corpus))

	v1, err := e1.Embed(context.Background(), "bond prices")
	require.NoError(t, err)
	v2, err := e2.Embed(context.Background(), "bond prices")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
}

func TestEmbedVectorsAreNormalized(t *testing.T) {
	e := tfidf.NewEmbedder()
	require.NoError(t, e.Prepare(context.Background(), corpus))

	vec, err := e.Embed(context.Background(), "inflation quarter")
	require.NoError(t, err)
	require.Len(t, vec, e.Dimension())

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	require.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbedUnknownTokensYieldZeroVector(t *testing.T) {
	e := tfidf.NewEmbedder()
	require.NoError(t, e.Prepare(context.Background(), corpus))

	vec, err := e.Embed(context.Background(), "xylophone zeppelin")
	require.NoError(t, err)
	for _, v := range vec {
		require.Zero(t, v)
	}
}
