package retriever_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ragagent/internal/domain"
	"ragagent/internal/embedding/tfidf"
	"ragagent/internal/index/memory"
	"ragagent/internal/retriever"
)

func financeIndex(t *testing.T) (*memory.Index, domain.Embedder) {
	t.Helper()
	docs := []domain.Document{
		{ID: "inflation", Text: "Inflation accelerated last quarter. Consumer prices climbed across most categories."},
		{ID: "equities", Text: "Equity indexes rallied as technology shares gained. Stock valuations reached new highs."},
		{ID: "bonds", Text: "The bond market outlook remains cautious. Bond yields rose while bond prices weakened."},
	}
	corpus := make([]string, len(docs))
	for i, d := range docs {
		corpus[i] = d.Text
	}
	emb := tfidf.NewEmbedder()
	require.NoError(t, emb.Prepare(context.Background(), corpus))

	ix := memory.New(memory.MetricCosine)
	require.NoError(t, ix.Build(context.Background(), docs, emb))
	return ix, emb
}

func TestRetrieveFindsMostRelevantDocument(t *testing.T) {
	ix, emb := financeIndex(t)
	r := retriever.New(ix, emb, 1)

	results, err := r.Retrieve(context.Background(), "bond market outlook")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "bonds", results[0].Document.ID)
}

func TestRetrieveDeterministic(t *testing.T) {
	ix, emb := financeIndex(t)
	r := retriever.New(ix, emb, 3)

	first, err := r.Retrieve(context.Background(), "rising prices")
	require.NoError(t, err)
	second, err := r.Retrieve(context.Background(), "rising prices")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRetrieveReturnsAtMostK(t *testing.T) {
	ix, emb := financeIndex(t)
	r := retriever.New(ix, emb, 2)
	require.Equal(t, 2, r.K())

	results, err := r.Retrieve(context.Background(), "market")
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestRetrieveDefaultsKWhenNonPositive(t *testing.T) {
	ix, emb := financeIndex(t)
	r := retriever.New(ix, emb, 0)
	require.Equal(t, 4, r.K())

	results, err := r.Retrieve(context.Background(), "market")
	require.NoError(t, err)
	require.Len(t, results, 3)
}
