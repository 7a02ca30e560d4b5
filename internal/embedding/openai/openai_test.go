package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ragagent/internal/embedding/openai"
	xerrors "ragagent/internal/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("TEST_OPENAI_KEY", "test-key")
	client, err := openai.NewClient(openai.Config{
		BaseURL:   server.URL,
		APIKeyEnv: "TEST_OPENAI_KEY",
		Model:     "text-embedding-3-small",
	})
	require.NoError(t, err)
	return client
}

func TestEmbedReturnsVectorAndLearnsDimension(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "bond market", req.Input)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	})

	require.Zero(t, client.Dimension())
	vec, err := client.Embed(context.Background(), "bond market")
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	require.Equal(t, 3, client.Dimension())
}

func TestEmbedRetriesOnRateLimit(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{1, 2}}},
		})
	})

	vec, err := client.Embed(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, vec)
	require.Equal(t, 2, attempts)
}

func TestEmbedClientErrorIsTerminal(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	})

	_, err := client.Embed(context.Background(), "text")
	require.ErrorIs(t, err, xerrors.ErrEmbedding)
	require.Equal(t, 1, attempts)
}

func TestEmbedEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	_, err := client.Embed(context.Background(), "text")
	require.ErrorIs(t, err, xerrors.ErrEmbedding)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	_, err := openai.NewClient(openai.Config{APIKeyEnv: "TEST_OPENAI_KEY"})
	require.Error(t, err)
}
