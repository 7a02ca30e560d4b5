package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ragagent/internal/domain"
	xerrors "ragagent/internal/pkg/errors"
)

// Index is a vector index backed by a Qdrant collection over its REST API.
// The collection is created on Build with cosine distance and dropped on
// Reset. Build-once and empty/invalid-k checks are enforced locally so the
// contract matches the in-memory index.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu    sync.Mutex
	built bool
	size  int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

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
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := ix.putJSON(ctx, fmt.Sprintf("%s/collections/%s", ix.url, ix.collection), body); err != nil {
		return err
	}
	points := make([]map[string]any, len(records))
	for i, rec := range records {
		payload := map[string]any{"id": rec.ID, "text": rec.Text}
		for k, v := range rec.Metadata {
			payload["meta_"+k] = v
		}
		points[i] = map[string]any{
			"id":      i,
			"vector":  vectors[i],
			"payload": payload,
		}
	}
	upsert := map[string]any{"points": points}
	if err := ix.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", ix.url, ix.collection), upsert); err != nil {
		return err
	}
	ix.built = true
	ix.size = len(records)
	return nil
}

func (ix *Index) Reset(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.built {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", ix.url, ix.collection), nil)
	if err != nil {
		return err
	}
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant DELETE collection failed: %s", resp.Status)
	}
	ix.built = false
	ix.size = 0
	return nil
}

func (ix *Index) Query(ctx context.Context, vector []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", xerrors.ErrInvalidK, k)
	}
	ix.mu.Lock()
	empty := !ix.built || ix.size == 0
	ix.mu.Unlock()
	if empty {
		return nil, xerrors.ErrEmptyIndex
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := ix.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", ix.url, ix.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		doc := domain.Document{Metadata: map[string]string{}}
		for key, val := range r.Payload {
			s, ok := val.(string)
			if !ok {
				continue
			}
			switch {
			case key == "id":
				doc.ID = s
			case key == "text":
				doc.Text = s
			case len(key) > 5 && key[:5] == "meta_":
				doc.Metadata[key[5:]] = s
			}
		}
		results = append(results, domain.SearchResult{Document: doc, Score: r.Score})
	}
	return results, nil
}

func (ix *Index) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.size
}

func (ix *Index) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (ix *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
