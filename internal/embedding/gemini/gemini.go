package gemini

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	xerrors "ragagent/internal/pkg/errors"
)

// Client embeds text via the Gemini API.
type Client struct {
	apiKey    string
	model     string
	dimension int
}

// Config configures the Gemini embeddings client.
type Config struct {
	APIKeyEnv string
	Model     string
}

// NewClient creates a new Gemini embeddings client.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}
	return &Client{apiKey: key, model: model}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "gemini" }

// Prepare is not required for remote embedding.
func (c *Client) Prepare(_ context.Context, _ []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrEmbedding, err)
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding values returned", xerrors.ErrEmbedding)
	}
	values := resp.Embeddings[0].Values
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	if c.dimension == 0 {
		c.dimension = len(vec)
	}
	return vec, nil
}
