package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
// Embeddings are deterministic for a fixed model: identical text yields
// identical vectors.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits documents into smaller records suitable for indexing.
type Chunker interface {
	Chunk(document Document) ([]Document, error)
}

// Index stores one embedding per record and serves nearest-neighbor queries.
//
// Lifecycle: created empty, bulk-loaded once via Build, queried many times,
// optionally Reset before a fresh Build. Build and Reset are serialized
// against Query; readers observe either the pre- or post-build state, never
// a partial one.
type Index interface {
	Build(ctx context.Context, records []Document, embedder Embedder) error
	Reset(ctx context.Context) error
	Query(ctx context.Context, vector []float64, k int) ([]SearchResult, error)
	Size() int
}

// ChatModel invokes a language model with a conversation and optional tool
// schemas. A nil or empty tools slice is the plain variant: the response
// never carries tool calls.
type ChatModel interface {
	Invoke(ctx context.Context, messages []Message, tools []ToolSchema) (*ChatResponse, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
