package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ragagent/internal/agent"
	"ragagent/internal/docstore"
	"ragagent/internal/domain"
	"ragagent/internal/retriever"
	"ragagent/internal/tool"
)

// SearchToolName is the registry key of the built-in retrieval tool.
const SearchToolName = "search_documents"

// Options tune the service without touching its collaborators.
type Options struct {
	TopK         int
	SystemPrompt string
	ModelTimeout time.Duration
	MaxSentences int
}

// IngestStats reports what an ingest pass produced.
type IngestStats struct {
	Documents int
	Chunks    int
	Summary   string
}

// Service wires the document pipeline to the agent. Ingest builds the index
// from source files, Search queries it directly, Ask runs one grounded agent
// turn in which the model may call the retrieval tool.
type Service struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	index      domain.Index
	summarizer domain.Summarizer
	retriever  *retriever.Retriever
	registry   *tool.Registry
	agent      *agent.Agent
	logger     *zap.Logger

	maxSentences int
}

func New(
	chunker domain.Chunker,
	embedder domain.Embedder,
	index domain.Index,
	model domain.ChatModel,
	summarizer domain.Summarizer,
	opts Options,
	logger *zap.Logger,
) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxSentences <= 0 {
		opts.MaxSentences = 5
	}
	s := &Service{
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		summarizer: summarizer,
		retriever:  retriever.New(index, embedder, opts.TopK),
		registry:   tool.NewRegistry(),
		logger:     logger,
	}
	s.maxSentences = opts.MaxSentences
	if err := s.registry.Register(searchToolSchema(), s.searchToolHandler); err != nil {
		return nil, err
	}
	agentOpts := []agent.Option{agent.WithLogger(logger)}
	if opts.SystemPrompt != "" {
		agentOpts = append(agentOpts, agent.WithSystemPrompt(opts.SystemPrompt))
	}
	if opts.ModelTimeout > 0 {
		agentOpts = append(agentOpts, agent.WithModelTimeout(opts.ModelTimeout))
	}
	s.agent = agent.New(model, s.registry, agentOpts...)
	return s, nil
}

// Ingest loads the sources, chunks them, prepares the embedder on the chunk
// corpus and builds the index. Returns counts and a corpus summary.
func (s *Service) Ingest(ctx context.Context, sources []string) (*IngestStats, error) {
	documents, err := docstore.Load(sources)
	if err != nil {
		return nil, err
	}
	var chunks []domain.Document
	for _, doc := range documents {
		parts, err := s.chunker.Chunk(doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
		}
		chunks = append(chunks, parts...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no indexable chunks in %d documents", len(documents))
	}
	corpus := make([]string, len(chunks))
	for i, c := range chunks {
		corpus[i] = c.Text
	}
	if err := s.embedder.Prepare(ctx, corpus); err != nil {
		return nil, err
	}
	if err := s.index.Build(ctx, chunks, s.embedder); err != nil {
		return nil, err
	}
	s.logger.Info("corpus ingested",
		zap.Int("documents", len(documents)),
		zap.Int("chunks", len(chunks)),
		zap.String("embedder", s.embedder.Name()))

	summary := ""
	if s.summarizer != nil {
		summary, err = s.summarizer.Summarize(strings.Join(corpus, " "), s.maxSentences)
		if err != nil {
			s.logger.Warn("corpus summary failed", zap.Error(err))
			summary = ""
		}
	}
	return &IngestStats{Documents: len(documents), Chunks: len(chunks), Summary: summary}, nil
}

// Reindex discards the current index and rebuilds it from the sources.
// Reset happens first, so a failed rebuild leaves the index empty rather
// than half old, half new.
func (s *Service) Reindex(ctx context.Context, sources []string) (*IngestStats, error) {
	if err := s.index.Reset(ctx); err != nil {
		return nil, err
	}
	return s.Ingest(ctx, sources)
}

// Search returns the top-k records for the query without involving the model.
func (s *Service) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return s.retriever.Retrieve(ctx, query)
}

// Ask runs one agent turn for the question. The returned turn carries the
// final answer plus the full conversation, including any retrieved evidence.
func (s *Service) Ask(ctx context.Context, question string) (*agent.Turn, error) {
	return s.agent.Run(ctx, question)
}

func searchToolSchema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        SearchToolName,
		Description: "Search the indexed document collection and return the most relevant passages.",
		Parameters: []domain.ToolParam{{
			Name:        "query",
			Type:        "string",
			Description: "Natural-language search query.",
			Required:    true,
		}},
	}
}

func (s *Service) searchToolHandler(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}

// FormatResults renders search results as the plain-text payload handed back
// to the model.
func FormatResults(results []domain.SearchResult) string {
	if len(results) == 0 {
		return "No matching documents found."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		source := r.Document.Metadata["document_id"]
		if source == "" {
			source = r.Document.ID
		}
		fmt.Fprintf(&b, "[%d] %s (score %.4f)\n%s", i+1, source, r.Score, r.Document.Text)
	}
	return b.String()
}
