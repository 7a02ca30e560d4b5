package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragagent/internal/chunker"
	"ragagent/internal/config"
	"ragagent/internal/domain"
	"ragagent/internal/embedding/cache"
	embgemini "ragagent/internal/embedding/gemini"
	embopenai "ragagent/internal/embedding/openai"
	"ragagent/internal/embedding/tfidf"
	"ragagent/internal/index/memory"
	"ragagent/internal/index/qdrant"
	"ragagent/internal/llm"
	"ragagent/internal/logging"
	"ragagent/internal/service"
	"ragagent/internal/summarizer"
	"ragagent/internal/tui"
)

var cfgPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "ragagent",
		Short:         "Retrieval-augmented question answering over your documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default: ./config.yaml, then ~/.config/ragagent/config.yaml)")
	root.AddCommand(ingestCmd(), askCmd(), chatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file|glob> [more...]",
		Short: "Load, chunk and index documents, then print a corpus summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			stats, err := svc.Ingest(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d chunks from %d documents.\n", stats.Chunks, stats.Documents)
			if stats.Summary != "" {
				fmt.Println("\nCorpus summary:")
				fmt.Println(stats.Summary)
			}
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	var sources []string
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question grounded in the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if len(sources) > 0 {
				if _, err := svc.Ingest(cmd.Context(), sources); err != nil {
					return err
				}
			}
			turn, err := svc.Ask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(turn.Answer)
			if showSources {
				for _, msg := range turn.Messages {
					if msg.Role == domain.RoleTool {
						fmt.Println("\nSources:")
						fmt.Println(msg.Content)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sources, "sources", "s", nil, "documents to ingest before asking")
	cmd.Flags().BoolVar(&showSources, "show-sources", false, "print the retrieved passages after the answer")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <file|glob> [more...]",
		Short: "Ingest documents and start an interactive chat session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			stats, err := svc.Ingest(cmd.Context(), args)
			if err != nil {
				return err
			}
			m := tui.New(svc, stats.Summary)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
}

// setup loads config, builds the logger and assembles the service.
func setup() (*service.Service, *zap.Logger, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Console)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	svc, err := buildService(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, logger, nil
}

func buildService(cfg *config.AppConfig, logger *zap.Logger) (*service.Service, error) {
	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "sentence", "":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var ix domain.Index
	switch cfg.Index.Type {
	case "memory", "":
		ix = memory.New(memory.MetricCosine)
	case "qdrant":
		if cfg.Index.Qdrant == nil {
			return nil, fmt.Errorf("qdrant index config missing")
		}
		ix = qdrant.New(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     cfg.Index.Qdrant.APIKey,
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown index: %s", cfg.Index.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	model, err := llm.New(cfg.LLM.Provider, llm.Config{
		APIKey:      os.Getenv(cfg.LLM.APIKeyEnv),
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	return service.New(ch, emb, ix, model, sum, service.Options{
		TopK:         cfg.Retriever.TopK,
		SystemPrompt: cfg.Agent.SystemPrompt,
		ModelTimeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		MaxSentences: cfg.Summarizer.MaxSentences,
	}, logger)
}

func buildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini embedder config missing")
		}
		client, err := embgemini.NewClient(embgemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.CacheSize > 0 && cfg.CacheTTLSecs > 0 {
		emb = cache.Wrap(emb, cfg.CacheSize, time.Duration(cfg.CacheTTLSecs)*time.Second)
	}
	return emb, nil
}
