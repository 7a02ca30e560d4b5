package llm

import (
	"fmt"
	"strings"
	"time"

	"ragagent/internal/domain"
)

// Config carries the provider-independent chat model settings. Temperature
// is in [0,1]; 0 selects fully deterministic sampling.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Factory creates a chat model handle from config. Handles are stateless:
// binding tools happens per invocation, not by mutating the handle.
type Factory func(cfg Config) (domain.ChatModel, error)

var registry = map[string]Factory{}

// Register installs a provider factory under the given name.
func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

// New creates a chat model for the named provider.
func New(name string, cfg Config) (domain.ChatModel, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("llm provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported llm provider: %s", name)
	}
	return factory(cfg)
}
