package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ragagent/internal/domain"
	xerrors "ragagent/internal/pkg/errors"
)

// Handler executes a tool invocation and returns its payload.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type entry struct {
	schema  domain.ToolSchema
	handler Handler
}

// Registry maps stable tool names to schema-described handlers. Schemas are
// surfaced to the model ahead of time; dispatch validates arguments against
// the declared schema and preserves the call id into the result unchanged.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a named capability. The schema's name is the dispatch key.
func (r *Registry) Register(schema domain.ToolSchema, handler Handler) error {
	if schema.Name == "" {
		return fmt.Errorf("tool schema requires a name")
	}
	if handler == nil {
		return fmt.Errorf("tool %s requires a handler", schema.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[schema.Name]; dup {
		return fmt.Errorf("tool %s already registered", schema.Name)
	}
	r.tools[schema.Name] = entry{schema: schema, handler: handler}
	return nil
}

// Schemas returns all declared tool schemas in name order.
func (r *Registry) Schemas() []domain.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolSchema, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch routes a model-issued tool call to its handler. The result keeps
// the request's call id: it is the correlation key the orchestrator uses to
// place the result in the conversation.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error) {
	r.mu.RLock()
	e, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		return domain.ToolResult{}, fmt.Errorf("%w: %s", xerrors.ErrUnknownTool, call.Name)
	}
	if err := validateArgs(e.schema, call.Arguments); err != nil {
		return domain.ToolResult{}, err
	}
	payload, err := e.handler(ctx, call.Arguments)
	if err != nil {
		return domain.ToolResult{}, err
	}
	return domain.ToolResult{CallID: call.ID, Content: payload}, nil
}

func validateArgs(schema domain.ToolSchema, args map[string]any) error {
	for _, p := range schema.Parameters {
		val, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("%w: %s: missing required %q", xerrors.ErrInvalidArgument, schema.Name, p.Name)
			}
			continue
		}
		if !typeMatches(p.Type, val) {
			return fmt.Errorf("%w: %s: %q must be a %s", xerrors.ErrInvalidArgument, schema.Name, p.Name, p.Type)
		}
	}
	return nil
}

func typeMatches(declared string, val any) bool {
	switch declared {
	case "string":
		_, ok := val.(string)
		return ok
	case "number", "integer":
		switch val.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := val.(bool)
		return ok
	default:
		return true
	}
}
