package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ragagent/internal/domain"
	xerrors "ragagent/internal/pkg/errors"
)

type geminiModel struct {
	apiKey      string
	model       string
	temperature float64
}

func createGeminiModel(cfg Config) (domain.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	return &geminiModel{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (m *geminiModel) Invoke(ctx context.Context, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  m.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrModelInvocation, err)
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(m.temperature)),
	}
	contents, system := toGeminiContents(messages)
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, toGeminiDeclaration(t))
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	resp, err := client.Models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrModelInvocation, err)
	}
	response := &domain.ChatResponse{Content: strings.TrimSpace(resp.Text())}
	for _, fc := range resp.FunctionCalls() {
		response.ToolCalls = append(response.ToolCalls, domain.ToolCall{
			ID:        fc.ID,
			Name:      fc.Name,
			Arguments: fc.Args,
		})
	}
	return response, nil
}

// toGeminiContents converts the conversation to Gemini contents. The system
// message is lifted out: Gemini carries it as a separate instruction, not a
// conversation entry.
func toGeminiContents(messages []domain.Message) ([]*genai.Content, string) {
	var contents []*genai.Content
	system := ""
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			system = msg.Content
		case domain.RoleAssistant:
			parts := []*genai.Part{}
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Arguments,
				}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case domain.RoleTool:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     toolNameForCall(messages, msg.ToolCallID),
					Response: map[string]any{"output": msg.Content},
				},
			}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	return contents, system
}

// toolNameForCall finds the tool name of the assistant call matching id.
// Gemini requires the function response to repeat the function name.
func toolNameForCall(messages []domain.Message, callID string) string {
	for _, msg := range messages {
		for _, tc := range msg.ToolCalls {
			if tc.ID == callID {
				return tc.Name
			}
		}
	}
	return ""
}

func toGeminiDeclaration(t domain.ToolSchema) *genai.FunctionDeclaration {
	properties := map[string]*genai.Schema{}
	var required []string
	for _, p := range t.Parameters {
		properties[p.Name] = &genai.Schema{
			Type:        geminiType(p.Type),
			Description: p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: properties,
			Required:   required,
		},
	}
}

func geminiType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func init() {
	Register("gemini", createGeminiModel)
}
