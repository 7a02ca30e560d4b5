package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ragagent/internal/agent"
	"ragagent/internal/domain"
	xerrors "ragagent/internal/pkg/errors"
	"ragagent/internal/tool"
)

// fakeModel replays scripted responses and records every invocation.
type fakeModel struct {
	responses []*domain.ChatResponse
	err       error
	calls     []modelCall
}

type modelCall struct {
	messages []domain.Message
	tools    []domain.ToolSchema
}

func (f *fakeModel) Invoke(_ context.Context, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	f.calls = append(f.calls, modelCall{messages: messages, tools: tools})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func searchRegistry(t *testing.T, dispatched *int) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	schema := domain.ToolSchema{
		Name:        "search_documents",
		Description: "Search the corpus.",
		Parameters: []domain.ToolParam{
			{Name: "query", Type: "string", Required: true},
		},
	}
	require.NoError(t, r.Register(schema, func(_ context.Context, args map[string]any) (string, error) {
		if dispatched != nil {
			*dispatched++
		}
		return "evidence about " + args["query"].(string), nil
	}))
	return r
}

func TestDirectAnswerReachesDone(t *testing.T) {
	dispatched := 0
	model := &fakeModel{responses: []*domain.ChatResponse{
		{Content: "Paris is the capital of France."},
	}}
	a := agent.New(model, searchRegistry(t, &dispatched))

	turn, err := a.Run(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, agent.StateDone, turn.State)
	require.Equal(t, "Paris is the capital of France.", turn.Answer)
	require.Zero(t, dispatched)
	require.Zero(t, turn.ToolDispatches)

	// system + user + assistant, no tool traffic
	require.Len(t, turn.Messages, 3)
	require.Equal(t, domain.RoleAssistant, turn.Messages[2].Role)
	require.Len(t, model.calls, 1)
	require.NotEmpty(t, model.calls[0].tools)
}

func TestToolCallTurnReachesDone(t *testing.T) {
	dispatched := 0
	model := &fakeModel{responses: []*domain.ChatResponse{
		{ToolCalls: []domain.ToolCall{{
			ID:        "abc123",
			Name:      "search_documents",
			Arguments: map[string]any{"query": "bond market"},
		}}},
		{Content: "Bonds look cautious."},
	}}
	a := agent.New(model, searchRegistry(t, &dispatched))

	turn, err := a.Run(context.Background(), "What is the bond outlook?")
	require.NoError(t, err)
	require.Equal(t, agent.StateDone, turn.State)
	require.Equal(t, "Bonds look cautious.", turn.Answer)
	require.Equal(t, 1, dispatched)
	require.Equal(t, 1, turn.ToolDispatches)

	var toolMsgs []domain.Message
	for _, msg := range turn.Messages {
		if msg.Role == domain.RoleTool {
			toolMsgs = append(toolMsgs, msg)
		}
	}
	require.Len(t, toolMsgs, 1)
	require.Equal(t, "abc123", toolMsgs[0].ToolCallID)
	require.Equal(t, "evidence about bond market", toolMsgs[0].Content)

	// The recall must go out without tools bound.
	require.Len(t, model.calls, 2)
	require.NotEmpty(t, model.calls[0].tools)
	require.Nil(t, model.calls[1].tools)
}

func TestOnlyFirstToolCallIsDispatched(t *testing.T) {
	dispatched := 0
	model := &fakeModel{responses: []*domain.ChatResponse{
		{ToolCalls: []domain.ToolCall{
			{ID: "call-1", Name: "search_documents", Arguments: map[string]any{"query": "first"}},
			{ID: "call-2", Name: "search_documents", Arguments: map[string]any{"query": "second"}},
		}},
		{Content: "done"},
	}}
	a := agent.New(model, searchRegistry(t, &dispatched))

	turn, err := a.Run(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, agent.StateDone, turn.State)
	require.Equal(t, 1, dispatched)

	for _, msg := range turn.Messages {
		if msg.Role == domain.RoleTool {
			require.Equal(t, "call-1", msg.ToolCallID)
		}
	}
}

func TestUnknownToolLeavesTurnAtToolRequested(t *testing.T) {
	dispatched := 0
	model := &fakeModel{responses: []*domain.ChatResponse{
		{ToolCalls: []domain.ToolCall{{ID: "x", Name: "no_such_tool"}}},
	}}
	a := agent.New(model, searchRegistry(t, &dispatched))

	turn, err := a.Run(context.Background(), "q")
	require.ErrorIs(t, err, xerrors.ErrUnknownTool)
	require.Equal(t, agent.StateToolRequested, turn.State)
	require.Zero(t, dispatched)
	require.Empty(t, turn.Answer)
}

func TestEmptyContentWithToolCallIsValid(t *testing.T) {
	model := &fakeModel{responses: []*domain.ChatResponse{
		{Content: "", ToolCalls: []domain.ToolCall{{
			ID:        "c1",
			Name:      "search_documents",
			Arguments: map[string]any{"query": "x"},
		}}},
		{Content: "answer"},
	}}
	a := agent.New(model, searchRegistry(t, nil))

	turn, err := a.Run(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, agent.StateDone, turn.State)
	require.Equal(t, "answer", turn.Answer)
}

func TestModelFailureAbortsTurn(t *testing.T) {
	model := &fakeModel{err: xerrors.ErrModelInvocation}
	a := agent.New(model, searchRegistry(t, nil))

	turn, err := a.Run(context.Background(), "q")
	require.ErrorIs(t, err, xerrors.ErrModelInvocation)
	require.True(t, xerrors.IsRetryable(err))
	require.Equal(t, agent.StateInit, turn.State)
}

func TestSystemPromptOverride(t *testing.T) {
	model := &fakeModel{responses: []*domain.ChatResponse{{Content: "hi"}}}
	a := agent.New(model, searchRegistry(t, nil), agent.WithSystemPrompt("Answer in French."))

	turn, err := a.Run(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, domain.RoleSystem, turn.Messages[0].Role)
	require.Equal(t, "Answer in French.", turn.Messages[0].Content)
}
