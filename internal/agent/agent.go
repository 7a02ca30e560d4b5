package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ragagent/internal/domain"
	xerrors "ragagent/internal/pkg/errors"
)

// State is the position of a turn in its lifecycle.
type State string

const (
	StateInit           State = "INIT"
	StateModelCalled    State = "MODEL_CALLED"
	StateToolRequested  State = "TOOL_REQUESTED"
	StateToolExecuted   State = "TOOL_EXECUTED"
	StateModelRecalled  State = "MODEL_RECALLED"
	StateDirectAnswered State = "DIRECT_ANSWERED"
	StateDone           State = "DONE"
)

// Dispatcher is the registry-facing surface the agent needs.
type Dispatcher interface {
	Schemas() []domain.ToolSchema
	Dispatch(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error)
}

const defaultSystemPrompt = "You are a research assistant. Use the available tools to look up " +
	"relevant documents before answering, and base your answer on what they return. " +
	"If the retrieved material does not cover the question, say so."

// Agent drives one conversational turn: a model call, at most one tool
// dispatch, then a plain model recall that produces the grounded answer.
type Agent struct {
	model        domain.ChatModel
	tools        Dispatcher
	systemPrompt string
	modelTimeout time.Duration
	logger       *zap.Logger
}

// Option configures the agent.
type Option func(*Agent)

// WithSystemPrompt overrides the default system message.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		if prompt != "" {
			a.systemPrompt = prompt
		}
	}
}

// WithModelTimeout bounds each model invocation. Zero disables the bound.
func WithModelTimeout(d time.Duration) Option {
	return func(a *Agent) { a.modelTimeout = d }
}

// WithLogger sets the agent logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(model domain.ChatModel, tools Dispatcher, opts ...Option) *Agent {
	a := &Agent{
		model:        model,
		tools:        tools,
		systemPrompt: defaultSystemPrompt,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Turn is the outcome of one user request. Messages is the append-only
// conversation; State records where the turn ended. On error the turn is
// returned alongside it, with State left at the point of failure. The turn
// is abandoned, never retried automatically.
type Turn struct {
	State          State
	Messages       []domain.Message
	Answer         string
	ToolDispatches int
}

func (t *Turn) append(msg domain.Message) {
	t.Messages = append(t.Messages, msg)
}

// Run executes one turn for the given question.
func (a *Agent) Run(ctx context.Context, question string) (*Turn, error) {
	turn := &Turn{State: StateInit}
	turn.append(domain.Message{Role: domain.RoleSystem, Content: a.systemPrompt})
	turn.append(domain.Message{Role: domain.RoleUser, Content: question})

	resp, err := a.invoke(ctx, turn.Messages, a.tools.Schemas())
	if err != nil {
		return turn, err
	}
	turn.State = StateModelCalled

	if len(resp.ToolCalls) == 0 {
		turn.State = StateDirectAnswered
		turn.append(domain.Message{Role: domain.RoleAssistant, Content: resp.Content})
		turn.Answer = resp.Content
		turn.State = StateDone
		a.logger.Debug("turn answered directly")
		return turn, nil
	}

	// Empty content alongside tool calls is expected: answer pending tool result.
	turn.State = StateToolRequested
	turn.append(domain.Message{Role: domain.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})

	// One retrieval round per turn: only the first requested call is honored.
	call := resp.ToolCalls[0]
	a.logger.Debug("dispatching tool call", zap.String("tool", call.Name), zap.String("call_id", call.ID))
	result, err := a.tools.Dispatch(ctx, call)
	if err != nil {
		// The turn stays at TOOL_REQUESTED; there is no ungrounded fallback.
		return turn, err
	}
	turn.State = StateToolExecuted
	turn.ToolDispatches++
	turn.append(domain.Message{Role: domain.RoleTool, Content: result.Content, ToolCallID: result.CallID})

	final, err := a.invoke(ctx, turn.Messages, nil)
	if err != nil {
		return turn, err
	}
	turn.State = StateModelRecalled
	if len(final.ToolCalls) > 0 {
		return turn, fmt.Errorf("%w: plain model variant returned tool calls", xerrors.ErrModelInvocation)
	}
	turn.append(domain.Message{Role: domain.RoleAssistant, Content: final.Content})
	turn.Answer = final.Content
	turn.State = StateDone
	return turn, nil
}

func (a *Agent) invoke(ctx context.Context, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	if a.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.modelTimeout)
		defer cancel()
	}
	return a.model.Invoke(ctx, messages, tools)
}
