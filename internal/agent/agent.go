// Package agent drives one user-message-to-reply cycle: budget the user
// message into history, call the model, execute at most one requested tool,
// call the model again for a terminal answer. The cycle is an explicit state
// machine so timeouts and partial failures have well-defined re-entry points.
package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/XenioxYT/discord-chatbot/internal/config"
	"github.com/XenioxYT/discord-chatbot/internal/history"
	"github.com/XenioxYT/discord-chatbot/internal/llm"
	"github.com/XenioxYT/discord-chatbot/internal/logger"
	"github.com/XenioxYT/discord-chatbot/internal/tools"
)

// ErrModelCall means the model call itself failed (timeout, transport, or an
// unusable response).
var ErrModelCall = errors.New("model call failed")

// FSM states.
type turnState stateless.State

var (
	stateFirstModelCall  turnState = "FirstModelCall"
	stateExecutingTool   turnState = "ExecutingTool"
	stateSecondModelCall turnState = "SecondModelCall"
	stateDone            turnState = "Done"
	stateError           turnState = "Error"
)

// FSM triggers.
type turnTrigger stateless.Trigger

var (
	triggerBeginTurn            turnTrigger = "BeginTurn"
	triggerModelRepliedWithText turnTrigger = "ModelRepliedWithText"
	triggerModelRequestedTool   turnTrigger = "ModelRequestedTool"
	triggerToolExecuted         turnTrigger = "ToolExecuted"
	triggerErrorOccurred        turnTrigger = "ErrorOccurred"
)

// Agent orchestrates turns against a shared conversation store and tool
// registry. Callers must serialize turns per conversation (the transport
// layer holds the store's turn lock around Process).
type Agent struct {
	llmClient llm.Client
	store     *history.Store
	registry  *tools.Registry

	cfg        config.LLMConfig
	tokenLimit int
	timeouts   config.TimeoutsConfig
	namePrefix *regexp.Regexp
}

// New creates an Agent. Zero timeouts get sane defaults so a missing config
// key cannot produce instantly-expiring contexts.
func New(llmClient llm.Client, store *history.Store, registry *tools.Registry, cfg *config.Config) *Agent {
	timeouts := cfg.Timeouts
	if timeouts.ModelCall <= 0 {
		timeouts.ModelCall = 60 * time.Second
	}
	if timeouts.ToolCall <= 0 {
		timeouts.ToolCall = 30 * time.Second
	}
	return &Agent{
		llmClient:  llmClient,
		store:      store,
		registry:   registry,
		cfg:        cfg.LLM,
		tokenLimit: cfg.Limits.TokenLimit,
		timeouts:   timeouts,
		namePrefix: regexp.MustCompile(`^` + regexp.QuoteMeta(cfg.Discord.BotName) + `:\s*`),
	}
}

// Process runs one turn for conversation c and returns the final reply text.
// On any error the turn's history appends are rolled back, so a failed turn
// leaves the conversation exactly as it found it.
func (a *Agent) Process(ctx context.Context, c, author, content string) (string, error) {
	turnID := uuid.NewString()
	log := logger.L.With("turn", turnID, "conversation", c)

	// Snapshot for rollback: restoring it on abort undoes this turn's
	// appends and any evictions they caused.
	snapshot := a.store.Messages(c)

	formatted := strings.TrimSpace(fmt.Sprintf("%s: %s", author, content))
	if !a.store.AppendIfFits(c, history.Message{Role: history.RoleUser, Content: formatted}, a.tokenLimit) {
		// Degraded but deliberate: the message is excluded from this turn's
		// model context, not an error.
		log.Warn("user message exceeds token budget, excluded from context")
	}
	a.store.EnforceLimit(c, a.tokenLimit)

	type turnContext struct {
		response     openai.ChatCompletionResponse
		toolCall     *openai.ToolCall
		finalContent string
		lastError    error
	}
	turn := &turnContext{}

	fsm := stateless.NewStateMachine(stateFirstModelCall)

	// FirstModelCall: offer the tool schema. The model either answers in
	// text (-> Done) or requests exactly one tool (-> ExecutingTool).
	fsm.Configure(stateFirstModelCall).
		// Entry actions only run on transitions, so the turn starts with a
		// reentry fire into the initial state.
		PermitReentry(triggerBeginTurn).
		OnEntry(func(ctx context.Context, _ ...any) error {
			resp, err := a.complete(ctx, c, a.registry.Specs())
			if err != nil {
				turn.lastError = fmt.Errorf("%w: %v", ErrModelCall, err)
				return fsm.FireCtx(ctx, triggerErrorOccurred)
			}
			turn.response = resp
			if tc := requestedTool(resp); tc != nil {
				turn.toolCall = tc
				return fsm.FireCtx(ctx, triggerModelRequestedTool)
			}
			turn.finalContent = resp.Choices[0].Message.Content
			return fsm.FireCtx(ctx, triggerModelRepliedWithText)
		}).
		Permit(triggerModelRequestedTool, stateExecutingTool).
		Permit(triggerModelRepliedWithText, stateDone).
		Permit(triggerErrorOccurred, stateError)

	// ExecutingTool: validate and run the requested tool, then fold the
	// result into history. Tool results are always admitted; EnforceLimit
	// restores the budget afterwards.
	fsm.Configure(stateExecutingTool).
		OnEntry(func(ctx context.Context, _ ...any) error {
			name := turn.toolCall.Function.Name
			log.Info("model requested tool", "tool", name)

			toolCtx, cancel := context.WithTimeout(ctx, a.timeouts.ToolCall)
			result, err := a.registry.Invoke(toolCtx, name, turn.toolCall.Function.Arguments)
			cancel()
			if err != nil {
				turn.lastError = err
				return fsm.FireCtx(ctx, triggerErrorOccurred)
			}

			a.store.Append(c, history.Message{Role: history.RoleTool, Name: name, Content: result})
			a.store.EnforceLimit(c, a.tokenLimit)
			return fsm.FireCtx(ctx, triggerToolExecuted)
		}).
		Permit(triggerToolExecuted, stateSecondModelCall).
		Permit(triggerErrorOccurred, stateError)

	// SecondModelCall: no tool schema is offered, forcing a terminal text
	// answer. Exactly one tool call per turn; a tool request here would be
	// ignored in favor of whatever text content the response carries.
	fsm.Configure(stateSecondModelCall).
		OnEntry(func(ctx context.Context, _ ...any) error {
			resp, err := a.complete(ctx, c, nil)
			if err != nil {
				turn.lastError = fmt.Errorf("%w: %v", ErrModelCall, err)
				return fsm.FireCtx(ctx, triggerErrorOccurred)
			}
			content := resp.Choices[0].Message.Content
			if content == "" {
				turn.lastError = fmt.Errorf("%w: empty content on second model call", ErrModelCall)
				return fsm.FireCtx(ctx, triggerErrorOccurred)
			}
			turn.finalContent = content
			return fsm.FireCtx(ctx, triggerModelRepliedWithText)
		}).
		Permit(triggerModelRepliedWithText, stateDone).
		Permit(triggerErrorOccurred, stateError)

	// The initial reentry runs the first model call; every later transition
	// fires synchronously from inside an entry action, so when this call
	// returns the machine is in a terminal state.
	if err := fsm.FireCtx(ctx, triggerBeginTurn); err != nil {
		if turn.lastError == nil {
			turn.lastError = err
		}
	}

	current, err := fsm.State(ctx)
	if err != nil {
		a.store.Restore(c, snapshot)
		return "", fmt.Errorf("turn state machine: %w", err)
	}

	if current != stateDone || turn.lastError != nil {
		a.store.Restore(c, snapshot)
		if turn.lastError == nil {
			turn.lastError = fmt.Errorf("turn ended in unexpected state %v", current)
		}
		log.Error("turn aborted", "error", turn.lastError)
		return "", turn.lastError
	}

	// Strip a literal echo of the bot's own name prefix ("Byte: ...").
	reply := a.namePrefix.ReplaceAllString(turn.finalContent, "")
	log.Debug("turn completed", "reply_chars", len(reply))
	return reply, nil
}

// complete runs one bounded model call over the conversation's current
// history, offering toolSpecs when non-nil.
func (a *Agent) complete(ctx context.Context, c string, toolSpecs []openai.Tool) (openai.ChatCompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeouts.ModelCall)
	defer cancel()

	resp, err := a.llmClient.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    toOpenAI(a.store.Messages(c)),
		Tools:       toolSpecs,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("response has no choices")
	}
	return resp, nil
}

// requestedTool extracts the first tool invocation request from a response,
// accepting both the tools API and the legacy function_call shape. Only the
// first request is honored.
func requestedTool(resp openai.ChatCompletionResponse) *openai.ToolCall {
	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		return &msg.ToolCalls[0]
	}
	if msg.FunctionCall != nil {
		return &openai.ToolCall{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      msg.FunctionCall.Name,
				Arguments: msg.FunctionCall.Arguments,
			},
		}
	}
	return nil
}

// toOpenAI converts stored history to wire messages. Tool results use the
// function role with the tool's name, matching how they were produced.
func toOpenAI(messages []history.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := string(m.Role)
		if m.Role == history.RoleTool {
			role = openai.ChatMessageRoleFunction
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Name:    m.Name,
			Content: m.Content,
		})
	}
	return out
}
