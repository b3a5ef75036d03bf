package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kjdragan/codescribe/internal/logger"
)

const (
	DefaultToolRetries   = 3
	DefaultMaxIterations = 10
)

// ErrMaxIterations is returned when the model keeps requesting tools past the
// iteration budget.
var ErrMaxIterations = errors.New("agent: maximum model iterations reached")

// SystemPrompt is sent as the first message of every run.
const SystemPrompt = `You are a customer service agent for a tech company. Use the tools provided to assist customers with their queries.

You have access to the following CRUD operations for managing customer records:
- create_customer: Create a new customer record with email, full_name, and bio
- get_customer_by_email: Retrieve a customer record by their email address
- update_customer_by_email: Update a customer's full_name and bio using their email
- delete_customer_by_email: Delete a customer record by their email address

Always be helpful and professional in your responses. When performing operations, provide clear feedback about what was accomplished.`

type Options struct {
	SystemPrompt string
	// ToolRetries is how many times a failing tool call is re-attempted.
	// Zero or negative means a single attempt.
	ToolRetries   int
	MaxIterations int
}

// Agent binds a hosted model to a fixed system prompt and a tool registry.
// Every Run starts from an empty conversation.
type Agent struct {
	model         Model
	registry      *Registry
	systemPrompt  string
	toolRetries   int
	maxIterations int
	log           zerolog.Logger
}

func New(model Model, registry *Registry, opts Options) *Agent {
	a := &Agent{
		model:         model,
		registry:      registry,
		systemPrompt:  opts.SystemPrompt,
		toolRetries:   opts.ToolRetries,
		maxIterations: opts.MaxIterations,
		log:           logger.Component("agent"),
	}
	if a.systemPrompt == "" {
		a.systemPrompt = SystemPrompt
	}
	if a.toolRetries < 0 {
		a.toolRetries = 0
	}
	if a.maxIterations <= 0 {
		a.maxIterations = DefaultMaxIterations
	}
	return a
}

// Run hands the raw user input to the model and executes whatever tool calls
// it asks for, in the order given, until it answers in plain text.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	start := time.Now()
	defer func() { RunDuration.Observe(time.Since(start).Seconds()) }()

	messages := []Message{
		{Role: RoleSystem, Content: a.systemPrompt},
		{Role: RoleUser, Content: input},
	}
	defs := a.registry.Definitions()

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.model.Complete(ctx, messages, defs)
		if err != nil {
			return "", fmt.Errorf("model request failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    a.invoke(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	return "", ErrMaxIterations
}

// invoke runs one tool call with the retry budget and always returns text
// for the model; failures come back as an error description.
func (a *Agent) invoke(ctx context.Context, call ToolCall) string {
	tool := a.registry.Get(call.Name)
	if tool == nil {
		ToolCallsTotal.WithLabelValues("unknown", "error").Inc()
		a.log.Warn().Str("tool", call.Name).Msg("model requested unknown tool")
		return fmt.Sprintf("error: unknown tool %q", call.Name)
	}

	args := map[string]interface{}{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
			return fmt.Sprintf("error: invalid arguments for %s: %v", call.Name, err)
		}
	}

	var lastErr error
	attempts := 0
	for attempts <= a.toolRetries {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++

		out, err := tool.Execute(ctx, args)
		if err == nil {
			ToolCallsTotal.WithLabelValues(call.Name, "ok").Inc()
			a.log.Debug().Str("tool", call.Name).Int("attempt", attempts).Msg("tool call succeeded")
			return out
		}

		lastErr = err
		a.log.Warn().Err(err).Str("tool", call.Name).Int("attempt", attempts).Msg("tool call failed")
		if attempts <= a.toolRetries {
			ToolRetriesTotal.WithLabelValues(call.Name).Inc()
		}
	}

	ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
	return fmt.Sprintf("error: %s failed after %d attempt(s): %v", call.Name, attempts, lastErr)
}
