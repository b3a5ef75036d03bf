package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel replays canned responses and records what it was sent.
type scriptedModel struct {
	responses []*Response
	err       error
	calls     [][]Message
	tools     []ToolDefinition
}

func (m *scriptedModel) Complete(_ context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	snapshot := make([]Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)
	m.tools = tools

	if m.err != nil {
		return nil, m.err
	}
	if len(m.calls) > len(m.responses) {
		return &Response{Content: "done"}, nil
	}
	return m.responses[len(m.calls)-1], nil
}

// flakyTool fails the first failures attempts.
type flakyTool struct {
	name     string
	failures int
	attempts int
	lastArgs map[string]interface{}
}

func (t *flakyTool) Name() string { return t.name }
func (t *flakyTool) Description() string { return "test tool" }
func (t *flakyTool) Parameters() map[string]interface{} { return map[string]interface{}{"type": "object"} }

func (t *flakyTool) Execute(_ context.Context, args map[string]interface{}) (string, error) {
	t.attempts++
	t.lastArgs = args
	if t.attempts <= t.failures {
		return "", errors.New("connection reset by peer")
	}
	return `{"ok":true}`, nil
}

func toolCall(id, name, args string) *Response {
	return &Response{ToolCalls: []ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func lastMessage(m *scriptedModel) Message {
	last := m.calls[len(m.calls)-1]
	return last[len(last)-1]
}

func TestRunWithoutToolCalls(t *testing.T) {
	model := &scriptedModel{responses: []*Response{{Content: "Hello! How can I help?"}}}
	a := New(model, NewRegistry(), Options{})

	reply, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply)

	require.Len(t, model.calls, 1)
	require.Len(t, model.calls[0], 2)
	assert.Equal(t, RoleSystem, model.calls[0][0].Role)
	assert.Equal(t, SystemPrompt, model.calls[0][0].Content)
	assert.Equal(t, RoleUser, model.calls[0][1].Role)
	assert.Equal(t, "hi", model.calls[0][1].Content)
}

func TestRunIsConversationless(t *testing.T) {
	model := &scriptedModel{responses: []*Response{{Content: "one"}, {Content: "two"}}}
	a := New(model, NewRegistry(), Options{})

	_, err := a.Run(context.Background(), "first")
	require.NoError(t, err)
	_, err = a.Run(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, model.calls, 2)
	assert.Len(t, model.calls[1], 2, "second run must not carry the first conversation")
	assert.Equal(t, "second", model.calls[1][1].Content)
}

func TestRunExecutesToolAndFeedsResultBack(t *testing.T) {
	tool := &flakyTool{name: "lookup"}
	model := &scriptedModel{responses: []*Response{
		toolCall("call_1", "lookup", `{"email":"a@x.com"}`),
		{Content: "Found it."},
	}}
	a := New(model, NewRegistry(tool), Options{})

	reply, err := a.Run(context.Background(), "look up a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Found it.", reply)
	assert.Equal(t, 1, tool.attempts)
	assert.Equal(t, "a@x.com", tool.lastArgs["email"])

	require.Len(t, model.calls, 2)
	second := model.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, RoleAssistant, second[2].Role)
	assert.Equal(t, RoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
	assert.Equal(t, `{"ok":true}`, second[3].Content)
}

func TestRunRetriesFailingTool(t *testing.T) {
	tool := &flakyTool{name: "lookup", failures: 2}
	model := &scriptedModel{responses: []*Response{toolCall("c1", "lookup", `{}`)}}
	a := New(model, NewRegistry(tool), Options{ToolRetries: DefaultToolRetries})

	_, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 3, tool.attempts)
	assert.Equal(t, `{"ok":true}`, lastMessage(model).Content)
}

func TestRunSurfacesToolErrorAfterRetryBudget(t *testing.T) {
	tool := &flakyTool{name: "lookup", failures: 100}
	model := &scriptedModel{responses: []*Response{toolCall("c1", "lookup", `{}`)}}
	a := New(model, NewRegistry(tool), Options{ToolRetries: DefaultToolRetries})

	reply, err := a.Run(context.Background(), "go")
	require.NoError(t, err, "a failing tool is reported to the model, not to the caller")
	assert.Equal(t, "done", reply)
	assert.Equal(t, 1+DefaultToolRetries, tool.attempts)

	msg := lastMessage(model)
	assert.Equal(t, RoleTool, msg.Role)
	assert.True(t, strings.HasPrefix(msg.Content, "error: lookup failed after 4 attempt(s)"), msg.Content)
	assert.Contains(t, msg.Content, "connection reset by peer")
}

func TestRunZeroOrNegativeRetriesMeansSingleAttempt(t *testing.T) {
	for _, retries := range []int{0, -1} {
		tool := &flakyTool{name: "lookup", failures: 100}
		model := &scriptedModel{responses: []*Response{toolCall("c1", "lookup", `{}`)}}
		a := New(model, NewRegistry(tool), Options{ToolRetries: retries})

		_, err := a.Run(context.Background(), "go")
		require.NoError(t, err)
		assert.Equal(t, 1, tool.attempts, "retries=%d", retries)
		assert.True(t, strings.HasPrefix(lastMessage(model).Content, "error: lookup failed after 1 attempt(s)"), lastMessage(model).Content)
	}
}

func TestRunUnknownTool(t *testing.T) {
	model := &scriptedModel{responses: []*Response{toolCall("c1", "drop_table", `{}`)}}
	a := New(model, NewRegistry(), Options{})

	_, err := a.Run(context.Background(), "drop everything")
	require.NoError(t, err)
	assert.Equal(t, `error: unknown tool "drop_table"`, lastMessage(model).Content)
}

func TestRunInvalidArguments(t *testing.T) {
	tool := &flakyTool{name: "lookup"}
	model := &scriptedModel{responses: []*Response{toolCall("c1", "lookup", `{not json`)}}
	a := New(model, NewRegistry(tool), Options{})

	_, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 0, tool.attempts)
	assert.Contains(t, lastMessage(model).Content, "invalid arguments for lookup")
}

func TestRunMaxIterations(t *testing.T) {
	tool := &flakyTool{name: "lookup"}
	responses := make([]*Response, 5)
	for i := range responses {
		responses[i] = toolCall("c", "lookup", `{}`)
	}
	model := &scriptedModel{responses: responses}
	a := New(model, NewRegistry(tool), Options{MaxIterations: 3})

	_, err := a.Run(context.Background(), "loop forever")
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, model.calls, 3)
}

func TestRunModelError(t *testing.T) {
	model := &scriptedModel{err: errors.New("401 unauthorized")}
	a := New(model, NewRegistry(), Options{})

	_, err := a.Run(context.Background(), "hi")
	assert.ErrorContains(t, err, "401 unauthorized")
}

func TestRunCancelledContextStopsRetries(t *testing.T) {
	tool := &flakyTool{name: "lookup", failures: 100}
	model := &scriptedModel{responses: []*Response{toolCall("c1", "lookup", `{}`)}}
	a := New(model, NewRegistry(tool), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.invoke(ctx, ToolCall{ID: "c1", Name: "lookup", Arguments: `{}`})
	assert.Equal(t, 0, tool.attempts)
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry(&flakyTool{name: "zeta"}, &flakyTool{name: "alpha"})
	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "zeta", defs[1].Name)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(&flakyTool{name: "x"}, &flakyTool{name: "x"})
	})
}
