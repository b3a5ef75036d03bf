package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/Kjdragan/codescribe/configs"
)

func TestOpenAIModelComplete(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "get_customer_by_email", "arguments": "{\"email\":\"john.doe@example.com\"}"}
					}]
				}
			}]
		}`))
	}))
	defer srv.Close()

	m := NewOpenAIModel(config.ModelConfig{APIKey: "sk-test", Name: "gpt-4o", BaseURL: srv.URL + "/"})
	resp, err := m.Complete(context.Background(),
		[]Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "find john"},
		},
		[]ToolDefinition{{
			Name:        "get_customer_by_email",
			Description: "lookup",
			Parameters:  map[string]interface{}{"type": "object"},
		}},
	)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_abc", resp.ToolCalls[0].ID)
	assert.Equal(t, "get_customer_by_email", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"email":"john.doe@example.com"}`, resp.ToolCalls[0].Arguments)

	assert.Equal(t, "gpt-4o", got["model"])
	msgs, ok := got["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	tools, ok := got["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
	assert.Equal(t, "get_customer_by_email", fn["name"])
}

func TestOpenAIModelNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	m := NewOpenAIModel(config.ModelConfig{APIKey: "k", Name: "gpt-4o", BaseURL: srv.URL})
	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	assert.ErrorIs(t, err, errNoChoices)
}

func TestOpenAIModelHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewOpenAIModel(config.ModelConfig{APIKey: "bad", Name: "gpt-4o", BaseURL: srv.URL})
	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")
}
