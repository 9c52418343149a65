package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages(t *testing.T) {
	req := ports.CompletionRequest{
		Instructions: "You are helpful.",
		Messages: []domain.Message{
			domain.SystemMessage("intro"),
			domain.UserMessage("hi"),
			domain.AssistantMessage("", domain.ToolCall{ID: "c1", Name: "get_customer_info", Args: map[string]any{"customer_id": 1}}),
			domain.ToolResultMessage("c1", `{"FirstName":"Luís"}`),
			domain.AssistantMessage("Hello Luís"),
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 6)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfSystem)
	assert.NotNil(t, msgs[2].OfUser)

	require.NotNil(t, msgs[3].OfAssistant)
	require.Len(t, msgs[3].OfAssistant.ToolCalls, 1)
	call := msgs[3].OfAssistant.ToolCalls[0]
	assert.Equal(t, "c1", call.ID)
	assert.Equal(t, "get_customer_info", call.Function.Name)
	assert.JSONEq(t, `{"customer_id":1}`, call.Function.Arguments)

	require.NotNil(t, msgs[4].OfTool)
	assert.Equal(t, "c1", msgs[4].OfTool.ToolCallID)
	assert.NotNil(t, msgs[5].OfAssistant)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools(domain.SpecsFor(domain.ContextCustomerProfile))
	require.Len(t, tools, 3)
	assert.Equal(t, "get_customer_info", tools[0].Function.Name)
	assert.Equal(t, "object", tools[0].Function.Parameters["type"])
}

func TestDecodeArgs(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1.0}, decodeArgs(`{"a":1}`))
	assert.Empty(t, decodeArgs(`{broken`))
	assert.Empty(t, decodeArgs(""))
	assert.Equal(t, "{}", encodeArgs(nil))
}

func TestComplete_AgainstFakeServer(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "DelegateToMusicCatalog", "arguments": "{\"request\":\"songs by Queen\"}"}
					}]
				}
			}]
		}`)
	}))
	defer srv.Close()

	c := NewWithRequestOptions([]option.RequestOption{
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	})

	msg, err := c.Complete(context.Background(), ports.CompletionRequest{
		Context:      domain.ContextPrimary,
		Instructions: "route",
		Messages:     []domain.Message{domain.UserMessage("Queen songs?")},
		Tools:        domain.SpecsFor(domain.ContextPrimary),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, msg.Role)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "songs by Queen", msg.ToolCalls[0].Args["request"])

	assert.Equal(t, "gpt-4o-mini", received["model"])
	assert.Len(t, received["tools"], 2)
}

func TestComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithRequestOptions([]option.RequestOption{
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	})
	_, err := c.Complete(context.Background(), ports.CompletionRequest{Messages: []domain.Message{domain.UserMessage("hi")}})
	assert.Error(t, err)
}
