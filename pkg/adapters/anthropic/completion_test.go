package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages_ToolResultsRideInUserTurns(t *testing.T) {
	history := []domain.Message{
		domain.SystemMessage("intro"),
		domain.UserMessage("update my email"),
		domain.AssistantMessage("", domain.ToolCall{ID: "t1", Name: "DelegateToCustomerProfile", Args: map[string]any{"request": "email"}}),
		domain.ToolResultMessage("t1", "The assistant is now the customer profile assistant."),
		domain.AssistantMessage("", domain.ToolCall{ID: "t2", Name: "update_profile"}, domain.ToolCall{ID: "t3", Name: "get_customer_info"}),
		domain.ToolErrorMessage("t2", "Error: boom\nPlease fix your request."),
		domain.ToolResultMessage("t3", "{}"),
		domain.UserMessage("thanks"),
	}

	msgs := buildMessages(history)
	require.Len(t, msgs, 5)

	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	require.NotNil(t, msgs[1].Content[0].OfToolUse)
	assert.Equal(t, "t1", msgs[1].Content[0].OfToolUse.ID)

	assert.Equal(t, "user", string(msgs[2].Role))
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "t1", msgs[2].Content[0].OfToolResult.ToolUseID)

	assert.Len(t, msgs[3].Content, 2)

	// Both results and the next user text share one user turn.
	assert.Equal(t, "user", string(msgs[4].Role))
	require.Len(t, msgs[4].Content, 3)
	assert.Equal(t, "t2", msgs[4].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "t3", msgs[4].Content[1].OfToolResult.ToolUseID)
	require.NotNil(t, msgs[4].Content[2].OfText)
	assert.Equal(t, "thanks", msgs[4].Content[2].OfText.Text)
}

func TestBuildSystem(t *testing.T) {
	blocks := buildSystem(ports.CompletionRequest{
		Instructions: "be brief",
		Messages:     []domain.Message{domain.SystemMessage("customer is Luís"), domain.UserMessage("hi")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "be brief", blocks[0].Text)
	assert.Equal(t, "customer is Luís", blocks[1].Text)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools(domain.SpecsFor(domain.ContextCustomerProfile))
	require.Len(t, tools, 3)
	require.NotNil(t, tools[1].OfTool)
	assert.Equal(t, "update_profile", tools[1].OfTool.Name)
	assert.Equal(t, []string{"customer_id", "field", "new_value"}, tools[1].OfTool.InputSchema.Required)
}

func TestComplete_AgainstFakeServer(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [
				{"type": "text", "text": "Looking that up."},
				{"type": "tool_use", "id": "toolu_1", "name": "check_for_songs", "input": {"song_title": "Kashmir"}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`)
	}))
	defer srv.Close()

	c := New(func(o *Options) {
		o.APIKey = "test"
		o.RequestOptions = []option.RequestOption{option.WithBaseURL(srv.URL), option.WithMaxRetries(0)}
	})

	msg, err := c.Complete(context.Background(), ports.CompletionRequest{
		Context:      domain.ContextMusicCatalog,
		Instructions: "music",
		Messages:     []domain.Message{domain.UserMessage("Kashmir?")},
		Tools:        domain.SpecsFor(domain.ContextMusicCatalog),
	})
	require.NoError(t, err)
	assert.Equal(t, "Looking that up.", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "toolu_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "Kashmir", msg.ToolCalls[0].Args["song_title"])

	assert.NotEmpty(t, received["system"])
	assert.Len(t, received["tools"], 4)
}

func TestDecodeInput(t *testing.T) {
	assert.Equal(t, map[string]any{"a": "b"}, decodeInput(json.RawMessage(`{"a":"b"}`)))
	assert.Empty(t, decodeInput(nil))
	assert.NotNil(t, decodeInput(json.RawMessage(`null`)))
}
