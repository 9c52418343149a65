// Package openai implements ports.CompletionService on the OpenAI Chat Completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Completion wraps an OpenAI client.
type Completion struct {
	client *openai.Client
	opts   Options
}

// New creates an adapter with a client configured from the environment (OPENAI_API_KEY).
func New(optFns ...func(o *Options)) *Completion {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewWithRequestOptions creates an adapter with explicit client options, e.g. a base URL.
func NewWithRequestOptions(reqOpts []option.RequestOption, optFns ...func(o *Options)) *Completion {
	client := openai.NewClient(reqOpts...)
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Completion {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Completion{client: client, opts: opts}
}

// Complete implements ports.CompletionService.
func (c *Completion) Complete(ctx context.Context, req ports.CompletionRequest) (domain.Message, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.Message{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Message{}, errors.New("openai returned no choices")
	}
	return toDomain(resp.Choices[0].Message), nil
}

// buildMessages puts the context instructions first and maps each history entry one to one.
func buildMessages(req ports.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case domain.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		case domain.RoleAssistant:
			if !m.HasToolCalls() {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls)),
			}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for i, tc := range m.ToolCalls {
				assistant.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: encodeArgs(tc.Args),
					},
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		}
	}
	return messages
}

func buildTools(specs []domain.ToolSpec) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(specs))
	for i, spec := range specs {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  spec.Parameters,
			},
		}
	}
	return tools
}

func toDomain(msg openai.ChatCompletionMessage) domain.Message {
	out := domain.AssistantMessage(msg.Content)
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: decodeArgs(tc.Function.Arguments),
		})
	}
	return out
}

func encodeArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// decodeArgs tolerates malformed arguments; the tool reports the missing fields back to the model.
func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	_ = json.Unmarshal([]byte(raw), &args)
	return args
}
