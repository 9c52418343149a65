// Package anthropic implements ports.CompletionService on the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
)

// Options configure the adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string

	// RequestOptions are passed to the client, e.g. a base URL.
	RequestOptions []option.RequestOption
}

// Completion wraps an Anthropic client.
type Completion struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0,
		MaxTokens:   1024,
	}
}

// New creates an adapter. The API key falls back to ANTHROPIC_API_KEY.
func New(optFns ...func(o *Options)) *Completion {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := append([]option.RequestOption(nil), opts.RequestOptions...)
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Completion{client: &client, opts: opts}
}

// NewFromClient creates an adapter from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Completion {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Completion{client: client, opts: opts}
}

// Complete implements ports.CompletionService.
func (c *Completion) Complete(ctx context.Context, req ports.CompletionRequest) (domain.Message, error) {
	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if system := buildSystem(req); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return domain.Message{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	out := domain.AssistantMessage("")
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			use := block.AsToolUse()
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:   use.ID,
				Name: use.Name,
				Args: decodeInput(use.Input),
			})
		}
	}
	out.Content = text.String()
	return out, nil
}

// buildSystem gathers the context instructions and any system entries of the history;
// the Messages API only accepts system text out of band.
func buildSystem(req ports.CompletionRequest) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, m := range req.Messages {
		if m.Role == domain.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// buildMessages converts the history, carrying tool results in user turns and
// merging consecutive turns of the same role.
func buildMessages(history []domain.Message) []anthropic.MessageParam {
	var (
		messages []anthropic.MessageParam
		blocks   []anthropic.ContentBlockParamUnion
		role     domain.Role
	)
	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if role == domain.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
		blocks = nil
	}
	add := func(r domain.Role, b ...anthropic.ContentBlockParamUnion) {
		if r != role {
			flush()
			role = r
		}
		blocks = append(blocks, b...)
	}

	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			if m.Content != "" {
				add(domain.RoleUser, anthropic.NewTextBlock(m.Content))
			}
		case domain.RoleTool:
			add(domain.RoleUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case domain.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				content = append(content, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := tc.Args
				if args == nil {
					args = map[string]any{}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(content) > 0 {
				add(domain.RoleAssistant, content...)
			}
		}
	}
	flush()
	return messages
}

func buildTools(specs []domain.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(specs))
	for i, spec := range specs {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if props, ok := spec.Parameters["properties"]; ok {
			schema.Properties = props
		}
		schema.Required = requiredFields(spec.Parameters["required"])

		tools[i] = anthropic.ToolUnionParamOfTool(schema, spec.Name)
		if spec.Description != "" {
			tools[i].OfTool.Description = anthropic.String(spec.Description)
		}
	}
	return tools
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func decodeInput(input any) map[string]any {
	args := map[string]any{}
	if input == nil {
		return args
	}
	data, err := json.Marshal(input)
	if err != nil {
		return args
	}
	if err := json.Unmarshal(data, &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}
