// Package scripted provides a deterministic CompletionService that replays a fixed script.
// It backs engine tests and the offline demo mode of the CLI.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"gopkg.in/yaml.v3"
)

// ErrScriptExhausted is returned once every step has been consumed.
var ErrScriptExhausted = errors.New("completion script exhausted")

// Step produces one completion.
type Step func(req ports.CompletionRequest) (domain.Message, error)

// Completion replays steps in order and records every request it receives.
type Completion struct {
	mu       sync.Mutex
	steps    []Step
	requests []ports.CompletionRequest
}

// New creates a scripted completion service.
func New(steps ...Step) *Completion {
	return &Completion{steps: steps}
}

// Append adds steps at the end of the script.
func (c *Completion) Append(steps ...Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, steps...)
}

// Complete implements ports.CompletionService.
func (c *Completion) Complete(ctx context.Context, req ports.CompletionRequest) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	c.mu.Lock()
	c.requests = append(c.requests, req)
	if len(c.steps) == 0 {
		c.mu.Unlock()
		return domain.Message{}, ErrScriptExhausted
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	c.mu.Unlock()

	return step(req)
}

// Requests returns the requests received so far.
func (c *Completion) Requests() []ports.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.CompletionRequest(nil), c.requests...)
}

// Remaining reports how many steps are left.
func (c *Completion) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// Reply answers with plain text.
func Reply(text string) Step {
	return func(ports.CompletionRequest) (domain.Message, error) {
		return domain.AssistantMessage(text), nil
	}
}

// Call answers with a single tool call.
func Call(id, name string, args map[string]any) Step {
	return Calls(domain.ToolCall{ID: id, Name: name, Args: args})
}

// Calls answers with a batch of tool calls.
func Calls(calls ...domain.ToolCall) Step {
	return func(ports.CompletionRequest) (domain.Message, error) {
		return domain.AssistantMessage("", calls...), nil
	}
}

// Empty answers with a degenerate message.
func Empty() Step {
	return Reply("")
}

// Fail returns err as a transport failure.
func Fail(err error) Step {
	return func(ports.CompletionRequest) (domain.Message, error) {
		return domain.Message{}, err
	}
}

// Entry is the YAML form of one step.
type Entry struct {
	Content   string            `yaml:"content"`
	ToolCalls []domain.ToolCall `yaml:"tool_calls"`
	Error     string            `yaml:"error"`
}

// Load reads a YAML list of entries.
func Load(path string) (*Completion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML list of entries.
func Parse(data []byte) (*Completion, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	steps := make([]Step, len(entries))
	for i, e := range entries {
		switch {
		case e.Error != "":
			steps[i] = Fail(errors.New(e.Error))
		case len(e.ToolCalls) > 0:
			steps[i] = Calls(e.ToolCalls...)
		default:
			steps[i] = Reply(e.Content)
		}
	}
	return New(steps...), nil
}
