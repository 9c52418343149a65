package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/relay/pkg/domain"
)

// ApprovalPrompt is shown when a turn stops before a gated tool node.
const ApprovalPrompt = "Do you approve of the above actions? Type 'y' to continue; otherwise, explain your requested changes."

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	// Prompt is printed before reading a message. Empty disables it.
	Prompt string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithPrompt configures the input prompt.
func WithPrompt(prompt string) TextHandlerOption {
	return func(h *TextHandler) {
		h.Prompt = prompt
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		Prompt: "User: ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so a cancelled context never leaves Input blocked.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

func (h *TextHandler) readLine(ctx context.Context) (string, error) {
	h.initPump()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

// Input reads one message, asking again when the line is rejected by the sanitizer.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	for {
		if h.Prompt != "" {
			fmt.Fprint(h.Writer, h.Prompt)
		}
		text, err := h.readLine(ctx)
		if err != nil {
			return "", err
		}
		clean, err := SanitizeInput(text)
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return clean, nil
	}
}

func (h *TextHandler) Reply(ctx context.Context, msg domain.Message) error {
	output := msg.Content
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintf(h.Writer, "Assistant: %s\n", strings.TrimSpace(output))
	return err
}

// Approval lists the pending calls and treats anything but "y" as a denial reason.
func (h *TextHandler) Approval(ctx context.Context, pending *domain.PendingApproval) (bool, string, error) {
	fmt.Fprintln(h.Writer)
	for _, call := range pending.ToolCalls {
		fmt.Fprintf(h.Writer, "[Tool Call] %s %v\n", call.Name, call.Args)
	}
	fmt.Fprintln(h.Writer, ApprovalPrompt)
	fmt.Fprint(h.Writer, "> ")

	answer, err := h.readLine(ctx)
	if err != nil {
		return false, "", err
	}
	if strings.EqualFold(answer, "y") {
		return true, "", nil
	}
	return false, answer, nil
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}
