package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/relay/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
//
// Input lines are either a JSON string, a raw line, or an object {"content": "..."}.
// Approval lines are {"approved": true} or {"approved": false, "reason": "..."}.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// Event is one line written by the JSONHandler.
type Event struct {
	Type    string                  `json:"type"`
	Message *domain.Message         `json:"message,omitempty"`
	Pending *domain.PendingApproval `json:"pending,omitempty"`
	Text    string                  `json:"text,omitempty"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) readLine() (string, error) {
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	text, err := h.readLine()
	if err != nil {
		return "", err
	}

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	} else {
		var obj struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Content != "" {
			text = obj.Content
		}
	}
	return SanitizeInput(text)
}

func (h *JSONHandler) Reply(ctx context.Context, msg domain.Message) error {
	return h.Encoder.Encode(Event{Type: "reply", Message: &msg})
}

func (h *JSONHandler) Approval(ctx context.Context, pending *domain.PendingApproval) (bool, string, error) {
	if err := h.Encoder.Encode(Event{Type: "approval_required", Pending: pending}); err != nil {
		return false, "", err
	}

	text, err := h.readLine()
	if err != nil {
		return false, "", err
	}
	var decision struct {
		Approved bool   `json:"approved"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(text), &decision); err != nil {
		return false, "", fmt.Errorf("failed to decode approval decision: %w", err)
	}
	return decision.Approved, decision.Reason, nil
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Event{Type: "system", Text: msg})
}
