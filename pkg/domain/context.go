package domain

import (
	"encoding/json"
	"fmt"
)

// ContextID identifies one of the specialized assistants.
type ContextID string

const (
	ContextPrimary         ContextID = "primary"
	ContextCustomerProfile ContextID = "customer_profile"
	ContextMusicCatalog    ContextID = "music_catalog"
)

// Contexts lists every known context in declaration order.
var Contexts = []ContextID{ContextPrimary, ContextCustomerProfile, ContextMusicCatalog}

// Valid reports whether c belongs to the closed set of contexts.
func (c ContextID) Valid() bool {
	switch c {
	case ContextPrimary, ContextCustomerProfile, ContextMusicCatalog:
		return true
	}
	return false
}

// DisplayName is the human name used in handoff instructions.
func (c ContextID) DisplayName() string {
	switch c {
	case ContextCustomerProfile:
		return "Customer Profile Assistant"
	case ContextMusicCatalog:
		return "Music Catalog Assistant"
	default:
		return "Primary Assistant"
	}
}

// DialogStack is the LIFO of delegated contexts.
// An empty stack means the Primary context is active.
type DialogStack struct {
	frames []ContextID
}

// NewDialogStack builds a stack from bottom to top.
func NewDialogStack(frames ...ContextID) DialogStack {
	s := DialogStack{}
	for _, f := range frames {
		s.Push(f)
	}
	return s
}

// Push makes c the active context.
func (s *DialogStack) Push(c ContextID) {
	s.frames = append(s.frames, c)
}

// Pop removes the active context. It returns false when the stack is already empty,
// in which case the stack is left untouched.
func (s *DialogStack) Pop() (ContextID, bool) {
	if len(s.frames) == 0 {
		return "", false
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, true
}

// Top returns the active context, defaulting to Primary.
func (s DialogStack) Top() ContextID {
	if len(s.frames) == 0 {
		return ContextPrimary
	}
	return s.frames[len(s.frames)-1]
}

// Len returns the number of delegated contexts.
func (s DialogStack) Len() int {
	return len(s.frames)
}

// Frames returns a copy of the stack, bottom first.
func (s DialogStack) Frames() []ContextID {
	out := make([]ContextID, len(s.frames))
	copy(out, s.frames)
	return out
}

// MarshalJSON encodes the stack as an array, bottom first.
func (s DialogStack) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Frames())
}

// UnmarshalJSON rejects contexts outside the closed set.
func (s *DialogStack) UnmarshalJSON(data []byte) error {
	var frames []ContextID
	if err := json.Unmarshal(data, &frames); err != nil {
		return err
	}
	for _, f := range frames {
		if !f.Valid() {
			return fmt.Errorf("invalid dialog stack frame %q", f)
		}
	}
	s.frames = frames
	return nil
}
