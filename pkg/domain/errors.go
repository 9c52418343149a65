package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when a session is started with an ID already in use.
var ErrSessionExists = errors.New("session already exists")

// ErrApprovalPending is returned when a message is posted to a suspended session.
var ErrApprovalPending = errors.New("session is waiting for an approval decision")

// ErrNotSuspended is returned when an approval is resolved for a session that is not suspended.
var ErrNotSuspended = errors.New("session is not waiting for approval")

// ErrProfileUnavailable is returned when a session asks for a customer snapshot the tool provider cannot produce.
var ErrProfileUnavailable = errors.New("customer profile unavailable")

// ErrMaxStepsExceeded is returned when a single turn executes more nodes than allowed.
var ErrMaxStepsExceeded = errors.New("turn exceeded max steps")

// RoutingError reports an assistant output the router cannot dispatch.
// It is fatal for the turn and never retried.
type RoutingError struct {
	Context ContextID
	Tool    string
	Reason  string
}

func (e *RoutingError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("routing failed in %s: %s", e.Context, e.Reason)
	}
	return fmt.Sprintf("routing failed in %s: tool %q: %s", e.Context, e.Tool, e.Reason)
}

// CompletionError wraps a transport or model failure of the completion service.
type CompletionError struct {
	Context ContextID
	Err     error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed in %s: %v", e.Context, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
