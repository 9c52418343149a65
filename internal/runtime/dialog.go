package runtime

import (
	"fmt"

	"github.com/aretw0/relay/pkg/domain"
)

const (
	resumeContent      = "Resuming dialog with the host assistant. Reflect on the past conversation and help the user as needed."
	notExecutedContent = "Not executed: the dialog changed hands before this call could run."
)

func proxyContent(target domain.ContextID) string {
	name := target.DisplayName()
	return fmt.Sprintf("The assistant is now the %s. Reflect on the conversation between the host assistant and the user: "+
		"the user's intent is not yet satisfied. Use the provided tools to help the user. "+
		"An update or lookup is not complete until the matching tool has been invoked successfully. "+
		"If the user changes their mind or needs help with something else, call %s to hand control back to the host assistant. "+
		"Do not mention who you are; act as the proxy for the host assistant.", name, domain.ToolEscalate)
}

// Enter pushes target and answers the delegation call in msg.
// Any other calls in the same batch are answered as not executed.
func Enter(st *domain.ConversationState, target domain.ContextID, msg domain.Message) {
	st.Stack.Push(target)
	if !msg.HasToolCalls() {
		return
	}
	st.Append(domain.ToolResultMessage(msg.ToolCalls[0].ID, proxyContent(target)))
	answerRest(st, msg.ToolCalls[1:])
}

// Leave pops the active context and acknowledges the escalation call in msg.
// Popping an empty stack is a no-op reported as ok=false.
func Leave(st *domain.ConversationState, msg domain.Message) (popped domain.ContextID, ok bool) {
	popped, ok = st.Stack.Pop()
	if msg.HasToolCalls() {
		st.Append(domain.ToolResultMessage(msg.ToolCalls[0].ID, resumeContent))
		answerRest(st, msg.ToolCalls[1:])
	}
	return popped, ok
}

func answerRest(st *domain.ConversationState, calls []domain.ToolCall) {
	for _, call := range calls {
		st.Append(domain.ToolErrorMessage(call.ID, notExecutedContent))
	}
}

// closeDangling answers every pending call of the latest assistant message,
// so an aborted turn never leaves the history unanswered.
func closeDangling(st *domain.ConversationState, reason string) int {
	calls := st.PendingCalls()
	for _, call := range calls {
		st.Append(domain.ToolErrorMessage(call.ID, "Error: "+reason))
	}
	return len(calls)
}
