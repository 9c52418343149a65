package domain

import "fmt"

// Fixed texts the engine injects into conversations.
const (
	// CorrectiveInstruction is appended as a user message when the model returns nothing usable.
	CorrectiveInstruction = "Respond with a real output."

	// ApologyMessage is the terminal reply once corrective retries are exhausted.
	ApologyMessage = "I'm sorry, I couldn't put together a response just now. Could you rephrase your request?"
)

// DenialContent is the tool result injected in place of a rejected sensitive action.
func DenialContent(reason string) string {
	return fmt.Sprintf("Action denied by user. Reason: '%s'. Please adapt.", reason)
}
