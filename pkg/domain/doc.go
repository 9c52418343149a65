/*
Package domain contains the core domain models of the relay orchestrator.

It defines the conversation data model, the closed sets of assistant contexts and tools,
the execution graph vocabulary and the checkpoint persisted between turns. This package is
kept pure and free of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - ConversationState: append-only messages, the profile snapshot and the DialogStack.
  - Message: a tagged variant (user, assistant, tool result, system) keyed by Role.
  - DialogStack: LIFO of ContextID; Push and Pop are the only mutators.
  - Tool: closed enum of every tool a model may call, with its kind and schema.
  - Checkpoint: the persisted (state, pending node) pair that makes turns resumable.
*/
package domain
