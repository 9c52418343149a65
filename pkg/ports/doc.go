/*
Package ports defines the driven ports (interfaces) of the relay orchestrator.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with any completion backend, tool implementation or storage engine.

# Key Interfaces

  - CompletionService: Produces one assistant turn for a context (e.g., OpenAI, Anthropic).
  - ToolProvider: Executes a single named action on behalf of the model.
  - CheckpointStore: Persists and loads the latest Checkpoint of each session.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
