/*
Package runner implements the interactive chat loop and input hygiene for the Relay engine.

It acts as the bridge between a session and the outside world: it reads customer
messages, posts them to the engine, asks for a decision whenever a turn stops before
a gated tool node and prints the assistant's replies.

# Key Components

  - Runner: The loop; it keeps running after failed turns and stops on EOF or "quit".
  - IOHandler: Decouples how the loop talks to the user (text or JSON lines).
  - TextHandler: A standard implementation for interactive CLI usage.
  - SanitizeInput: Size limit, UTF-8 validation and control character stripping.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, engine, sessionID); err != nil {
		log.Fatal(err)
	}
*/
package runner
