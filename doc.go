/*
Package relay is a multi-assistant customer support engine for a digital music store.

A primary assistant talks to the customer and delegates to specialist assistants
(music catalog, customer profile). Specialists are pushed onto a dialog stack and
return control with CompleteOrEscalate. Tool calls run as graph nodes, and nodes
listed with WithInterruptBefore suspend the turn until a human approves or denies
the pending calls.

# Concept

Every turn walks a fixed execution graph. Between nodes the engine persists a
domain.Checkpoint, so a suspended session survives restarts and can be resumed by
any process sharing the store. The completion backend (scripted, OpenAI or
Anthropic) and the tool provider are ports; storage, encryption and locking are
adapters.

# Usage

	completion := scripted.New(scripted.Reply("Hello! How can I help?"))
	store, err := catalog.New()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := relay.New(completion, store)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, err := eng.StartSession(ctx, domain.SessionInit{CustomerID: 1})
	if err != nil {
		log.Fatal(err)
	}

	out, err := eng.PostMessage(ctx, id, "hi")
	if err != nil {
		log.Fatal(err)
	}
	if out.Suspended() {
		out, err = eng.ResolveApproval(ctx, id, true, "")
	}
*/
package relay
