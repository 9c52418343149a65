package relay_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/pkg/adapters/catalog"
	"github.com/aretw0/relay/pkg/adapters/scripted"
	"github.com/aretw0/relay/pkg/domain"
)

// ExampleNew walks one profile change through the approval gate.
// The scripted completion stands in for a model.
func ExampleNew() {
	completion := scripted.New(
		scripted.Call("c1", "DelegateToCustomerProfile", map[string]any{"request": "change email"}),
		scripted.Call("c2", "update_profile", map[string]any{"customer_id": 1, "field": "Email", "new_value": "ada@example.com"}),
		scripted.Reply("Your email is updated."),
	)
	store, err := catalog.New()
	if err != nil {
		log.Fatal(err)
	}

	eng, err := relay.New(completion, store)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, err := eng.StartSession(ctx, domain.SessionInit{SessionID: "example", CustomerID: 1})
	if err != nil {
		log.Fatal(err)
	}

	out, err := eng.PostMessage(ctx, id, "Please change my email to ada@example.com")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("pending:", out.Pending.Node, out.Pending.ToolCalls[0].Name)

	out, err = eng.ResolveApproval(ctx, id, true, "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("reply:", out.Reply.Content)

	customer, err := store.Customer(1)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("email:", customer["Email"])

	// Output:
	// pending: customer_profile_sensitive_tools update_profile
	// reply: Your email is updated.
	// email: ada@example.com
}

// ExampleEngine_Mermaid renders the execution graph.
func ExampleEngine_Mermaid() {
	eng, err := relay.New(scripted.New(), mustCatalog())
	if err != nil {
		log.Fatal(err)
	}

	diagram, err := eng.Mermaid(context.Background(), "")
	if err != nil {
		log.Fatal(err)
	}
	first, _, _ := strings.Cut(diagram, "\n")
	fmt.Println(first)

	// Output:
	// graph TD
}

func mustCatalog() *catalog.Catalog {
	c, err := catalog.New()
	if err != nil {
		panic(err)
	}
	return c
}
