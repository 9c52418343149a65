package relay_test

import (
	"context"
	"testing"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/pkg/adapters/catalog"
	"github.com/aretw0/relay/pkg/adapters/scripted"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New()
	require.NoError(t, err)
	return cat
}

func sensitiveSteps() []scripted.Step {
	return []scripted.Step{
		scripted.Call("c1", "DelegateToCustomerProfile", map[string]any{"request": "change email"}),
		scripted.Call("c2", "update_profile", map[string]any{"customer_id": 1, "field": "Email", "new_value": "new@example.com"}),
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := relay.New(nil, newCatalog(t))
	assert.Error(t, err)

	_, err = relay.New(scripted.New(), nil)
	assert.Error(t, err)
}

func TestEngine_PostMessageRejectsInvalidUTF8(t *testing.T) {
	completion := scripted.New(scripted.Reply("hi"))
	eng, err := relay.New(completion, newCatalog(t))
	require.NoError(t, err)

	ctx := context.Background()
	id, err := eng.StartSession(ctx, domain.SessionInit{})
	require.NoError(t, err)

	_, err = eng.PostMessage(ctx, id, "bad \xff input")
	assert.ErrorIs(t, err, runner.ErrInvalidUTF8)
	assert.Equal(t, 1, completion.Remaining())
}

func TestEngine_DenyApproval(t *testing.T) {
	completion := scripted.New(append(sensitiveSteps(), scripted.Reply("Understood, nothing was changed."))...)
	cat := newCatalog(t)
	eng, err := relay.New(completion, cat)
	require.NoError(t, err)

	ctx := context.Background()
	id, err := eng.StartSession(ctx, domain.SessionInit{CustomerID: 1})
	require.NoError(t, err)

	before, err := cat.Customer(1)
	require.NoError(t, err)

	out, err := eng.PostMessage(ctx, id, "Change my email")
	require.NoError(t, err)
	require.True(t, out.Suspended())

	out, err = eng.ResolveApproval(ctx, id, false, "wrong address")
	require.NoError(t, err)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "Understood, nothing was changed.", out.Reply.Content)

	reqs := completion.Requests()
	require.NotEmpty(t, reqs)
	last := reqs[len(reqs)-1]
	require.NotEmpty(t, last.Messages)
	denial := last.Messages[len(last.Messages)-1]
	assert.Equal(t, domain.RoleTool, denial.Role)
	assert.Equal(t, "c2", denial.ToolCallID)
	assert.Equal(t, domain.DenialContent("wrong address"), denial.Content)

	after, err := cat.Customer(1)
	require.NoError(t, err)
	assert.Equal(t, before["Email"], after["Email"])

	cp, err := eng.Checkpoint(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusIdle, cp.Status)
}

func TestEngine_WithoutInterrupts(t *testing.T) {
	completion := scripted.New(append(sensitiveSteps(), scripted.Reply("Done."))...)
	cat := newCatalog(t)
	eng, err := relay.New(completion, cat, relay.WithInterruptBefore())
	require.NoError(t, err)

	ctx := context.Background()
	id, err := eng.StartSession(ctx, domain.SessionInit{CustomerID: 1})
	require.NoError(t, err)

	out, err := eng.PostMessage(ctx, id, "Change my email")
	require.NoError(t, err)
	assert.False(t, out.Suspended())
	require.NotNil(t, out.Reply)
	assert.Equal(t, "Done.", out.Reply.Content)

	customer, err := cat.Customer(1)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", customer["Email"])
}

func TestEngine_Mermaid(t *testing.T) {
	eng, err := relay.New(scripted.New(sensitiveSteps()...), newCatalog(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.Mermaid(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	id, err := eng.StartSession(ctx, domain.SessionInit{CustomerID: 1})
	require.NoError(t, err)
	_, err = eng.PostMessage(ctx, id, "Change my email")
	require.NoError(t, err)

	diagram, err := eng.Mermaid(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, diagram, "graph TD")
	assert.Contains(t, diagram, "class customer_profile_sensitive_tools current;")
	assert.NotEmpty(t, eng.Inspect())
}

func TestEngine_StartSessionUnknownCustomer(t *testing.T) {
	eng, err := relay.New(scripted.New(), newCatalog(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.StartSession(ctx, domain.SessionInit{SessionID: "ghost", CustomerID: 9999})
	assert.ErrorIs(t, err, domain.ErrProfileUnavailable)

	_, err = eng.Checkpoint(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngine_Sessions(t *testing.T) {
	eng, err := relay.New(scripted.New(), newCatalog(t))
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := eng.StartSession(ctx, domain.SessionInit{SessionID: id})
		require.NoError(t, err)
	}

	ids, err := eng.ListSessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	require.NoError(t, eng.DeleteSession(ctx, "a"))
	ids, err = eng.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)

	_, err = eng.Checkpoint(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
