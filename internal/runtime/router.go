package runtime

import "github.com/aretw0/relay/pkg/domain"

// Route decides which node handles an assistant message.
// It is pure: neither msg nor stack is modified.
func Route(msg domain.Message, stack domain.DialogStack) (domain.NodeID, error) {
	active := stack.Top()

	if !msg.HasToolCalls() {
		if msg.IsDegenerate() {
			return "", &domain.RoutingError{Context: active, Reason: "assistant produced neither text nor tool calls"}
		}
		return domain.NodeEnd, nil
	}

	tools := make([]domain.Tool, len(msg.ToolCalls))
	for i, call := range msg.ToolCalls {
		t, ok := domain.ParseTool(call.Name)
		if !ok {
			return "", &domain.RoutingError{Context: active, Tool: call.Name, Reason: "unknown tool"}
		}
		if i > 0 && t.IsControl() {
			return "", &domain.RoutingError{Context: active, Tool: call.Name, Reason: "dialog control tools must be the first call of a batch"}
		}
		tools[i] = t
	}

	first := tools[0]
	if first == domain.ToolEscalate {
		return domain.NodeLeaveContext, nil
	}
	if target, ok := first.DelegationTarget(); ok {
		if active != domain.ContextPrimary {
			return "", &domain.RoutingError{Context: active, Tool: msg.ToolCalls[0].Name, Reason: "delegation is only available to the primary assistant"}
		}
		node, _ := domain.EnterNodeFor(target)
		return node, nil
	}

	sensitive := false
	for i, t := range tools {
		if !t.BelongsTo(active) {
			return "", &domain.RoutingError{Context: active, Tool: msg.ToolCalls[i].Name, Reason: "tool is not available in the active context"}
		}
		if t.Kind() == domain.KindSensitive {
			sensitive = true
		}
	}

	switch active {
	case domain.ContextCustomerProfile:
		if sensitive {
			return domain.NodeCustomerSensitiveTools, nil
		}
		return domain.NodeCustomerSafeTools, nil
	case domain.ContextMusicCatalog:
		return domain.NodeMusicCatalogTools, nil
	}
	return "", &domain.RoutingError{Context: active, Tool: msg.ToolCalls[0].Name, Reason: "context has no tool node"}
}

// EntryNode resolves where a new user message is handled, without asking the model.
func EntryNode(stack domain.DialogStack) domain.NodeID {
	return domain.AssistantNodeFor(stack.Top())
}
