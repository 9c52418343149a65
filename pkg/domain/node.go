package domain

// NodeID names a node of the execution graph.
type NodeID string

const (
	NodePrimaryAssistant         NodeID = "primary_assistant"
	NodeEnterCustomerProfile     NodeID = "enter_customer_profile"
	NodeCustomerProfileAssistant NodeID = "customer_profile_assistant"
	NodeCustomerSafeTools        NodeID = "customer_profile_safe_tools"
	NodeCustomerSensitiveTools   NodeID = "customer_profile_sensitive_tools"
	NodeEnterMusicCatalog        NodeID = "enter_music_catalog"
	NodeMusicCatalogAssistant    NodeID = "music_catalog_assistant"
	NodeMusicCatalogTools        NodeID = "music_catalog_tools"
	NodeLeaveContext             NodeID = "leave_context"

	// NodeEnd is the router's end-of-turn signal. It is never executed.
	NodeEnd NodeID = "__end__"
)

// NodeKind defines what a node does when executed.
const (
	// NodeKindAssistant asks the completion service for one assistant turn.
	NodeKindAssistant = "assistant"
	// NodeKindTools runs the tool calls of the latest assistant message.
	NodeKindTools = "tools"
	// NodeKindEnter pushes a context onto the dialog stack.
	NodeKindEnter = "enter"
	// NodeKindLeave pops the dialog stack.
	NodeKindLeave = "leave"
)

// Node is the static description of one graph node.
type Node struct {
	ID      NodeID    `json:"id" yaml:"id"`
	Kind    string    `json:"kind" yaml:"kind"`
	Context ContextID `json:"context,omitempty" yaml:"context,omitempty"`

	// Next lists the nodes this node may hand over to.
	Next []NodeID `json:"next,omitempty" yaml:"next,omitempty"`
}

// AssistantNodeFor returns the assistant node serving context c.
func AssistantNodeFor(c ContextID) NodeID {
	switch c {
	case ContextCustomerProfile:
		return NodeCustomerProfileAssistant
	case ContextMusicCatalog:
		return NodeMusicCatalogAssistant
	default:
		return NodePrimaryAssistant
	}
}

// EnterNodeFor returns the node that pushes context c.
func EnterNodeFor(c ContextID) (NodeID, bool) {
	switch c {
	case ContextCustomerProfile:
		return NodeEnterCustomerProfile, true
	case ContextMusicCatalog:
		return NodeEnterMusicCatalog, true
	}
	return "", false
}
