package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/relay/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	// CurrentNode is the node the session resumes at, usually a gated tool node.
	CurrentNode domain.NodeID

	// Gated lists nodes that wait for an approval before running.
	Gated []domain.NodeID
}

const startID = "__start__"

// GenerateMermaid produces a Mermaid flowchart from the execution graph.
// It applies semantic styling:
// - Start/End: ((Circle))
// - Tools: [[Subroutine]]
// - Enter/Leave: {{Hexagon}}
// - Assistant: [Rectangle]
// Edges into gated nodes are dotted and labeled.
func GenerateMermaid(nodes []domain.Node, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	gated := make(map[domain.NodeID]bool)
	if overlay != nil {
		for _, id := range overlay.Gated {
			gated[id] = true
		}
	}

	fmt.Fprintf(&sb, "    %s((\"start\"))\n", startID)
	for _, node := range nodes {
		if node.Kind == domain.NodeKindAssistant {
			// A turn starts at the assistant of whichever context is on top of the stack.
			fmt.Fprintf(&sb, "    %s -.-> %s\n", startID, sanitizeMermaidID(node.ID))
		}
	}

	endUsed := false
	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Kind {
		case domain.NodeKindTools:
			opener, closer = "[[", "]]"
		case domain.NodeKindEnter, domain.NodeKindLeave:
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer)

		for _, next := range node.Next {
			if next == domain.NodeEnd {
				endUsed = true
			}
			arrow := "-->"
			if gated[next] {
				arrow = `-. "approval" .->`
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(next))
		}
	}
	if endUsed {
		fmt.Fprintf(&sb, "    %s((\"end\"))\n", sanitizeMermaidID(domain.NodeEnd))
	}

	if overlay != nil && overlay.CurrentNode != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high contrast regardless of theme.
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
	}

	return sb.String()
}

func sanitizeMermaidID(id domain.NodeID) string {
	s := string(id)
	if s == string(domain.NodeEnd) {
		return "__end__"
	}
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
