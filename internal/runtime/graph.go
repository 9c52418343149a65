package runtime

import "github.com/aretw0/relay/pkg/domain"

// graph is the fixed execution graph. Next lists every node a router or fixed edge may pick.
var graph = []domain.Node{
	{
		ID: domain.NodePrimaryAssistant, Kind: domain.NodeKindAssistant, Context: domain.ContextPrimary,
		Next: []domain.NodeID{domain.NodeEnterCustomerProfile, domain.NodeEnterMusicCatalog, domain.NodeEnd},
	},
	{
		ID: domain.NodeEnterCustomerProfile, Kind: domain.NodeKindEnter, Context: domain.ContextCustomerProfile,
		Next: []domain.NodeID{domain.NodeCustomerProfileAssistant},
	},
	{
		ID: domain.NodeCustomerProfileAssistant, Kind: domain.NodeKindAssistant, Context: domain.ContextCustomerProfile,
		Next: []domain.NodeID{domain.NodeCustomerSafeTools, domain.NodeCustomerSensitiveTools, domain.NodeLeaveContext, domain.NodeEnd},
	},
	{
		ID: domain.NodeCustomerSafeTools, Kind: domain.NodeKindTools, Context: domain.ContextCustomerProfile,
		Next: []domain.NodeID{domain.NodeCustomerProfileAssistant},
	},
	{
		ID: domain.NodeCustomerSensitiveTools, Kind: domain.NodeKindTools, Context: domain.ContextCustomerProfile,
		Next: []domain.NodeID{domain.NodeCustomerProfileAssistant},
	},
	{
		ID: domain.NodeEnterMusicCatalog, Kind: domain.NodeKindEnter, Context: domain.ContextMusicCatalog,
		Next: []domain.NodeID{domain.NodeMusicCatalogAssistant},
	},
	{
		ID: domain.NodeMusicCatalogAssistant, Kind: domain.NodeKindAssistant, Context: domain.ContextMusicCatalog,
		Next: []domain.NodeID{domain.NodeMusicCatalogTools, domain.NodeLeaveContext, domain.NodeEnd},
	},
	{
		ID: domain.NodeMusicCatalogTools, Kind: domain.NodeKindTools, Context: domain.ContextMusicCatalog,
		Next: []domain.NodeID{domain.NodeMusicCatalogAssistant},
	},
	{
		ID: domain.NodeLeaveContext, Kind: domain.NodeKindLeave,
		Next: []domain.NodeID{domain.NodePrimaryAssistant},
	},
}

var nodesByID = func() map[domain.NodeID]domain.Node {
	m := make(map[domain.NodeID]domain.Node, len(graph))
	for _, n := range graph {
		m[n.ID] = n
	}
	return m
}()

// Inspect returns a copy of the execution graph.
func Inspect() []domain.Node {
	out := make([]domain.Node, len(graph))
	for i, n := range graph {
		n.Next = append([]domain.NodeID(nil), n.Next...)
		out[i] = n
	}
	return out
}

// LookupNode returns the static description of id.
func LookupNode(id domain.NodeID) (domain.Node, bool) {
	n, ok := nodesByID[id]
	return n, ok
}
