package domain

// Tool is the closed set of tools a model may call.
// Dispatch happens on this enum; the wire name only matters at the model boundary.
type Tool int

const (
	ToolUnknown Tool = iota
	ToolDelegateToCustomerProfile
	ToolDelegateToMusicCatalog
	ToolEscalate
	ToolGetCustomerInfo
	ToolUpdateProfile
	ToolCheckForSongs
	ToolGetTracksByArtist
	ToolGetAlbumsByArtist
)

// ToolKind groups tools by how the router treats them.
type ToolKind string

const (
	KindDelegation ToolKind = "delegation"
	KindEscalation ToolKind = "escalation"
	KindSafe       ToolKind = "safe"
	KindSensitive  ToolKind = "sensitive"
)

// ToolSpec describes a tool to the model.
// Parameters is a JSON Schema object.
type ToolSpec struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}

type toolInfo struct {
	name        string
	kind        ToolKind
	description string
	params      map[string]any
}

var toolTable = map[Tool]toolInfo{
	ToolDelegateToCustomerProfile: {
		name:        "DelegateToCustomerProfile",
		kind:        KindDelegation,
		description: "Transfers work to a specialized assistant that looks up or updates the customer's profile.",
		params:      objectSchema(map[string]any{"request": stringProp("Follow-up details the specialist needs; clarify before delegating.")}, "request"),
	},
	ToolDelegateToMusicCatalog: {
		name:        "DelegateToMusicCatalog",
		kind:        KindDelegation,
		description: "Transfers work to a specialized assistant that searches songs, albums and artists.",
		params:      objectSchema(map[string]any{"request": stringProp("Follow-up details the specialist needs; clarify before delegating.")}, "request"),
	},
	ToolEscalate: {
		name:        "CompleteOrEscalate",
		kind:        KindEscalation,
		description: "Marks the current task as completed or hands control of the dialog back to the primary assistant.",
		params: objectSchema(map[string]any{
			"cancel": map[string]any{"type": "boolean", "description": "True when the task is abandoned or finished."},
			"reason": stringProp("Why control is handed back."),
		}, "reason"),
	},
	ToolGetCustomerInfo: {
		name:        "get_customer_info",
		kind:        KindSafe,
		description: "Looks up the stored profile of a customer.",
		params:      objectSchema(map[string]any{"customer_id": intProp("Customer identifier.")}, "customer_id"),
	},
	ToolUpdateProfile: {
		name:        "update_profile",
		kind:        KindSensitive,
		description: "Updates one field of a customer's stored profile.",
		params: objectSchema(map[string]any{
			"customer_id": intProp("Customer identifier."),
			"field":       stringProp("Profile field to change, e.g. FirstName or Email."),
			"new_value":   stringProp("Value to store."),
		}, "customer_id", "field", "new_value"),
	},
	ToolCheckForSongs: {
		name:        "check_for_songs",
		kind:        KindSafe,
		description: "Searches songs by approximate title.",
		params:      objectSchema(map[string]any{"song_title": stringProp("Song title to look for.")}, "song_title"),
	},
	ToolGetTracksByArtist: {
		name:        "get_tracks_by_artist",
		kind:        KindSafe,
		description: "Lists tracks by an artist or similar artists.",
		params:      objectSchema(map[string]any{"artist_name": stringProp("Artist name.")}, "artist_name"),
	},
	ToolGetAlbumsByArtist: {
		name:        "get_albums_by_artist",
		kind:        KindSafe,
		description: "Lists albums by an artist or similar artists.",
		params:      objectSchema(map[string]any{"artist_name": stringProp("Artist name.")}, "artist_name"),
	},
}

var toolsByName = func() map[string]Tool {
	m := make(map[string]Tool, len(toolTable))
	for t, info := range toolTable {
		m[info.name] = t
	}
	return m
}()

// ParseTool resolves a wire name. Unknown names return ToolUnknown, false.
func ParseTool(name string) (Tool, bool) {
	t, ok := toolsByName[name]
	return t, ok
}

// String returns the wire name.
func (t Tool) String() string {
	if info, ok := toolTable[t]; ok {
		return info.name
	}
	return "unknown"
}

// Kind returns how the router treats the tool.
func (t Tool) Kind() ToolKind {
	return toolTable[t].kind
}

// IsControl reports tools that steer the dialog instead of reaching a provider.
func (t Tool) IsControl() bool {
	k := t.Kind()
	return k == KindDelegation || k == KindEscalation
}

// Spec returns the schema exposed to the model.
func (t Tool) Spec() ToolSpec {
	info := toolTable[t]
	return ToolSpec{Name: info.name, Description: info.description, Parameters: deepCopyMap(info.params)}
}

// DelegationTarget returns the context a delegation tool enters.
func (t Tool) DelegationTarget() (ContextID, bool) {
	switch t {
	case ToolDelegateToCustomerProfile:
		return ContextCustomerProfile, true
	case ToolDelegateToMusicCatalog:
		return ContextMusicCatalog, true
	}
	return "", false
}

// ToolsFor returns the tools bound to a context, control tools included.
func ToolsFor(c ContextID) []Tool {
	switch c {
	case ContextCustomerProfile:
		return []Tool{ToolGetCustomerInfo, ToolUpdateProfile, ToolEscalate}
	case ContextMusicCatalog:
		return []Tool{ToolCheckForSongs, ToolGetTracksByArtist, ToolGetAlbumsByArtist, ToolEscalate}
	default:
		return []Tool{ToolDelegateToCustomerProfile, ToolDelegateToMusicCatalog}
	}
}

// SpecsFor returns the schemas bound to a context.
func SpecsFor(c ContextID) []ToolSpec {
	tools := ToolsFor(c)
	specs := make([]ToolSpec, len(tools))
	for i, t := range tools {
		specs[i] = t.Spec()
	}
	return specs
}

// BelongsTo reports whether t is bound to context c.
func (t Tool) BelongsTo(c ContextID) bool {
	for _, candidate := range ToolsFor(c) {
		if candidate == t {
			return true
		}
	}
	return false
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   req,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}
