package runtime

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/relay/pkg/domain"
)

// InstructionsFunc builds the system prompt sent with every completion of a context.
type InstructionsFunc func(c domain.ContextID, profile domain.Profile) string

var baseInstructions = map[domain.ContextID]string{
	domain.ContextPrimary: `You are the host assistant of a music store.
Your job is to help customers with their profile or with questions about the music catalog.
If a customer wants to view or update their profile, delegate with DelegateToCustomerProfile.
If a customer asks about songs, albums or artists, delegate with DelegateToMusicCatalog.
Only specialized assistants can act on those requests; the customer must not notice the handoff.
Answer greetings and general questions yourself.`,

	domain.ContextCustomerProfile: `You help a customer view or update their profile.
Use get_customer_info to read a profile and update_profile to change one field.
Updatable fields: FirstName, LastName, Company, Address, City, State, Country, PostalCode, Phone, Fax, Email, SupportRepId.
Collect every required input before calling a tool. Never reveal data of another customer.
Before reading or changing the profile, ask the customer to confirm their current email and phone number.
If the request is done or out of scope, call CompleteOrEscalate.`,

	domain.ContextMusicCatalog: `You help a customer find music in the store catalog.
Use check_for_songs to search song titles, get_albums_by_artist and get_tracks_by_artist to browse an artist.
Searches are approximate; offer close matches when there is no exact one.
If the request is done or out of scope, call CompleteOrEscalate.`,
}

// DefaultInstructions returns the built-in prompt of c, followed by the profile snapshot when present.
func DefaultInstructions(c domain.ContextID, profile domain.Profile) string {
	text, ok := baseInstructions[c]
	if !ok {
		text = baseInstructions[domain.ContextPrimary]
	}
	if len(profile) == 0 {
		return text
	}
	return text + "\n\nCurrent customer:\n" + describeProfile(profile)
}

// describeProfile renders a profile as sorted key: value lines.
func describeProfile(profile domain.Profile) string {
	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, profile[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// introduction is the system message appended when a session starts with a known customer.
func introduction(profile domain.Profile) string {
	name, _ := profile["FirstName"].(string)
	if name == "" {
		name = "the customer"
	}
	return fmt.Sprintf("You are speaking with %s, a valued customer. Greet them by name. "+
		"Pay attention to their customer ID: %v.\n%s", name, profile["CustomerId"], describeProfile(profile))
}
