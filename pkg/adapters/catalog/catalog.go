// Package catalog is an in-memory music store that serves the business tools.
//
// It is seeded from YAML (an embedded Chinook excerpt by default) and answers
// customer lookups, profile updates and approximate music searches.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/relay/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// UpdatableFields lists the profile fields update_profile may change.
var UpdatableFields = []string{
	"FirstName", "LastName", "Company", "Address", "City", "State",
	"Country", "PostalCode", "Phone", "Fax", "Email", "SupportRepId",
}

// DefaultMaxMatches is how many artists or songs an approximate search returns.
const DefaultMaxMatches = 4

type Artist struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type Album struct {
	ID       int    `yaml:"id"`
	Title    string `yaml:"title"`
	ArtistID int    `yaml:"artist_id"`
}

type Track struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	AlbumID  int    `yaml:"album_id"`
	Composer string `yaml:"composer,omitempty"`
}

// Seed is the YAML document a catalog is built from.
type Seed struct {
	Customers []map[string]any `yaml:"customers"`
	Artists   []Artist         `yaml:"artists"`
	Albums    []Album          `yaml:"albums"`
	Tracks    []Track          `yaml:"tracks"`
}

// Catalog implements ports.ToolProvider. Safe for concurrent use.
type Catalog struct {
	mu         sync.RWMutex
	customers  map[int]map[string]any
	artists    []Artist
	albums     map[int]Album
	tracks     []Track
	maxMatches int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMaxMatches sets how many approximate matches a search keeps.
func WithMaxMatches(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.maxMatches = n
		}
	}
}

// New builds a catalog from the embedded seed.
func New(opts ...Option) (*Catalog, error) {
	return FromYAML(defaultSeed, opts...)
}

// Load builds a catalog from a YAML seed file.
func Load(path string, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed: %w", err)
	}
	return FromYAML(data, opts...)
}

// FromYAML builds a catalog from a YAML seed document.
func FromYAML(data []byte, opts ...Option) (*Catalog, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	return FromSeed(seed, opts...)
}

// FromSeed builds a catalog from an already decoded seed.
func FromSeed(seed Seed, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		customers:  make(map[int]map[string]any, len(seed.Customers)),
		artists:    append([]Artist(nil), seed.Artists...),
		albums:     make(map[int]Album, len(seed.Albums)),
		tracks:     append([]Track(nil), seed.Tracks...),
		maxMatches: DefaultMaxMatches,
	}
	for _, opt := range opts {
		opt(c)
	}

	for i, record := range seed.Customers {
		var key struct {
			CustomerID int `mapstructure:"CustomerId"`
		}
		if err := weakDecode(record, &key); err != nil || key.CustomerID <= 0 {
			return nil, fmt.Errorf("customer %d: missing or invalid CustomerId", i)
		}
		profile := make(map[string]any, len(record))
		for k, v := range record {
			profile[k] = v
		}
		profile["CustomerId"] = key.CustomerID
		c.customers[key.CustomerID] = profile
	}
	for _, a := range seed.Albums {
		c.albums[a.ID] = a
	}
	return c, nil
}

// Invoke implements ports.ToolProvider.
func (c *Catalog) Invoke(ctx context.Context, tool domain.Tool, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch tool {
	case domain.ToolGetCustomerInfo:
		var in struct {
			CustomerID int `mapstructure:"customer_id"`
		}
		if err := weakDecode(args, &in); err != nil {
			return nil, err
		}
		return c.Customer(in.CustomerID)

	case domain.ToolUpdateProfile:
		var in struct {
			CustomerID int    `mapstructure:"customer_id"`
			Field      string `mapstructure:"field"`
			NewValue   string `mapstructure:"new_value"`
		}
		if err := weakDecode(args, &in); err != nil {
			return nil, err
		}
		return c.UpdateProfile(in.CustomerID, in.Field, in.NewValue)

	case domain.ToolCheckForSongs:
		var in struct {
			SongTitle string `mapstructure:"song_title"`
		}
		if err := weakDecode(args, &in); err != nil {
			return nil, err
		}
		return c.CheckForSongs(in.SongTitle)

	case domain.ToolGetAlbumsByArtist, domain.ToolGetTracksByArtist:
		var in struct {
			ArtistName string `mapstructure:"artist_name"`
		}
		if err := weakDecode(args, &in); err != nil {
			return nil, err
		}
		if tool == domain.ToolGetAlbumsByArtist {
			return c.AlbumsByArtist(in.ArtistName)
		}
		return c.TracksByArtist(in.ArtistName)
	}

	return nil, fmt.Errorf("tool %s is not served by the catalog", tool)
}

// Customer returns a copy of a customer's profile.
func (c *Catalog) Customer(id int) (map[string]any, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid customer ID: must be a positive integer")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	profile, ok := c.customers[id]
	if !ok {
		return nil, fmt.Errorf("no customer found with ID %d", id)
	}
	out := make(map[string]any, len(profile))
	for k, v := range profile {
		out[k] = v
	}
	return out, nil
}

// UpdateProfile changes one updatable field of a customer.
func (c *Catalog) UpdateProfile(id int, field, value string) (map[string]any, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid customer ID: must be a positive integer")
	}
	canonical, ok := canonicalField(field)
	if !ok {
		return nil, fmt.Errorf("invalid field %q; allowed fields: %s", field, strings.Join(UpdatableFields, ", "))
	}
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("invalid new_value: provide a non-empty string")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	profile, ok := c.customers[id]
	if !ok {
		return nil, fmt.Errorf("no customer found with ID %d", id)
	}
	profile[canonical] = value

	return map[string]any{
		"success": fmt.Sprintf("%s for customer ID %d updated to '%s'.", canonical, id, value),
	}, nil
}

// CheckForSongs returns the tracks whose title approximately matches title.
func (c *Catalog) CheckForSongs(title string) ([]map[string]any, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("song_title is required")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.tracks))
	for i, t := range c.tracks {
		names[i] = t.Name
	}
	idx := bestMatches(title, names, c.maxMatches)
	if len(idx) == 0 {
		return nil, fmt.Errorf("no songs found matching '%s'", title)
	}

	out := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		t := c.tracks[i]
		album := c.albums[t.AlbumID]
		row := map[string]any{
			"TrackId": t.ID,
			"Name":    t.Name,
			"Album":   album.Title,
			"Artist":  c.artistName(album.ArtistID),
		}
		if t.Composer != "" {
			row["Composer"] = t.Composer
		}
		out = append(out, row)
	}
	return out, nil
}

// AlbumsByArtist lists albums of the artists approximately matching name.
func (c *Catalog) AlbumsByArtist(name string) ([]map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, err := c.matchArtists(name)
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for _, a := range c.sortedAlbums() {
		if ids[a.ArtistID] {
			out = append(out, map[string]any{"Title": a.Title, "Name": c.artistName(a.ArtistID)})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no albums found for artists similar to '%s'", name)
	}
	return out, nil
}

// TracksByArtist lists tracks of the artists approximately matching name.
func (c *Catalog) TracksByArtist(name string) ([]map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, err := c.matchArtists(name)
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for _, t := range c.tracks {
		album, ok := c.albums[t.AlbumID]
		if ok && ids[album.ArtistID] {
			out = append(out, map[string]any{"SongName": t.Name, "ArtistName": c.artistName(album.ArtistID)})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tracks found for artists similar to '%s'", name)
	}
	return out, nil
}

func (c *Catalog) matchArtists(name string) (map[int]bool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("artist_name is required")
	}
	names := make([]string, len(c.artists))
	for i, a := range c.artists {
		names[i] = a.Name
	}
	idx := bestMatches(name, names, c.maxMatches)
	if len(idx) == 0 {
		return nil, fmt.Errorf("no artists found matching '%s'", name)
	}
	ids := make(map[int]bool, len(idx))
	for _, i := range idx {
		ids[c.artists[i].ID] = true
	}
	return ids, nil
}

func (c *Catalog) artistName(id int) string {
	for _, a := range c.artists {
		if a.ID == id {
			return a.Name
		}
	}
	return ""
}

func (c *Catalog) sortedAlbums() []Album {
	out := make([]Album, 0, len(c.albums))
	for _, a := range c.albums {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func canonicalField(field string) (string, bool) {
	for _, f := range UpdatableFields {
		if strings.EqualFold(f, strings.TrimSpace(field)) {
			return f, true
		}
	}
	return "", false
}

// weakDecode decodes model-produced arguments, accepting "1" or 1.0 where an int is expected.
func weakDecode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
