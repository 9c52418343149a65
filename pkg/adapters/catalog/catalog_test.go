package catalog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/relay/pkg/adapters/catalog"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ToolProvider = (*catalog.Catalog)(nil)

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New()
	require.NoError(t, err)
	return c
}

func TestCatalog_GetCustomerInfo(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	// Arguments arrive as JSON numbers or strings depending on the model.
	for _, id := range []any{1, 1.0, "1"} {
		out, err := c.Invoke(ctx, domain.ToolGetCustomerInfo, map[string]any{"customer_id": id})
		require.NoError(t, err, "%T", id)
		profile := out.(map[string]any)
		assert.Equal(t, "Luís", profile["FirstName"])
		assert.Equal(t, 1, profile["CustomerId"])
	}

	_, err := c.Invoke(ctx, domain.ToolGetCustomerInfo, map[string]any{"customer_id": 999})
	assert.ErrorContains(t, err, "no customer found")

	_, err = c.Invoke(ctx, domain.ToolGetCustomerInfo, map[string]any{"customer_id": -4})
	assert.ErrorContains(t, err, "positive integer")
}

func TestCatalog_UpdateProfile(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	out, err := c.Invoke(ctx, domain.ToolUpdateProfile, map[string]any{
		"customer_id": 1, "field": "email", "new_value": "x@y.com",
	})
	require.NoError(t, err)
	assert.Contains(t, out.(map[string]any)["success"], "Email for customer ID 1")

	profile, err := c.Customer(1)
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", profile["Email"])

	_, err = c.Invoke(ctx, domain.ToolUpdateProfile, map[string]any{
		"customer_id": 1, "field": "CustomerId", "new_value": "7",
	})
	assert.ErrorContains(t, err, "invalid field")

	_, err = c.Invoke(ctx, domain.ToolUpdateProfile, map[string]any{
		"customer_id": 1, "field": "Phone", "new_value": "  ",
	})
	assert.ErrorContains(t, err, "non-empty")
}

func TestCatalog_CustomerIsACopy(t *testing.T) {
	c := newCatalog(t)
	profile, err := c.Customer(2)
	require.NoError(t, err)
	profile["Email"] = "tampered"

	again, err := c.Customer(2)
	require.NoError(t, err)
	assert.Equal(t, "leonekohler@surfeu.de", again["Email"])
}

func TestCatalog_MusicSearch(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	songs, err := c.Invoke(ctx, domain.ToolCheckForSongs, map[string]any{"song_title": "balls to the wal"})
	require.NoError(t, err)
	rows := songs.([]map[string]any)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Balls to the Wall", rows[0]["Name"])
	assert.Equal(t, "Accept", rows[0]["Artist"])

	albums, err := c.Invoke(ctx, domain.ToolGetAlbumsByArtist, map[string]any{"artist_name": "acdc"})
	require.NoError(t, err)
	titles := []any{}
	for _, row := range albums.([]map[string]any) {
		titles = append(titles, row["Title"])
	}
	assert.Contains(t, titles, "Let There Be Rock")

	tracks, err := c.Invoke(ctx, domain.ToolGetTracksByArtist, map[string]any{"artist_name": "Queen"})
	require.NoError(t, err)
	for _, row := range tracks.([]map[string]any) {
		assert.Equal(t, "Queen", row["ArtistName"])
	}

	_, err = c.Invoke(ctx, domain.ToolGetAlbumsByArtist, map[string]any{"artist_name": "zzzz"})
	assert.ErrorContains(t, err, "no artists found")
}

func TestCatalog_RejectsControlTools(t *testing.T) {
	_, err := newCatalog(t).Invoke(context.Background(), domain.ToolEscalate, nil)
	assert.Error(t, err)
}

func TestCatalog_FromYAML(t *testing.T) {
	c, err := catalog.FromYAML([]byte(`
customers:
  - {CustomerId: "9", FirstName: Ada}
artists:
  - {id: 1, name: Kraftwerk}
albums:
  - {id: 1, title: Computer World, artist_id: 1}
tracks:
  - {id: 1, name: Computer Love, album_id: 1}
`))
	require.NoError(t, err)

	profile, err := c.Customer(9)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile["FirstName"])

	_, err = catalog.FromYAML([]byte(`customers: [{FirstName: NoID}]`))
	assert.Error(t, err)
}

func TestCatalog_ConcurrentUpdates(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Invoke(ctx, domain.ToolUpdateProfile, map[string]any{"customer_id": 3, "field": "City", "new_value": "Québec"})
			assert.NoError(t, err)
			_, err = c.Invoke(ctx, domain.ToolGetCustomerInfo, map[string]any{"customer_id": 3})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
