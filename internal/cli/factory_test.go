package cli

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/relay/internal/config"
	"github.com/aretw0/relay/pkg/adapters/scripted"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestNewApp_MemoryDefaults(t *testing.T) {
	app, err := NewApp(config.Default(), nil)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	id, err := app.Engine.StartSession(ctx, domain.SessionInit{CustomerID: 1})
	require.NoError(t, err)

	cp, err := app.Engine.Checkpoint(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Luís", cp.State.Profile["FirstName"])

	// The default scripted provider has nothing to say.
	_, err = app.Engine.PostMessage(ctx, id, "hello")
	assert.ErrorIs(t, err, scripted.ErrScriptExhausted)
}

func TestNewApp_EncryptedFileStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Kind = "file"
	cfg.Store.Path = t.TempDir()
	cfg.Security.EncryptionKey = testKey()

	app, err := NewApp(cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	_, err = app.Engine.StartSession(ctx, domain.SessionInit{SessionID: "enc", CustomerID: 1})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.Store.Path, "enc.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "luisg@embraer.com.br")

	cp, err := app.Engine.Checkpoint(ctx, "enc")
	require.NoError(t, err)
	assert.Equal(t, "luisg@embraer.com.br", cp.State.Profile["Email"])
}

func TestNewApp_RedisWithLock(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.Kind = "redis"
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.Redis.Lock = true

	app, err := NewApp(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	id, err := app.Engine.StartSession(ctx, domain.SessionInit{SessionID: "r1"})
	require.NoError(t, err)

	ids, err := app.Engine.ListSessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)
	assert.True(t, mr.Exists(cfg.Store.Redis.Prefix+"r1"))

	require.NoError(t, app.Close())
}

func TestNewCompletion(t *testing.T) {
	script := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(script, []byte("- content: hi\n"), 0o644))

	tests := []struct {
		name    string
		cfg     config.ProviderConfig
		wantErr bool
	}{
		{"scripted empty", config.ProviderConfig{Name: "scripted"}, false},
		{"scripted file", config.ProviderConfig{Name: "scripted", Script: script}, false},
		{"scripted missing file", config.ProviderConfig{Name: "scripted", Script: script + ".nope"}, true},
		{"openai", config.ProviderConfig{Name: "openai", APIKey: "test", Model: "gpt-4o-mini", BaseURL: "http://localhost:1/v1"}, false},
		{"anthropic", config.ProviderConfig{Name: "anthropic", APIKey: "test", MaxTokens: 256}, false},
		{"unknown", config.ProviderConfig{Name: "llama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompletion(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestInterruptNodes(t *testing.T) {
	nodes, err := InterruptNodes([]string{"customer_profile_sensitive_tools", "music_catalog_tools"})
	require.NoError(t, err)
	assert.Equal(t, []domain.NodeID{domain.NodeCustomerSensitiveTools, domain.NodeMusicCatalogTools}, nodes)

	_, err = InterruptNodes([]string{"billing_tools"})
	assert.ErrorContains(t, err, "billing_tools")
}

func TestStoreMiddlewares(t *testing.T) {
	mws, err := StoreMiddlewares(config.SecurityConfig{})
	require.NoError(t, err)
	assert.Empty(t, mws)

	mws, err = StoreMiddlewares(config.SecurityConfig{EncryptionKey: testKey(), PIIPatterns: []string{"(?i)phone"}})
	require.NoError(t, err)
	assert.Len(t, mws, 2)

	_, err = StoreMiddlewares(config.SecurityConfig{PIIPatterns: []string{"("}})
	assert.ErrorContains(t, err, "pii_patterns[0]")
}
