package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/relay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat(string(b), 32)))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "scripted", cfg.Provider.Name)
	assert.Equal(t, "memory", cfg.Store.Kind)
	assert.Equal(t, 25, cfg.Engine.MaxSteps)
	assert.Equal(t, []string{"customer_profile_sensitive_tools"}, cfg.Engine.InterruptBefore)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
provider:
  name: openai
  model: gpt-4o-mini
store:
  kind: redis
  redis:
    addr: redis:6379
    ttl: 1h
`), 0o644))

	t.Setenv("RELAY_STORE_REDIS_DB", "2")
	t.Setenv("RELAY_STORE_REDIS_LOCK", "true")
	t.Setenv("RELAY_ENGINE_MAX_STEPS", "10")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.True(t, cfg.Store.Redis.Lock)
	assert.Equal(t, 10, cfg.Engine.MaxSteps)
	// Untouched defaults survive the overlay.
	assert.Equal(t, 30*time.Second, cfg.Store.Redis.LockTTL)
	assert.Equal(t, 3, cfg.Engine.MaxAttempts)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RELAY_HTTP_ADDR=:9999\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("RELAY_HTTP_ADDR") })

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestApplyEnv(t *testing.T) {
	cfg := config.Default()
	err := config.ApplyEnv(cfg, []string{
		"RELAY_ENGINE_INTERRUPT_BEFORE=",
		"RELAY_SECURITY_PII_PATTERNS=(?i)email, (?i)phone",
		"RELAY_STORE_REDIS_LOCK_TTL=5s",
		"RELAY_UNKNOWN=ignored",
		"HOME=/root",
	})
	require.NoError(t, err)
	assert.Empty(t, cfg.Engine.InterruptBefore)
	assert.Equal(t, []string{"(?i)email", "(?i)phone"}, cfg.Security.PIIPatterns)
	assert.Equal(t, 5*time.Second, cfg.Store.Redis.LockTTL)

	err = config.ApplyEnv(cfg, []string{"RELAY_ENGINE_MAX_STEPS=lots"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"Defaults", func(*config.Config) {}, ""},
		{"Unknown Provider", func(c *config.Config) { c.Provider.Name = "llama" }, "unknown provider"},
		{"Unknown Store", func(c *config.Config) { c.Store.Kind = "s3" }, "unknown store kind"},
		{"Lock Without Redis", func(c *config.Config) { c.Store.Redis.Lock = true }, "requires store.kind redis"},
		{"Short Key", func(c *config.Config) { c.Security.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) }, "want 32 bytes"},
		{"Fallback Without Active", func(c *config.Config) { c.Security.FallbackKeys = []string{key('a')} }, "require security.encryption_key"},
		{"Valid Keys", func(c *config.Config) {
			c.Security.EncryptionKey = key('a')
			c.Security.FallbackKeys = []string{key('b')}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSecurityKeys(t *testing.T) {
	active, fallback, err := config.SecurityConfig{EncryptionKey: key('a'), FallbackKeys: []string{key('b')}}.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	require.Len(t, fallback, 1)
	assert.Equal(t, byte('b'), fallback[0][0])

	active, _, err = config.SecurityConfig{}.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
}
