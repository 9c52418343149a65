// Package config resolves relay settings from defaults, a YAML file, .env and RELAY_* variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "relay.yaml"

// EnvPrefix prefixes every environment override, e.g. RELAY_STORE_KIND.
const EnvPrefix = "RELAY_"

// Config aggregates every setting of the relay binary.
type Config struct {
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Provider ProviderConfig `yaml:"provider" mapstructure:"provider"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Security SecurityConfig `yaml:"security" mapstructure:"security"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	MCP      MCPConfig      `yaml:"mcp" mapstructure:"mcp"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ProviderConfig selects the completion backend: scripted, openai or anthropic.
type ProviderConfig struct {
	Name        string  `yaml:"name" mapstructure:"name"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`

	// Script is the YAML replayed by the scripted provider.
	Script string `yaml:"script" mapstructure:"script"`
}

type EngineConfig struct {
	MaxAttempts     int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	MaxSteps        int      `yaml:"max_steps" mapstructure:"max_steps"`
	ToolConcurrency int      `yaml:"tool_concurrency" mapstructure:"tool_concurrency"`
	InterruptBefore []string `yaml:"interrupt_before" mapstructure:"interrupt_before"`
}

// StoreConfig selects the checkpoint store: memory, file or redis.
type StoreConfig struct {
	Kind  string      `yaml:"kind" mapstructure:"kind"`
	Path  string      `yaml:"path" mapstructure:"path"`
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// Lock enables cross-replica session locks.
	Lock    bool          `yaml:"lock" mapstructure:"lock"`
	LockTTL time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

// SecurityConfig configures the store middleware.
// Keys are base64 encoded 32 byte AES keys.
type SecurityConfig struct {
	EncryptionKey string   `yaml:"encryption_key" mapstructure:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" mapstructure:"fallback_keys"`
	PIIPatterns   []string `yaml:"pii_patterns" mapstructure:"pii_patterns"`
}

type CatalogConfig struct {
	// Seed is a YAML catalog; empty uses the embedded sample store.
	Seed string `yaml:"seed" mapstructure:"seed"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// MCPConfig selects the MCP transport: stdio or sse.
type MCPConfig struct {
	Transport string `yaml:"transport" mapstructure:"transport"`
	Addr      string `yaml:"addr" mapstructure:"addr"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Provider: ProviderConfig{Name: "scripted", Temperature: 0, MaxTokens: 1024},
		Engine: EngineConfig{
			MaxAttempts:     3,
			MaxSteps:        25,
			ToolConcurrency: 4,
			InterruptBefore: []string{"customer_profile_sensitive_tools"},
		},
		Store: StoreConfig{
			Kind: "memory",
			Path: ".relay/sessions",
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  "relay:session:",
				LockTTL: 30 * time.Second,
			},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		MCP:  MCPConfig{Transport: "stdio", Addr: ":8081"},
	}
}

// Load resolves the configuration. An empty path looks for DefaultPath and tolerates
// its absence; an explicit path must exist. Variables already in the environment win
// over .env entries.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := ApplyEnv(cfg, os.Environ()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays RELAY_* entries ("KEY=value") onto cfg.
// RELAY_STORE_REDIS_ADDR maps to store.redis.addr; lists are comma separated.
func ApplyEnv(cfg *Config, environ []string) error {
	overrides := map[string]any{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		path, ok := envPaths[strings.TrimPrefix(key, EnvPrefix)]
		if !ok {
			continue
		}
		setPath(overrides, path, value)
	}
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			commaSliceHook,
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

// envPaths lists every supported variable, keyed without the prefix.
var envPaths = func() map[string][]string {
	m := map[string][]string{}
	collectPaths(reflect.TypeOf(Config{}), nil, m)
	return m
}()

func collectPaths(t reflect.Type, prefix []string, out map[string][]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		path := append(append([]string(nil), prefix...), tag)
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
			collectPaths(f.Type, path, out)
			continue
		}
		out[strings.ToUpper(strings.Join(path, "_"))] = path
	}
}

func setPath(m map[string]any, path []string, value string) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// commaSliceHook splits "a, b" into a trimmed slice; an empty string clears the list.
func commaSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return []string{}, nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// Validate rejects unknown kinds and malformed keys.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "scripted", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q (want scripted, openai or anthropic)", c.Provider.Name)
	}
	switch c.Store.Kind {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown store kind %q (want memory, file or redis)", c.Store.Kind)
	}
	switch c.MCP.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unknown mcp transport %q (want stdio or sse)", c.MCP.Transport)
	}
	if c.Store.Redis.Lock && c.Store.Kind != "redis" {
		return errors.New("store.redis.lock requires store.kind redis")
	}
	if _, _, err := c.Security.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the encryption keys. A nil active key means encryption is off.
func (s SecurityConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, errors.New("security.fallback_keys require security.encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("security.encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("security.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}
