package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicOption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/config"
	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/internal/runtime"
	anthropicAdapter "github.com/aretw0/relay/pkg/adapters/anthropic"
	"github.com/aretw0/relay/pkg/adapters/catalog"
	"github.com/aretw0/relay/pkg/adapters/file"
	"github.com/aretw0/relay/pkg/adapters/memory"
	openaiAdapter "github.com/aretw0/relay/pkg/adapters/openai"
	redisAdapter "github.com/aretw0/relay/pkg/adapters/redis"
	"github.com/aretw0/relay/pkg/adapters/scripted"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/observability"
	"github.com/aretw0/relay/pkg/persistence/middleware"
	"github.com/aretw0/relay/pkg/ports"
	openaiOption "github.com/openai/openai-go/option"
	"github.com/prometheus/client_golang/prometheus"
)

// App bundles the engine with the resources built for it.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *relay.Engine
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// NewLogger builds the application logger from the log settings.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.Format), nil
}

// NewApp wires the engine described by cfg.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	completion, err := NewCompletion(cfg.Provider)
	if err != nil {
		return nil, err
	}
	provider, err := NewCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	interrupt, err := InterruptNodes(cfg.Engine.InterruptBefore)
	if err != nil {
		return nil, err
	}
	mws, err := StoreMiddlewares(cfg.Security)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(app.Registry)
	opts := []relay.Option{
		relay.WithLogger(logger),
		relay.WithLifecycleHooks(observability.LogHooks(logger).Merge(metrics.Hooks())),
		relay.WithStoreMiddleware(mws...),
		relay.WithMaxAttempts(cfg.Engine.MaxAttempts),
		relay.WithMaxSteps(cfg.Engine.MaxSteps),
		relay.WithToolConcurrency(cfg.Engine.ToolConcurrency),
		relay.WithInterruptBefore(interrupt...),
	}

	switch cfg.Store.Kind {
	case "file":
		opts = append(opts, relay.WithStore(file.New(cfg.Store.Path)))
	case "redis":
		rc := cfg.Store.Redis
		store := redisAdapter.New(rc.Addr, rc.Password, rc.DB,
			redisAdapter.WithPrefix(rc.Prefix),
			redisAdapter.WithTTL(rc.TTL),
		)
		app.closers = append(app.closers, store.Close)
		opts = append(opts, relay.WithStore(store))
		if rc.Lock {
			opts = append(opts, relay.WithLocker(redisAdapter.NewLocker(store.Client(), store.Prefix()), rc.LockTTL))
		}
	default:
		opts = append(opts, relay.WithStore(memory.NewStore()))
	}

	eng, err := relay.New(completion, provider, opts...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = eng

	logger.Debug("engine ready",
		"provider", cfg.Provider.Name,
		"store", cfg.Store.Kind,
		"encrypted", cfg.Security.EncryptionKey != "",
	)
	return app, nil
}

// NewCompletion builds the completion backend named by cfg.Name.
func NewCompletion(cfg config.ProviderConfig) (ports.CompletionService, error) {
	switch cfg.Name {
	case "scripted":
		if cfg.Script == "" {
			return scripted.New(), nil
		}
		return scripted.Load(cfg.Script)
	case "openai":
		var reqOpts []openaiOption.RequestOption
		if cfg.APIKey != "" {
			reqOpts = append(reqOpts, openaiOption.WithAPIKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			reqOpts = append(reqOpts, openaiOption.WithBaseURL(cfg.BaseURL))
		}
		return openaiAdapter.NewWithRequestOptions(reqOpts, func(o *openaiAdapter.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case "anthropic":
		return anthropicAdapter.New(func(o *anthropicAdapter.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			if cfg.BaseURL != "" {
				o.RequestOptions = append(o.RequestOptions, anthropicOption.WithBaseURL(cfg.BaseURL))
			}
		}), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Name)
}

// NewCatalog loads the store catalog, falling back to the embedded sample data.
func NewCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.Seed == "" {
		return catalog.New()
	}
	return catalog.Load(cfg.Seed)
}

// InterruptNodes resolves node names and rejects unknown ones.
func InterruptNodes(names []string) ([]domain.NodeID, error) {
	nodes := make([]domain.NodeID, 0, len(names))
	for _, name := range names {
		id := domain.NodeID(name)
		if _, ok := runtime.LookupNode(id); !ok {
			return nil, fmt.Errorf("engine.interrupt_before: unknown node %q", name)
		}
		nodes = append(nodes, id)
	}
	return nodes, nil
}

// StoreMiddlewares returns PII masking and encryption, in that order, when configured.
func StoreMiddlewares(cfg config.SecurityConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	for i, p := range cfg.PIIPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("security.pii_patterns[%d]: %w", i, err)
		}
	}
	if len(cfg.PIIPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PIIPatterns))
	}
	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	return mws, nil
}
