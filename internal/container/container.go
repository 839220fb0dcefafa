// Package container provides dependency injection for the finchat application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"net/http"

	"fjacquet/finchat/internal/categorizer"
	"fjacquet/finchat/internal/chatbot"
	"fjacquet/finchat/internal/config"
	"fjacquet/finchat/internal/directory"
	"fjacquet/finchat/internal/flow"
	"fjacquet/finchat/internal/httpapi"
	"fjacquet/finchat/internal/keyboard"
	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/persistence"
	"fjacquet/finchat/internal/quickentry"
	"fjacquet/finchat/internal/session"
	"fjacquet/finchat/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation: all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	store     *store.CategoryStore
	directory *directory.Memory
	cached    *directory.CachedDirectory
	sessions  *session.MemoryStore
	suggester *categorizer.Suggester
	engine    *flow.Engine
	repo      persistence.SnapshotRepository
	bridge    *persistence.Bridge
	bot       *chatbot.Bot
	router    http.Handler

	// pool is nil when flows are kept in memory
	pool *pgxpool.Pool
}

// NewContainer creates and wires all application dependencies. The logger is
// built from the configuration when nil.
func NewContainer(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = config.NewLogger(cfg)
	}

	categoryStore := store.NewCategoryStore(
		cfg.Categories.KeywordsFile,
		cfg.Categories.HistoryFile,
		cfg.Categories.WorkspaceFile,
		logger,
	)

	mem := directory.NewMemory(directory.Options{
		AnomalyFactor:     cfg.Anomaly.Factor,
		AnomalyMinSamples: cfg.Anomaly.MinSamples,
	}, logger)
	workspace, err := categoryStore.LoadWorkspace()
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	if err := mem.Seed(workspace); err != nil {
		return nil, fmt.Errorf("failed to seed directory: %w", err)
	}
	history, err := categoryStore.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	mem.SetHistory(history)

	cached, err := directory.NewCachedDirectory(mem, directory.CacheOptions{
		TTL:         cfg.CacheTTL(),
		NumCounters: cfg.Cache.NumCounters,
		MaxCost:     cfg.Cache.MaxCost,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory cache: %w", err)
	}

	sessions := session.NewMemoryStore(cfg.IdleTimeout())
	kb := keyboard.NewRegistry()
	suggester := categorizer.NewSuggester(mem, categoryStore, logger)

	repo, pool, err := newRepository(ctx, cfg, logger)
	if err != nil {
		cached.Close()
		return nil, err
	}
	closeAll := func() {
		cached.Close()
		if pool != nil {
			pool.Close()
		}
	}

	bridge, err := persistence.NewBridge(persistence.BridgeDependencies{
		Sessions:    sessions,
		Repository:  repo,
		Cards:       cached,
		Categories:  cached,
		Suggester:   suggester,
		IdleTimeout: cfg.IdleTimeout(),
		Logger:      logger,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	engine, err := flow.NewEngine(flow.Dependencies{
		Sessions:   sessions,
		Cards:      cached,
		Categories: cached,
		Registrar:  mem,
		Suggester:  suggester,
		Anomaly:    mem,
		Budget:     mem,
		Tags:       mem,
		Keyboard:   kb,
		Expiry:     bridge,
		Logger:     logger,
	}, flow.Options{
		MaxInstallments:      cfg.Session.MaxInstallments,
		DescriptionMaxLength: cfg.Session.DescriptionMaxLength,
		RejectOverlapping:    cfg.Session.RejectOverlapping,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	bot := chatbot.New(engine, quickentry.NewParser(nil, cfg.Session.MaxInstallments), kb, bridge, logger)

	logger.Info("Container initialized successfully",
		logging.F("users", len(workspace.Users)),
		logging.F("history_records", len(history)),
		logging.F("postgres", pool != nil))

	return &Container{
		logger:    logger,
		config:    cfg,
		store:     categoryStore,
		directory: mem,
		cached:    cached,
		sessions:  sessions,
		suggester: suggester,
		engine:    engine,
		repo:      repo,
		bridge:    bridge,
		bot:       bot,
		router:    httpapi.NewRouter(bot, bridge, logger),
		pool:      pool,
	}, nil
}

// newRepository picks Postgres when a database URL is configured and keeps
// flows in memory otherwise.
func newRepository(ctx context.Context, cfg *config.Config, logger logging.Logger) (persistence.SnapshotRepository, *pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		logger.Info("No database configured, pending flows are kept in memory")
		return persistence.NewMemoryRepository(), nil, nil
	}

	pool, err := persistence.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repo := persistence.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Info("Pending flows are persisted in Postgres")
	return repo, pool, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the file-backed category store.
func (c *Container) GetStore() *store.CategoryStore {
	return c.store
}

// GetDirectory returns the in-memory directory of cards, categories and entries.
func (c *Container) GetDirectory() *directory.Memory {
	return c.directory
}

// GetSessions returns the pending flow store.
func (c *Container) GetSessions() *session.MemoryStore {
	return c.sessions
}

// GetSuggester returns the category suggester.
func (c *Container) GetSuggester() *categorizer.Suggester {
	return c.suggester
}

// GetEngine returns the flow engine.
func (c *Container) GetEngine() *flow.Engine {
	return c.engine
}

// GetBridge returns the persistence bridge.
func (c *Container) GetBridge() *persistence.Bridge {
	return c.bridge
}

// GetBot returns the message dispatcher.
func (c *Container) GetBot() *chatbot.Bot {
	return c.bot
}

// GetRouter returns the HTTP handler of the API.
func (c *Container) GetRouter() http.Handler {
	return c.router
}

// Close releases the cache and the database pool.
func (c *Container) Close() error {
	c.cached.Close()
	if c.pool != nil {
		c.pool.Close()
	}
	c.logger.Info("Container closed")
	return nil
}
