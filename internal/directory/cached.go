package directory

import (
	"context"
	"time"

	"fjacquet/finchat/internal/logging"
	"fjacquet/finchat/internal/models"

	"github.com/dgraph-io/ristretto"
)

// Cache defaults
const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultCacheNumCounters = 10000
	DefaultCacheMaxCost     = 10000
)

// CacheOptions sizes the listing cache. Zero values use the defaults.
type CacheOptions struct {
	TTL         time.Duration
	NumCounters int64
	MaxCost     int64
}

// Source is what CachedDirectory reads through to.
type Source interface {
	ListCards(ctx context.Context, userID string) ([]models.Card, error)
	ListCategories(ctx context.Context, userID string) ([]models.Category, error)
	FindByName(ctx context.Context, userID, name string) (models.Category, bool, error)
	Create(ctx context.Context, userID, name string, income bool) (models.Category, error)
}

// CachedDirectory caches the card and category listings of each user.
// Creating a category invalidates the user's listing.
type CachedDirectory struct {
	source Source
	cache  *ristretto.Cache
	ttl    time.Duration
	logger logging.Logger
}

// NewCachedDirectory wraps source.
func NewCachedDirectory(source Source, opts CacheOptions, logger logging.Logger) (*CachedDirectory, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	if opts.NumCounters <= 0 {
		opts.NumCounters = DefaultCacheNumCounters
	}
	if opts.MaxCost <= 0 {
		opts.MaxCost = DefaultCacheMaxCost
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.NumCounters,
		MaxCost:     opts.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedDirectory{source: source, cache: cache, ttl: opts.TTL, logger: logger}, nil
}

func cardsKey(userID string) string      { return "cards:" + userID }
func categoriesKey(userID string) string { return "categories:" + userID }

// ListCards returns the cached cards of userID, loading them on a miss.
func (d *CachedDirectory) ListCards(ctx context.Context, userID string) ([]models.Card, error) {
	key := cardsKey(userID)
	if v, ok := d.cache.Get(key); ok {
		if cards, ok := v.([]models.Card); ok {
			return append([]models.Card(nil), cards...), nil
		}
	}

	cards, err := d.source.ListCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.cache.SetWithTTL(key, append([]models.Card(nil), cards...), 1, d.ttl)
	d.cache.Wait()
	d.logger.Debug("Cards cached", logging.F(logging.FieldUserID, userID), logging.F(logging.FieldCount, len(cards)))
	return cards, nil
}

// ListCategories returns the cached categories of userID, loading them on a miss.
func (d *CachedDirectory) ListCategories(ctx context.Context, userID string) ([]models.Category, error) {
	key := categoriesKey(userID)
	if v, ok := d.cache.Get(key); ok {
		if categories, ok := v.([]models.Category); ok {
			return append([]models.Category(nil), categories...), nil
		}
	}

	categories, err := d.source.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.cache.SetWithTTL(key, append([]models.Category(nil), categories...), 1, d.ttl)
	d.cache.Wait()
	d.logger.Debug("Categories cached", logging.F(logging.FieldUserID, userID), logging.F(logging.FieldCount, len(categories)))
	return categories, nil
}

// FindByName always reads through.
func (d *CachedDirectory) FindByName(ctx context.Context, userID, name string) (models.Category, bool, error) {
	return d.source.FindByName(ctx, userID, name)
}

// Create reads through and drops the user's cached categories.
func (d *CachedDirectory) Create(ctx context.Context, userID, name string, income bool) (models.Category, error) {
	c, err := d.source.Create(ctx, userID, name, income)
	if err != nil {
		return models.Category{}, err
	}
	d.Invalidate(userID)
	return c, nil
}

// Invalidate drops every cached listing of userID.
func (d *CachedDirectory) Invalidate(userID string) {
	d.cache.Del(cardsKey(userID))
	d.cache.Del(categoriesKey(userID))
}

// Close releases the cache.
func (d *CachedDirectory) Close() {
	d.cache.Close()
}
