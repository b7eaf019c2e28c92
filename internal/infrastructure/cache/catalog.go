package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/restaurant-orders/internal/domain/catalog"
)

const DefaultCatalogTTL = 5 * time.Minute

// CatalogCache is a read-through cache in front of a catalog.Reader.
// Misses from the source are not cached, and cache failures fall back to
// the source.
type CatalogCache struct {
	source catalog.Reader
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCatalogCache(source catalog.Reader, cache Cache, ttl time.Duration, logger *slog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogCache{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "CatalogCache"),
	}
}

func (c *CatalogCache) GetMeal(ctx context.Context, id string) (*catalog.Meal, error) {
	key := c.cache.GenerateKey("meal", id)

	var meal catalog.Meal
	if c.lookup(ctx, key, &meal) {
		return &meal, nil
	}

	m, err := c.source.GetMeal(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, m)
	return m, nil
}

func (c *CatalogCache) GetIngredient(ctx context.Context, id string) (*catalog.Ingredient, error) {
	key := c.cache.GenerateKey("ingredient", id)

	var ing catalog.Ingredient
	if c.lookup(ctx, key, &ing) {
		return &ing, nil
	}

	i, err := c.source.GetIngredient(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, i)
	return i, nil
}

// Invalidate drops cached entries for the given meal and ingredient ids.
func (c *CatalogCache) Invalidate(ctx context.Context, mealIDs, ingredientIDs []string) error {
	keys := make([]string, 0, len(mealIDs)+len(ingredientIDs))
	for _, id := range mealIDs {
		keys = append(keys, c.cache.GenerateKey("meal", id))
	}
	for _, id := range ingredientIDs {
		keys = append(keys, c.cache.GenerateKey("ingredient", id))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cache.Delete(ctx, keys...)
}

func (c *CatalogCache) lookup(ctx context.Context, key string, dst any) bool {
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CatalogCache) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
