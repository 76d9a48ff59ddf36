package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"events-system/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	// categoriesKey stores the full category list as JSON
	categoriesKey = "events:categories"
	// categoriesTTL bounds staleness; categories have no write path in the
	// API, so expiry is the only invalidation they need
	categoriesTTL = 5 * time.Minute

	// countKeyPrefix keys per-event registration counts. These DO have write
	// paths (register, unregister, delete), which invalidate the key; the TTL
	// is a backstop against missed invalidations
	countKeyPrefix = "events:registrations:count:"
	countTTL       = 5 * time.Minute
)

// Cache is the Redis read-through cache for the catalog: the category list
// and per-event registration counts.
type Cache struct {
	Client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{Client: client}
}

// GetCategories returns the cached list, or (nil, nil) on a miss.
func (c *Cache) GetCategories(ctx context.Context) ([]models.Category, error) {
	payload, err := c.Client.Get(ctx, categoriesKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get categories from Redis: %w", err)
	}

	var categories []models.Category
	if err := json.Unmarshal([]byte(payload), &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached categories: %w", err)
	}
	return categories, nil
}

func (c *Cache) SetCategories(ctx context.Context, categories []models.Category) error {
	payload, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	if err := c.Client.Set(ctx, categoriesKey, payload, categoriesTTL).Err(); err != nil {
		return fmt.Errorf("failed to store categories in Redis: %w", err)
	}
	return nil
}

// GetRegistrationCounts returns the cached counts for the given events plus
// the ids that were not in the cache. One MGET covers the whole page.
func (c *Cache) GetRegistrationCounts(ctx context.Context, eventIDs []int64) (map[int64]int, []int64, error) {
	if len(eventIDs) == 0 {
		return map[int64]int{}, nil, nil
	}

	keys := make([]string, len(eventIDs))
	for i, id := range eventIDs {
		keys[i] = countKey(id)
	}

	values, err := c.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get registration counts from Redis: %w", err)
	}

	counts := make(map[int64]int, len(eventIDs))
	var missing []int64
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			missing = append(missing, eventIDs[i])
			continue
		}
		count, err := strconv.Atoi(raw)
		if err != nil {
			missing = append(missing, eventIDs[i])
			continue
		}
		counts[eventIDs[i]] = count
	}
	return counts, missing, nil
}

// SetRegistrationCounts stores counts keyed per event so single-event
// invalidation stays cheap.
func (c *Cache) SetRegistrationCounts(ctx context.Context, counts map[int64]int) error {
	if len(counts) == 0 {
		return nil
	}

	pipe := c.Client.Pipeline()
	for id, count := range counts {
		pipe.Set(ctx, countKey(id), strconv.Itoa(count), countTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store registration counts in Redis: %w", err)
	}
	return nil
}

// InvalidateRegistrationCount drops the cached count for one event. Called
// on every registration, unregistration and event deletion.
func (c *Cache) InvalidateRegistrationCount(ctx context.Context, eventID int64) error {
	if err := c.Client.Del(ctx, countKey(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate registration count in Redis: %w", err)
	}
	return nil
}

func countKey(eventID int64) string {
	return countKeyPrefix + strconv.FormatInt(eventID, 10)
}
