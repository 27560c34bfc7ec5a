package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"secaware-training-service/internal/domain"
	"secaware-training-service/internal/infra/memory"
)

// ItemCache caches items in Redis (one JSON string per item) and falls back to a loader on miss.
// Items are stored as: SET item:{id} {json} EX ttl
type ItemCache struct {
	client *redis.Client
	loader memory.ItemLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewItemCache(client *redis.Client, loader memory.ItemLoader, ttl time.Duration) *ItemCache {
	return &ItemCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Sample always draws from the loader so every session gets a fresh random set.
func (c *ItemCache) Sample(ctx context.Context, kind domain.Kind, filter domain.ItemFilter, count int) ([]domain.Item, error) {
	items, err := c.loader.SampleItems(ctx, kind, filter, count)
	if err != nil {
		return nil, err
	}
	c.store(ctx, items)
	return items, nil
}

func (c *ItemCache) GetItems(ctx context.Context, ids []string) (map[string]domain.Item, error) {
	found, missing, err := c.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return found, nil
	}

	sort.Strings(missing)
	result, err, _ := c.sf.Do(strings.Join(missing, ","), func() (interface{}, error) {
		items, err := c.loader.LoadItems(ctx, missing)
		if err != nil {
			return nil, err
		}
		c.store(ctx, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	for _, it := range result.([]domain.Item) {
		found[it.ID] = it
	}
	return found, nil
}

func (c *ItemCache) CountItems(ctx context.Context) (domain.ItemCounts, error) {
	return c.loader.CountItems(ctx)
}

func (c *ItemCache) lookup(ctx context.Context, ids []string) (map[string]domain.Item, []string, error) {
	found := make(map[string]domain.Item, len(ids))
	if len(ids) == 0 {
		return found, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("read item cache: %w", err)
	}

	var missing []string
	seen := make(map[string]struct{}, len(ids))
	for i, v := range values {
		id := ids[i]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, id)
			continue
		}
		var it domain.Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			missing = append(missing, id)
			continue
		}
		found[id] = it
	}
	return found, missing, nil
}

func (c *ItemCache) store(ctx context.Context, items []domain.Item) {
	if len(items) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, it := range items {
		payload, err := json.Marshal(it)
		if err != nil {
			continue
		}
		pipe.Set(ctx, c.key(it.ID), payload, c.ttlWithJitter())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("item cache write failed: %v", err)
	}
}

func (c *ItemCache) key(id string) string {
	return "item:" + id
}

func (c *ItemCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
