package memory

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"secaware-training-service/internal/domain"
)

// ItemLoader fetches items from a backing store (static catalog, Postgres).
type ItemLoader interface {
	SampleItems(ctx context.Context, kind domain.Kind, filter domain.ItemFilter, count int) ([]domain.Item, error)
	LoadItems(ctx context.Context, ids []string) ([]domain.Item, error)
	CountItems(ctx context.Context) (domain.ItemCounts, error)
}

// ItemRepository caches items by id with a TTL so scoring does not hit the loader per answer.
type ItemRepository struct {
	loader ItemLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedItem
}

type cachedItem struct {
	item      domain.Item
	expiresAt time.Time
}

func NewItemRepository(loader ItemLoader, ttl time.Duration) *ItemRepository {
	return &ItemRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedItem),
	}
}

// Sample delegates to the loader and warms the cache with the sampled items.
func (r *ItemRepository) Sample(ctx context.Context, kind domain.Kind, filter domain.ItemFilter, count int) ([]domain.Item, error) {
	items, err := r.loader.SampleItems(ctx, kind, filter, count)
	if err != nil {
		return nil, err
	}
	r.store(items)
	return items, nil
}

// GetItems returns the items that resolve; unknown ids are absent from the map.
func (r *ItemRepository) GetItems(ctx context.Context, ids []string) (map[string]domain.Item, error) {
	found, missing := r.lookup(ids)
	if len(missing) == 0 {
		return found, nil
	}

	sort.Strings(missing)
	result, err, _ := r.sf.Do(strings.Join(missing, ","), func() (interface{}, error) {
		items, err := r.loader.LoadItems(ctx, missing)
		if err != nil {
			return nil, err
		}
		r.store(items)
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

func (r *ItemRepository) CountItems(ctx context.Context) (domain.ItemCounts, error) {
	return r.loader.CountItems(ctx)
}

func (r *ItemRepository) lookup(ids []string) (map[string]domain.Item, []string) {
	now := r.clock()
	found := make(map[string]domain.Item, len(ids))
	var missing []string

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		if _, dup := found[id]; dup {
			continue
		}
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			found[id] = entry.item
			continue
		}
		missing = append(missing, id)
	}
	return found, missing
}

func (r *ItemRepository) store(items []domain.Item) {
	if r.ttl <= 0 {
		return
	}
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.cache[it.ID] = cachedItem{item: it, expiresAt: now.Add(r.ttlWithJitter())}
	}
}

func (r *ItemRepository) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticItemLoader is a loader backed by an in-memory catalog (useful for tests/demos).
type StaticItemLoader struct {
	items []domain.Item
	byID  map[string]domain.Item

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewStaticItemLoader(items []domain.Item) *StaticItemLoader {
	byID := make(map[string]domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return &StaticItemLoader{
		items: append([]domain.Item(nil), items...),
		byID:  byID,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SampleItems draws without replacement; an undersized pool yields every match.
func (l *StaticItemLoader) SampleItems(_ context.Context, kind domain.Kind, filter domain.ItemFilter, count int) ([]domain.Item, error) {
	pool := make([]domain.Item, 0, len(l.items))
	for _, it := range l.items {
		if it.Kind == kind && filter.Matches(it) {
			pool = append(pool, it)
		}
	}
	if count > len(pool) {
		count = len(pool)
	}
	if count <= 0 {
		return []domain.Item{}, nil
	}

	l.mu.Lock()
	order := l.rnd.Perm(len(pool))
	l.mu.Unlock()

	out := make([]domain.Item, count)
	for i := 0; i < count; i++ {
		out[i] = pool[order[i]]
	}
	return out, nil
}

func (l *StaticItemLoader) LoadItems(_ context.Context, ids []string) ([]domain.Item, error) {
	out := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := l.byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (l *StaticItemLoader) CountItems(_ context.Context) (domain.ItemCounts, error) {
	counts := domain.ItemCounts{}
	for _, it := range l.items {
		counts[it.Kind]++
	}
	return counts, nil
}
