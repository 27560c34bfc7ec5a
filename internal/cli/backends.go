package cli

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/catalog"
	"secaware-training-service/internal/config"
	"secaware-training-service/internal/infra/memory"
	"secaware-training-service/internal/infra/postgres"
	infraredis "secaware-training-service/internal/infra/redis"
)

// backends picks Postgres and Redis implementations when configured and the
// in-process ones otherwise.
type backends struct {
	items    app.ItemRepository
	sessions app.SessionStore
	results  app.ResultStore
	users    app.UserCounter
	hub      *app.Hub
	notifier app.Notifier
	redis    *redis.Client

	pool *pgxpool.Pool
	db   *bun.DB
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{hub: app.NewHub()}

	if cfg.Postgres.URL != "" {
		db, err := openBunDB(cfg)
		if err != nil {
			return nil, err
		}
		b.db = db
		if err := migrateDB(ctx, db); err != nil {
			b.Close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.pool = pool
	}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var loader memory.ItemLoader
	if b.pool != nil {
		loader = postgres.NewItemLoader(b.pool)
	} else {
		items, err := catalog.Load()
		if err != nil {
			b.Close()
			return nil, err
		}
		loader = memory.NewStaticItemLoader(items)
	}

	itemTTL := config.TTLDuration(cfg.Items.CacheTTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Training.SessionTTL, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	if b.redis != nil {
		b.items = infraredis.NewItemCache(b.redis, loader, itemTTL)
		b.sessions = infraredis.NewSessionStore(b.redis, sessionTTL)
		b.notifier = infraredis.NewNotifier(b.redis)
	} else {
		b.items = memory.NewItemRepository(loader, itemTTL)
		b.sessions = memory.NewSessionStore(sessionTTL)
		b.notifier = b.hub
	}

	if b.db != nil {
		store := postgres.NewResultStore(b.db)
		b.results = store
		b.users = store
	} else {
		b.results = memory.NewResultStore()
	}
	return b, nil
}

// relay feeds events published by any instance into the local hub. It only
// runs when Redis carries the notifications.
func (b *backends) relay(ctx context.Context) {
	if b.redis == nil {
		return
	}
	go func() {
		for {
			err := infraredis.Relay(ctx, b.redis, b.hub, nil)
			if ctx.Err() != nil {
				return
			}
			log.Printf("leaderboard relay stopped: %v; retrying", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()
}

func (b *backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}
