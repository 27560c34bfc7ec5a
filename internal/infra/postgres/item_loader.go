package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"secaware-training-service/internal/domain"
)

// ItemLoader reads items stored as JSONB from Postgres. Sampling happens in SQL
// so only the drawn rows leave the database.
type ItemLoader struct {
	pool *pgxpool.Pool
}

func NewItemLoader(pool *pgxpool.Pool) *ItemLoader {
	return &ItemLoader{pool: pool}
}

const sampleItemsSQL = `
SELECT data FROM items
WHERE kind = $1
  AND ($2 = '' OR $2 = 'all' OR category = $2)
  AND ($3 = '' OR $3 = 'all' OR difficulty = $3)
ORDER BY random()
LIMIT $4`

func (l *ItemLoader) SampleItems(ctx context.Context, kind domain.Kind, filter domain.ItemFilter, count int) ([]domain.Item, error) {
	if count <= 0 {
		return []domain.Item{}, nil
	}
	rows, err := l.pool.Query(ctx, sampleItemsSQL, string(kind), filter.Category, filter.Difficulty, count)
	if err != nil {
		return nil, fmt.Errorf("sample items: %w", err)
	}
	return scanItems(rows)
}

func (l *ItemLoader) LoadItems(ctx context.Context, ids []string) ([]domain.Item, error) {
	if len(ids) == 0 {
		return []domain.Item{}, nil
	}
	rows, err := l.pool.Query(ctx, `SELECT data FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	return scanItems(rows)
}

func (l *ItemLoader) CountItems(ctx context.Context) (domain.ItemCounts, error) {
	rows, err := l.pool.Query(ctx, `SELECT kind, count(*) FROM items GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := domain.ItemCounts{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.Kind(kind)] = n
	}
	return counts, rows.Err()
}

func scanItems(rows pgx.Rows) ([]domain.Item, error) {
	defer rows.Close()
	items := []domain.Item{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		var it domain.Item
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
