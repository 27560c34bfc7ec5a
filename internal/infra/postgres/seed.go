package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"secaware-training-service/internal/domain"
)

type itemRow struct {
	bun.BaseModel `bun:"table:items"`

	ID         string      `bun:"id,pk"`
	Kind       string      `bun:"kind,notnull"`
	Category   string      `bun:"category"`
	Difficulty string      `bun:"difficulty"`
	Data       domain.Item `bun:"data,type:jsonb"`
}

// SeedItems upserts items by id. Existing rows are replaced.
func SeedItems(ctx context.Context, db *bun.DB, items []domain.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return 0, err
		}
		rows = append(rows, itemRow{
			ID:         it.ID,
			Kind:       string(it.Kind),
			Category:   it.Category,
			Difficulty: it.Difficulty,
			Data:       it,
		})
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("kind = EXCLUDED.kind").
		Set("category = EXCLUDED.category").
		Set("difficulty = EXCLUDED.difficulty").
		Set("data = EXCLUDED.data").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed items: %w", err)
	}
	return len(rows), nil
}
