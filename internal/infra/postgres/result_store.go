package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"secaware-training-service/internal/domain"
)

const uniqueViolation = "23505"

type resultRow struct {
	bun.BaseModel `bun:"table:results"`

	ID               string               `bun:"id,pk"`
	CorrelationID    string               `bun:"correlation_id,notnull"`
	UserID           string               `bun:"user_id,notnull"`
	GameType         string               `bun:"game_type,notnull"`
	Outcomes         []domain.ItemOutcome `bun:"outcomes,type:jsonb"`
	CorrectCount     int                  `bun:"correct_count"`
	TotalItems       int                  `bun:"total_items"`
	Score            int                  `bun:"score"`
	TimeSpentSeconds int                  `bun:"time_spent_seconds"`
	CompletedAt      time.Time            `bun:"completed_at,notnull"`
}

// ResultStore appends results to Postgres. The unique correlation_id column
// guarantees at most one result per session across instances.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Append(ctx context.Context, result domain.Result) error {
	row := toRow(result)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateResult, result.CorrelationID)
		}
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// List returns matching results in completion order.
func (s *ResultStore) List(ctx context.Context, filter domain.ResultFilter) ([]domain.Result, error) {
	var rows []resultRow
	q := s.db.NewSelect().Model(&rows).Order("completed_at ASC", "id ASC")
	if filter.GameType != "" {
		q = q.Where("game_type = ?", string(filter.GameType))
	}
	if !filter.Since.IsZero() {
		q = q.Where("completed_at >= ?", filter.Since)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.Result, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// CountActiveUsers counts distinct players with at least one result.
func (s *ResultStore) CountActiveUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.NewSelect().
		TableExpr("results").
		ColumnExpr("count(DISTINCT user_id)").
		Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

func toRow(r domain.Result) resultRow {
	outcomes := r.Outcomes
	if outcomes == nil {
		outcomes = []domain.ItemOutcome{}
	}
	return resultRow{
		ID:               r.ID,
		CorrelationID:    r.CorrelationID,
		UserID:           r.UserID,
		GameType:         string(r.GameType),
		Outcomes:         outcomes,
		CorrectCount:     r.CorrectCount,
		TotalItems:       r.TotalItems,
		Score:            r.Score,
		TimeSpentSeconds: r.TimeSpentSeconds,
		CompletedAt:      r.CompletedAt.UTC(),
	}
}

func (row resultRow) toDomain() domain.Result {
	return domain.Result{
		ID:               row.ID,
		CorrelationID:    row.CorrelationID,
		UserID:           row.UserID,
		GameType:         domain.Kind(row.GameType),
		Outcomes:         row.Outcomes,
		CorrectCount:     row.CorrectCount,
		TotalItems:       row.TotalItems,
		Score:            row.Score,
		TimeSpentSeconds: row.TimeSpentSeconds,
		CompletedAt:      row.CompletedAt,
	}
}
