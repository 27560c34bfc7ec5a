package memory

import (
	"context"
	"fmt"
	"sync"

	"secaware-training-service/internal/domain"
)

// ResultStore is an append-only in-memory result log.
type ResultStore struct {
	mu            sync.RWMutex
	results       []domain.Result
	byCorrelation map[string]struct{}
}

func NewResultStore() *ResultStore {
	return &ResultStore{byCorrelation: make(map[string]struct{})}
}

func (s *ResultStore) Append(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCorrelation[result.CorrelationID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateResult, result.CorrelationID)
	}
	s.byCorrelation[result.CorrelationID] = struct{}{}
	s.results = append(s.results, cloneResult(result))
	return nil
}

// List returns copies in append order, which is completion order.
func (s *ResultStore) List(_ context.Context, filter domain.ResultFilter) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0, len(s.results))
	for _, r := range s.results {
		if filter.Matches(r) {
			out = append(out, cloneResult(r))
		}
	}
	return out, nil
}

func cloneResult(r domain.Result) domain.Result {
	r.Outcomes = append([]domain.ItemOutcome(nil), r.Outcomes...)
	return r
}
