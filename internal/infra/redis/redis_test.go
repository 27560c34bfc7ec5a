package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"secaware-training-service/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func quizItem(id string) domain.Item {
	return domain.Item{
		ID:         id,
		Kind:       domain.KindQuiz,
		Category:   "phishing",
		Difficulty: "easy",
		Quiz: &domain.QuizPayload{
			Prompt:       "Prompt " + id,
			Options:      []string{"a", "b", "c"},
			CorrectIndex: 1,
		},
	}
}

type countingLoader struct {
	items []domain.Item
	loads int
}

func (l *countingLoader) SampleItems(_ context.Context, kind domain.Kind, filter domain.ItemFilter, count int) ([]domain.Item, error) {
	var out []domain.Item
	for _, it := range l.items {
		if it.Kind == kind && filter.Matches(it) && len(out) < count {
			out = append(out, it)
		}
	}
	return out, nil
}

func (l *countingLoader) LoadItems(_ context.Context, ids []string) ([]domain.Item, error) {
	l.loads++
	var out []domain.Item
	for _, id := range ids {
		for _, it := range l.items {
			if it.ID == id {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (l *countingLoader) CountItems(context.Context) (domain.ItemCounts, error) {
	counts := domain.ItemCounts{}
	for _, it := range l.items {
		counts[it.Kind]++
	}
	return counts, nil
}
