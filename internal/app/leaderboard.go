package app

import (
	"context"
	"math"
	"sort"
	"time"

	"secaware-training-service/internal/domain"
)

// ResultStore persists completed sessions. It is append-only.
type ResultStore interface {
	Append(ctx context.Context, result domain.Result) error
	List(ctx context.Context, filter domain.ResultFilter) ([]domain.Result, error)
}

// Ranker serves leaderboards computed from the Result Store on demand.
type Ranker struct {
	results      ResultStore
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

func NewRanker(results ResultStore, defaultLimit, maxLimit int) *Ranker {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &Ranker{results: results, defaultLimit: defaultLimit, maxLimit: maxLimit, now: time.Now}
}

// Rank returns the leaderboard for gameType ("overall" or a game type).
func (r *Ranker) Rank(ctx context.Context, gameType string, limit int) (domain.Leaderboard, error) {
	if gameType == "" {
		gameType = domain.TopicOverall
	}
	filter := domain.ResultFilter{}
	if gameType != domain.TopicOverall {
		kind, err := domain.ParseKind(gameType)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		filter.GameType = kind
	}
	switch {
	case limit <= 0:
		limit = r.defaultLimit
	case limit > r.maxLimit:
		limit = r.maxLimit
	}

	results, err := r.results.List(ctx, filter)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		GameType:  gameType,
		Entries:   RankResults(results, gameType, limit),
		UpdatedAt: r.now(),
	}, nil
}

// RankResults rolls results up per user and orders them by total score, then
// most recent play, then user id. The list is truncated to limit after sorting.
func RankResults(results []domain.Result, gameType string, limit int) []domain.LeaderboardEntry {
	byUser := make(map[string]*domain.LeaderboardEntry)
	for _, res := range results {
		if gameType != "" && gameType != domain.TopicOverall && string(res.GameType) != gameType {
			continue
		}
		entry, ok := byUser[res.UserID]
		if !ok {
			entry = &domain.LeaderboardEntry{UserID: res.UserID, BestScore: res.Score}
			byUser[res.UserID] = entry
		}
		entry.TotalScore += res.Score
		entry.GamesPlayed++
		if res.Score > entry.BestScore {
			entry.BestScore = res.Score
		}
		if res.CompletedAt.After(entry.LastPlayed) {
			entry.LastPlayed = res.CompletedAt
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byUser))
	for _, entry := range byUser {
		entry.AverageScore = int(math.Round(float64(entry.TotalScore) / float64(entry.GamesPlayed)))
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if !entries[i].LastPlayed.Equal(entries[j].LastPlayed) {
			return entries[i].LastPlayed.After(entries[j].LastPlayed)
		}
		return entries[i].UserID < entries[j].UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
