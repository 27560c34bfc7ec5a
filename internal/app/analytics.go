package app

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"secaware-training-service/internal/domain"
)

const (
	mostMissedLimit     = 10
	recentSessionsLimit = 10
	activityWindowDays  = 30
)

// UserCounter reports active users from the identity collaborator.
type UserCounter interface {
	CountActiveUsers(ctx context.Context) (int, error)
}

// Analytics recomputes the admin snapshot from scratch on every call.
type Analytics struct {
	results ResultStore
	items   ItemRepository
	users   UserCounter
	now     func() time.Time
	loc     *time.Location
}

// NewAnalytics wires the aggregator. users may be nil, in which case active users
// are the distinct users that completed at least one session.
func NewAnalytics(results ResultStore, items ItemRepository, users UserCounter) *Analytics {
	return &Analytics{results: results, items: items, users: users, now: time.Now, loc: time.Local}
}

// Snapshot gathers results, catalog counts and users concurrently, then aggregates.
func (a *Analytics) Snapshot(ctx context.Context) (domain.AnalyticsSnapshot, error) {
	var (
		results []domain.Result
		counts  domain.ItemCounts
		users   = -1
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = a.results.List(gctx, domain.ResultFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = a.items.CountItems(gctx)
		return err
	})
	if a.users != nil {
		g.Go(func() error {
			var err error
			users, err = a.users.CountActiveUsers(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.AnalyticsSnapshot{}, err
	}

	missed := topMissed(results)
	ids := make([]string, len(missed))
	for i, m := range missed {
		ids[i] = m.itemID
	}
	lookup := map[string]domain.Item{}
	if len(ids) > 0 {
		var err error
		if lookup, err = a.items.GetItems(ctx, ids); err != nil {
			return domain.AnalyticsSnapshot{}, err
		}
	}

	snap := BuildSnapshot(results, counts, lookup, a.now(), a.loc)
	if users >= 0 {
		snap.Overview.TotalUsers = users
	}
	return snap, nil
}

// BuildSnapshot is the pure aggregation over completed results. items supplies
// the prompt/category/difficulty of missed quiz items; unresolved items are dropped.
func BuildSnapshot(results []domain.Result, counts domain.ItemCounts, items map[string]domain.Item, now time.Time, loc *time.Location) domain.AnalyticsSnapshot {
	if loc == nil {
		loc = time.Local
	}
	snap := domain.AnalyticsSnapshot{
		Overview: domain.Overview{
			TotalUsers:        distinctUsers(results),
			TotalItems:        counts.Total(),
			TotalQuestions:    counts[domain.KindQuiz],
			TotalPhishing:     counts[domain.KindPhishing],
			TotalScenarios:    counts[domain.KindScenario],
			TotalGameSessions: len(results),
		},
		ScoresByCategory: scoresByGameType(results),
		MissedQuestions:  []domain.MissedItem{},
		DailyActivity:    dailyActivity(results, now, loc),
		RecentSessions:   recentSessions(results),
	}

	for _, m := range topMissed(results) {
		item, ok := items[m.itemID]
		if !ok {
			continue
		}
		snap.MissedQuestions = append(snap.MissedQuestions, domain.MissedItem{
			ItemID:      m.itemID,
			Question:    item.Label(),
			Category:    item.Category,
			Difficulty:  item.Difficulty,
			MissedCount: m.count,
		})
	}
	return snap
}

func distinctUsers(results []domain.Result) int {
	seen := make(map[string]struct{})
	for _, r := range results {
		seen[r.UserID] = struct{}{}
	}
	return len(seen)
}

func scoresByGameType(results []domain.Result) []domain.CategoryScore {
	type acc struct {
		sum, n int
	}
	groups := make(map[domain.Kind]*acc)
	for _, r := range results {
		g, ok := groups[r.GameType]
		if !ok {
			g = &acc{}
			groups[r.GameType] = g
		}
		g.sum += r.Score
		g.n++
	}

	out := make([]domain.CategoryScore, 0, len(groups))
	for kind, g := range groups {
		out = append(out, domain.CategoryScore{
			GameType:      kind,
			AverageScore:  float64(g.sum) / float64(g.n),
			TotalSessions: g.n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameType < out[j].GameType })
	return out
}

type missCount struct {
	itemID string
	count  int
}

// topMissed counts incorrect quiz answers per item, most missed first.
func topMissed(results []domain.Result) []missCount {
	counts := make(map[string]int)
	for _, r := range results {
		if r.GameType != domain.KindQuiz {
			continue
		}
		for _, o := range r.Outcomes {
			if !o.Correct {
				counts[o.ItemID]++
			}
		}
	}

	out := make([]missCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, missCount{itemID: id, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].itemID < out[j].itemID
	})
	if len(out) > mostMissedLimit {
		out = out[:mostMissedLimit]
	}
	return out
}

func dailyActivity(results []domain.Result, now time.Time, loc *time.Location) []domain.DailyActivity {
	cutoff := now.AddDate(0, 0, -activityWindowDays)
	type day struct {
		sessions int
		users    map[string]struct{}
	}
	days := make(map[string]*day)
	for _, r := range results {
		if r.CompletedAt.Before(cutoff) {
			continue
		}
		key := r.CompletedAt.In(loc).Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{users: make(map[string]struct{})}
			days[key] = d
		}
		d.sessions++
		d.users[r.UserID] = struct{}{}
	}

	out := make([]domain.DailyActivity, 0, len(days))
	for date, d := range days {
		out = append(out, domain.DailyActivity{Date: date, Sessions: d.sessions, UniqueUsers: len(d.users)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func recentSessions(results []domain.Result) []domain.RecentSession {
	sorted := append([]domain.Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CompletedAt.Equal(sorted[j].CompletedAt) {
			return sorted[i].CompletedAt.After(sorted[j].CompletedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > recentSessionsLimit {
		sorted = sorted[:recentSessionsLimit]
	}
	out := make([]domain.RecentSession, len(sorted))
	for i, r := range sorted {
		out[i] = domain.RecentSession{
			ResultID:    r.ID,
			UserID:      r.UserID,
			GameType:    r.GameType,
			Score:       r.Score,
			CompletedAt: r.CompletedAt,
		}
	}
	return out
}
