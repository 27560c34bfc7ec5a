package domain

import "time"

// TopicOverall is the leaderboard that aggregates every game type.
const TopicOverall = "overall"

// LeaderboardEntry is a per-user rollup of results.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       string    `json:"userId"`
	TotalScore   int       `json:"totalScore"`
	GamesPlayed  int       `json:"gamesPlayed"`
	AverageScore int       `json:"averageScore"`
	BestScore    int       `json:"bestScore"`
	LastPlayed   time.Time `json:"lastPlayed"`
}

// Leaderboard is an ordered ranking for one topic.
type Leaderboard struct {
	GameType  string             `json:"gameType"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// LeaderboardEvent signals that a new result changed the ranking of a game type.
type LeaderboardEvent struct {
	GameType   Kind      `json:"gameType"`
	UserID     string    `json:"userId"`
	ResultID   string    `json:"resultId"`
	Score      int       `json:"score"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Topics returns the subscriber topics interested in the event.
func (e LeaderboardEvent) Topics() []string {
	return []string{string(e.GameType), TopicOverall}
}
