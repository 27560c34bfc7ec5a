package domain

import "time"

// AnalyticsSnapshot is the admin dashboard view, recomputed on every request.
type AnalyticsSnapshot struct {
	Overview         Overview        `json:"overview"`
	ScoresByCategory []CategoryScore `json:"scoresByCategory"`
	MissedQuestions  []MissedItem    `json:"missedQuestions"`
	DailyActivity    []DailyActivity `json:"dailyActivity"`
	RecentSessions   []RecentSession `json:"recentSessions"`
}

type Overview struct {
	TotalUsers        int `json:"totalUsers"`
	TotalItems        int `json:"totalItems"`
	TotalQuestions    int `json:"totalQuestions"`
	TotalPhishing     int `json:"totalPhishing"`
	TotalScenarios    int `json:"totalScenarios"`
	TotalGameSessions int `json:"totalGameSessions"`
}

type CategoryScore struct {
	GameType      Kind    `json:"gameType"`
	AverageScore  float64 `json:"averageScore"`
	TotalSessions int     `json:"totalSessions"`
}

type MissedItem struct {
	ItemID      string `json:"itemId"`
	Question    string `json:"question"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	MissedCount int    `json:"missedCount"`
}

type DailyActivity struct {
	Date        string `json:"date"`
	Sessions    int    `json:"sessions"`
	UniqueUsers int    `json:"uniqueUsers"`
}

type RecentSession struct {
	ResultID    string    `json:"resultId"`
	UserID      string    `json:"userId"`
	GameType    Kind      `json:"gameType"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}
