package domain

import "time"

// ItemOutcome is the stored per-item correctness of a completed session.
type ItemOutcome struct {
	ItemID     string `json:"itemId"`
	Selected   int    `json:"selected"`
	IsPhishing bool   `json:"isPhishing"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

// Result is the immutable record of one completed session.
type Result struct {
	ID               string        `json:"id"`
	CorrelationID    string        `json:"correlationId"`
	UserID           string        `json:"userId"`
	GameType         Kind          `json:"gameType"`
	Outcomes         []ItemOutcome `json:"outcomes"`
	CorrectCount     int           `json:"correctCount"`
	TotalItems       int           `json:"totalItems"`
	Score            int           `json:"score"`
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
	CompletedAt      time.Time     `json:"completedAt"`
}

// ResultFilter narrows a Result Store scan. Zero values match everything.
type ResultFilter struct {
	GameType Kind
	Since    time.Time
}

// Matches reports whether r passes the filter.
func (f ResultFilter) Matches(r Result) bool {
	if f.GameType != "" && r.GameType != f.GameType {
		return false
	}
	if !f.Since.IsZero() && r.CompletedAt.Before(f.Since) {
		return false
	}
	return true
}

// ItemResult is the feedback for one scored item. It always carries the
// authoritative answer and explanation; phishing results always carry red flags.
type ItemResult struct {
	ItemID        string    `json:"itemId"`
	Kind          Kind      `json:"kind"`
	Label         string    `json:"label"`
	Correct       bool      `json:"isCorrect"`
	Selected      *int      `json:"selectedAnswer,omitempty"`
	CorrectAnswer *int      `json:"correctAnswer,omitempty"`
	UserVerdict   *bool     `json:"userAnswer,omitempty"`
	IsPhishing    *bool     `json:"isPhishing,omitempty"`
	Explanation   string    `json:"explanation"`
	RedFlags      []RedFlag `json:"redFlags"`
	Email         *Email    `json:"email,omitempty"`
	Points        int       `json:"points"`
	CorrectChoice string    `json:"correctChoice,omitempty"`
}

// Scorecard is the Scoring Engine output for one session.
type Scorecard struct {
	GameType     Kind          `json:"gameType"`
	Items        []ItemResult  `json:"results"`
	Outcomes     []ItemOutcome `json:"-"`
	CorrectCount int           `json:"correctAnswers"`
	Total        int           `json:"totalQuestions"`
	Score        int           `json:"score"`
}

// ResultSummary is what a learner receives when a session completes.
type ResultSummary struct {
	ResultID         string       `json:"resultId"`
	CorrelationID    string       `json:"sessionId"`
	GameType         Kind         `json:"gameType"`
	Score            int          `json:"score"`
	CorrectCount     int          `json:"correctAnswers"`
	Total            int          `json:"totalQuestions"`
	TimeSpentSeconds int          `json:"timeSpent"`
	Results          []ItemResult `json:"results"`
}
