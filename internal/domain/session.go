package domain

import (
	"fmt"
	"time"
)

// NoSelection is the quiz answer a client submits when the timer ran out. It is never correct.
const NoSelection = -1

// SessionState is the lifecycle of a training session.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateInProgress SessionState = "in_progress"
	StateCompleted  SessionState = "completed"
)

// Answer is one submitted answer with the client-reported elapsed time.
// Quiz and scenario answers use Selected; phishing answers use IsPhishing.
type Answer struct {
	ItemID     string `json:"itemId"`
	Selected   int    `json:"selected"`
	IsPhishing bool   `json:"isPhishing"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

// TimeoutAnswer is the default answer a client auto-submits when the item timer expires.
// Quiz and scenario defaults select nothing; phishing defaults to "legitimate".
func TimeoutAnswer(it Item, elapsed time.Duration) Answer {
	a := Answer{ItemID: it.ID, ElapsedMs: elapsed.Milliseconds()}
	switch it.Kind {
	case KindQuiz, KindScenario:
		a.Selected = NoSelection
	case KindPhishing:
		a.IsPhishing = false
	}
	return a
}

// CheckAnswer validates the answer payload against the authoritative item.
func CheckAnswer(it Item, a Answer) error {
	if a.ItemID != it.ID {
		return fmt.Errorf("%w: answer for %q checked against %q", ErrInvalidAnswer, a.ItemID, it.ID)
	}
	if a.ElapsedMs < 0 {
		return fmt.Errorf("%w: negative elapsed time", ErrInvalidAnswer)
	}
	switch it.Kind {
	case KindQuiz:
		if a.Selected == NoSelection {
			return nil
		}
		if it.Quiz == nil || a.Selected < 0 || a.Selected >= len(it.Quiz.Options) {
			return fmt.Errorf("%w: option %d out of range", ErrInvalidAnswer, a.Selected)
		}
	case KindScenario:
		if a.Selected == NoSelection {
			return nil
		}
		if it.Scenario == nil || a.Selected < 0 || a.Selected >= len(it.Scenario.Choices) {
			return fmt.Errorf("%w: choice %d out of range", ErrInvalidAnswer, a.Selected)
		}
	case KindPhishing:
		// any boolean is well-formed
	default:
		return fmt.Errorf("%w: %q", ErrInvalidGameType, it.Kind)
	}
	return nil
}

// Session is the progress of one run through a sampled set. It is a value:
// every transition returns a new Session and the stored copy is only replaced
// when its Version still matches.
type Session struct {
	CorrelationID string        `json:"correlationId"`
	UserID        string        `json:"userId"`
	GameType      Kind          `json:"gameType"`
	ItemIDs       []string      `json:"itemIds"`
	TimeBudget    time.Duration `json:"timeBudget"`
	State         SessionState  `json:"state"`
	Index         int           `json:"index"`
	Answers       []Answer      `json:"answers"`
	StartedAt     time.Time     `json:"startedAt"`
	CompletedAt   time.Time     `json:"completedAt,omitempty"`
	Version       int           `json:"version"`
}

// NewSession builds an Idle session for a freshly sampled set.
func NewSession(correlationID, userID string, gameType Kind, itemIDs []string, budget time.Duration) Session {
	return Session{
		CorrelationID: correlationID,
		UserID:        userID,
		GameType:      gameType,
		ItemIDs:       append([]string(nil), itemIDs...),
		TimeBudget:    budget,
		State:         StateIdle,
	}
}

// Start moves Idle to InProgress.
func (s Session) Start(now time.Time) (Session, error) {
	if s.State != StateIdle {
		return s, fmt.Errorf("%w: cannot start from %s", ErrSessionConflict, s.State)
	}
	next := s.clone()
	next.State = StateInProgress
	next.StartedAt = now
	next.Version++
	return next, nil
}

// Apply records the answer for the current item. The answer for the last item
// moves the session to Completed. The receiver is never modified.
func (s Session) Apply(a Answer, now time.Time) (Session, error) {
	switch s.State {
	case StateIdle:
		return s, ErrSessionNotStarted
	case StateCompleted:
		return s, ErrSessionCompleted
	}

	pos := s.position(a.ItemID)
	switch {
	case pos < 0:
		return s, fmt.Errorf("%w: %q", ErrUnknownItem, a.ItemID)
	case pos < s.Index:
		return s, fmt.Errorf("%w: %q", ErrDuplicateAnswer, a.ItemID)
	case pos > s.Index:
		return s, fmt.Errorf("%w: expected %q, got %q", ErrOutOfOrder, s.ItemIDs[s.Index], a.ItemID)
	}

	next := s.clone()
	next.Answers = append(next.Answers, a)
	next.Index++
	next.Version++
	if next.Remaining() == 0 {
		next.State = StateCompleted
		next.CompletedAt = now
	}
	return next, nil
}

// Finish completes a session that has nothing left to answer, such as an empty sampled set.
func (s Session) Finish(now time.Time) (Session, error) {
	switch {
	case s.State == StateCompleted:
		return s, ErrSessionCompleted
	case s.State != StateInProgress:
		return s, ErrSessionNotStarted
	case s.Remaining() > 0:
		return s, fmt.Errorf("%w: %d items unanswered", ErrIncompleteSubmission, s.Remaining())
	}
	next := s.clone()
	next.State = StateCompleted
	next.CompletedAt = now
	next.Version++
	return next, nil
}

// Current returns the id of the item awaiting an answer.
func (s Session) Current() (string, bool) {
	if s.State != StateInProgress || s.Index >= len(s.ItemIDs) {
		return "", false
	}
	return s.ItemIDs[s.Index], true
}

// Remaining is the number of unanswered items.
func (s Session) Remaining() int {
	return len(s.ItemIDs) - s.Index
}

// Elapsed sums the client-reported per-item time.
func (s Session) Elapsed() time.Duration {
	var total int64
	for _, a := range s.Answers {
		total += a.ElapsedMs
	}
	return time.Duration(total) * time.Millisecond
}

func (s Session) position(itemID string) int {
	for i, id := range s.ItemIDs {
		if id == itemID {
			return i
		}
	}
	return -1
}

func (s Session) clone() Session {
	next := s
	next.ItemIDs = append([]string(nil), s.ItemIDs...)
	next.Answers = append(make([]Answer, 0, len(s.ItemIDs)), s.Answers...)
	return next
}
