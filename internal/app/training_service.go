package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"secaware-training-service/internal/domain"
)

// ItemRepository samples and re-fetches challenge items.
type ItemRepository interface {
	Sample(ctx context.Context, kind domain.Kind, filter domain.ItemFilter, count int) ([]domain.Item, error)
	GetItems(ctx context.Context, ids []string) (map[string]domain.Item, error)
	CountItems(ctx context.Context) (domain.ItemCounts, error)
}

// SessionStore keeps session values between submissions. Save must only replace
// the stored session when its version is exactly one behind the new value.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, correlationID string) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}

// TrainingOptions holds per-game-type budgets and sample sizes.
type TrainingOptions struct {
	TimeBudgets       map[domain.Kind]time.Duration
	SampleSizes       map[domain.Kind]int
	MaxSampleSize     int
	EnforceTimeLimits bool
	TimeTolerance     time.Duration
}

// DefaultTrainingOptions mirrors the client timers: 30s quiz, 60s phishing, untimed scenarios.
func DefaultTrainingOptions() TrainingOptions {
	return TrainingOptions{
		TimeBudgets: map[domain.Kind]time.Duration{
			domain.KindQuiz:     30 * time.Second,
			domain.KindPhishing: 60 * time.Second,
			domain.KindScenario: 0,
		},
		SampleSizes: map[domain.Kind]int{
			domain.KindQuiz:     10,
			domain.KindPhishing: 5,
			domain.KindScenario: 5,
		},
		MaxSampleSize: 50,
		TimeTolerance: 2 * time.Second,
	}
}

func (o TrainingOptions) sampleSize(kind domain.Kind, requested int) int {
	n := requested
	if n <= 0 {
		n = o.SampleSizes[kind]
	}
	if o.MaxSampleSize > 0 && n > o.MaxSampleSize {
		n = o.MaxSampleSize
	}
	return n
}

// SessionView is returned when a session starts: redacted items plus the correlation id.
type SessionView struct {
	CorrelationID    string              `json:"sessionId"`
	GameType         domain.Kind         `json:"gameType"`
	Items            []domain.ClientItem `json:"items"`
	TimeLimitSeconds int                 `json:"timeLimitSeconds"`
	StartedAt        time.Time           `json:"startedAt"`
}

// SessionProgress lets a client resume after a rejected submission.
type SessionProgress struct {
	CorrelationID string              `json:"sessionId"`
	GameType      domain.Kind         `json:"gameType"`
	State         domain.SessionState `json:"state"`
	Answered      int                 `json:"answered"`
	Remaining     int                 `json:"remaining"`
	CurrentItemID string              `json:"currentItemId,omitempty"`
}

// AnswerFeedback acknowledges a single-item submission. Scenario answers carry the
// full reveal immediately; quiz and phishing reveals wait for the session summary.
type AnswerFeedback struct {
	CorrelationID string                `json:"sessionId"`
	ItemID        string                `json:"itemId"`
	Answered      int                   `json:"answered"`
	Remaining     int                   `json:"remaining"`
	Completed     bool                  `json:"completed"`
	Reveal        *domain.ItemResult    `json:"reveal,omitempty"`
	Summary       *domain.ResultSummary `json:"summary,omitempty"`
}

// TrainingService runs timed sessions from sampling to a persisted result.
type TrainingService struct {
	items    ItemRepository
	sessions SessionStore
	results  ResultStore
	notifier Notifier
	opts     TrainingOptions
	now      func() time.Time
	newID    func() string
}

func NewTrainingService(items ItemRepository, sessions SessionStore, results ResultStore, notifier Notifier, opts TrainingOptions) *TrainingService {
	return &TrainingService{
		items:    items,
		sessions: sessions,
		results:  results,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetClock is test-only for deterministic timestamps.
func (s *TrainingService) SetClock(now func() time.Time) {
	s.now = now
}

// Start samples a set of items and opens a session for userID.
func (s *TrainingService) Start(ctx context.Context, userID string, kind domain.Kind, filter domain.ItemFilter, count int) (SessionView, error) {
	if userID == "" {
		return SessionView{}, fmt.Errorf("%w: missing user", domain.ErrInvalidRequest)
	}
	if _, err := domain.ParseKind(string(kind)); err != nil {
		return SessionView{}, err
	}

	items, err := s.items.Sample(ctx, kind, filter, s.opts.sampleSize(kind, count))
	if err != nil {
		return SessionView{}, err
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	budget := s.opts.TimeBudgets[kind]
	session, err := domain.NewSession(s.newID(), userID, kind, ids, budget).Start(s.now())
	if err != nil {
		return SessionView{}, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return SessionView{}, err
	}

	return SessionView{
		CorrelationID:    session.CorrelationID,
		GameType:         kind,
		Items:            domain.RedactAll(items),
		TimeLimitSeconds: int(budget / time.Second),
		StartedAt:        session.StartedAt,
	}, nil
}

// Progress reports where an open session stands.
func (s *TrainingService) Progress(ctx context.Context, userID, correlationID string) (SessionProgress, error) {
	session, err := s.load(ctx, userID, correlationID)
	if err != nil {
		return SessionProgress{}, err
	}
	current, _ := session.Current()
	return SessionProgress{
		CorrelationID: session.CorrelationID,
		GameType:      session.GameType,
		State:         session.State,
		Answered:      session.Index,
		Remaining:     session.Remaining(),
		CurrentItemID: current,
	}, nil
}

// SubmitAnswer records one answer. The answer to the last item completes the session.
func (s *TrainingService) SubmitAnswer(ctx context.Context, userID, correlationID string, answer domain.Answer) (AnswerFeedback, error) {
	session, err := s.openSession(ctx, userID, correlationID)
	if err != nil {
		return AnswerFeedback{}, err
	}

	next, err := session.Apply(answer, s.now())
	if err != nil {
		return AnswerFeedback{}, err
	}

	items, err := s.items.GetItems(ctx, []string{answer.ItemID})
	if err != nil {
		return AnswerFeedback{}, err
	}
	item, found := items[answer.ItemID]
	if found {
		if err := s.checkAnswer(item, answer, session.TimeBudget); err != nil {
			return AnswerFeedback{}, err
		}
	}

	feedback := AnswerFeedback{
		CorrelationID: correlationID,
		ItemID:        answer.ItemID,
		Answered:      next.Index,
		Remaining:     next.Remaining(),
	}
	if found && item.Kind == domain.KindScenario {
		reveal := scoreItem(item, answer)
		feedback.Reveal = &reveal
	}

	if next.State != domain.StateCompleted {
		if err := s.sessions.Save(ctx, next); err != nil {
			return AnswerFeedback{}, err
		}
		return feedback, nil
	}

	summary, err := s.complete(ctx, next, 0)
	if err != nil {
		return AnswerFeedback{}, err
	}
	feedback.Completed = true
	feedback.Summary = &summary
	return feedback, nil
}

// SubmitSession completes a session from the full ordered answer log. Answers
// already recorded through SubmitAnswer must appear again at the same position.
func (s *TrainingService) SubmitSession(ctx context.Context, userID, correlationID string, answers []domain.Answer, timeSpentSeconds int) (domain.ResultSummary, error) {
	session, err := s.openSession(ctx, userID, correlationID)
	if err != nil {
		return domain.ResultSummary{}, err
	}
	if len(answers) != len(session.ItemIDs) {
		return domain.ResultSummary{}, fmt.Errorf("%w: got %d answers for %d items", domain.ErrIncompleteSubmission, len(answers), len(session.ItemIDs))
	}
	if timeSpentSeconds < 0 {
		return domain.ResultSummary{}, fmt.Errorf("%w: negative time spent", domain.ErrInvalidRequest)
	}

	items, err := s.items.GetItems(ctx, session.ItemIDs)
	if err != nil {
		return domain.ResultSummary{}, err
	}

	now := s.now()
	next := session
	for i, answer := range answers {
		if i < session.Index {
			recorded := session.Answers[i]
			if answer.ItemID != recorded.ItemID {
				return domain.ResultSummary{}, fmt.Errorf("%w: position %d is %q", domain.ErrOutOfOrder, i, recorded.ItemID)
			}
			if answer.Selected != recorded.Selected || answer.IsPhishing != recorded.IsPhishing {
				return domain.ResultSummary{}, fmt.Errorf("%w: %q was recorded with a different answer", domain.ErrDuplicateAnswer, recorded.ItemID)
			}
			continue
		}
		if item, ok := items[answer.ItemID]; ok {
			if err := s.checkAnswer(item, answer, session.TimeBudget); err != nil {
				return domain.ResultSummary{}, err
			}
		}
		if next, err = next.Apply(answer, now); err != nil {
			return domain.ResultSummary{}, err
		}
	}
	if next.State != domain.StateCompleted {
		if next, err = next.Finish(now); err != nil {
			return domain.ResultSummary{}, err
		}
	}
	// The whole batch is one step against the stored session.
	next.Version = session.Version + 1
	return s.complete(ctx, next, timeSpentSeconds)
}

// complete scores the finished session, appends the result and only then marks
// the stored session completed, so a failed append leaves the session resumable.
func (s *TrainingService) complete(ctx context.Context, final domain.Session, timeSpentSeconds int) (domain.ResultSummary, error) {
	items, err := s.items.GetItems(ctx, final.ItemIDs)
	if err != nil {
		return domain.ResultSummary{}, err
	}
	card := ScoreSession(final.GameType, items, final.Answers)

	if timeSpentSeconds <= 0 {
		timeSpentSeconds = int(math.Round(final.Elapsed().Seconds()))
	}
	result := domain.Result{
		ID:               s.newID(),
		CorrelationID:    final.CorrelationID,
		UserID:           final.UserID,
		GameType:         final.GameType,
		Outcomes:         card.Outcomes,
		CorrectCount:     card.CorrectCount,
		TotalItems:       card.Total,
		Score:            card.Score,
		TimeSpentSeconds: timeSpentSeconds,
		CompletedAt:      final.CompletedAt,
	}
	if err := s.results.Append(ctx, result); err != nil {
		if errors.Is(err, domain.ErrDuplicateResult) {
			return domain.ResultSummary{}, fmt.Errorf("%w: %s", domain.ErrSessionCompleted, final.CorrelationID)
		}
		return domain.ResultSummary{}, err
	}

	if err := s.sessions.Save(ctx, final); err != nil {
		// The result is authoritative; a stale session is rejected on replay by the result store.
		log.Printf("mark session %s completed: %v", final.CorrelationID, err)
	}
	s.publish(ctx, result)

	return domain.ResultSummary{
		ResultID:         result.ID,
		CorrelationID:    result.CorrelationID,
		GameType:         result.GameType,
		Score:            result.Score,
		CorrectCount:     result.CorrectCount,
		Total:            result.TotalItems,
		TimeSpentSeconds: result.TimeSpentSeconds,
		Results:          card.Items,
	}, nil
}

func (s *TrainingService) publish(ctx context.Context, result domain.Result) {
	if s.notifier == nil {
		return
	}
	event := domain.LeaderboardEvent{
		GameType:   result.GameType,
		UserID:     result.UserID,
		ResultID:   result.ID,
		Score:      result.Score,
		RecordedAt: result.CompletedAt,
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.Printf("leaderboard notification for %s dropped: %v", result.GameType, err)
	}
}

func (s *TrainingService) checkAnswer(item domain.Item, answer domain.Answer, budget time.Duration) error {
	if err := domain.CheckAnswer(item, answer); err != nil {
		return err
	}
	if !s.opts.EnforceTimeLimits || budget <= 0 {
		return nil
	}
	elapsed := time.Duration(answer.ElapsedMs) * time.Millisecond
	if elapsed > budget+s.opts.TimeTolerance {
		return fmt.Errorf("%w: %s declared for a %s budget", domain.ErrAnswerTooLate, elapsed, budget)
	}
	return nil
}

func (s *TrainingService) openSession(ctx context.Context, userID, correlationID string) (domain.Session, error) {
	session, err := s.load(ctx, userID, correlationID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.State == domain.StateCompleted {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionCompleted, correlationID)
	}
	return session, nil
}

func (s *TrainingService) load(ctx context.Context, userID, correlationID string) (domain.Session, error) {
	if correlationID == "" {
		return domain.Session{}, fmt.Errorf("%w: missing session id", domain.ErrInvalidRequest)
	}
	session, err := s.sessions.Get(ctx, correlationID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.UserID != userID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}
