package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/domain"
	"secaware-training-service/internal/infra/memory"
)

func quizBank() []domain.Item {
	return []domain.Item{quiz("q1", 0), quiz("q2", 1), quiz("q3", 2)}
}

func TestStartReturnsRedactedSampledSet(t *testing.T) {
	f := newFixture(app.DefaultTrainingOptions(), quizBank()...)

	view, err := f.service.Start(context.Background(), "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.CorrelationID == "" || view.TimeLimitSeconds != 30 {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(view.Items) != 3 {
		t.Fatalf("expected the whole undersized pool, got %d items", len(view.Items))
	}
	seen := map[string]bool{}
	for _, it := range view.Items {
		if seen[it.ID] {
			t.Fatalf("duplicate item %s in sampled set", it.ID)
		}
		seen[it.ID] = true
	}

	session, err := f.sessions.Get(context.Background(), view.CorrelationID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.State != domain.StateInProgress || !session.StartedAt.Equal(f.clock.now) {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	f := newFixture(app.DefaultTrainingOptions(), quizBank()...)
	ctx := context.Background()
	if _, err := f.service.Start(ctx, "alice", domain.Kind("chess"), domain.ItemFilter{}, 0); !errors.Is(err, domain.ErrInvalidGameType) {
		t.Fatalf("expected invalid game type, got %v", err)
	}
	if _, err := f.service.Start(ctx, "", domain.KindQuiz, domain.ItemFilter{}, 0); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestAnswerByAnswerCompletesAndNotifies(t *testing.T) {
	bank := quizBank()
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()
	key := answerKey(bank...)

	overall, cancelOverall := f.hub.Subscribe(domain.TopicOverall)
	defer cancelOverall()
	quizTopic, cancelQuiz := f.hub.Subscribe(string(domain.KindQuiz))
	defer cancelQuiz()

	view, err := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	var last app.AnswerFeedback
	for i, it := range view.Items {
		answer := key[it.ID]
		if i == 1 {
			answer.Selected = 3 // wrong
		}
		last, err = f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, answer)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if last.Reveal != nil {
			t.Fatalf("quiz answers must not reveal before completion")
		}
		if i < 2 && last.Completed {
			t.Fatalf("completed too early at %d", i)
		}
	}
	if !last.Completed || last.Summary == nil {
		t.Fatalf("expected completion on last answer, got %+v", last)
	}
	if last.Summary.Score != 67 || last.Summary.CorrectCount != 2 || last.Summary.TimeSpentSeconds != 3 {
		t.Fatalf("unexpected summary %+v", last.Summary)
	}

	results, _ := f.results.List(ctx, domain.ResultFilter{})
	if len(results) != 1 || results[0].CorrelationID != view.CorrelationID || results[0].UserID != "alice" {
		t.Fatalf("expected exactly one result, got %+v", results)
	}

	for name, ch := range map[string]<-chan domain.LeaderboardEvent{"overall": overall, "quiz": quizTopic} {
		select {
		case ev := <-ch:
			if ev.ResultID != results[0].ID || ev.Score != 67 {
				t.Fatalf("%s: unexpected event %+v", name, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: no leaderboard event", name)
		}
	}
}

func TestResubmissionIsRejected(t *testing.T) {
	bank := quizBank()
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()
	key := answerKey(bank...)

	view, _ := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	answers := make([]domain.Answer, len(view.Items))
	for i, it := range view.Items {
		answers[i] = key[it.ID]
	}

	summary, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 12)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Score != 100 || summary.TimeSpentSeconds != 12 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if _, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 12); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, answers[0]); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed error for single answer, got %v", err)
	}
	results, _ := f.results.List(ctx, domain.ResultFilter{})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
}

func TestConcurrentSubmissionsRecordOneResult(t *testing.T) {
	bank := quizBank()
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()
	key := answerKey(bank...)

	view, _ := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	answers := make([]domain.Answer, len(view.Items))
	for i, it := range view.Items {
		answers[i] = key[it.ID]
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrSessionCompleted), errors.Is(err, domain.ErrSessionConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful submission, got %d", ok)
	}
	results, _ := f.results.List(ctx, domain.ResultFilter{})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
}

func TestConcurrentDuplicateAnswerAppliesOnce(t *testing.T) {
	bank := quizBank()
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()

	view, _ := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	first := answerKey(bank...)[view.Items[0].ID]

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, first)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if !errors.Is(err, domain.ErrSessionConflict) && !errors.Is(err, domain.ErrDuplicateAnswer) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected one accepted answer, got %d", ok)
	}
	progress, _ := f.service.Progress(ctx, "alice", view.CorrelationID)
	if progress.Answered != 1 {
		t.Fatalf("expected one recorded answer, got %+v", progress)
	}
}

func TestRejectedAnswersLeaveSessionResumable(t *testing.T) {
	bank := quizBank()
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()
	key := answerKey(bank...)

	view, _ := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	first, second := view.Items[0].ID, view.Items[1].ID

	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, key[second]); !errors.Is(err, domain.ErrOutOfOrder) {
		t.Fatalf("expected out of order, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, domain.Answer{ItemID: "zzz"}); !errors.Is(err, domain.ErrUnknownItem) {
		t.Fatalf("expected unknown item, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, domain.Answer{ItemID: first, Selected: 9}); !errors.Is(err, domain.ErrInvalidAnswer) {
		t.Fatalf("expected invalid answer, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "bob", view.CorrelationID, key[first]); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected foreign session to be hidden, got %v", err)
	}

	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, key[first]); err != nil {
		t.Fatalf("valid answer after rejections: %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, key[first]); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected duplicate answer, got %v", err)
	}

	// The bulk path must agree with what was already recorded.
	answers := []domain.Answer{key[second], key[first], key[view.Items[2].ID]}
	if _, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 0); !errors.Is(err, domain.ErrOutOfOrder) {
		t.Fatalf("expected mismatch to be rejected, got %v", err)
	}
	if _, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers[:2], 0); !errors.Is(err, domain.ErrIncompleteSubmission) {
		t.Fatalf("expected incomplete submission, got %v", err)
	}

	progress, err := f.service.Progress(ctx, "alice", view.CorrelationID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.State != domain.StateInProgress || progress.Answered != 1 || progress.CurrentItemID != second {
		t.Fatalf("unexpected progress %+v", progress)
	}
}

func TestScenarioAnswerRevealsImmediately(t *testing.T) {
	s := scenario("s1",
		domain.Choice{Text: "plug it in", Feedback: "malware risk"},
		domain.Choice{Text: "report it", IsCorrect: true, Feedback: "well done", Points: 15},
	)
	f := newFixture(app.DefaultTrainingOptions(), s)
	ctx := context.Background()

	view, err := f.service.Start(ctx, "alice", domain.KindScenario, domain.ItemFilter{}, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.TimeLimitSeconds != 0 {
		t.Fatalf("scenarios are untimed, got %d", view.TimeLimitSeconds)
	}
	fb, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, domain.Answer{ItemID: "s1", Selected: 0})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if fb.Reveal == nil || fb.Reveal.Correct || fb.Reveal.Explanation != "malware risk" || fb.Reveal.CorrectChoice != "report it" {
		t.Fatalf("unexpected reveal %+v", fb.Reveal)
	}
	if !fb.Completed || fb.Summary.Score != 0 {
		t.Fatalf("expected completion with 0 points, got %+v", fb)
	}
}

func TestEnforcedTimeLimitRejectsLateAnswers(t *testing.T) {
	opts := app.DefaultTrainingOptions()
	opts.EnforceTimeLimits = true
	bank := quizBank()
	f := newFixture(opts, bank...)
	ctx := context.Background()

	view, _ := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 1)
	answer := answerKey(bank...)[view.Items[0].ID]

	answer.ElapsedMs = (32 * time.Second).Milliseconds()
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, answer); err != nil {
		t.Fatalf("answer within tolerance rejected: %v", err)
	}

	view, _ = f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 1)
	answer = answerKey(bank...)[view.Items[0].ID]
	answer.ElapsedMs = (45 * time.Second).Milliseconds()
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, answer); !errors.Is(err, domain.ErrAnswerTooLate) {
		t.Fatalf("expected too late, got %v", err)
	}
}

func TestEmptySampledSetCompletesWithZero(t *testing.T) {
	f := newFixture(app.DefaultTrainingOptions(), quizBank()...)
	ctx := context.Background()

	view, err := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{Category: "nonexistent"}, 0)
	if err != nil {
		t.Fatalf("underfill must not error: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected empty set, got %d", len(view.Items))
	}
	summary, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, nil, 0)
	if err != nil {
		t.Fatalf("submit empty: %v", err)
	}
	if summary.Score != 0 || summary.Total != 0 {
		t.Fatalf("expected zero score, got %+v", summary)
	}
}

type flakyResults struct {
	app.ResultStore
	mu    sync.Mutex
	fails int
}

func (r *flakyResults) Append(ctx context.Context, result domain.Result) error {
	r.mu.Lock()
	if r.fails > 0 {
		r.fails--
		r.mu.Unlock()
		return errors.New("database unavailable")
	}
	r.mu.Unlock()
	return r.ResultStore.Append(ctx, result)
}

func TestFailedAppendLeavesSessionResumable(t *testing.T) {
	bank := quizBank()
	repo := memory.NewItemRepository(memory.NewStaticItemLoader(bank), time.Minute)
	results := &flakyResults{ResultStore: memory.NewResultStore(), fails: 1}
	service := app.NewTrainingService(repo, memory.NewSessionStore(time.Hour), results, nil, app.DefaultTrainingOptions())
	ctx := context.Background()
	key := answerKey(bank...)

	view, _ := service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	answers := make([]domain.Answer, len(view.Items))
	for i, it := range view.Items {
		answers[i] = key[it.ID]
	}

	if _, err := service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 0); err == nil || !strings.Contains(err.Error(), "unavailable") {
		t.Fatalf("expected storage failure, got %v", err)
	}
	summary, err := service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 0)
	if err != nil {
		t.Fatalf("retry after failed append: %v", err)
	}
	if summary.Score != 100 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestBulkSubmitMarksSessionCompleted(t *testing.T) {
	bank := quizBank()
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()
	key := answerKey(bank...)

	view, _ := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	answers := make([]domain.Answer, len(view.Items))
	for i, it := range view.Items {
		answers[i] = key[it.ID]
	}
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, answers[0]); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	progress, err := f.service.Progress(ctx, "alice", view.CorrelationID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.State != domain.StateCompleted || progress.Remaining != 0 || progress.Answered != len(answers) {
		t.Fatalf("expected stored session to be completed, got %+v", progress)
	}
	for _, a := range answers {
		if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, a); !errors.Is(err, domain.ErrSessionCompleted) {
			t.Fatalf("answer after completion: expected completed, got %v", err)
		}
	}
}

func TestBulkSubmitRejectsChangedRecordedAnswer(t *testing.T) {
	bank := quizBank()
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()
	key := answerKey(bank...)

	view, _ := f.service.Start(ctx, "alice", domain.KindQuiz, domain.ItemFilter{}, 0)
	answers := make([]domain.Answer, len(view.Items))
	for i, it := range view.Items {
		answers[i] = key[it.ID]
	}
	wrong := answers[0]
	wrong.Selected = (wrong.Selected + 1) % 4
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, wrong); err != nil {
		t.Fatalf("first answer: %v", err)
	}

	if _, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 0); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected changed answer to be rejected, got %v", err)
	}
	if results, _ := f.results.List(ctx, domain.ResultFilter{}); len(results) != 0 {
		t.Fatalf("rejected submission recorded a result: %+v", results)
	}

	answers[0] = wrong
	summary, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 0)
	if err != nil {
		t.Fatalf("submit with the recorded answer: %v", err)
	}
	if summary.CorrectCount != 2 || summary.Score != 67 {
		t.Fatalf("expected the recorded wrong answer to be scored, got %+v", summary)
	}
}

func TestPhishingBulkSubmitRejectsFlippedVerdict(t *testing.T) {
	bank := []domain.Item{phishing("p1", true), phishing("p2", false)}
	f := newFixture(app.DefaultTrainingOptions(), bank...)
	ctx := context.Background()
	key := answerKey(bank...)

	view, _ := f.service.Start(ctx, "alice", domain.KindPhishing, domain.ItemFilter{}, 0)
	answers := []domain.Answer{key[view.Items[0].ID], key[view.Items[1].ID]}
	if _, err := f.service.SubmitAnswer(ctx, "alice", view.CorrelationID, answers[0]); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	answers[0].IsPhishing = !answers[0].IsPhishing
	if _, err := f.service.SubmitSession(ctx, "alice", view.CorrelationID, answers, 0); !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected flipped verdict to be rejected, got %v", err)
	}
}
