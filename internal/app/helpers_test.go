package app_test

import (
	"time"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/domain"
	"secaware-training-service/internal/infra/memory"
)

func quiz(id string, correct int) domain.Item {
	return domain.Item{
		ID: id, Kind: domain.KindQuiz, Category: "phishing", Difficulty: "easy",
		Quiz: &domain.QuizPayload{
			Prompt:       "Prompt " + id,
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: correct,
			Explanation:  "because " + id,
		},
	}
}

func phishing(id string, isPhishing bool, flags ...domain.RedFlag) domain.Item {
	return domain.Item{
		ID: id, Kind: domain.KindPhishing, Category: "banking", Difficulty: "easy",
		Phishing: &domain.PhishingPayload{
			Title:       "Email " + id,
			Email:       domain.Email{From: domain.Mailbox{Name: "Bank", Email: "security@bankk-alerts.com"}, Subject: "Verify"},
			RedFlags:    flags,
			IsPhishing:  isPhishing,
			Explanation: "explained",
		},
	}
}

func scenario(id string, choices ...domain.Choice) domain.Item {
	return domain.Item{
		ID: id, Kind: domain.KindScenario, Category: "social-engineering", Difficulty: "medium",
		Scenario: &domain.ScenarioPayload{Title: "Scenario " + id, Situation: "what now?", Choices: choices},
	}
}

func itemMap(items ...domain.Item) map[string]domain.Item {
	m := make(map[string]domain.Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}

type fixture struct {
	service  *app.TrainingService
	sessions *memory.SessionStore
	results  *memory.ResultStore
	hub      *app.Hub
	clock    *fakeClock
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newFixture(opts app.TrainingOptions, items ...domain.Item) *fixture {
	repo := memory.NewItemRepository(memory.NewStaticItemLoader(items), time.Minute)
	f := &fixture{
		sessions: memory.NewSessionStore(time.Hour),
		results:  memory.NewResultStore(),
		hub:      app.NewHub(),
		clock:    &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)},
	}
	f.service = app.NewTrainingService(repo, f.sessions, f.results, f.hub, opts)
	f.service.SetClock(f.clock.Now)
	return f
}

func answerKey(items ...domain.Item) map[string]domain.Answer {
	out := make(map[string]domain.Answer, len(items))
	for _, it := range items {
		a := domain.Answer{ItemID: it.ID, ElapsedMs: 1000}
		switch it.Kind {
		case domain.KindQuiz:
			a.Selected = it.Quiz.CorrectIndex
		case domain.KindPhishing:
			a.IsPhishing = it.Phishing.IsPhishing
		case domain.KindScenario:
			for i, c := range it.Scenario.Choices {
				if c.IsCorrect {
					a.Selected = i
				}
			}
		}
		out[it.ID] = a
	}
	return out
}
