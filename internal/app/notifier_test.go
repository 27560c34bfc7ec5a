package app_test

import (
	"context"
	"testing"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/domain"
)

func TestHubFansOutToTopicAndOverall(t *testing.T) {
	hub := app.NewHub()
	quizCh, cancelQuiz := hub.Subscribe(string(domain.KindQuiz))
	defer cancelQuiz()
	overallCh, cancelOverall := hub.Subscribe(domain.TopicOverall)
	defer cancelOverall()
	phishCh, cancelPhish := hub.Subscribe(string(domain.KindPhishing))
	defer cancelPhish()

	if err := hub.Publish(context.Background(), domain.LeaderboardEvent{GameType: domain.KindQuiz, ResultID: "r1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for name, ch := range map[string]<-chan domain.LeaderboardEvent{"quiz": quizCh, "overall": overallCh} {
		select {
		case ev := <-ch:
			if ev.ResultID != "r1" {
				t.Fatalf("%s: unexpected event %+v", name, ev)
			}
		default:
			t.Fatalf("%s: expected an event", name)
		}
	}
	select {
	case ev := <-phishCh:
		t.Fatalf("phishing subscriber got %+v", ev)
	default:
	}
}

func TestHubDropsOldestForSlowSubscriber(t *testing.T) {
	hub := app.NewHub()
	ch, cancel := hub.Subscribe(domain.TopicOverall)
	defer cancel()

	for i := 0; i < 20; i++ {
		_ = hub.Publish(context.Background(), domain.LeaderboardEvent{GameType: domain.KindQuiz, Score: i})
	}

	var last domain.LeaderboardEvent
	n := 0
	for {
		select {
		case ev := <-ch:
			last = ev
			n++
			continue
		default:
		}
		break
	}
	if n == 0 || n >= 20 {
		t.Fatalf("expected a bounded backlog, got %d events", n)
	}
	if last.Score != 19 {
		t.Fatalf("expected the newest event to survive, got %d", last.Score)
	}
}

func TestHubCancelUnsubscribes(t *testing.T) {
	hub := app.NewHub()
	ch, cancel := hub.Subscribe(domain.TopicOverall)
	if hub.Subscribers(domain.TopicOverall) != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel()
	if hub.Subscribers(domain.TopicOverall) != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
}
