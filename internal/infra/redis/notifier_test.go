package redis

import (
	"context"
	"testing"
	"time"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/domain"
)

func TestRelayForwardsPublishedEventsToHub(t *testing.T) {
	_, client := newTestClient(t)
	hub := app.NewHub()
	updates, cancel := hub.Subscribe(domain.TopicOverall)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- Relay(ctx, client, hub, ready) }()

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("relay did not subscribe")
	}

	event := domain.LeaderboardEvent{GameType: domain.KindPhishing, UserID: "user-1", ResultID: "r-1", Score: 80}
	if err := NewNotifier(client).Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-updates:
		if got.ResultID != "r-1" || got.GameType != domain.KindPhishing {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for relayed event")
	}

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("relay: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestChannelName(t *testing.T) {
	if got := Channel(domain.KindScenario); got != "leaderboard:scenario" {
		t.Fatalf("unexpected channel %q", got)
	}
}
