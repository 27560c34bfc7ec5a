package app

import (
	"context"
	"sync"

	"secaware-training-service/internal/domain"
)

// Notifier publishes leaderboard change events. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, event domain.LeaderboardEvent) error
}

// Hub is an in-process observer registry keyed by topic ("overall" or a game type).
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.LeaderboardEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan domain.LeaderboardEvent]struct{})}
}

// Subscribe returns a channel that receives events for topic.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(topic string) (<-chan domain.LeaderboardEvent, func()) {
	ch := make(chan domain.LeaderboardEvent, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[topic]
	if !ok {
		subs = make(map[chan domain.LeaderboardEvent]struct{})
		h.subscribers[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[topic]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, topic)
		}
	}
	return ch, cancel
}

// Publish fans the event out to the game-type topic and the overall topic. It never blocks.
func (h *Hub) Publish(_ context.Context, event domain.LeaderboardEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range event.Topics() {
		for ch := range h.subscribers[topic] {
			select {
			case ch <- event:
			default:
				// Slow subscriber: drop its oldest pending event to make room.
				select {
				case <-ch:
				default:
				}
				ch <- event
			}
		}
	}
	return nil
}

// Subscribers counts listeners on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
