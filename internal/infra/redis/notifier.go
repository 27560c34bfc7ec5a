package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"

	"secaware-training-service/internal/domain"
)

const channelPrefix = "leaderboard:"

// Publisher is anything that accepts relayed events, normally *app.Hub.
type Publisher interface {
	Publish(ctx context.Context, event domain.LeaderboardEvent) error
}

// Notifier publishes leaderboard events on leaderboard:{gameType} so every
// instance can refresh its websocket subscribers.
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Publish(ctx context.Context, event domain.LeaderboardEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return n.client.Publish(ctx, Channel(event.GameType), payload).Err()
}

// Channel names the pub/sub channel for a game type.
func Channel(kind domain.Kind) string {
	return channelPrefix + string(kind)
}

// Relay forwards events from every leaderboard channel into local until ctx is done.
// ready, if non-nil, is closed once the subscription is confirmed.
func Relay(ctx context.Context, client *redis.Client, local Publisher, ready chan<- struct{}) error {
	pubsub := client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe leaderboard channels: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.LeaderboardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("drop malformed event on %s: %v", msg.Channel, err)
				continue
			}
			if event.GameType == "" {
				event.GameType = domain.Kind(strings.TrimPrefix(msg.Channel, channelPrefix))
			}
			if err := local.Publish(ctx, event); err != nil {
				log.Printf("relay event on %s: %v", msg.Channel, err)
			}
		}
	}
}
