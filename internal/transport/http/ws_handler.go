package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"secaware-training-service/internal/app"
	"secaware-training-service/internal/domain"
)

// WSHandler pushes leaderboard rankings to websocket subscribers.
type WSHandler struct {
	ranker   *app.Ranker
	hub      *app.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(ranker *app.Ranker, hub *app.Hub) *WSHandler {
	return &WSHandler{
		ranker: ranker,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades GET /ws/leaderboard?gameType= and sends the ranking on
// connect, on every result for the topic, and on a client "refresh" message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("gameType")
	if topic == "" {
		topic = domain.TopicOverall
	}
	if topic != domain.TopicOverall {
		if _, err := domain.ParseKind(topic); err != nil {
			writeError(w, r, err)
			return
		}
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(topic)
	defer cancel()

	ctx := r.Context()
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- h.snapshot(ctx, topic, limit):
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		return enqueue(send, writerDone, msg)
	}

	if push(h.snapshot(ctx, topic, limit)) {
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				if _, isJSON := err.(*json.SyntaxError); isJSON {
					if !push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid message"}}) {
						break
					}
					continue
				}
				break
			}
			msg := outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
			if inbound.Type == "refresh" {
				msg = h.snapshot(ctx, topic, limit)
			}
			if !push(msg) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) snapshot(ctx context.Context, topic string, limit int) outboundMessage[any] {
	board, err := h.ranker.Rank(ctx, topic, limit)
	if err != nil {
		log.Printf("rank %s: %v", topic, err)
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}}
	}
	return outboundMessage[any]{Type: "leaderboard", Payload: board}
}

// enqueue reports false instead of blocking once the writer has stopped.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}
