// Package ws fans leaderboard updates out to connected clients, one topic
// per tournament. Only the latest standings matter, so a slow client's
// pending update is replaced rather than queued.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

type Broadcaster interface {
	Broadcast(tournamentID string, payload any)
}

type subscriber struct {
	// buffered size 1; push replaces a pending message instead of blocking
	send chan []byte
}

func (s *subscriber) push(msg []byte) {
	for {
		select {
		case s.send <- msg:
			return
		default:
			select {
			case <-s.send:
			default:
			}
		}
	}
}

type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*subscriber]struct{})}
}

// Broadcast sends payload to every subscriber of the tournament's topic.
// Marshal failures are logged, never propagated; distribution must not fail
// the sync cycle.
func (h *Hub) Broadcast(tournamentID string, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("tournament_id", tournamentID).Msg("Failed to marshal broadcast payload")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[tournamentID] {
		sub.push(msg)
	}
}

func (h *Hub) subscribe(tournamentID string) *subscriber {
	sub := &subscriber{send: make(chan []byte, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[tournamentID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[tournamentID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(tournamentID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[tournamentID]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, tournamentID)
	}
}

// SubscriberCount reports the number of connected clients for a tournament.
func (h *Hub) SubscriberCount(tournamentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[tournamentID])
}

// ServeConn pumps broadcasts for one tournament into conn until the client
// disconnects or ctx is cancelled. It owns the connection.
func (h *Hub) ServeConn(ctx context.Context, tournamentID string, conn *websocket.Conn) {
	sub := h.subscribe(tournamentID)
	defer func() {
		h.unsubscribe(tournamentID, sub)
		_ = conn.Close()
	}()

	// reader exists only to detect client disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("tournament_id", tournamentID).Msg("Dropping websocket subscriber")
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}
