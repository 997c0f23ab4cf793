package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devclub-edu/leaderboard/internal/metrics"
	"github.com/devclub-edu/leaderboard/internal/models"
)

const (
	livePingInterval = 30 * time.Second
	livePongWait     = 60 * time.Second
	liveWriteWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveMessage is one frame of the live leaderboard feed
type LiveMessage struct {
	Type        string                    `json:"type"`
	Domain      models.Domain             `json:"domain,omitempty"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard,omitempty"`
	Message     string                    `json:"message,omitempty"`
}

func (s *Server) handleLiveLeaderboard(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", unavailableMessage)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.hub.Subscribe(domain)
	defer unsubscribe()

	metrics.LiveSubscribers.Inc()
	defer metrics.LiveSubscribers.Dec()

	slog.Info("live leaderboard connected", "domain", domain, "remote_addr", r.RemoteAddr)

	// Initial snapshot
	if entries, err := s.tracker.Leaderboard(r.Context(), domain); err != nil {
		slog.Debug("live snapshot unavailable", "domain", domain, "error", err)
		if s.sendLiveMessage(conn, LiveMessage{Type: "error", Domain: domain, Message: unavailableMessage}) != nil {
			return
		}
	} else if s.sendLiveMessage(conn, LiveMessage{Type: "snapshot", Domain: domain, Leaderboard: entries}) != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Drain client frames so close and pong control messages are processed
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("live leaderboard disconnected", "domain", domain)
			return
		case entries := <-updates:
			if s.sendLiveMessage(conn, LiveMessage{Type: "update", Domain: domain, Leaderboard: entries}) != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				slog.Debug("failed to ping websocket", "error", err)
				return
			}
		}
	}
}

func (s *Server) sendLiveMessage(conn *websocket.Conn, msg LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal live message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live message", "error", err)
		return err
	}
	return nil
}
