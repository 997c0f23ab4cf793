package leaderboard

import (
	"sync"

	"github.com/devclub-edu/leaderboard/internal/models"
)

// Hub fans out ranked snapshots to live subscribers
type Hub struct {
	mu   sync.Mutex
	subs map[models.Domain]map[chan []models.LeaderboardEntry]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[models.Domain]map[chan []models.LeaderboardEntry]struct{})}
}

// Subscribe registers for snapshots of a domain. cancel must be called once done.
func (h *Hub) Subscribe(domain models.Domain) (<-chan []models.LeaderboardEntry, func()) {
	ch := make(chan []models.LeaderboardEntry, 1)

	h.mu.Lock()
	if h.subs[domain] == nil {
		h.subs[domain] = make(map[chan []models.LeaderboardEntry]struct{})
	}
	h.subs[domain][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[domain], ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers a snapshot without blocking. A slow subscriber only keeps the latest one.
func (h *Hub) Publish(domain models.Domain, entries []models.LeaderboardEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[domain] {
		select {
		case ch <- entries:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- entries:
			default:
			}
		}
	}
}

// Subscribers returns the number of open subscriptions for a domain
func (h *Hub) Subscribers(domain models.Domain) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[domain])
}
