package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultBuffer = 64

// Subscription receives events for one space until Unsubscribe.
type Subscription struct {
	SpaceID string
	UserID  string
	events  chan Event
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event { return s.events }

// Hub is the in-process fan-out. Slow subscribers lose events rather than
// stalling publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: defaultBuffer,
		logger: logger,
	}
}

func (h *Hub) Subscribe(spaceID, userID string) *Subscription {
	sub := &Subscription{SpaceID: spaceID, UserID: userID, events: make(chan Event, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[spaceID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		h.subs[spaceID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.SpaceID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.events)
	if len(set) == 0 {
		delete(h.subs, sub.SpaceID)
	}
}

// Publish delivers ev to local subscribers of ev.SpaceID.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.SpaceID] {
		select {
		case sub.events <- ev:
		default:
			h.logger.Warn("stream subscriber buffer full, dropping event",
				zap.String("space_id", ev.SpaceID),
				zap.String("user_id", sub.UserID),
				zap.String("type", ev.Type))
		}
	}
	return nil
}

// Subscribers returns how many local streams watch spaceID.
func (h *Hub) Subscribers(spaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[spaceID])
}
