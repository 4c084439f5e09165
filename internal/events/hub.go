package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/baharkarakas/franchise-backend/internal/metrics"
)

const subscriberBuffer = 16

type Event struct {
	ID    string          `json:"id"`
	Topic string          `json:"topic"`
	Kind  string          `json:"kind"`
	Data  json.RawMessage `json:"data"`
	At    time.Time       `json:"at"`
}

func UserTopic(userID string) string { return "user:" + userID }

type Bus interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
}

type Subscription struct {
	C <-chan Event

	ch    chan Event
	topic string
	hub   *Hub
	once  sync.Once
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub delivers events to subscribers in this process.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[*Subscription]struct{}{}}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[e.Topic] {
		select {
		case s.ch <- e:
		default:
			metrics.EventsDropped.Inc()
		}
	}
	return nil
}

// Subscribe registers for topic until ctx ends or Close is called.
func (h *Hub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ch := make(chan Event, subscriberBuffer)
	s := &Subscription{C: ch, ch: ch, topic: topic, hub: h}

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = map[*Subscription]struct{}{}
	}
	h.subs[topic][s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Close()
	}()
	return s, nil
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.topic)
		}
	}
	close(s.ch)
}
