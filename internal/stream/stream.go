// Package stream fans out campaign activity events to live subscribers
// (SSE clients on the dashboard).
package stream

import (
	"context"
	"sync"
	"time"

	"posvenda.org/internal/crm"
)

// DispatchEvent describes one outbound message transition for the activity
// feed.
type DispatchEvent struct {
	TenantID   string             `json:"tenant_id"`
	CampaignID string             `json:"campaign_id,omitempty"`
	DispatchID string             `json:"dispatch_id,omitempty"`
	Channel    crm.Channel        `json:"channel"`
	Status     crm.DispatchStatus `json:"status"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Stream fan-outs dispatch events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan DispatchEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan DispatchEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan DispatchEvent {
	ch := make(chan DispatchEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt DispatchEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
