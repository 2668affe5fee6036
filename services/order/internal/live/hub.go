package live

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

const DefaultBuffer = 100

// Snapshotter loads the records currently matching a filter.
type Snapshotter interface {
	Snapshot(ctx context.Context, f Filter) ([]json.RawMessage, error)
}

type Subscription struct {
	ID      string
	Filter  Filter
	events  chan Message
	dropped atomic.Int64
}

// Events is closed when the subscription is removed from the hub.
func (s *Subscription) Events() <-chan Message {
	return s.events
}

func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Hub fans changes out to subscribers. A subscriber whose buffer is full
// misses the change instead of blocking the others.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	snapshots   Snapshotter
	buffer      int
	now         func() time.Time
	logger      apt.Logger
}

func NewHub(snapshots Snapshotter, logger apt.Logger) *Hub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Hub{
		subscribers: make(map[string]*Subscription),
		snapshots:   snapshots,
		buffer:      DefaultBuffer,
		now:         time.Now,
		logger:      logger,
	}
}

// Subscribe registers before loading the snapshot so no change is lost in
// between. A change racing the snapshot may be delivered after it although
// the snapshot already reflects it; changes carry whole records so applying
// one twice is harmless.
func (h *Hub) Subscribe(ctx context.Context, f Filter) (Message, *Subscription, error) {
	f, err := f.Normalize()
	if err != nil {
		return Message{}, nil, err
	}

	sub := &Subscription{
		ID:     uuid.NewString(),
		Filter: f,
		events: make(chan Message, h.buffer),
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	h.mu.Unlock()

	records, err := h.snapshots.Snapshot(ctx, f)
	if err != nil {
		h.Unsubscribe(sub.ID)
		return Message{}, nil, err
	}
	if records == nil {
		records = []json.RawMessage{}
	}

	h.logger.Debug("live subscriber added", "subscriber_id", sub.ID, "collection", f.Collection, "view", f.View)

	return Message{
		Type:       MessageSnapshot,
		Collection: f.Collection,
		View:       f.View,
		Limit:      f.Limit(),
		Records:    records,
	}, sub, nil
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(sub.events)
	h.logger.Debug("live subscriber removed", "subscriber_id", id, "dropped", sub.Dropped())
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) Publish(c Change) {
	now := h.now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if sub.Filter.Collection != c.Collection {
			continue
		}

		routed := route(sub.Filter, c, now)
		msg := Message{
			Type:       MessageChange,
			Collection: c.Collection,
			View:       sub.Filter.View,
			Limit:      sub.Filter.Limit(),
			Change:     &routed,
		}

		select {
		case sub.events <- msg:
		default:
			sub.dropped.Add(1)
			h.logger.Info("subscriber buffer full, dropping change", "subscriber_id", sub.ID, "collection", c.Collection, "id", c.ID)
		}
	}
}

// route turns an order change that no longer matches the subscriber's view
// into a deletion so the client drops the record.
func route(f Filter, c Change, now time.Time) Change {
	if c.Collection != CollectionOrders || c.Op == OpDelete {
		return c
	}

	var o order.Order
	if err := json.Unmarshal(c.Record, &o); err != nil {
		return c
	}
	if order.View(f.View).Query(now).Matches(&o) {
		return c
	}
	return Change{Collection: c.Collection, Op: OpDelete, ID: c.ID}
}
