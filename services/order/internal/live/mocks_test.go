package live

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

// MockSnapshotter serves fixed records per collection.
type MockSnapshotter struct {
	mu      sync.Mutex
	Records map[string][]json.RawMessage
	Err     error
	Calls   []Filter
}

func (m *MockSnapshotter) Snapshot(ctx context.Context, f Filter) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, f)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Records[f.Collection], nil
}

// MockSubscriber keeps the handlers so tests can deliver messages.
type MockSubscriber struct {
	mu       sync.Mutex
	Handlers map[string]events.HandlerFunc
	Err      error
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{Handlers: make(map[string]events.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Handlers[topic] = handler
	return nil
}

func (m *MockSubscriber) deliver(t *testing.T, topic string, payload interface{}) {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.Handlers[topic]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no handler subscribed to %s", topic)
	}

	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	default:
		var err error
		raw, err = json.Marshal(p)
		if err != nil {
			t.Fatalf("cannot encode payload: %v", err)
		}
	}

	if err := handler(context.Background(), raw); err != nil {
		t.Fatalf("handler(%s) error = %v", topic, err)
	}
}

var fixedNow = time.Date(2025, 3, 14, 19, 30, 0, 0, time.UTC)

func newTestHub(snap *MockSnapshotter) *Hub {
	hub := NewHub(snap, nil)
	hub.now = func() time.Time { return fixedNow }
	return hub
}

func orderRecord(t *testing.T, id uuid.UUID, status orderstatus.Status) json.RawMessage {
	t.Helper()
	o := order.Order{
		ID:        id,
		TableID:   uuid.MustParse("550e8400-e29b-41d4-a716-446655440005"),
		Status:    status.Code(),
		Subtotal:  25,
		Tax:       2,
		Total:     27,
		CreatedAt: fixedNow.Add(-time.Hour),
		UpdatedAt: fixedNow,
	}
	raw, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("cannot encode order: %v", err)
	}
	return raw
}

// next waits briefly for a message on sub.
func next(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live message")
	}
	return Message{}
}

func assertQuiet(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case msg := <-sub.Events():
		t.Fatalf("unexpected message %+v", msg)
	default:
	}
}
