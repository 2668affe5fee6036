package event

import (
	"encoding/json"
	"time"
)

const (
	// OrderLifecycleTopic is backed by the ORDER_EVENTS JetStream stream.
	OrderLifecycleTopic = "orders.lifecycle"
	OrderStreamName     = "ORDER_EVENTS"

	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status.changed"
	EventOrderPaid          = "order.paid"
	EventOrderDeleted       = "order.deleted"
)

// OrderEvent is emitted after every successful order write. Order holds the
// order document as written; it is empty for deletions.
type OrderEvent struct {
	EventType      string          `json:"event_type"`
	OccurredAt     time.Time       `json:"occurred_at"`
	OrderID        string          `json:"order_id"`
	TableID        string          `json:"table_id"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	IsPaid         bool            `json:"is_paid"`
	Order          json.RawMessage `json:"order,omitempty"`
}
