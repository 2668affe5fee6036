package pkg

import "time"

const (
	// TableStatusTopic delivers authoritative table changes from the table service.
	TableStatusTopic = "tables.status"
	// OrderTableTopic carries order-side decisions about tables.
	OrderTableTopic = "orders.tables"

	EventTableStatusChanged = "table.status.changed"
	EventTableCreated       = "table.created"
	EventTableUpdated       = "table.updated"
	EventTableDeleted       = "table.deleted"

	// EventOrderTableRejected is emitted when an order cannot be placed on a table.
	EventOrderTableRejected = "order.table.rejected"
)

// TableStatusEvent is published on every table write. Consumers that keep a
// table cache only need ID, Number and Status; Table carries the full record
// for live clients.
type TableStatusEvent struct {
	EventType      string    `json:"event_type"`
	TableID        string    `json:"table_id"`
	Number         int       `json:"number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Source         string    `json:"source,omitempty"`
	Version        int64     `json:"version"`
	Table          any       `json:"table,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// OrderTableRejectionEvent records why an order could not be placed on a table.
type OrderTableRejectionEvent struct {
	EventType  string    `json:"event_type"`
	TableID    string    `json:"table_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Action     string    `json:"action"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
