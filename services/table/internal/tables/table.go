package tables

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/enums/tablestatus"
)

// Table is a physical seating unit. CurrentOrderID points at the order that
// occupied it and is cleared when the table is freed.
type Table struct {
	ID             uuid.UUID  `json:"id"`
	Number         int        `json:"number"`
	Capacity       int        `json:"capacity"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id,omitempty"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func NewTable(number, capacity int) *Table {
	return &Table{
		ID:       apt.GenerateNewID(),
		Number:   number,
		Capacity: capacity,
		Status:   tablestatus.Statuses.Available.Code(),
	}
}

func (t *Table) GetID() uuid.UUID {
	return t.ID
}

func (t *Table) ResourceType() string {
	return "table"
}

func (t *Table) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = apt.GenerateNewID()
	}
}

func (t *Table) BeforeCreate(now time.Time) {
	t.EnsureID()
	if t.Status == "" {
		t.Status = tablestatus.Statuses.Available.Code()
	}
	t.CreatedAt = now
	t.UpdatedAt = now
}

func (t *Table) BeforeUpdate(now time.Time) {
	t.UpdatedAt = now
}

// SetStatus applies a staff override. Marking a table available also drops
// the order reference.
func (t *Table) SetStatus(status string) {
	t.Status = status
	if status == tablestatus.Statuses.Available.Code() {
		t.CurrentOrderID = nil
	}
}

func (t *Table) Occupy(orderID uuid.UUID) {
	t.Status = tablestatus.Statuses.Occupied.Code()
	if orderID != uuid.Nil {
		id := orderID
		t.CurrentOrderID = &id
	}
}

func (t *Table) Free() {
	t.Status = tablestatus.Statuses.Available.Code()
	t.CurrentOrderID = nil
}

// HasActiveOrder reports whether an order still references the table.
func (t *Table) HasActiveOrder() bool {
	return t.CurrentOrderID != nil && *t.CurrentOrderID != uuid.Nil
}
