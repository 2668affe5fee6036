package order

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableflow/pkg/money"
)

// Order is a cart submitted against one table. Items and the table snapshot
// are fixed at creation; only Status and the payment fields change afterwards.
type Order struct {
	ID        uuid.UUID     `json:"id"`
	TableID   uuid.UUID     `json:"table_id"`
	Table     TableSnapshot `json:"table"`
	Items     []OrderItem   `json:"items"`
	Status    string        `json:"status"`
	Subtotal  float64       `json:"subtotal"`
	Tax       float64       `json:"tax"`
	Total     float64       `json:"total"`
	IsPaid    bool          `json:"is_paid"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`

	// TableFreePending marks a paid order whose table is still occupied
	// because the free after payment failed.
	TableFreePending bool `json:"table_free_pending,omitempty"`
}

// OrderItem is one line of an order. Price is the unit price captured when
// the order was placed and is never re-read from the menu.
type OrderItem struct {
	ID         uuid.UUID        `json:"id"`
	MenuItemID uuid.UUID        `json:"menu_item_id"`
	MenuItem   MenuItemSnapshot `json:"menu_item"`
	Quantity   int              `json:"quantity"`
	Price      float64          `json:"price"`
	Notes      string           `json:"notes,omitempty"`
}

// TableSnapshot is the copy of the table record taken at creation time.
type TableSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Number   int       `json:"number"`
	Capacity int       `json:"capacity"`
	Status   string    `json:"status"`
}

// MenuItemSnapshot is the copy of the menu item taken at creation time.
type MenuItemSnapshot struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	CategoryID  uuid.UUID `json:"category_id"`
	IsAvailable bool      `json:"is_available"`
	Image       string    `json:"image,omitempty"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate(now time.Time) {
	o.EnsureID()
	if o.Status == "" {
		o.Status = orderstatus.Statuses.Pending.Code()
	}
	o.CreatedAt = now
	o.UpdatedAt = now
}

func (o *Order) BeforeUpdate(now time.Time) {
	o.UpdatedAt = now
}

// Recalculate derives subtotal, tax and total from the item lines.
func (o *Order) Recalculate() {
	lines := make([]money.Line, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, money.Line{Price: item.Price, Quantity: item.Quantity})
	}
	totals := money.Compute(lines)
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total
}

// IsActive reports whether the order still holds its table.
func (o *Order) IsActive() bool {
	s := orderstatus.ByName(o.Status)
	return s != nil && !s.Terminal()
}

// IsBillable reports whether the order may appear in the payment queue.
func (o *Order) IsBillable() bool {
	s := orderstatus.ByName(o.Status)
	return s != nil && s.Billable()
}

// ItemCount is the number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
