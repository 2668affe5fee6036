package order

import "github.com/google/uuid"

type OrderCreateRequest struct {
	TableID uuid.UUID          `json:"table_id" validate:"required"`
	Lines   []OrderLineRequest `json:"lines" validate:"required,min=1,max=100,dive"`
}

type OrderLineRequest struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"gte=1,max=999"`
	Notes      string    `json:"notes,omitempty" validate:"max=500"`
}

// StatusRequest carries the version the client last saw. A nil Version skips
// the staleness check.
type StatusRequest struct {
	Version *int64 `json:"version,omitempty"`
}
