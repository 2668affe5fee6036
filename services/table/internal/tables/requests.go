package tables

import (
	"github.com/google/uuid"
)

type TableCreateRequest struct {
	Number   int    `json:"number" validate:"required,gt=0"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=available occupied reserved"`
}

type TableUpdateRequest struct {
	Number   int    `json:"number,omitempty" validate:"omitempty,gt=0"`
	Capacity int    `json:"capacity,omitempty" validate:"omitempty,gt=0"`
	Version  *int64 `json:"version,omitempty"`
}

type TableStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=available occupied reserved"`
	Version *int64 `json:"version,omitempty"`
}

// TableOrderRequest links a table to the order occupying or releasing it.
type TableOrderRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}
