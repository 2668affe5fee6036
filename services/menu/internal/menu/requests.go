package menu

import "github.com/google/uuid"

type MenuItemRequest struct {
	Name        string    `json:"name" validate:"required,max=120"`
	Description string    `json:"description" validate:"max=1000"`
	Price       *float64  `json:"price" validate:"required,gte=0"`
	CategoryID  uuid.UUID `json:"category_id"`
	IsAvailable *bool     `json:"is_available,omitempty"`
	Image       string    `json:"image,omitempty" validate:"omitempty,max=512"`
}

// AvailabilityRequest sets availability explicitly; an empty body toggles it.
type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available,omitempty"`
}

type CategoryRequest struct {
	Name      string `json:"name" validate:"required,max=80"`
	IsVisible *bool  `json:"is_visible,omitempty"`
}

type VisibilityRequest struct {
	IsVisible *bool `json:"is_visible,omitempty"`
}

type ReorderRequest struct {
	Positions []CategoryPosition `json:"positions" validate:"required,min=1,dive"`
}
