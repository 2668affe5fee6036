package menu

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// MenuItem is a dish or drink offered to guests. Edits mutate it in place;
// orders keep their own snapshot of the fields they need.
type MenuItem struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CategoryID  uuid.UUID `json:"category_id"`
	IsAvailable bool      `json:"is_available"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *MenuItem) GetID() uuid.UUID {
	return m.ID
}

func (m *MenuItem) ResourceType() string {
	return "menu/item"
}

func (m *MenuItem) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = apt.GenerateNewID()
	}
}

func (m *MenuItem) BeforeCreate(now time.Time) {
	m.EnsureID()
	m.CreatedAt = now
	m.UpdatedAt = now
}

func (m *MenuItem) BeforeUpdate(now time.Time) {
	m.UpdatedAt = now
}

// ItemFilter narrows a listing. Zero values mean no restriction.
type ItemFilter struct {
	CategoryID  uuid.UUID
	IsAvailable *bool
}
