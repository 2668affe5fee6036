package menu

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// MenuCategory groups items on the menu. Order is the 1-based display
// position among siblings.
type MenuCategory struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	IsVisible bool      `json:"is_visible"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *MenuCategory) GetID() uuid.UUID {
	return c.ID
}

func (c *MenuCategory) ResourceType() string {
	return "menu/category"
}

func (c *MenuCategory) EnsureID() {
	if c.ID == uuid.Nil {
		c.ID = apt.GenerateNewID()
	}
}

func (c *MenuCategory) BeforeCreate(now time.Time) {
	c.EnsureID()
	c.CreatedAt = now
	c.UpdatedAt = now
}

func (c *MenuCategory) BeforeUpdate(now time.Time) {
	c.UpdatedAt = now
}
