package event

import (
	"encoding/json"
	"time"
)

const (
	MenuChangesTopic = "menu.changes"

	EventMenuItemSaved       = "menu.item.saved"
	EventMenuItemDeleted     = "menu.item.deleted"
	EventMenuCategorySaved   = "menu.category.saved"
	EventMenuCategoryDeleted = "menu.category.deleted"
)

const (
	MenuKindItem     = "item"
	MenuKindCategory = "category"
)

// MenuEvent describes a change to a menu item or category.
type MenuEvent struct {
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Kind       string          `json:"kind"`
	ID         string          `json:"id"`
	Record     json.RawMessage `json:"record,omitempty"`
}
