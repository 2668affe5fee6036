package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

type menuItemResource struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CategoryID  uuid.UUID `json:"category_id"`
	IsAvailable bool      `json:"is_available"`
	Image       string    `json:"image"`
}

// MenuClient implements order.MenuCatalog over the menu service API.
type MenuClient struct {
	client ServiceClient
}

func NewMenuClient(client ServiceClient) *MenuClient {
	return &MenuClient{client: client}
}

// Lookup lists the menu once and keeps the requested ids. Unavailable items
// are returned too so callers can name them.
func (c *MenuClient) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]order.MenuItemSnapshot, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("menu client not configured")
	}

	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	resp, err := c.client.Request(ctx, http.MethodGet, "/menu/items", nil)
	if err != nil {
		return nil, upstream("list menu items", err)
	}

	var items []menuItemResource
	if err := decodeSuccessResponse(resp, &items); err != nil {
		return nil, upstream("decode menu items", err)
	}

	found := make(map[uuid.UUID]order.MenuItemSnapshot, len(ids))
	for _, item := range items {
		if _, ok := wanted[item.ID]; !ok {
			continue
		}
		found[item.ID] = order.MenuItemSnapshot{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			CategoryID:  item.CategoryID,
			IsAvailable: item.IsAvailable,
			Image:       item.Image,
		}
	}
	return found, nil
}

// ListItems returns the menu items as served, for live snapshots.
func (c *MenuClient) ListItems(ctx context.Context) ([]json.RawMessage, error) {
	return c.listRaw(ctx, "/menu/items")
}

func (c *MenuClient) ListCategories(ctx context.Context) ([]json.RawMessage, error) {
	return c.listRaw(ctx, "/menu/categories")
}

func (c *MenuClient) listRaw(ctx context.Context, path string) ([]json.RawMessage, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("menu client not configured")
	}

	resp, err := c.client.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, upstream("get "+path, err)
	}

	var records []json.RawMessage
	if err := decodeSuccessResponse(resp, &records); err != nil {
		return nil, upstream("decode "+path, err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}
