package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

type tableResource struct {
	ID             uuid.UUID  `json:"id"`
	Number         int        `json:"number"`
	Capacity       int        `json:"capacity"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id,omitempty"`
}

func (t tableResource) state() order.TableState {
	return order.TableState{
		ID:             t.ID,
		Number:         t.Number,
		Capacity:       t.Capacity,
		Status:         t.Status,
		CurrentOrderID: t.CurrentOrderID,
	}
}

type tableOrderRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

// TableClient implements order.TableRegister and order.TableSource over the
// table service API.
type TableClient struct {
	client ServiceClient
}

func NewTableClient(client ServiceClient) *TableClient {
	return &TableClient{client: client}
}

func (c *TableClient) ListTables(ctx context.Context) ([]order.TableState, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("table client not configured")
	}

	resp, err := c.client.List(ctx, "tables")
	if err != nil {
		return nil, upstream("list tables", err)
	}

	var resources []tableResource
	if err := decodeSuccessResponse(resp, &resources); err != nil {
		return nil, upstream("decode tables", err)
	}

	tables := make([]order.TableState, 0, len(resources))
	for _, t := range resources {
		tables = append(tables, t.state())
	}
	return tables, nil
}

// findTable looks the table up in the listing so a missing table is
// reported as nil instead of an HTTP error.
func (c *TableClient) findTable(ctx context.Context, id uuid.UUID) (*order.TableState, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, nil
}

func (c *TableClient) Get(ctx context.Context, id uuid.UUID) (*order.TableSnapshot, error) {
	t, err := c.findTable(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	return &order.TableSnapshot{
		ID:       t.ID,
		Number:   t.Number,
		Capacity: t.Capacity,
		Status:   t.Status,
	}, nil
}

func (c *TableClient) Occupy(ctx context.Context, tableID, orderID uuid.UUID) error {
	return c.post(ctx, "occupy", tableID, orderID)
}

func (c *TableClient) Free(ctx context.Context, tableID, orderID uuid.UUID) error {
	return c.post(ctx, "free", tableID, orderID)
}

func (c *TableClient) post(ctx context.Context, action string, tableID, orderID uuid.UUID) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("table client not configured")
	}

	path := fmt.Sprintf("/tables/%s/%s", tableID, action)
	if _, err := c.client.Request(ctx, http.MethodPost, path, tableOrderRequest{OrderID: orderID}); err != nil {
		return upstream(action+" table "+tableID.String(), err)
	}
	return nil
}
