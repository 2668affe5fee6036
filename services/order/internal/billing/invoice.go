package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/money"
)

type InvoiceLine struct {
	Description string  `json:"description"`
	Notes       string  `json:"notes,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// Invoice is a printable rendering of an order. It is never stored.
type Invoice struct {
	Number      string        `json:"number"`
	Restaurant  Profile       `json:"restaurant"`
	OrderID     uuid.UUID     `json:"order_id"`
	TableNumber int           `json:"table_number"`
	Date        time.Time     `json:"date"`
	Lines       []InvoiceLine `json:"lines"`
	Subtotal    float64       `json:"subtotal"`
	Tax         float64       `json:"tax"`
	Total       float64       `json:"total"`
	IsPaid      bool          `json:"is_paid"`
}

func (r *Resolver) Invoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	o, err := r.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := r.orders.Now()
	inv := &Invoice{
		Number:      fmt.Sprintf("INV-%s-%s", now.Format("20060102"), r.node.Generate().String()),
		Restaurant:  r.profile,
		OrderID:     o.ID,
		TableNumber: o.Table.Number,
		Date:        now,
		Lines:       make([]InvoiceLine, 0, len(o.Items)),
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Total:       o.Total,
		IsPaid:      o.IsPaid,
	}

	for _, item := range o.Items {
		inv.Lines = append(inv.Lines, InvoiceLine{
			Description: fmt.Sprintf("%d × %s", item.Quantity, item.MenuItem.Name),
			Notes:       item.Notes,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			Total:       money.LineTotal(item.Price, item.Quantity),
		})
	}
	return inv, nil
}
