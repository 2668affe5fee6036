package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

type OrderFinder interface {
	Find(ctx context.Context, q order.Query) ([]*order.Order, error)
	Now() time.Time
}

type TableLister interface {
	Tables(ctx context.Context) ([]order.TableState, error)
}

type MenuLister interface {
	ListItems(ctx context.Context) ([]json.RawMessage, error)
	ListCategories(ctx context.Context) ([]json.RawMessage, error)
}

// Store answers snapshot requests from the order store, the table cache and
// the menu service.
type Store struct {
	orders OrderFinder
	tables TableLister
	menu   MenuLister
}

func NewStore(orders OrderFinder, tables TableLister, menu MenuLister) *Store {
	return &Store{orders: orders, tables: tables, menu: menu}
}

func (s *Store) Snapshot(ctx context.Context, f Filter) ([]json.RawMessage, error) {
	switch f.Collection {
	case CollectionOrders:
		orders, err := s.orders.Find(ctx, order.View(f.View).Query(s.orders.Now()))
		if err != nil {
			return nil, fmt.Errorf("cannot load orders: %w", err)
		}
		out := make([]json.RawMessage, 0, len(orders))
		for _, o := range orders {
			raw, err := json.Marshal(o)
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
		}
		return out, nil

	case CollectionTables:
		tables, err := s.tables.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot load tables: %w", err)
		}
		out := make([]json.RawMessage, 0, len(tables))
		for _, t := range tables {
			raw, err := json.Marshal(t)
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
		}
		return out, nil

	case CollectionMenuItems:
		return s.menu.ListItems(ctx)

	case CollectionMenuCategories:
		return s.menu.ListCategories(ctx)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, f.Collection)
	}
}
