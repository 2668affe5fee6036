package order

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrConflict          = errors.New("order was modified concurrently")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrTableBusy         = errors.New("table already has an active order")
	ErrNotDeletable      = errors.New("only completed orders can be deleted")
	ErrTableSync         = errors.New("order saved but table state could not be updated")
	ErrUpstream          = errors.New("dependent service unavailable")
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// OrderRepo persists orders. Save is conditional on the Version the caller
// read and increments it on success; a mismatch yields ErrConflict. Create
// and Save return ErrTableBusy when another active order holds the table.
type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, q Query) ([]*Order, error)
	ActiveByTable(ctx context.Context, tableID uuid.UUID) (*Order, error)
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TableRegister is the order service view of the table service.
type TableRegister interface {
	// Get returns nil when the table does not exist.
	Get(ctx context.Context, id uuid.UUID) (*TableSnapshot, error)
	Occupy(ctx context.Context, tableID, orderID uuid.UUID) error
	Free(ctx context.Context, tableID, orderID uuid.UUID) error
}

// MenuCatalog resolves menu items for new orders. Missing ids are absent
// from the returned map.
type MenuCatalog interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]MenuItemSnapshot, error)
}
