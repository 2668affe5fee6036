package tables

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("table not found")
	ErrConflict        = errors.New("table was modified concurrently")
	ErrDuplicateNumber = errors.New("table number already in use")
	ErrTableInUse      = errors.New("table has an active order")
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// TableRepo persists tables. Save is conditional on the Version the caller
// read and increments it on success; a mismatch yields ErrConflict.
type TableRepo interface {
	Create(ctx context.Context, table *Table) error
	Get(ctx context.Context, id uuid.UUID) (*Table, error)
	GetByNumber(ctx context.Context, number int) (*Table, error)
	List(ctx context.Context) ([]*Table, error)
	ListByStatus(ctx context.Context, status string) ([]*Table, error)
	Save(ctx context.Context, table *Table) error
	Delete(ctx context.Context, id uuid.UUID) error
}
