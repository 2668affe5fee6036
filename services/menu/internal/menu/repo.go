package menu

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound     = errors.New("menu item not found")
	ErrCategoryNotFound = errors.New("menu category not found")
	ErrCategoryInUse    = errors.New("menu category still has items")
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

type MenuItemRepo interface {
	Create(ctx context.Context, item *MenuItem) error
	Get(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	List(ctx context.Context, filter ItemFilter) ([]*MenuItem, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	Save(ctx context.Context, item *MenuItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryPosition is one entry of a batch reorder.
type CategoryPosition struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Order int       `json:"order" validate:"gte=1"`
}

type MenuCategoryRepo interface {
	Create(ctx context.Context, category *MenuCategory) error
	Get(ctx context.Context, id uuid.UUID) (*MenuCategory, error)
	List(ctx context.Context) ([]*MenuCategory, error)
	Count(ctx context.Context) (int64, error)
	Save(ctx context.Context, category *MenuCategory) error
	// Reorder rewrites the order field of every listed category atomically.
	Reorder(ctx context.Context, positions []CategoryPosition) error
	Delete(ctx context.Context, id uuid.UUID) error
}
