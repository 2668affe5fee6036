package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/event"
)

// Catalog owns menu items and categories and announces every change on
// the menu changes topic.
type Catalog struct {
	items      MenuItemRepo
	categories MenuCategoryRepo
	publisher  events.Publisher
	logger     apt.Logger
	now        func() time.Time
}

func NewCatalog(items MenuItemRepo, categories MenuCategoryRepo, publisher events.Publisher, logger apt.Logger) *Catalog {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Catalog{
		items:      items,
		categories: categories,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// Items

func (c *Catalog) CreateItem(ctx context.Context, req MenuItemRequest) (*MenuItem, error) {
	if err := c.checkItem(ctx, req); err != nil {
		return nil, err
	}

	item := &MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		CategoryID:  req.CategoryID,
		IsAvailable: true,
		Image:       req.Image,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	item.BeforeCreate(c.now())

	if err := c.items.Create(ctx, item); err != nil {
		return nil, err
	}

	c.publish(ctx, event.EventMenuItemSaved, event.MenuKindItem, item.ID, item)
	return item, nil
}

func (c *Catalog) GetItem(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	item, err := c.items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (c *Catalog) ListItems(ctx context.Context, filter ItemFilter) ([]*MenuItem, error) {
	return c.items.List(ctx, filter)
}

func (c *Catalog) UpdateItem(ctx context.Context, id uuid.UUID, req MenuItemRequest) (*MenuItem, error) {
	item, err := c.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.checkItem(ctx, req); err != nil {
		return nil, err
	}

	item.Name = req.Name
	item.Description = req.Description
	item.Price = *req.Price
	item.CategoryID = req.CategoryID
	item.Image = req.Image
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	return c.saveItem(ctx, item)
}

// SetAvailability flips availability, or sets it when req carries a value.
func (c *Catalog) SetAvailability(ctx context.Context, id uuid.UUID, req AvailabilityRequest) (*MenuItem, error) {
	item, err := c.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	} else {
		item.IsAvailable = !item.IsAvailable
	}

	return c.saveItem(ctx, item)
}

func (c *Catalog) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if _, err := c.GetItem(ctx, id); err != nil {
		return err
	}

	if err := c.items.Delete(ctx, id); err != nil {
		return err
	}

	c.publish(ctx, event.EventMenuItemDeleted, event.MenuKindItem, id, nil)
	return nil
}

func (c *Catalog) checkItem(ctx context.Context, req MenuItemRequest) error {
	if msgs := ValidateMenuItem(req); len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}

	if req.CategoryID == uuid.Nil {
		return nil
	}

	category, err := c.categories.Get(ctx, req.CategoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return &ValidationError{Messages: []string{"category_id does not exist"}}
	}
	return nil
}

func (c *Catalog) saveItem(ctx context.Context, item *MenuItem) (*MenuItem, error) {
	item.BeforeUpdate(c.now())
	if err := c.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("cannot save menu item %s: %w", item.ID, err)
	}

	c.publish(ctx, event.EventMenuItemSaved, event.MenuKindItem, item.ID, item)
	return item, nil
}

// Categories

// CreateCategory appends the category after the existing ones.
func (c *Catalog) CreateCategory(ctx context.Context, req CategoryRequest) (*MenuCategory, error) {
	if msgs := ValidateCategory(req); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	count, err := c.categories.Count(ctx)
	if err != nil {
		return nil, err
	}

	category := &MenuCategory{
		Name:      req.Name,
		Order:     int(count) + 1,
		IsVisible: true,
	}
	if req.IsVisible != nil {
		category.IsVisible = *req.IsVisible
	}
	category.BeforeCreate(c.now())

	if err := c.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	c.publish(ctx, event.EventMenuCategorySaved, event.MenuKindCategory, category.ID, category)
	return category, nil
}

func (c *Catalog) GetCategory(ctx context.Context, id uuid.UUID) (*MenuCategory, error) {
	category, err := c.categories.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// ListCategories returns categories sorted by their display order.
func (c *Catalog) ListCategories(ctx context.Context) ([]*MenuCategory, error) {
	return c.categories.List(ctx)
}

func (c *Catalog) UpdateCategory(ctx context.Context, id uuid.UUID, req CategoryRequest) (*MenuCategory, error) {
	if msgs := ValidateCategory(req); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	category, err := c.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = req.Name
	if req.IsVisible != nil {
		category.IsVisible = *req.IsVisible
	}

	return c.saveCategory(ctx, category)
}

func (c *Catalog) SetVisibility(ctx context.Context, id uuid.UUID, req VisibilityRequest) (*MenuCategory, error) {
	category, err := c.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsVisible != nil {
		category.IsVisible = *req.IsVisible
	} else {
		category.IsVisible = !category.IsVisible
	}

	return c.saveCategory(ctx, category)
}

// ReorderCategories applies all positions atomically and returns the
// resulting ordering.
func (c *Catalog) ReorderCategories(ctx context.Context, req ReorderRequest) ([]*MenuCategory, error) {
	if msgs := ValidateReorder(req); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	for _, p := range req.Positions {
		if _, err := c.GetCategory(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	if err := c.categories.Reorder(ctx, req.Positions); err != nil {
		return nil, fmt.Errorf("cannot reorder categories: %w", err)
	}

	categories, err := c.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	moved := make(map[uuid.UUID]bool, len(req.Positions))
	for _, p := range req.Positions {
		moved[p.ID] = true
	}
	for _, category := range categories {
		if moved[category.ID] {
			c.publish(ctx, event.EventMenuCategorySaved, event.MenuKindCategory, category.ID, category)
		}
	}

	return categories, nil
}

// DeleteCategory refuses to orphan items.
func (c *Catalog) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := c.GetCategory(ctx, id); err != nil {
		return err
	}

	count, err := c.items.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	if err := c.categories.Delete(ctx, id); err != nil {
		return err
	}

	c.publish(ctx, event.EventMenuCategoryDeleted, event.MenuKindCategory, id, nil)
	return nil
}

func (c *Catalog) saveCategory(ctx context.Context, category *MenuCategory) (*MenuCategory, error) {
	category.BeforeUpdate(c.now())
	if err := c.categories.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("cannot save menu category %s: %w", category.ID, err)
	}

	c.publish(ctx, event.EventMenuCategorySaved, event.MenuKindCategory, category.ID, category)
	return category, nil
}

func (c *Catalog) publish(ctx context.Context, eventType, kind string, id uuid.UUID, record any) {
	if c.publisher == nil {
		return
	}

	evt := event.MenuEvent{
		EventType:  eventType,
		OccurredAt: c.now().UTC(),
		Kind:       kind,
		ID:         id.String(),
	}
	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			c.logger.Error("cannot marshal menu record", "error", err, "id", id.String())
			return
		}
		evt.Record = raw
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("cannot marshal menu event", "error", err, "id", id.String())
		return
	}

	if err := c.publisher.Publish(ctx, event.MenuChangesTopic, payload); err != nil {
		c.logger.Error("cannot publish menu event", "error", err, "id", id.String())
	}
}
