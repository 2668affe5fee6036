package menu

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/event"
)

type publishedEvent struct {
	Topic string
	Data  []byte
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []publishedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, publishedEvent{Topic: topic, Data: msg})
	return nil
}

func (m *MockPublisher) menuEvents() []event.MenuEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.MenuEvent
	for _, e := range m.Events {
		var evt event.MenuEvent
		if err := json.Unmarshal(e.Data, &evt); err == nil {
			out = append(out, evt)
		}
	}
	return out
}

type MockMenuItemRepo struct {
	mu    sync.RWMutex
	items map[uuid.UUID]MenuItem
}

func NewMockMenuItemRepo() *MockMenuItemRepo {
	return &MockMenuItemRepo{items: make(map[uuid.UUID]MenuItem)}
}

func (m *MockMenuItemRepo) seed(items ...*MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.items[item.ID] = *item
	}
}

func (m *MockMenuItemRepo) Create(ctx context.Context, item *MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = *item
	return nil
}

func (m *MockMenuItemRepo) Get(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *MockMenuItemRepo) List(ctx context.Context, filter ItemFilter) ([]*MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*MenuItem
	for _, item := range m.items {
		if filter.CategoryID != uuid.Nil && item.CategoryID != filter.CategoryID {
			continue
		}
		if filter.IsAvailable != nil && item.IsAvailable != *filter.IsAvailable {
			continue
		}
		copied := item
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockMenuItemRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, item := range m.items {
		if item.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (m *MockMenuItemRepo) Save(ctx context.Context, item *MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return ErrItemNotFound
	}
	m.items[item.ID] = *item
	return nil
}

func (m *MockMenuItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

type MockMenuCategoryRepo struct {
	mu         sync.RWMutex
	categories map[uuid.UUID]MenuCategory
	Reorders   int

	ReorderFunc func(ctx context.Context, positions []CategoryPosition) error
}

func NewMockMenuCategoryRepo() *MockMenuCategoryRepo {
	return &MockMenuCategoryRepo{categories: make(map[uuid.UUID]MenuCategory)}
}

func (m *MockMenuCategoryRepo) seed(categories ...*MenuCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range categories {
		m.categories[c.ID] = *c
	}
}

func (m *MockMenuCategoryRepo) Create(ctx context.Context, category *MenuCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[category.ID] = *category
	return nil
}

func (m *MockMenuCategoryRepo) Get(ctx context.Context, id uuid.UUID) (*MenuCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MockMenuCategoryRepo) List(ctx context.Context) ([]*MenuCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*MenuCategory, 0, len(m.categories))
	for _, c := range m.categories {
		copied := c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *MockMenuCategoryRepo) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.categories)), nil
}

func (m *MockMenuCategoryRepo) Save(ctx context.Context, category *MenuCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[category.ID]; !ok {
		return ErrCategoryNotFound
	}
	m.categories[category.ID] = *category
	return nil
}

func (m *MockMenuCategoryRepo) Reorder(ctx context.Context, positions []CategoryPosition) error {
	if m.ReorderFunc != nil {
		return m.ReorderFunc(ctx, positions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reorders++
	for _, p := range positions {
		c, ok := m.categories[p.ID]
		if !ok {
			continue
		}
		c.Order = p.Order
		m.categories[p.ID] = c
	}
	return nil
}

func (m *MockMenuCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}
