package tables

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type publishedEvent struct {
	Topic string
	Data  []byte
}

// MockPublisher records everything published.
type MockPublisher struct {
	mu          sync.Mutex
	Events      []publishedEvent
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, publishedEvent{Topic: topic, Data: msg})
	return nil
}

// MockTableRepo stores copies so version checks behave like the database.
type MockTableRepo struct {
	mu     sync.RWMutex
	tables map[uuid.UUID]Table
	Saves  int

	GetFunc  func(ctx context.Context, id uuid.UUID) (*Table, error)
	SaveFunc func(ctx context.Context, table *Table) error
}

func NewMockTableRepo() *MockTableRepo {
	return &MockTableRepo{tables: make(map[uuid.UUID]Table)}
}

func (m *MockTableRepo) seed(tables ...*Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tables {
		m.tables[t.ID] = *t
	}
}

func (m *MockTableRepo) Create(ctx context.Context, table *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tables {
		if existing.Number == table.Number {
			return ErrDuplicateNumber
		}
	}
	m.tables[table.ID] = *table
	return nil
}

func (m *MockTableRepo) Get(ctx context.Context, id uuid.UUID) (*Table, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MockTableRepo) GetByNumber(ctx context.Context, number int) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tables {
		if t.Number == number {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MockTableRepo) List(ctx context.Context) ([]*Table, error) {
	return m.ListByStatus(ctx, "")
}

func (m *MockTableRepo) ListByStatus(ctx context.Context, status string) ([]*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Table
	for _, t := range m.tables {
		if status != "" && t.Status != status {
			continue
		}
		found := t
		result = append(result, &found)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (m *MockTableRepo) Save(ctx context.Context, table *Table) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tables[table.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != table.Version {
		return ErrConflict
	}
	table.Version++
	m.tables[table.ID] = *table
	m.Saves++
	return nil
}

func (m *MockTableRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[id]; !ok {
		return ErrNotFound
	}
	delete(m.tables, id)
	return nil
}

func (m *MockTableRepo) stored(id uuid.UUID) Table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tables[id]
}
