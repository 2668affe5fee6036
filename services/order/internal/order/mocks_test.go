package order

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/event"
)

type publishedEvent struct {
	Topic string
	Data  []byte
}

// MockPublisher is a mock implementation of events.Publisher for testing
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

func (m *MockPublisher) orderEvents() []event.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.OrderEvent
	for _, e := range m.Events {
		if e.Topic != event.OrderLifecycleTopic {
			continue
		}
		var evt event.OrderEvent
		if err := json.Unmarshal(e.Data, &evt); err == nil {
			out = append(out, evt)
		}
	}
	return out
}

// MockSubscriber is a mock implementation of events.Subscriber for testing
type MockSubscriber struct {
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
	Topics        []string
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	m.Topics = append(m.Topics, topic)
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	return nil
}

// MockOrderRepo keeps copies and enforces versions and one active order per
// table the way the database does.
type MockOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]Order
	Saves  int

	CreateFunc func(ctx context.Context, order *Order) error
	SaveFunc   func(ctx context.Context, order *Order) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]Order),
	}
}

func (m *MockOrderRepo) seed(orders ...*Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.orders[o.ID] = *o
	}
}

func (m *MockOrderRepo) stored(id uuid.UUID) *Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil
	}
	return &o
}

func (m *MockOrderRepo) Create(ctx context.Context, order *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.IsActive() {
		for _, o := range m.orders {
			if o.TableID == order.TableID && o.IsActive() {
				return ErrTableBusy
			}
		}
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return m.stored(id), nil
}

func (m *MockOrderRepo) List(ctx context.Context, q Query) ([]*Order, error) {
	m.mu.RLock()
	all := make([]*Order, 0, len(m.orders))
	for _, o := range m.orders {
		copied := o
		all = append(all, &copied)
	}
	m.mu.RUnlock()
	return q.Apply(all), nil
}

func (m *MockOrderRepo) ActiveByTable(ctx context.Context, tableID uuid.UUID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.TableID == tableID && o.IsActive() {
			copied := o
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockOrderRepo) Save(ctx context.Context, order *Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	return m.saveStored(order)
}

func (m *MockOrderRepo) saveStored(order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.orders[order.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != order.Version {
		return ErrConflict
	}
	order.Version++
	m.orders[order.ID] = *order
	m.Saves++
	return nil
}

func (m *MockOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

type tableCall struct {
	Action  string
	TableID uuid.UUID
	OrderID uuid.UUID
}

// MockTableRegister keeps table statuses and records every write.
type MockTableRegister struct {
	mu     sync.Mutex
	tables map[uuid.UUID]TableSnapshot
	Calls  []tableCall

	OccupyFunc func(ctx context.Context, tableID, orderID uuid.UUID) error
	FreeFunc   func(ctx context.Context, tableID, orderID uuid.UUID) error
}

func NewMockTableRegister(tables ...TableSnapshot) *MockTableRegister {
	m := &MockTableRegister{tables: make(map[uuid.UUID]TableSnapshot)}
	for _, t := range tables {
		m.tables[t.ID] = t
	}
	return m
}

func (m *MockTableRegister) Get(ctx context.Context, id uuid.UUID) (*TableSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MockTableRegister) Occupy(ctx context.Context, tableID, orderID uuid.UUID) error {
	if m.OccupyFunc != nil {
		return m.OccupyFunc(ctx, tableID, orderID)
	}
	return m.write("occupy", "occupied", tableID, orderID)
}

func (m *MockTableRegister) Free(ctx context.Context, tableID, orderID uuid.UUID) error {
	if m.FreeFunc != nil {
		return m.FreeFunc(ctx, tableID, orderID)
	}
	return m.write("free", "available", tableID, orderID)
}

func (m *MockTableRegister) write(action, status string, tableID, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tables[tableID]
	t.Status = status
	m.tables[tableID] = t
	m.Calls = append(m.Calls, tableCall{Action: action, TableID: tableID, OrderID: orderID})
	return nil
}

func (m *MockTableRegister) status(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[id].Status
}

func (m *MockTableRegister) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

type MockMenuCatalog struct {
	items      map[uuid.UUID]MenuItemSnapshot
	LookupFunc func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]MenuItemSnapshot, error)
}

func NewMockMenuCatalog(items ...MenuItemSnapshot) *MockMenuCatalog {
	m := &MockMenuCatalog{items: make(map[uuid.UUID]MenuItemSnapshot)}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

func (m *MockMenuCatalog) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]MenuItemSnapshot, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, ids)
	}
	out := make(map[uuid.UUID]MenuItemSnapshot)
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

type MockTableSource struct {
	Tables    []TableState
	ListErr   error
	ListCalls int
}

func (m *MockTableSource) ListTables(ctx context.Context) ([]TableState, error) {
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Tables, nil
}
