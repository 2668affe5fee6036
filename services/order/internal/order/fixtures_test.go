package order

import (
	"time"

	"github.com/google/uuid"
)

var (
	tableFiveID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440005")
	tableSixID  = uuid.MustParse("550e8400-e29b-41d4-a716-446655440006")
	burgerID    = uuid.MustParse("9f1c2b3a-0000-4000-8000-000000000010")
	friesID     = uuid.MustParse("9f1c2b3a-0000-4000-8000-000000000005")
	lobsterID   = uuid.MustParse("9f1c2b3a-0000-4000-8000-000000000042")
	missingID   = uuid.MustParse("9f1c2b3a-0000-4000-8000-0000000000ff")
	fixedNow    = time.Date(2025, 3, 14, 19, 30, 0, 0, time.UTC)
	tableFive   = TableSnapshot{ID: tableFiveID, Number: 5, Capacity: 4, Status: "available"}
	tableSix    = TableSnapshot{ID: tableSixID, Number: 6, Capacity: 2, Status: "reserved"}
	burgerItem  = MenuItemSnapshot{ID: burgerID, Name: "Burger", Price: 10.00, IsAvailable: true}
	friesItem   = MenuItemSnapshot{ID: friesID, Name: "Fries", Price: 5.00, IsAvailable: true}
	lobsterItem = MenuItemSnapshot{ID: lobsterID, Name: "Lobster Tail", Price: 42.99, IsAvailable: false}
)

type testEnv struct {
	manager *Manager
	repo    *MockOrderRepo
	tables  *MockTableRegister
	menu    *MockMenuCatalog
	pub     *MockPublisher
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:   NewMockOrderRepo(),
		tables: NewMockTableRegister(tableFive, tableSix),
		menu:   NewMockMenuCatalog(burgerItem, friesItem, lobsterItem),
		pub:    NewMockPublisher(),
	}
	env.manager = NewManager(ManagerDeps{
		Repo:      env.repo,
		Tables:    env.tables,
		Menu:      env.menu,
		Publisher: env.pub,
	}, nil)
	env.manager.now = func() time.Time { return fixedNow }
	return env
}

func scenarioRequest() OrderCreateRequest {
	return OrderCreateRequest{
		TableID: tableFiveID,
		Lines: []OrderLineRequest{
			{MenuItemID: burgerID, Quantity: 2},
			{MenuItemID: friesID, Quantity: 1, Notes: "extra salt"},
		},
	}
}

func newStoredOrder(id, tableID uuid.UUID, status string, paid bool, createdAt time.Time) *Order {
	o := &Order{
		ID:        id,
		TableID:   tableID,
		Status:    status,
		IsPaid:    paid,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Items: []OrderItem{
			{ID: uuid.New(), MenuItemID: burgerID, MenuItem: burgerItem, Quantity: 1, Price: 10},
		},
	}
	o.Recalculate()
	return o
}
