// Package seeding builds the demo dataset written by the utils commands.
package seeding

import (
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableflow/pkg/money"
)

// DemoTag marks documents created by seed-demo so clear-demo can find them.
const DemoTag = "demo-seed"

// Table is the part of a table document the seeder reads.
type Table struct {
	ID       string `bson:"_id"`
	Number   int    `bson:"number"`
	Capacity int    `bson:"capacity"`
	Status   string `bson:"status"`
}

// MenuItem is the part of a menu item document the seeder reads.
type MenuItem struct {
	ID          string  `bson:"_id"`
	Name        string  `bson:"name"`
	Description string  `bson:"description"`
	Price       float64 `bson:"price"`
	CategoryID  string  `bson:"category_id,omitempty"`
	IsAvailable bool    `bson:"is_available"`
	Image       string  `bson:"image,omitempty"`
}

type Line struct {
	Item     string
	Quantity int
	Notes    string
}

// Scenario is one demo order, placed Age ago and last touched Touched ago.
type Scenario struct {
	TableNumber int
	Lines       []Line
	Status      orderstatus.Status
	Paid        bool
	Age         time.Duration
	Touched     time.Duration
}

// Active reports whether the scenario leaves its table occupied.
func (s Scenario) Active() bool {
	return !s.Paid && !s.Status.Terminal()
}

var Scenarios = []Scenario{
	{
		TableNumber: 2,
		Lines: []Line{
			{Item: "Bruschetta", Quantity: 2},
			{Item: "Grilled Salmon", Quantity: 1},
			{Item: "Fresh Lemonade", Quantity: 2},
		},
		Status:  orderstatus.Statuses.InPreparation,
		Age:     30 * time.Minute,
		Touched: 10 * time.Minute,
	},
	{
		TableNumber: 3,
		Lines: []Line{
			{Item: "Calamari Fritti", Quantity: 1},
			{Item: "Ribeye Steak", Quantity: 2},
			{Item: "Chocolate Lava Cake", Quantity: 2},
		},
		Status:  orderstatus.Statuses.Served,
		Age:     60 * time.Minute,
		Touched: 5 * time.Minute,
	},
	{
		TableNumber: 6,
		Lines: []Line{
			{Item: "Caprese Salad", Quantity: 3},
			{Item: "Chicken Parmesan", Quantity: 4},
			{Item: "Mushroom Risotto", Quantity: 2},
			{Item: "Tiramisu", Quantity: 4},
		},
		Status:  orderstatus.Statuses.Pending,
		Age:     5 * time.Minute,
		Touched: 5 * time.Minute,
	},
	{
		TableNumber: 10,
		Lines: []Line{
			{Item: "Bruschetta", Quantity: 1},
			{Item: "Mushroom Risotto", Quantity: 2, Notes: "no parmesan"},
			{Item: "Espresso", Quantity: 2},
		},
		Status:  orderstatus.Statuses.InPreparation,
		Age:     20 * time.Minute,
		Touched: 15 * time.Minute,
	},
	{
		TableNumber: 7,
		Lines: []Line{
			{Item: "Ribeye Steak", Quantity: 1},
			{Item: "Cheesecake", Quantity: 1},
			{Item: "Sparkling Water", Quantity: 2},
		},
		Status:  orderstatus.Statuses.Completed,
		Paid:    true,
		Age:     2 * time.Hour,
		Touched: 90 * time.Minute,
	},
}

type OrderItem struct {
	ID         string   `bson:"id"`
	MenuItemID string   `bson:"menu_item_id"`
	MenuItem   MenuItem `bson:"menu_item"`
	Quantity   int      `bson:"quantity"`
	Price      float64  `bson:"price"`
	Notes      string   `bson:"notes,omitempty"`
}

type TableSnapshot struct {
	ID       string `bson:"id"`
	Number   int    `bson:"number"`
	Capacity int    `bson:"capacity"`
	Status   string `bson:"status"`
}

// Order mirrors the order service document with the demo tag added.
type Order struct {
	ID            string        `bson:"_id"`
	TableID       string        `bson:"table_id"`
	ActiveTableID string        `bson:"active_table_id,omitempty"`
	Table         TableSnapshot `bson:"table"`
	Items         []OrderItem   `bson:"items"`
	Status        string        `bson:"status"`
	Subtotal      float64       `bson:"subtotal"`
	Tax           float64       `bson:"tax"`
	Total         float64       `bson:"total"`
	IsPaid        bool          `bson:"is_paid"`
	Version       int64         `bson:"version"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
	PaidAt        *time.Time    `bson:"paid_at,omitempty"`
	CreatedBy     string        `bson:"created_by"`
}

// MissingItemError names a scenario line whose menu item does not exist.
type MissingItemError struct {
	Name string
}

func (e *MissingItemError) Error() string {
	return "menu item not found: " + e.Name
}

// Build prices s against the menu with the same rounding the order service
// uses. Unavailable items are accepted since demo data predates the flag.
func Build(s Scenario, table Table, items map[string]MenuItem, now time.Time) (*Order, error) {
	created := now.Add(-s.Age)
	o := &Order{
		ID:      uuid.NewString(),
		TableID: table.ID,
		Table: TableSnapshot{
			ID:       table.ID,
			Number:   table.Number,
			Capacity: table.Capacity,
			Status:   table.Status,
		},
		Status:    s.Status.Code(),
		IsPaid:    s.Paid,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: now.Add(-s.Touched),
		CreatedBy: DemoTag,
	}

	lines := make([]money.Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		item, ok := items[l.Item]
		if !ok {
			return nil, &MissingItemError{Name: l.Item}
		}
		o.Items = append(o.Items, OrderItem{
			ID:         uuid.NewString(),
			MenuItemID: item.ID,
			MenuItem:   item,
			Quantity:   l.Quantity,
			Price:      item.Price,
			Notes:      l.Notes,
		})
		lines = append(lines, money.Line{Price: item.Price, Quantity: l.Quantity})
	}

	totals := money.Compute(lines)
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total

	if s.Active() {
		o.ActiveTableID = table.ID
	}
	if s.Paid {
		paid := o.UpdatedAt
		o.PaidAt = &paid
	}
	return o, nil
}
