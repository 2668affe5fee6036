package views

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

var (
	fixedNow    = time.Date(2025, 3, 14, 19, 30, 0, 0, time.UTC)
	tableFiveID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440005")
	tableSixID  = uuid.MustParse("550e8400-e29b-41d4-a716-446655440006")
	burgerID    = uuid.MustParse("9f1c2b3a-0000-4000-8000-000000000010")
	friesID     = uuid.MustParse("9f1c2b3a-0000-4000-8000-000000000005")
)

type MockOrders struct {
	Orders  []*order.Order
	FindErr error
}

func (m *MockOrders) Find(ctx context.Context, q order.Query) ([]*order.Order, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return q.Apply(m.Orders), nil
}

func (m *MockOrders) Now() time.Time {
	return fixedNow
}

type MockTables struct {
	States []order.TableState
}

func (m *MockTables) Tables(ctx context.Context) ([]order.TableState, error) {
	return m.States, nil
}

func newOrder(tableID uuid.UUID, number int, status string, paid bool, createdAt time.Time, lines ...order.OrderItem) *order.Order {
	o := &order.Order{
		ID:        uuid.New(),
		TableID:   tableID,
		Table:     order.TableSnapshot{ID: tableID, Number: number},
		Status:    status,
		IsPaid:    paid,
		CreatedAt: createdAt,
		Items:     lines,
	}
	o.Recalculate()
	return o
}

func burgers(n int) order.OrderItem {
	return order.OrderItem{MenuItemID: burgerID, MenuItem: order.MenuItemSnapshot{Name: "Burger"}, Quantity: n, Price: 10}
}

func fries(n int) order.OrderItem {
	return order.OrderItem{MenuItemID: friesID, MenuItem: order.MenuItemSnapshot{Name: "Fries"}, Quantity: n, Price: 5}
}

func testOrders() *MockOrders {
	return &MockOrders{Orders: []*order.Order{
		newOrder(tableFiveID, 5, "completed", true, fixedNow.Add(-3*time.Hour), burgers(2), fries(1)),
		newOrder(tableFiveID, 5, "completed", true, fixedNow.Add(-2*time.Hour), burgers(1)),
		newOrder(tableSixID, 6, "served", false, fixedNow.Add(-30*time.Minute), fries(4)),
		newOrder(tableFiveID, 5, "pending", false, fixedNow.Add(-20*time.Second), burgers(1)),
		newOrder(tableSixID, 6, "in-preparation", false, fixedNow.Add(-26*time.Hour), fries(1)),
	}}
}

func testTables() *MockTables {
	return &MockTables{States: []order.TableState{
		{ID: tableFiveID, Number: 5, Status: "occupied"},
		{ID: tableSixID, Number: 6, Status: "occupied"},
		{ID: uuid.New(), Number: 7, Status: "available"},
	}}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		name        string
		ago         time.Duration
		wantRel     string
		wantElapsed string
	}{
		{name: "justNow", ago: 30 * time.Second, wantRel: "Just now", wantElapsed: "Just now"},
		{name: "minutes", ago: 12 * time.Minute, wantRel: "12m ago", wantElapsed: "12m ago"},
		{name: "hours", ago: 2*time.Hour + 5*time.Minute, wantRel: "2h ago", wantElapsed: "2h 5m ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTime(fixedNow, fixedNow.Add(-tt.ago)); got != tt.wantRel {
				t.Errorf("RelativeTime() = %q, want %q", got, tt.wantRel)
			}
			if got := Elapsed(fixedNow, fixedNow.Add(-tt.ago)); got != tt.wantElapsed {
				t.Errorf("Elapsed() = %q, want %q", got, tt.wantElapsed)
			}
		})
	}
}

func TestAggregatorDashboard(t *testing.T) {
	a := NewAggregator(testOrders(), testTables())

	d, err := a.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if d.ActiveTables != 2 || d.TotalTables != 3 {
		t.Errorf("tables = %d/%d, want 2/3", d.ActiveTables, d.TotalTables)
	}
	if d.ActiveOrders != 3 {
		t.Errorf("ActiveOrders = %d, want 3", d.ActiveOrders)
	}
	// 27.00 + 10.80
	if d.DailyRevenue != 37.80 {
		t.Errorf("DailyRevenue = %.2f, want 37.80", d.DailyRevenue)
	}
	if d.AverageOrderValue != 18.90 {
		t.Errorf("AverageOrderValue = %.2f, want 18.90", d.AverageOrderValue)
	}
	if d.OrdersByStatus["completed"] != 2 || d.OrdersByStatus["cancelled"] != 0 || d.OrdersByStatus["in-preparation"] != 0 {
		t.Errorf("OrdersByStatus = %v", d.OrdersByStatus)
	}
	if len(d.RecentOrders) != 4 {
		t.Fatalf("RecentOrders = %d, want 4", len(d.RecentOrders))
	}
	if d.RecentOrders[0].Age != "Just now" || d.RecentOrders[1].Age != "30m ago" {
		t.Errorf("ages = %q, %q", d.RecentOrders[0].Age, d.RecentOrders[1].Age)
	}
	if d.RecentOrders[0].StatusLabel != "Pending" || d.RecentOrders[1].StatusLabel != "Served" {
		t.Errorf("labels = %q, %q", d.RecentOrders[0].StatusLabel, d.RecentOrders[1].StatusLabel)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{code: "in-preparation", want: "In Preparation"},
		{code: "completed", want: "Completed"},
		{code: "unknown", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := statusLabel(tt.code); got != tt.want {
				t.Errorf("statusLabel(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestAggregatorDashboardAverageWithoutCompleted(t *testing.T) {
	a := NewAggregator(&MockOrders{}, &MockTables{})

	d, err := a.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.AverageOrderValue != 0 || d.DailyRevenue != 0 {
		t.Errorf("empty dashboard = %+v", d)
	}
}

func TestAggregatorDashboardError(t *testing.T) {
	a := NewAggregator(&MockOrders{FindErr: errors.New("db down")}, testTables())

	if _, err := a.Dashboard(context.Background()); err == nil {
		t.Error("Dashboard() should fail when orders cannot be read")
	}
}

func TestAggregatorAnalytics(t *testing.T) {
	a := NewAggregator(testOrders(), testTables())

	got, err := a.Analytics(context.Background(), 2)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}

	if got.TotalOrders != 5 {
		t.Errorf("TotalOrders = %d, want 5", got.TotalOrders)
	}
	if len(got.TopItems) != 2 || got.TopItems[0].Name != "Fries" || got.TopItems[0].Quantity != 6 {
		t.Errorf("TopItems = %+v", got.TopItems)
	}
	if got.TopItems[1].Revenue != 40.00 {
		t.Errorf("burger revenue = %.2f, want 40.00", got.TopItems[1].Revenue)
	}
	if len(got.BusiestTable) != 2 || got.BusiestTable[0].Number != 5 || got.BusiestTable[0].Orders != 3 {
		t.Errorf("BusiestTable = %+v", got.BusiestTable)
	}
	if got.PeakHour == nil {
		t.Fatal("PeakHour is nil")
	}
	if got.PeakHour.Orders != 2 || got.PeakHour.Label != "5 PM" {
		t.Errorf("PeakHour = %+v", got.PeakHour)
	}

	today, _ := a.Analytics(context.Background(), 1)
	if today.TotalOrders != 4 {
		t.Errorf("today TotalOrders = %d, want 4", today.TotalOrders)
	}
}

func TestHandlerRoutes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "dashboard", path: "/dashboard", wantStatus: http.StatusOK},
		{name: "analytics", path: "/analytics", wantStatus: http.StatusOK},
		{name: "analyticsDays", path: "/analytics?days=30", wantStatus: http.StatusOK},
		{name: "analyticsBadDays", path: "/analytics?days=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			NewHandler(NewAggregator(testOrders(), testTables()), nil, nil).RegisterRoutes(router)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d, body: %s", tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
