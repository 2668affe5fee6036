// Package views builds the dashboard and analytics read models from orders
// and the cached table states.
package views

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableflow/pkg/enums/tablestatus"
	"github.com/appetiteclub/tableflow/pkg/money"
	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

const (
	RecentOrdersCount = 5
	TopCount          = 5
	DefaultDays       = 7
	MaxDays           = 90
)

type Orders interface {
	Find(ctx context.Context, q order.Query) ([]*order.Order, error)
	Now() time.Time
}

type Tables interface {
	Tables(ctx context.Context) ([]order.TableState, error)
}

type Aggregator struct {
	orders Orders
	tables Tables
}

func NewAggregator(orders Orders, tables Tables) *Aggregator {
	return &Aggregator{orders: orders, tables: tables}
}

type Dashboard struct {
	ActiveTables      int            `json:"active_tables"`
	TotalTables       int            `json:"total_tables"`
	ActiveOrders      int            `json:"active_orders"`
	DailyRevenue      float64        `json:"daily_revenue"`
	OrdersByStatus    map[string]int `json:"orders_by_status"`
	AverageOrderValue float64        `json:"average_order_value"`
	RecentOrders      []RecentOrder  `json:"recent_orders"`
}

type RecentOrder struct {
	ID          uuid.UUID `json:"id"`
	TableNumber int       `json:"table_number"`
	Status      string    `json:"status"`
	StatusLabel string    `json:"status_label"`
	ItemCount   int       `json:"item_count"`
	Total       float64   `json:"total"`
	CreatedAt   time.Time `json:"created_at"`
	Age         string    `json:"age"`
	Elapsed     string    `json:"elapsed"`
}

func (a *Aggregator) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := a.orders.Now()

	var (
		today  []*order.Order
		active []*order.Order
		tables []order.TableState
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		today, err = a.orders.Find(gctx, order.ViewToday.Query(now))
		if err != nil {
			return fmt.Errorf("cannot load today's orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		active, err = a.orders.Find(gctx, order.Query{Statuses: activeStatuses()})
		if err != nil {
			return fmt.Errorf("cannot load active orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tables, err = a.tables.Tables(gctx)
		if err != nil {
			return fmt.Errorf("cannot load tables: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalTables:    len(tables),
		ActiveOrders:   len(active),
		OrdersByStatus: make(map[string]int, len(orderstatus.All)),
		RecentOrders:   make([]RecentOrder, 0, RecentOrdersCount),
	}
	for _, t := range tables {
		if t.Status == tablestatus.Statuses.Occupied.Code() {
			d.ActiveTables++
		}
	}
	for _, s := range orderstatus.All {
		d.OrdersByStatus[s.Code()] = 0
	}

	var revenue []float64
	for _, o := range today {
		d.OrdersByStatus[o.Status]++
		if o.IsPaid {
			revenue = append(revenue, o.Total)
		}
	}
	d.DailyRevenue = money.Sum(revenue...)
	d.AverageOrderValue = money.Divide(d.DailyRevenue, max(d.OrdersByStatus[orderstatus.Statuses.Completed.Code()], 1))

	for i, o := range today {
		if i == RecentOrdersCount {
			break
		}
		d.RecentOrders = append(d.RecentOrders, RecentOrder{
			ID:          o.ID,
			TableNumber: o.Table.Number,
			Status:      o.Status,
			StatusLabel: statusLabel(o.Status),
			ItemCount:   o.ItemCount(),
			Total:       o.Total,
			CreatedAt:   o.CreatedAt,
			Age:         RelativeTime(now, o.CreatedAt),
			Elapsed:     Elapsed(now, o.CreatedAt),
		})
	}

	return d, nil
}

type ItemSales struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	Revenue    float64   `json:"revenue"`
}

type TableActivity struct {
	TableID uuid.UUID `json:"table_id"`
	Number  int       `json:"number"`
	Orders  int       `json:"orders"`
	Revenue float64   `json:"revenue"`
}

type HourBucket struct {
	Hour    int     `json:"hour"`
	Label   string  `json:"label"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type Analytics struct {
	Since        time.Time       `json:"since"`
	TotalOrders  int             `json:"total_orders"`
	TopItems     []ItemSales     `json:"top_items"`
	BusiestTable []TableActivity `json:"busiest_tables"`
	Hourly       []HourBucket    `json:"hourly"`
	PeakHour     *HourBucket     `json:"peak_hour,omitempty"`
}

// Analytics summarizes orders created in the last days days, counting
// today as the first.
func (a *Aggregator) Analytics(ctx context.Context, days int) (*Analytics, error) {
	if days < 1 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	now := a.orders.Now()
	since := order.StartOfDay(now).AddDate(0, 0, -(days - 1))

	orders, err := a.orders.Find(ctx, order.Query{CreatedSince: since, Ascending: true})
	if err != nil {
		return nil, fmt.Errorf("cannot load orders: %w", err)
	}

	result := &Analytics{
		Since:       since,
		TotalOrders: len(orders),
	}
	result.TopItems = topItems(orders)
	result.BusiestTable = busiestTables(orders)
	result.Hourly = hourly(orders)

	for i := range result.Hourly {
		if result.PeakHour == nil || result.Hourly[i].Orders > result.PeakHour.Orders {
			result.PeakHour = &result.Hourly[i]
		}
	}
	return result, nil
}

func topItems(orders []*order.Order) []ItemSales {
	byItem := make(map[uuid.UUID]*ItemSales)
	var keys []uuid.UUID
	for _, o := range orders {
		for _, item := range o.Items {
			s, ok := byItem[item.MenuItemID]
			if !ok {
				s = &ItemSales{MenuItemID: item.MenuItemID, Name: item.MenuItem.Name}
				byItem[item.MenuItemID] = s
				keys = append(keys, item.MenuItemID)
			}
			s.Quantity += item.Quantity
			s.Revenue = money.Sum(s.Revenue, money.LineTotal(item.Price, item.Quantity))
		}
	}

	out := make([]ItemSales, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byItem[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	if len(out) > TopCount {
		out = out[:TopCount]
	}
	return out
}

func busiestTables(orders []*order.Order) []TableActivity {
	byTable := make(map[uuid.UUID]*TableActivity)
	var keys []uuid.UUID
	for _, o := range orders {
		t, ok := byTable[o.TableID]
		if !ok {
			t = &TableActivity{TableID: o.TableID, Number: o.Table.Number}
			byTable[o.TableID] = t
			keys = append(keys, o.TableID)
		}
		t.Orders++
		t.Revenue = money.Sum(t.Revenue, o.Total)
	}

	out := make([]TableActivity, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byTable[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Orders > out[j].Orders })
	if len(out) > TopCount {
		out = out[:TopCount]
	}
	return out
}

func hourly(orders []*order.Order) []HourBucket {
	var buckets [24]HourBucket
	for _, o := range orders {
		h := o.CreatedAt.Hour()
		buckets[h].Orders++
		buckets[h].Revenue = money.Sum(buckets[h].Revenue, o.Total)
	}

	out := make([]HourBucket, 0)
	for h, b := range buckets {
		if b.Orders == 0 {
			continue
		}
		b.Hour = h
		b.Label = time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3 PM")
		out = append(out, b)
	}
	return out
}

func activeStatuses() []string {
	var out []string
	for _, s := range orderstatus.All {
		if !s.Terminal() {
			out = append(out, s.Code())
		}
	}
	return out
}

func statusLabel(code string) string {
	if s := orderstatus.ByName(code); s != nil {
		return s.Label()
	}
	return code
}
