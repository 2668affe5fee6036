package order

import (
	"sort"
	"time"

	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
)

// View names one of the live order listings.
type View string

const (
	ViewRecent  View = "recent"
	ViewKitchen View = "kitchen"
	ViewBilling View = "billing"
	ViewToday   View = "today"

	RecentLimit = 50
)

var Views = []View{ViewRecent, ViewKitchen, ViewBilling, ViewToday}

func ParseView(s string) (View, bool) {
	if s == "" {
		return ViewRecent, true
	}
	for _, v := range Views {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// Query is a store-level order filter. Empty fields do not restrict.
type Query struct {
	Statuses     []string
	CreatedSince time.Time
	Ascending    bool
	Limit        int
}

// Query translates the view into a store filter evaluated at now.
func (v View) Query(now time.Time) Query {
	switch v {
	case ViewKitchen:
		return Query{
			Statuses:  []string{orderstatus.Statuses.Pending.Code(), orderstatus.Statuses.InPreparation.Code()},
			Ascending: true,
		}
	case ViewBilling:
		return Query{Statuses: []string{orderstatus.Statuses.Served.Code()}}
	case ViewToday:
		return Query{CreatedSince: StartOfDay(now)}
	default:
		return Query{Limit: RecentLimit}
	}
}

// Matches reports whether o passes the status and creation filters. Limit
// is applied by Apply.
func (q Query) Matches(o *Order) bool {
	if o == nil {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !q.CreatedSince.IsZero() && o.CreatedAt.Before(q.CreatedSince) {
		return false
	}
	return true
}

// Apply filters, sorts by creation time and caps orders the same way the
// store does.
func (q Query) Apply(orders []*Order) []*Order {
	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if q.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
