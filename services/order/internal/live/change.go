// Package live pushes snapshots and subsequent changes of orders, tables and
// the menu to connected clients over websocket, SSE and gRPC.
package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

const (
	CollectionOrders         = "orders"
	CollectionTables         = "tables"
	CollectionMenuItems      = "menu_items"
	CollectionMenuCategories = "menu_categories"

	OpUpsert = "upsert"
	OpDelete = "delete"

	MessageSnapshot = "snapshot"
	MessageChange   = "change"
)

var Collections = []string{CollectionOrders, CollectionTables, CollectionMenuItems, CollectionMenuCategories}

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownView       = errors.New("unknown view")
)

// Filter selects what a client receives. View only applies to orders.
type Filter struct {
	Collection string `json:"collection"`
	View       string `json:"view,omitempty"`
}

// Normalize validates f and fills the default order view.
func (f Filter) Normalize() (Filter, error) {
	known := false
	for _, c := range Collections {
		if f.Collection == c {
			known = true
			break
		}
	}
	if !known {
		return f, fmt.Errorf("%w: %q", ErrUnknownCollection, f.Collection)
	}

	if f.Collection != CollectionOrders {
		if f.View != "" {
			return f, fmt.Errorf("%w: %s has no views", ErrUnknownView, f.Collection)
		}
		return f, nil
	}

	v, ok := order.ParseView(f.View)
	if !ok {
		return f, fmt.Errorf("%w: %q", ErrUnknownView, f.View)
	}
	f.View = string(v)
	return f, nil
}

// Limit is the record cap of the filter's view, zero when uncapped.
func (f Filter) Limit() int {
	if f.Collection != CollectionOrders {
		return 0
	}
	return order.View(f.View).Query(time.Time{}).Limit
}

// Change is one write to a collection. Record holds the full document and
// is empty for deletions.
type Change struct {
	Collection string          `json:"collection"`
	Op         string          `json:"op"`
	ID         string          `json:"id"`
	Record     json.RawMessage `json:"record,omitempty"`
}

// Message is what transports deliver: one snapshot, then changes.
//
// Limit is set on capped views such as recent orders. Changes are not
// trimmed to the cap: a client keeps at most Limit records, newest first,
// and drops the oldest when an upsert pushes it over.
type Message struct {
	Type       string            `json:"type"`
	Collection string            `json:"collection"`
	View       string            `json:"view,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Records    []json.RawMessage `json:"records"`
	Change     *Change           `json:"change,omitempty"`
}
