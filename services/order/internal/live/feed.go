package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg"
	"github.com/appetiteclub/tableflow/pkg/event"
	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

// Feed turns domain events into hub changes. Order events come from the
// durable order stream; table and menu events from core NATS.
type Feed struct {
	hub    *Hub
	orders events.Subscriber
	core   events.Subscriber
	logger apt.Logger
}

func NewFeed(hub *Hub, orders, core events.Subscriber, logger apt.Logger) *Feed {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Feed{hub: hub, orders: orders, core: core, logger: logger}
}

func (f *Feed) Start(ctx context.Context) error {
	if f.orders == nil || f.core == nil {
		return fmt.Errorf("live feed subscribers not configured")
	}

	if err := f.orders.Subscribe(ctx, event.OrderLifecycleTopic, f.handleOrderEvent); err != nil {
		return err
	}
	if err := f.core.Subscribe(ctx, pkg.TableStatusTopic, f.handleTableEvent); err != nil {
		return err
	}
	if err := f.core.Subscribe(ctx, event.MenuChangesTopic, f.handleMenuEvent); err != nil {
		return err
	}

	f.logger.Info("live feed started")
	return nil
}

func (f *Feed) handleOrderEvent(ctx context.Context, msg []byte) error {
	var evt event.OrderEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		f.logger.Info("invalid order event", "error", err)
		return nil
	}

	c := Change{Collection: CollectionOrders, Op: OpUpsert, ID: evt.OrderID, Record: evt.Order}
	if evt.EventType == event.EventOrderDeleted {
		c.Op = OpDelete
		c.Record = nil
	}
	f.hub.Publish(c)
	return nil
}

func (f *Feed) handleTableEvent(ctx context.Context, msg []byte) error {
	var evt pkg.TableStatusEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		f.logger.Info("invalid table status event", "error", err)
		return nil
	}

	c := Change{Collection: CollectionTables, Op: OpUpsert, ID: evt.TableID}
	if evt.EventType == pkg.EventTableDeleted {
		c.Op = OpDelete
		f.hub.Publish(c)
		return nil
	}

	var record interface{} = evt.Table
	if evt.Table == nil {
		id, err := uuid.Parse(evt.TableID)
		if err != nil {
			f.logger.Info("invalid table id in event", "table_id", evt.TableID)
			return nil
		}
		record = order.TableState{ID: id, Number: evt.Number, Status: evt.Status}
	}

	raw, err := json.Marshal(record)
	if err != nil {
		f.logger.Info("cannot encode table record", "error", err)
		return nil
	}
	c.Record = raw
	f.hub.Publish(c)
	return nil
}

func (f *Feed) handleMenuEvent(ctx context.Context, msg []byte) error {
	var evt event.MenuEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		f.logger.Info("invalid menu event", "error", err)
		return nil
	}

	c := Change{ID: evt.ID, Op: OpUpsert, Record: evt.Record}
	switch evt.Kind {
	case event.MenuKindItem:
		c.Collection = CollectionMenuItems
	case event.MenuKindCategory:
		c.Collection = CollectionMenuCategories
	default:
		f.logger.Info("unknown menu event kind", "kind", evt.Kind)
		return nil
	}

	if evt.EventType == event.EventMenuItemDeleted || evt.EventType == event.EventMenuCategoryDeleted {
		c.Op = OpDelete
		c.Record = nil
	}
	f.hub.Publish(c)
	return nil
}
