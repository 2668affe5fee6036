package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg"
	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableflow/pkg/event"
)

// Manager applies order lifecycle transitions and keeps the table register
// in step: creation occupies the table and payment frees it.
type Manager struct {
	repo      OrderRepo
	tables    TableRegister
	menu      MenuCatalog
	publisher events.Publisher
	logger    apt.Logger
	now       func() time.Time
}

type ManagerDeps struct {
	Repo      OrderRepo
	Tables    TableRegister
	Menu      MenuCatalog
	Publisher events.Publisher
}

func NewManager(deps ManagerDeps, logger apt.Logger) *Manager {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Manager{
		repo:      deps.Repo,
		tables:    deps.Tables,
		menu:      deps.Menu,
		publisher: deps.Publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Now is the clock shared with read-side projections.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Create snapshots the table and menu items, prices the cart and persists
// the order as pending before occupying the table.
func (m *Manager) Create(ctx context.Context, req OrderCreateRequest) (*Order, error) {
	if msgs := ValidateOrderCreate(req); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	table, err := m.tables.Get(ctx, req.TableID)
	if err != nil {
		return nil, fmt.Errorf("cannot load table: %w", err)
	}
	if table == nil {
		return nil, &ValidationError{Messages: []string{"table_id does not exist"}}
	}

	active, err := m.repo.ActiveByTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		m.publishRejection(ctx, req.TableID, active.ID, "table already has an active order")
		return nil, ErrTableBusy
	}

	items, err := m.resolveItems(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	o := &Order{
		TableID: req.TableID,
		Table:   *table,
		Items:   items,
		Status:  orderstatus.Statuses.Pending.Code(),
	}
	o.Recalculate()
	o.BeforeCreate(m.now())

	if err := m.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	m.publish(ctx, event.EventOrderCreated, o, "")

	if err := m.tables.Occupy(ctx, o.TableID, o.ID); err != nil {
		m.logger.Error("cannot occupy table", "error", err, "order_id", o.ID.String(), "table_id", o.TableID.String())
		return o, fmt.Errorf("%w: %v", ErrTableSync, err)
	}

	return o, nil
}

func (m *Manager) resolveItems(ctx context.Context, lines []OrderLineRequest) ([]OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}

	snapshots, err := m.menu.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("cannot load menu items: %w", err)
	}

	var problems []string
	items := make([]OrderItem, 0, len(lines))
	for i, l := range lines {
		snap, ok := snapshots[l.MenuItemID]
		if !ok {
			problems = append(problems, fmt.Sprintf("lines[%d].menu_item_id does not exist", i))
			continue
		}
		if !snap.IsAvailable {
			problems = append(problems, fmt.Sprintf("lines[%d]: %s is not available", i, snap.Name))
			continue
		}
		items = append(items, OrderItem{
			ID:         apt.GenerateNewID(),
			MenuItemID: l.MenuItemID,
			MenuItem:   snap,
			Quantity:   l.Quantity,
			Price:      snap.Price,
			Notes:      l.Notes,
		})
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Messages: problems}
	}
	return items, nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *Manager) List(ctx context.Context, view View) ([]*Order, error) {
	return m.Find(ctx, view.Query(m.now()))
}

func (m *Manager) Find(ctx context.Context, q Query) ([]*Order, error) {
	return m.repo.List(ctx, q)
}

// Advance moves the order one step along the advance path. Terminal orders
// are returned unchanged.
func (m *Manager) Advance(ctx context.Context, id uuid.UUID, req StatusRequest) (*Order, error) {
	o, err := m.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}

	next, ok := NextStatus(o.Status)
	if !ok {
		return o, nil
	}

	previous := o.Status
	o.Status = next
	if err := m.save(ctx, o); err != nil {
		return nil, err
	}

	m.publish(ctx, event.EventOrderStatusChanged, o, previous)
	return o, nil
}

// Cancel is allowed from any non-terminal status and leaves the table as is.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID, req StatusRequest) (*Order, error) {
	o, err := m.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}

	if !CanCancel(o.Status) {
		return nil, fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, o.Status)
	}

	previous := o.Status
	o.Status = orderstatus.Statuses.Cancelled.Code()
	if err := m.save(ctx, o); err != nil {
		return nil, err
	}

	m.publish(ctx, event.EventOrderStatusChanged, o, previous)
	return o, nil
}

// MarkPaid completes the order and frees its table with a single table
// write. Paying an already paid order changes nothing unless its table
// could not be freed the first time, in which case the free is retried.
func (m *Manager) MarkPaid(ctx context.Context, id uuid.UUID, req StatusRequest) (*Order, error) {
	o, err := m.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}

	if !CanPay(o.Status) {
		return nil, fmt.Errorf("%w: cannot pay a %s order", ErrInvalidTransition, o.Status)
	}
	if o.IsPaid {
		if !o.TableFreePending {
			return o, nil
		}
		return m.retryFree(ctx, o)
	}

	previous := o.Status
	paidAt := m.now()
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.Status = orderstatus.Statuses.Completed.Code()
	if err := m.save(ctx, o); err != nil {
		return nil, err
	}

	m.publish(ctx, event.EventOrderPaid, o, previous)

	if err := m.freeTable(ctx, o); err != nil {
		o.TableFreePending = true
		if serr := m.save(ctx, o); serr != nil {
			m.logger.Error("cannot record pending table free", "error", serr, "order_id", o.ID.String())
		}
		return o, err
	}

	return o, nil
}

// retryFree finishes a payment whose table write failed. A table already
// taken by a newer order is left alone.
func (m *Manager) retryFree(ctx context.Context, o *Order) (*Order, error) {
	active, err := m.repo.ActiveByTable(ctx, o.TableID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		if err := m.freeTable(ctx, o); err != nil {
			return o, err
		}
	}

	o.TableFreePending = false
	if err := m.save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (m *Manager) freeTable(ctx context.Context, o *Order) error {
	if err := m.tables.Free(ctx, o.TableID, o.ID); err != nil {
		m.logger.Error("cannot free table", "error", err, "order_id", o.ID.String(), "table_id", o.TableID.String())
		return fmt.Errorf("%w: %v", ErrTableSync, err)
	}
	return nil
}

// Delete removes a completed order. Tables are not touched.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	if !CanDelete(o.Status) {
		return ErrNotDeletable
	}

	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}

	m.publish(ctx, event.EventOrderDeleted, o, o.Status)
	return nil
}

func (m *Manager) load(ctx context.Context, id uuid.UUID, version *int64) (*Order, error) {
	o, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if version != nil && *version != o.Version {
		return nil, ErrConflict
	}
	return o, nil
}

func (m *Manager) save(ctx context.Context, o *Order) error {
	o.BeforeUpdate(m.now())
	if err := m.repo.Save(ctx, o); err != nil {
		return fmt.Errorf("cannot save order %s: %w", o.ID, err)
	}
	return nil
}

func (m *Manager) publish(ctx context.Context, eventType string, o *Order, previousStatus string) {
	if m.publisher == nil || o == nil {
		return
	}

	evt := event.OrderEvent{
		EventType:      eventType,
		OccurredAt:     m.now().UTC(),
		OrderID:        o.ID.String(),
		TableID:        o.TableID.String(),
		Status:         o.Status,
		PreviousStatus: previousStatus,
		IsPaid:         o.IsPaid,
	}
	if eventType != event.EventOrderDeleted {
		raw, err := json.Marshal(o)
		if err != nil {
			m.logger.Error("cannot marshal order", "error", err, "order_id", o.ID.String())
			return
		}
		evt.Order = raw
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		m.logger.Error("cannot marshal order event", "error", err, "order_id", o.ID.String())
		return
	}

	if err := m.publisher.Publish(ctx, event.OrderLifecycleTopic, payload); err != nil {
		m.logger.Error("cannot publish order event", "error", err, "order_id", o.ID.String())
	}
}

func (m *Manager) publishRejection(ctx context.Context, tableID, activeOrderID uuid.UUID, reason string) {
	if m.publisher == nil {
		return
	}

	payload, err := json.Marshal(pkg.OrderTableRejectionEvent{
		EventType:  pkg.EventOrderTableRejected,
		TableID:    tableID.String(),
		OrderID:    activeOrderID.String(),
		Action:     "create",
		Reason:     reason,
		OccurredAt: m.now().UTC(),
	})
	if err != nil {
		return
	}

	if err := m.publisher.Publish(ctx, pkg.OrderTableTopic, payload); err != nil {
		m.logger.Debug("cannot publish table rejection", "error", err)
	}
}
