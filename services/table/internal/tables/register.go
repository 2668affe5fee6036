package tables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg"
)

const (
	tableEventSource = "table-service"
	forceAttempts    = 3
)

// Register owns table occupancy. Order creation occupies a table, payment
// frees it and staff may override the status at any time.
type Register struct {
	repo      TableRepo
	publisher events.Publisher
	logger    apt.Logger
	now       func() time.Time
}

func NewRegister(repo TableRepo, publisher events.Publisher, logger apt.Logger) *Register {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Register{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *Register) Create(ctx context.Context, req TableCreateRequest) (*Table, error) {
	if msgs := ValidateTableCreate(req); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	existing, err := r.repo.GetByNumber(ctx, req.Number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateNumber
	}

	table := NewTable(req.Number, req.Capacity)
	if req.Status != "" {
		table.SetStatus(req.Status)
	}
	table.BeforeCreate(r.now())

	if err := r.repo.Create(ctx, table); err != nil {
		return nil, err
	}

	r.publish(ctx, table, "", pkg.EventTableCreated, "created", uuid.Nil)
	return table, nil
}

func (r *Register) Get(ctx context.Context, id uuid.UUID) (*Table, error) {
	table, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, ErrNotFound
	}
	return table, nil
}

func (r *Register) List(ctx context.Context, status string) ([]*Table, error) {
	if status != "" {
		return r.repo.ListByStatus(ctx, status)
	}
	return r.repo.List(ctx)
}

func (r *Register) Update(ctx context.Context, id uuid.UUID, req TableUpdateRequest) (*Table, error) {
	if msgs := ValidateTableUpdate(id, req); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	table, err := r.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}

	if req.Number > 0 && req.Number != table.Number {
		other, err := r.repo.GetByNumber(ctx, req.Number)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != table.ID {
			return nil, ErrDuplicateNumber
		}
		table.Number = req.Number
	}
	if req.Capacity > 0 {
		table.Capacity = req.Capacity
	}

	if err := r.save(ctx, table); err != nil {
		return nil, err
	}

	r.publish(ctx, table, table.Status, pkg.EventTableUpdated, "updated", uuid.Nil)
	return table, nil
}

// SetStatus is the staff override. It accepts any known status and does not
// look at orders.
func (r *Register) SetStatus(ctx context.Context, id uuid.UUID, req TableStatusRequest) (*Table, error) {
	if msgs := ValidateTableStatus(req); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}

	table, err := r.load(ctx, id, req.Version)
	if err != nil {
		return nil, err
	}

	previous := table.Status
	table.SetStatus(req.Status)

	if err := r.save(ctx, table); err != nil {
		return nil, err
	}

	r.publish(ctx, table, previous, pkg.EventTableStatusChanged, "override", uuid.Nil)
	return table, nil
}

// Occupy marks the table occupied by orderID regardless of its prior status.
func (r *Register) Occupy(ctx context.Context, id, orderID uuid.UUID) (*Table, error) {
	table, previous, err := r.force(ctx, id, func(t *Table) { t.Occupy(orderID) })
	if err != nil {
		return nil, err
	}

	r.publish(ctx, table, previous, pkg.EventTableStatusChanged, "order.created", orderID)
	return table, nil
}

// Free makes the table available unconditionally.
func (r *Register) Free(ctx context.Context, id, orderID uuid.UUID) (*Table, error) {
	table, previous, err := r.force(ctx, id, func(t *Table) { t.Free() })
	if err != nil {
		return nil, err
	}

	r.publish(ctx, table, previous, pkg.EventTableStatusChanged, "order.paid", orderID)
	return table, nil
}

// force applies an unconditional status write. A concurrent write between
// read and save is resolved by reading again, up to forceAttempts times.
func (r *Register) force(ctx context.Context, id uuid.UUID, apply func(*Table)) (*Table, string, error) {
	var lastErr error
	for attempt := 0; attempt < forceAttempts; attempt++ {
		table, err := r.load(ctx, id, nil)
		if err != nil {
			return nil, "", err
		}

		previous := table.Status
		apply(table)

		err = r.save(ctx, table)
		if err == nil {
			return table, previous, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, "", err
		}
		lastErr = err
		r.logger.Info("table changed during write, retrying", "table", table.Number, "attempt", attempt+1)
	}
	return nil, "", lastErr
}

// Delete removes a table. Tables still referenced by an order are kept
// unless force is set.
func (r *Register) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	table, err := r.load(ctx, id, nil)
	if err != nil {
		return err
	}

	if table.HasActiveOrder() && !force {
		return ErrTableInUse
	}

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.publish(ctx, table, table.Status, pkg.EventTableDeleted, "deleted", uuid.Nil)
	return nil
}

func (r *Register) load(ctx context.Context, id uuid.UUID, version *int64) (*Table, error) {
	table, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if version != nil && *version != table.Version {
		return nil, ErrConflict
	}
	return table, nil
}

func (r *Register) save(ctx context.Context, table *Table) error {
	table.BeforeUpdate(r.now())
	if err := r.repo.Save(ctx, table); err != nil {
		return fmt.Errorf("cannot save table %d: %w", table.Number, err)
	}
	return nil
}

func (r *Register) publish(ctx context.Context, table *Table, previousStatus, eventType, reason string, orderID uuid.UUID) {
	if r.publisher == nil || table == nil {
		return
	}

	event := pkg.TableStatusEvent{
		EventType:      eventType,
		TableID:        table.ID.String(),
		Number:         table.Number,
		Status:         table.Status,
		PreviousStatus: previousStatus,
		Reason:         reason,
		Source:         tableEventSource,
		Version:        table.Version,
		Table:          table,
		OccurredAt:     r.now().UTC(),
	}
	if orderID != uuid.Nil {
		event.OrderID = orderID.String()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("cannot marshal table event", "error", err, "table_id", table.ID.String())
		return
	}

	if err := r.publisher.Publish(ctx, pkg.TableStatusTopic, payload); err != nil {
		r.logger.Error("cannot publish table event", "error", err, "table_id", table.ID.String())
	}
}
