// Package billing exposes the payment queue, the pay operation and the
// printable invoice projection over the order lifecycle.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableflow/pkg/money"
	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

const DefaultPaymentDelay = 1500 * time.Millisecond

var ErrNotBillable = errors.New("order is not ready for billing")

// Orders is the part of the order manager billing relies on.
type Orders interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Find(ctx context.Context, q order.Query) ([]*order.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, req order.StatusRequest) (*order.Order, error)
	Now() time.Time
}

type Options struct {
	// Delay simulates payment processing before the order is marked paid.
	Delay   time.Duration
	Profile Profile
	NodeID  int64
}

type Resolver struct {
	orders  Orders
	delay   time.Duration
	profile Profile
	node    *snowflake.Node
	logger  apt.Logger
}

func NewResolver(orders Orders, opts Options, logger apt.Logger) (*Resolver, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if opts.Profile == (Profile{}) {
		opts.Profile = DefaultProfile()
	}

	node, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		return nil, fmt.Errorf("cannot create invoice number generator: %w", err)
	}

	return &Resolver{
		orders:  orders,
		delay:   opts.Delay,
		profile: opts.Profile,
		node:    node,
		logger:  logger,
	}, nil
}

// Queue splits billable orders into those awaiting payment and those
// already collected.
type Queue struct {
	Pending      []*order.Order `json:"pending"`
	Collected    []*order.Order `json:"collected"`
	UnpaidAmount float64        `json:"unpaid_amount"`
	PaidAmount   float64        `json:"paid_amount"`
}

func (r *Resolver) Queue(ctx context.Context) (*Queue, error) {
	orders, err := r.orders.Find(ctx, order.Query{Statuses: billableStatuses()})
	if err != nil {
		return nil, fmt.Errorf("cannot load billable orders: %w", err)
	}

	q := &Queue{
		Pending:   make([]*order.Order, 0),
		Collected: make([]*order.Order, 0),
	}
	var unpaid, paid []float64
	for _, o := range orders {
		if !o.IsBillable() {
			continue
		}
		if o.IsPaid {
			q.Collected = append(q.Collected, o)
			paid = append(paid, o.Total)
			continue
		}
		q.Pending = append(q.Pending, o)
		unpaid = append(unpaid, o.Total)
	}
	q.UnpaidAmount = money.Sum(unpaid...)
	q.PaidAmount = money.Sum(paid...)
	return q, nil
}

// Pay marks a billable order paid after the processing delay. A cancelled
// context aborts the payment before anything is written.
func (r *Resolver) Pay(ctx context.Context, id uuid.UUID, req order.StatusRequest) (*order.Order, error) {
	o, err := r.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsBillable() {
		return nil, fmt.Errorf("%w: order is %s", ErrNotBillable, o.Status)
	}
	if o.IsPaid && !o.TableFreePending {
		return o, nil
	}

	if !o.IsPaid {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
	}

	paid, err := r.orders.MarkPaid(ctx, id, req)
	if err != nil {
		return paid, err
	}

	r.logger.Info("payment collected", "order_id", id.String(), "total", paid.Total)
	return paid, nil
}

func (r *Resolver) wait(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func billableStatuses() []string {
	var out []string
	for _, s := range orderstatus.All {
		if s.Billable() {
			out = append(out, s.Code())
		}
	}
	return out
}
