package order

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// TableState is the cached view of a table kept by the order service.
type TableState struct {
	ID             uuid.UUID  `json:"id"`
	Number         int        `json:"number"`
	Capacity       int        `json:"capacity"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id,omitempty"`
}

// TableSource reads tables from the table service.
type TableSource interface {
	ListTables(ctx context.Context) ([]TableState, error)
}

// TableStateCache mirrors table occupancy from the tables.status topic so
// read-side projections do not call the table service on every request.
type TableStateCache struct {
	mu     sync.RWMutex
	state  map[uuid.UUID]TableState
	warm   bool
	source TableSource
	logger apt.Logger
}

func NewTableStateCache(source TableSource, logger apt.Logger) *TableStateCache {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &TableStateCache{
		state:  make(map[uuid.UUID]TableState),
		source: source,
		logger: logger,
	}
}

func (c *TableStateCache) Warm(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	tables, err := c.source.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = make(map[uuid.UUID]TableState, len(tables))
	for _, t := range tables {
		if t.ID == uuid.Nil {
			c.logger.Debug("skipping table without id", "number", t.Number)
			continue
		}
		c.state[t.ID] = t
	}
	c.warm = true
	return nil
}

// Put replaces the cached record, keeping known fields the update lacks.
func (c *TableStateCache) Put(t TableState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.state[t.ID]; ok {
		if t.Number == 0 {
			t.Number = prev.Number
		}
		if t.Capacity == 0 {
			t.Capacity = prev.Capacity
		}
	}
	c.state[t.ID] = t
}

func (c *TableStateCache) Delete(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.state, id)
}

// Snapshot returns all cached tables ordered by number.
func (c *TableStateCache) Snapshot() []TableState {
	c.mu.RLock()
	out := make([]TableState, 0, len(c.state))
	for _, t := range c.state {
		out = append(out, t)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Tables returns the snapshot, warming the cache first if it never loaded.
func (c *TableStateCache) Tables(ctx context.Context) ([]TableState, error) {
	c.mu.RLock()
	warm := c.warm
	c.mu.RUnlock()

	if !warm {
		if err := c.Warm(ctx); err != nil {
			return nil, err
		}
	}
	return c.Snapshot(), nil
}

func rehydrate(data interface{}, out interface{}) error {
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}
