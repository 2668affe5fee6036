package order

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg"
)

type TableStatusSubscriber struct {
	subscriber events.Subscriber
	cache      *TableStateCache
	logger     apt.Logger
}

func NewTableStatusSubscriber(sub events.Subscriber, cache *TableStateCache, logger apt.Logger) *TableStatusSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &TableStatusSubscriber{
		subscriber: sub,
		cache:      cache,
		logger:     logger,
	}
}

func (s *TableStatusSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting table status subscriber", "topic", pkg.TableStatusTopic)
	if s.cache != nil {
		if err := s.cache.Warm(ctx); err != nil {
			s.logger.Info("table cache warmup failed", "error", err)
		}
	}
	if s.subscriber == nil {
		return fmt.Errorf("table status subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, pkg.TableStatusTopic, s.handleEvent)
}

func (s *TableStatusSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt pkg.TableStatusEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid table status event", "error", err)
		return nil
	}

	id, err := uuid.Parse(evt.TableID)
	if err != nil {
		s.logger.Info("invalid table id in event", "table_id", evt.TableID)
		return nil
	}

	if evt.EventType == pkg.EventTableDeleted {
		s.cache.Delete(id)
		s.logger.Debug("table removed from cache", "table_id", id.String())
		return nil
	}

	state := TableState{ID: id, Number: evt.Number, Status: evt.Status}
	if evt.Table != nil {
		var full TableState
		if err := rehydrate(evt.Table, &full); err == nil && full.ID == id {
			state = full
		}
	}

	s.cache.Put(state)
	s.logger.Debug("table status updated", "table_id", id.String(), "status", state.Status)
	return nil
}
