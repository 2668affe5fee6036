package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/appetiteclub/apt/events"

	"github.com/appetiteclub/tableflow/pkg"
)

func TestTableStatusSubscriberStart(t *testing.T) {
	source := &MockTableSource{Tables: []TableState{{ID: tableFiveID, Number: 5, Status: "available"}}}
	cache := NewTableStateCache(source, nil)
	sub := NewMockSubscriber()

	s := NewTableStatusSubscriber(sub, cache, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(sub.Topics) != 1 || sub.Topics[0] != pkg.TableStatusTopic {
		t.Errorf("subscribed topics = %v", sub.Topics)
	}
	if _, ok := cachedStatus(cache, tableFiveID); !ok {
		t.Error("Start() should warm the cache")
	}

	if err := NewTableStatusSubscriber(nil, cache, nil).Start(context.Background()); err == nil {
		t.Error("Start() without a subscriber should fail")
	}
}

func TestTableStatusSubscriberHandleEvent(t *testing.T) {
	tests := []struct {
		name       string
		evt        pkg.TableStatusEvent
		wantStatus string
		wantCached bool
		wantNumber int
	}{
		{
			name:       "statusChanged",
			evt:        pkg.TableStatusEvent{EventType: pkg.EventTableStatusChanged, TableID: tableFiveID.String(), Number: 5, Status: "occupied"},
			wantStatus: "occupied",
			wantCached: true,
			wantNumber: 5,
		},
		{
			name: "fullRecord",
			evt: pkg.TableStatusEvent{
				EventType: pkg.EventTableUpdated,
				TableID:   tableFiveID.String(),
				Status:    "reserved",
				Table:     TableState{ID: tableFiveID, Number: 15, Capacity: 8, Status: "reserved"},
			},
			wantStatus: "reserved",
			wantCached: true,
			wantNumber: 15,
		},
		{
			name:       "deleted",
			evt:        pkg.TableStatusEvent{EventType: pkg.EventTableDeleted, TableID: tableFiveID.String()},
			wantCached: false,
		},
		{
			name:       "badTableID",
			evt:        pkg.TableStatusEvent{EventType: pkg.EventTableStatusChanged, TableID: "not-a-uuid", Status: "occupied"},
			wantStatus: "available",
			wantCached: true,
			wantNumber: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewTableStateCache(nil, nil)
			cache.Put(TableState{ID: tableFiveID, Number: 5, Capacity: 4, Status: "available"})

			var handler events.HandlerFunc
			sub := &MockSubscriber{SubscribeFunc: func(ctx context.Context, topic string, h events.HandlerFunc) error {
				handler = h
				return nil
			}}
			if err := NewTableStatusSubscriber(sub, cache, nil).Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			msg, _ := json.Marshal(tt.evt)
			if err := handler(context.Background(), msg); err != nil {
				t.Fatalf("handler error = %v", err)
			}

			status, ok := cachedStatus(cache, tableFiveID)
			if ok != tt.wantCached {
				t.Fatalf("cached = %v, want %v", ok, tt.wantCached)
			}
			if !ok {
				return
			}
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if snap := cache.Snapshot(); snap[0].Number != tt.wantNumber {
				t.Errorf("number = %d, want %d", snap[0].Number, tt.wantNumber)
			}
		})
	}
}

func TestTableStatusSubscriberIgnoresGarbage(t *testing.T) {
	s := NewTableStatusSubscriber(NewMockSubscriber(), NewTableStateCache(nil, nil), nil)

	if err := s.handleEvent(context.Background(), []byte("{not json")); err != nil {
		t.Errorf("handleEvent() error = %v, want nil", err)
	}
}
