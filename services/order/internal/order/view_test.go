package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseView(t *testing.T) {
	tests := []struct {
		in     string
		want   View
		wantOK bool
	}{
		{in: "", want: ViewRecent, wantOK: true},
		{in: "kitchen", want: ViewKitchen, wantOK: true},
		{in: "billing", want: ViewBilling, wantOK: true},
		{in: "today", want: ViewToday, wantOK: true},
		{in: "Kitchen", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ParseView(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseView(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestQueryApplyRecentLimit(t *testing.T) {
	orders := make([]*Order, 0, RecentLimit+10)
	for i := 0; i < RecentLimit+10; i++ {
		orders = append(orders, newStoredOrder(uuid.New(), tableFiveID, "completed", true, fixedNow.Add(time.Duration(i)*time.Minute)))
	}

	got := ViewRecent.Query(fixedNow).Apply(orders)

	if len(got) != RecentLimit {
		t.Fatalf("len = %d, want %d", len(got), RecentLimit)
	}
	if !got[0].CreatedAt.Equal(orders[len(orders)-1].CreatedAt) {
		t.Error("recent view should start with the newest order")
	}
}

func TestQueryToday(t *testing.T) {
	q := ViewToday.Query(fixedNow)

	if !q.CreatedSince.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedSince = %v", q.CreatedSince)
	}
	if q.Matches(newStoredOrder(uuid.New(), tableFiveID, "pending", false, q.CreatedSince.Add(-time.Second))) {
		t.Error("order from yesterday matched today")
	}
	if !q.Matches(newStoredOrder(uuid.New(), tableFiveID, "pending", false, q.CreatedSince)) {
		t.Error("order at midnight should match today")
	}
	if q.Matches(nil) {
		t.Error("nil order matched")
	}
}
