package live

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/appetiteclub/tableflow/pkg/auth"
)

func newLiveServer(t *testing.T, hub *Hub, gate *auth.Gate) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(hub, gate, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// waitForSubscribers polls until the hub has n subscribers.
func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d subscribers, want %d", hub.Count(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerWebSocket(t *testing.T) {
	hub := newTestHub(&MockSnapshotter{Records: map[string][]json.RawMessage{
		CollectionTables: {json.RawMessage(`{"number":5,"status":"available"}`)},
	}})
	srv := newLiveServer(t, hub, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live/ws?collection=tables"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snapshot Message
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("ReadJSON(snapshot) error = %v", err)
	}
	if snapshot.Type != MessageSnapshot || len(snapshot.Records) != 1 {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	id := uuid.NewString()
	hub.Publish(Change{Collection: CollectionTables, Op: OpUpsert, ID: id, Record: json.RawMessage(`{"number":5,"status":"occupied"}`)})

	var change Message
	if err := conn.ReadJSON(&change); err != nil {
		t.Fatalf("ReadJSON(change) error = %v", err)
	}
	if change.Type != MessageChange || change.Change == nil || change.Change.ID != id {
		t.Errorf("change = %+v", change)
	}

	conn.Close()
	waitForSubscribers(t, hub, 0)
}

func TestHandlerSSE(t *testing.T) {
	hub := newTestHub(&MockSnapshotter{})
	srv := newLiveServer(t, hub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/live/events?collection=orders&view=billing", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /live/events error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, Message) {
		t.Helper()
		var name string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				var msg Message
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
					t.Fatalf("decode data: %v", err)
				}
				return name, msg
			}
		}
	}

	name, snapshot := readEvent()
	if name != MessageSnapshot || snapshot.View != "billing" || snapshot.Records == nil {
		t.Fatalf("first event = %s %+v", name, snapshot)
	}

	hub.Publish(Change{Collection: CollectionOrders, Op: OpDelete, ID: "gone"})

	name, change := readEvent()
	if name != MessageChange || change.Change.Op != OpDelete || change.Change.ID != "gone" {
		t.Errorf("second event = %s %+v", name, change)
	}

	cancel()
	waitForSubscribers(t, hub, 0)
}

func TestHandlerRejectsRequests(t *testing.T) {
	verifier := auth.NewVerifier("test-secret")
	gate := auth.NewGate(verifier, nil)
	token := func(role auth.Role) string {
		tok, err := verifier.Issue(auth.Principal{UserID: "u1", Role: role}, time.Hour)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		return tok
	}

	tests := []struct {
		name       string
		gate       *auth.Gate
		query      string
		token      string
		wantStatus int
	}{
		{name: "unknownCollection", query: "collection=reservations", wantStatus: http.StatusBadRequest},
		{name: "unknownView", query: "collection=orders&view=archive", wantStatus: http.StatusBadRequest},
		{name: "viewOnTables", query: "collection=tables&view=kitchen", wantStatus: http.StatusBadRequest},
		{name: "missingToken", gate: gate, query: "collection=tables", wantStatus: http.StatusUnauthorized},
		{name: "waiterWatchingKitchen", gate: gate, query: "collection=orders&view=kitchen", token: token(auth.RoleWaiter), wantStatus: http.StatusForbidden},
		{name: "kitchenWatchingBilling", gate: gate, query: "collection=orders&view=billing", token: token(auth.RoleKitchen), wantStatus: http.StatusForbidden},
		{name: "kitchenWatchingTables", gate: gate, query: "collection=tables", token: token(auth.RoleKitchen), wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := newTestHub(&MockSnapshotter{})
			r := chi.NewRouter()
			NewHandler(hub, tt.gate, nil).RegisterRoutes(r)

			for _, path := range []string{"/live/ws", "/live/events"} {
				target := path + "?" + tt.query
				if tt.token != "" {
					target += "&access_token=" + tt.token
				}
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

				if w.Code != tt.wantStatus {
					t.Errorf("GET %s status = %d, want %d", path, w.Code, tt.wantStatus)
				}
			}
			if hub.Count() != 0 {
				t.Errorf("rejected request left %d subscribers", hub.Count())
			}
		})
	}
}

func TestHandlerSnapshotFailure(t *testing.T) {
	hub := newTestHub(&MockSnapshotter{Err: context.DeadlineExceeded})
	r := chi.NewRouter()
	NewHandler(hub, nil, nil).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live/events?collection=orders", nil))

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestCanWatch(t *testing.T) {
	tests := []struct {
		name   string
		role   auth.Role
		filter Filter
		want   bool
	}{
		{name: "kitchenOnKitchenView", role: auth.RoleKitchen, filter: Filter{Collection: CollectionOrders, View: "kitchen"}, want: true},
		{name: "cashierOnBilling", role: auth.RoleCashier, filter: Filter{Collection: CollectionOrders, View: "billing"}, want: true},
		{name: "cashierOnKitchen", role: auth.RoleCashier, filter: Filter{Collection: CollectionOrders, View: "kitchen"}, want: false},
		{name: "staffOnRecent", role: auth.RoleStaff, filter: Filter{Collection: CollectionOrders, View: "recent"}, want: true},
		{name: "managerOnToday", role: auth.RoleManager, filter: Filter{Collection: CollectionOrders, View: "today"}, want: true},
		{name: "kitchenOnRecent", role: auth.RoleKitchen, filter: Filter{Collection: CollectionOrders, View: "recent"}, want: false},
		{name: "waiterOnTables", role: auth.RoleWaiter, filter: Filter{Collection: CollectionTables}, want: true},
		{name: "kitchenOnMenu", role: auth.RoleKitchen, filter: Filter{Collection: CollectionMenuItems}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanWatch(tt.role, tt.filter); got != tt.want {
				t.Errorf("CanWatch(%s, %+v) = %v, want %v", tt.role, tt.filter, got, tt.want)
			}
		})
	}
}
