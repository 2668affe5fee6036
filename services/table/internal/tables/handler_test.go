package tables

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableflow/pkg/auth"
)

func newTestRouter(repo *MockTableRepo, gate *auth.Gate) http.Handler {
	h := NewHandler(NewRegister(repo, NewMockPublisher(), nil), gate, apt.NewConfig(), nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestNewHandler(t *testing.T) {
	h := NewHandler(nil, nil, apt.NewConfig(), nil)
	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
	if h.logger == nil {
		t.Error("NewHandler() should set noop logger when nil")
	}
}

func TestHandlerRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "createTable", method: http.MethodPost, path: "/tables", body: `{"number":6,"capacity":4}`, wantStatus: http.StatusCreated},
		{name: "createDuplicate", method: http.MethodPost, path: "/tables", body: `{"number":5,"capacity":4}`, wantStatus: http.StatusConflict},
		{name: "createInvalid", method: http.MethodPost, path: "/tables", body: `{"number":6}`, wantStatus: http.StatusBadRequest},
		{name: "createEmptyBody", method: http.MethodPost, path: "/tables", body: ``, wantStatus: http.StatusBadRequest},
		{name: "createBadJSON", method: http.MethodPost, path: "/tables", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "getTable", method: http.MethodGet, path: "/tables/" + tableFiveID.String(), wantStatus: http.StatusOK},
		{name: "getMissing", method: http.MethodGet, path: "/tables/" + tableSixID.String(), wantStatus: http.StatusNotFound},
		{name: "getBadID", method: http.MethodGet, path: "/tables/nope", wantStatus: http.StatusBadRequest},
		{name: "listTables", method: http.MethodGet, path: "/tables", wantStatus: http.StatusOK},
		{name: "listBadFilter", method: http.MethodGet, path: "/tables?status=closed", wantStatus: http.StatusBadRequest},
		{name: "overrideStatus", method: http.MethodPut, path: "/tables/" + tableFiveID.String() + "/status", body: `{"status":"reserved"}`, wantStatus: http.StatusOK},
		{name: "overrideStale", method: http.MethodPut, path: "/tables/" + tableFiveID.String() + "/status", body: `{"status":"reserved","version":3}`, wantStatus: http.StatusConflict},
		{name: "occupy", method: http.MethodPost, path: "/tables/" + tableFiveID.String() + "/occupy", body: `{"order_id":"` + orderOneID.String() + `"}`, wantStatus: http.StatusOK},
		{name: "free", method: http.MethodPost, path: "/tables/" + tableFiveID.String() + "/free", body: `{"order_id":"` + orderOneID.String() + `"}`, wantStatus: http.StatusOK},
		{name: "updateCapacity", method: http.MethodPatch, path: "/tables/" + tableFiveID.String(), body: `{"capacity":8}`, wantStatus: http.StatusOK},
		{name: "updateNothing", method: http.MethodPatch, path: "/tables/" + tableFiveID.String(), body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "deleteTable", method: http.MethodDelete, path: "/tables/" + tableFiveID.String(), wantStatus: http.StatusNoContent},
		{name: "deleteMissing", method: http.MethodDelete, path: "/tables/" + tableSixID.String(), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockTableRepo()
			repo.seed(newTestTable(tableFiveID, 5, "available"))
			router := newTestRouter(repo, nil)

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d, body: %s", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestHandlerOccupyResponse(t *testing.T) {
	repo := NewMockTableRepo()
	repo.seed(newTestTable(tableFiveID, 5, "reserved"))
	router := newTestRouter(repo, nil)

	body := `{"order_id":"` + orderOneID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/tables/"+tableFiveID.String()+"/occupy", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data in response: %s", w.Body.String())
	}
	if data["status"] != "occupied" {
		t.Errorf("status = %v, want occupied", data["status"])
	}
	if data["current_order_id"] != orderOneID.String() {
		t.Errorf("current_order_id = %v, want %s", data["current_order_id"], orderOneID)
	}
}

func TestHandlerRoleGating(t *testing.T) {
	verifier := auth.NewVerifier("secret")
	gate := auth.NewGate(verifier, nil)
	kitchen, _ := verifier.Issue(auth.Principal{UserID: "k", Role: auth.RoleKitchen}, time.Hour)
	waiter, _ := verifier.Issue(auth.Principal{UserID: "w", Role: auth.RoleWaiter}, time.Hour)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{name: "overrideAsKitchen", method: http.MethodPut, path: "/tables/" + tableFiveID.String() + "/status", body: `{"status":"reserved"}`, token: kitchen, wantStatus: http.StatusForbidden},
		{name: "overrideAsWaiter", method: http.MethodPut, path: "/tables/" + tableFiveID.String() + "/status", body: `{"status":"reserved"}`, token: waiter, wantStatus: http.StatusOK},
		{name: "listWithoutToken", method: http.MethodGet, path: "/tables", wantStatus: http.StatusOK},
		{name: "createWithoutToken", method: http.MethodPost, path: "/tables", body: `{"number":11,"capacity":2}`, wantStatus: http.StatusUnauthorized},
		{name: "deleteWithBadToken", method: http.MethodDelete, path: "/tables/" + tableFiveID.String(), token: "garbage", wantStatus: http.StatusUnauthorized},
		{name: "occupyIsInternal", method: http.MethodPost, path: "/tables/" + tableFiveID.String() + "/occupy", body: `{"order_id":"` + orderOneID.String() + `"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockTableRepo()
			repo.seed(newTestTable(tableFiveID, 5, "available"))
			router := newTestRouter(repo, gate)

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
