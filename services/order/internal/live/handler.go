package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/appetiteclub/tableflow/pkg/auth"
	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

const (
	DefaultKeepAlive = 30 * time.Second
	writeWait        = 10 * time.Second
)

type Handler struct {
	hub       *Hub
	gate      *auth.Gate
	logger    apt.Logger
	upgrader  websocket.Upgrader
	keepAlive time.Duration
}

func NewHandler(hub *Hub, gate *auth.Gate, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		hub:    hub,
		gate:   gate,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		keepAlive: DefaultKeepAlive,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/live", func(r chi.Router) {
		r.Use(h.gate.Authenticate())
		r.Get("/ws", h.ServeWS)
		r.Get("/events", h.ServeSSE)
	})
}

// ServeWS handles GET /live/ws?collection=orders&view=kitchen
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}

	snapshot, sub, err := h.hub.Subscribe(r.Context(), f)
	if err != nil {
		h.subscribeFailed(w, err)
		return
	}
	defer h.hub.Unsubscribe(sub.ID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("new websocket connection", "subscriber_id", sub.ID, "collection", sub.Filter.Collection, "view", sub.Filter.View)

	// Clients only listen; reading is how a close is noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.writeWS(conn, snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.logger.Info("websocket client disconnected", "subscriber_id", sub.ID)
			return

		case <-r.Context().Done():
			return

		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := h.writeWS(conn, msg); err != nil {
				h.logger.Info("websocket write failed", "subscriber_id", sub.ID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) writeWS(conn *websocket.Conn, msg Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// ServeSSE handles GET /live/events?collection=tables
func (h *Handler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		apt.RespondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	snapshot, sub, err := h.hub.Subscribe(r.Context(), f)
	if err != nil {
		h.subscribeFailed(w, err)
		return
	}
	defer h.hub.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.logger.Info("new SSE connection", "subscriber_id", sub.ID, "collection", sub.Filter.Collection, "view", sub.Filter.View)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: 2000\n\n")
	if err := writeSSE(w, snapshot); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "subscriber_id", sub.ID)
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()

		case msg, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeSSE(w, msg); err != nil {
				h.logger.Info("SSE write failed", "subscriber_id", sub.ID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE emits msg as a single-line JSON data field named after its type.
func writeSSE(w http.ResponseWriter, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)
	return err
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	q := r.URL.Query()
	f, err := Filter{Collection: q.Get("collection"), View: q.Get("view")}.Normalize()
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return f, false
	}

	if h.gate.Enabled() {
		role := auth.RoleFrom(r.Context())
		if !CanWatch(role, f) {
			apt.RespondError(w, http.StatusForbidden, "Role "+string(role)+" cannot watch "+f.Collection)
			return f, false
		}
	}
	return f, true
}

func (h *Handler) subscribeFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownCollection) || errors.Is(err, ErrUnknownView) {
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("cannot load live snapshot", "error", err)
	apt.RespondError(w, http.StatusBadGateway, "Could not load snapshot")
}

// CanWatch reports whether role may follow f. Menu collections are open to
// any authenticated caller.
func CanWatch(role auth.Role, f Filter) bool {
	var views []auth.View
	switch f.Collection {
	case CollectionOrders:
		switch order.View(f.View) {
		case order.ViewKitchen:
			views = []auth.View{auth.ViewKitchen}
		case order.ViewBilling:
			views = []auth.View{auth.ViewBilling}
		default:
			views = []auth.View{auth.ViewOrders, auth.ViewDashboard}
		}
	case CollectionTables:
		views = []auth.View{auth.ViewTables, auth.ViewOrders, auth.ViewDashboard}
	default:
		return true
	}

	for _, v := range views {
		if auth.CanAccess(role, v) {
			return true
		}
	}
	return false
}
