package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/auth"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	manager *Manager
	gate    *auth.Gate
	logger  apt.Logger
	config  *apt.Config
	tlm     *telemetry.HTTP
}

func NewHandler(manager *Manager, gate *auth.Gate, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		manager: manager,
		gate:    gate,
		logger:  logger,
		config:  config,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Authenticate())
		r.Get("/session", h.GetSession)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(h.gate.Authenticate())

		r.With(h.gate.Require(auth.ViewOrders, auth.ViewKitchen, auth.ViewBilling, auth.ViewDashboard)).Get("/", h.ListOrders)
		r.With(h.gate.Require(auth.ViewOrders, auth.ViewKitchen, auth.ViewBilling)).Get("/{id}", h.GetOrder)

		r.With(h.gate.Require(auth.ViewOrders)).Post("/", h.CreateOrder)
		r.With(h.gate.Require(auth.ViewOrders, auth.ViewKitchen)).Post("/{id}/advance", h.AdvanceOrder)
		r.With(h.gate.Require(auth.ViewOrders)).Post("/{id}/cancel", h.CancelOrder)
		r.With(h.gate.Require(auth.ViewOrders, auth.ViewBilling)).Post("/{id}/pay", h.PayOrder)
		r.With(h.gate.Require(auth.ViewOrders)).Delete("/{id}", h.DeleteOrder)
	})
}

// sessionResponse tells a client what its role may see and where to land.
type sessionResponse struct {
	UserID      string      `json:"user_id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Role        auth.Role   `json:"role"`
	Views       []auth.View `json:"views"`
	LandingView auth.View   `json:"landing_view"`
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSession")
	defer finish()

	role := auth.RoleFrom(r.Context())
	resp := sessionResponse{
		Role:        role,
		Views:       auth.AllowedViews(role),
		LandingView: auth.LandingView(role),
	}
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		resp.UserID = p.UserID
		resp.Name = p.Name
	}

	apt.RespondSuccess(w, resp)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)

	var req OrderCreateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	o, err := h.manager.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, log, err, "Could not create order")
		return
	}

	log.Info("order created", "order_id", o.ID.String(), "table_id", o.TableID.String(), "total", o.Total)

	links := apt.RESTfulLinksFor(o)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, o, links...)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	o, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not load order")
		return
	}

	links := apt.RESTfulLinksFor(o)
	apt.RespondSuccess(w, o, links...)
}

// ListOrders handles GET /orders?view=recent|kitchen|billing|today
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)

	view, ok := ParseView(r.URL.Query().Get("view"))
	if !ok {
		apt.RespondError(w, http.StatusBadRequest, "Unknown view")
		return
	}

	orders, err := h.manager.List(r.Context(), view)
	if err != nil {
		log.Error("error retrieving orders", "error", err, "view", string(view))
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AdvanceOrder")
	defer finish()

	h.transition(w, r, "advance", h.manager.Advance)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CancelOrder")
	defer finish()

	h.transition(w, r, "cancel", h.manager.Cancel)
}

func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PayOrder")
	defer finish()

	h.transition(w, r, "pay", h.manager.MarkPaid)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.respondError(w, log, err, "Could not delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

type transitionFunc func(ctx context.Context, id uuid.UUID, req StatusRequest) (*Order, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, apply transitionFunc) {
	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req StatusRequest
	if !h.decodeOptionalPayload(w, r, log, &req) {
		return
	}

	o, err := apply(r.Context(), id, req)
	if err != nil {
		h.respondError(w, log, err, "Could not "+action+" order")
		return
	}

	log.Info("order transition applied", "action", action, "order_id", id.String(), "status", o.Status, "role", auth.RoleFrom(r.Context()))
	apt.RespondSuccess(w, o)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func (h *Handler) respondError(w http.ResponseWriter, log apt.Logger, err error, fallback string) {
	RespondError(w, log, err, fallback)
}

// RespondError maps order errors to HTTP responses. It is shared with the
// billing endpoints.
func RespondError(w http.ResponseWriter, log apt.Logger, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		log.Debug("validation failed", "errors", verr.Messages)
		apt.RespondError(w, http.StatusBadRequest, strings.Join(verr.Messages, "; "))
	case errors.Is(err, ErrNotFound):
		apt.RespondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, ErrConflict):
		apt.RespondError(w, http.StatusConflict, "Order was modified by someone else, reload and retry")
	case errors.Is(err, ErrInvalidTransition):
		apt.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTableBusy):
		apt.RespondError(w, http.StatusConflict, "Table already has an active order")
	case errors.Is(err, ErrNotDeletable):
		apt.RespondError(w, http.StatusConflict, "Only completed orders can be deleted")
	case errors.Is(err, ErrTableSync):
		log.Error("table sync failed", "error", err)
		apt.RespondError(w, http.StatusBadGateway, "Order saved but table status could not be updated")
	case errors.Is(err, ErrUpstream):
		log.Error("upstream call failed", "error", err)
		apt.RespondError(w, http.StatusBadGateway, "A dependent service is unavailable")
	default:
		log.Error(strings.ToLower(fallback), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	return ParseIDParam(w, r, log)
}

// ParseIDParam reads the {id} route parameter.
func ParseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr, "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	body, ok := readBody(w, r, log)
	if !ok {
		return false
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		apt.RespondError(w, http.StatusBadRequest, "Request body is empty")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("error decoding JSON", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}

func (h *Handler) decodeOptionalPayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	return DecodeOptionalPayload(w, r, log, dst)
}

// DecodeOptionalPayload accepts an empty body and leaves dst untouched.
func DecodeOptionalPayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	body, ok := readBody(w, r, log)
	if !ok {
		return false
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("error decoding JSON", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}

func readBody(w http.ResponseWriter, r *http.Request, log apt.Logger) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return nil, false
	}
	return body, true
}
