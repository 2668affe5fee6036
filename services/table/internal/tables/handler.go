package tables

import (
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
	register *Register
	gate     *auth.Gate
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
}

func NewHandler(register *Register, gate *auth.Gate, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		register: register,
		gate:     gate,
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		// Reads, occupy and free are driven by the order service, not by staff.
		r.Get("/", h.ListTables)
		r.Get("/{id}", h.GetTable)
		r.Post("/{id}/occupy", h.OccupyTable)
		r.Post("/{id}/free", h.FreeTable)

		r.Group(func(r chi.Router) {
			r.Use(h.gate.Authenticate())
			r.Use(h.gate.Require(auth.ViewTables))

			r.Post("/", h.CreateTable)
			r.Patch("/{id}", h.UpdateTable)
			r.Delete("/{id}", h.DeleteTable)
			r.Put("/{id}/status", h.SetTableStatus)
		})
	})
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateTable")
	defer finish()

	log := h.log(r)

	var req TableCreateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	table, err := h.register.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, log, err, "Could not create table")
		return
	}

	links := apt.RESTfulLinksFor(table)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, table, links...)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetTable")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	table, err := h.register.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not load table")
		return
	}

	links := apt.RESTfulLinksFor(table)
	apt.RespondSuccess(w, table, links...)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)

	status := r.URL.Query().Get("status")
	if status != "" {
		if msgs := ValidateTableStatus(TableStatusRequest{Status: status}); len(msgs) > 0 {
			apt.RespondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
	}

	tables, err := h.register.List(r.Context(), status)
	if err != nil {
		log.Error("error retrieving tables", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve tables")
		return
	}

	apt.RespondCollection(w, tables, "table")
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateTable")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req TableUpdateRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	table, err := h.register.Update(r.Context(), id, req)
	if err != nil {
		h.respondError(w, log, err, "Could not update table")
		return
	}

	links := apt.RESTfulLinksFor(table)
	apt.RespondSuccess(w, table, links...)
}

func (h *Handler) SetTableStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetTableStatus")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req TableStatusRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	table, err := h.register.SetStatus(r.Context(), id, req)
	if err != nil {
		h.respondError(w, log, err, "Could not update table status")
		return
	}

	log.Info("table status overridden", "table_id", id.String(), "status", table.Status, "role", auth.RoleFrom(r.Context()))

	links := apt.RESTfulLinksFor(table)
	apt.RespondSuccess(w, table, links...)
}

func (h *Handler) OccupyTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OccupyTable")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req TableOrderRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	table, err := h.register.Occupy(r.Context(), id, req.OrderID)
	if err != nil {
		h.respondError(w, log, err, "Could not occupy table")
		return
	}

	apt.RespondSuccess(w, table)
}

func (h *Handler) FreeTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.FreeTable")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req TableOrderRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	table, err := h.register.Free(r.Context(), id, req.OrderID)
	if err != nil {
		h.respondError(w, log, err, "Could not free table")
		return
	}

	apt.RespondSuccess(w, table)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteTable")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.register.Delete(r.Context(), id, force); err != nil {
		h.respondError(w, log, err, "Could not delete table")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func (h *Handler) respondError(w http.ResponseWriter, log apt.Logger, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		log.Debug("validation failed", "errors", verr.Messages)
		apt.RespondError(w, http.StatusBadRequest, strings.Join(verr.Messages, "; "))
	case errors.Is(err, ErrNotFound):
		apt.RespondError(w, http.StatusNotFound, "Table not found")
	case errors.Is(err, ErrConflict):
		apt.RespondError(w, http.StatusConflict, "Table was modified by someone else, reload and retry")
	case errors.Is(err, ErrDuplicateNumber):
		apt.RespondError(w, http.StatusConflict, "Table number already in use")
	case errors.Is(err, ErrTableInUse):
		apt.RespondError(w, http.StatusConflict, "Table has an active order")
	default:
		log.Error(strings.ToLower(fallback), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
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
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Could not read request body")
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
