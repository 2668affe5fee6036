package menu

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/tableflow/pkg/auth"
)

const MaxBodyBytes = 2 << 20 // item images travel as URLs but descriptions can be long

type Handler struct {
	catalog *Catalog
	gate    *auth.Gate
	logger  apt.Logger
	config  *apt.Config
	tlm     *telemetry.HTTP
}

func NewHandler(catalog *Catalog, gate *auth.Gate, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		catalog: catalog,
		gate:    gate,
		logger:  logger,
		config:  config,
		tlm:     telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/menu", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListMenuItems)
			r.Get("/{id}", h.GetMenuItem)

			r.Group(func(r chi.Router) {
				r.Use(h.gate.Authenticate())
				r.Use(h.gate.Require(auth.ViewMenu))

				r.Post("/", h.CreateMenuItem)
				r.Put("/{id}", h.UpdateMenuItem)
				r.Patch("/{id}/availability", h.SetMenuItemAvailability)
				r.Delete("/{id}", h.DeleteMenuItem)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Get("/{id}", h.GetCategory)

			r.Group(func(r chi.Router) {
				r.Use(h.gate.Authenticate())
				r.Use(h.gate.Require(auth.ViewMenu))

				r.Post("/", h.CreateCategory)
				r.Put("/order", h.ReorderCategories)
				r.Put("/{id}", h.UpdateCategory)
				r.Patch("/{id}/visibility", h.SetCategoryVisibility)
				r.Delete("/{id}", h.DeleteCategory)
			})
		})
	})
}

// MenuItem handlers

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateMenuItem")
	defer finish()

	log := h.log(r)

	var req MenuItemRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	item, err := h.catalog.CreateItem(r.Context(), req)
	if err != nil {
		h.respondError(w, log, err, "Could not create menu item")
		return
	}

	links := apt.RESTfulLinksFor(item)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, item, links...)
}

func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetMenuItem")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not load menu item")
		return
	}

	links := apt.RESTfulLinksFor(item)
	apt.RespondSuccess(w, item, links...)
}

// ListMenuItems handles GET /menu/items?category_id=&available=
func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenuItems")
	defer finish()

	log := h.log(r)

	var filter ItemFilter
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid category_id filter")
			return
		}
		filter.CategoryID = id
	}
	if raw := r.URL.Query().Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid available filter")
			return
		}
		filter.IsAvailable = &available
	}

	items, err := h.catalog.ListItems(r.Context(), filter)
	if err != nil {
		log.Error("error retrieving menu items", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve menu items")
		return
	}

	apt.RespondCollection(w, items, "menu/item")
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateMenuItem")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req MenuItemRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	item, err := h.catalog.UpdateItem(r.Context(), id, req)
	if err != nil {
		h.respondError(w, log, err, "Could not update menu item")
		return
	}

	links := apt.RESTfulLinksFor(item)
	apt.RespondSuccess(w, item, links...)
}

// SetMenuItemAvailability toggles availability when the body is empty.
func (h *Handler) SetMenuItemAvailability(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetMenuItemAvailability")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req AvailabilityRequest
	if !h.decodeOptionalPayload(w, r, log, &req) {
		return
	}

	item, err := h.catalog.SetAvailability(r.Context(), id, req)
	if err != nil {
		h.respondError(w, log, err, "Could not update availability")
		return
	}

	log.Info("menu item availability changed", "item_id", id.String(), "is_available", item.IsAvailable)
	apt.RespondSuccess(w, item)
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteMenuItem")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.catalog.DeleteItem(r.Context(), id); err != nil {
		h.respondError(w, log, err, "Could not delete menu item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MenuCategory handlers

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateCategory")
	defer finish()

	log := h.log(r)

	var req CategoryRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		h.respondError(w, log, err, "Could not create category")
		return
	}

	links := apt.RESTfulLinksFor(category)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, category, links...)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetCategory")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		h.respondError(w, log, err, "Could not load category")
		return
	}

	links := apt.RESTfulLinksFor(category)
	apt.RespondSuccess(w, category, links...)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListCategories")
	defer finish()

	log := h.log(r)

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		log.Error("error retrieving categories", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve categories")
		return
	}

	apt.RespondCollection(w, categories, "menu/category")
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateCategory")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req CategoryRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, req)
	if err != nil {
		h.respondError(w, log, err, "Could not update category")
		return
	}

	links := apt.RESTfulLinksFor(category)
	apt.RespondSuccess(w, category, links...)
}

func (h *Handler) SetCategoryVisibility(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetCategoryVisibility")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req VisibilityRequest
	if !h.decodeOptionalPayload(w, r, log, &req) {
		return
	}

	category, err := h.catalog.SetVisibility(r.Context(), id, req)
	if err != nil {
		h.respondError(w, log, err, "Could not update visibility")
		return
	}

	apt.RespondSuccess(w, category)
}

func (h *Handler) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ReorderCategories")
	defer finish()

	log := h.log(r)

	var req ReorderRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	categories, err := h.catalog.ReorderCategories(r.Context(), req)
	if err != nil {
		h.respondError(w, log, err, "Could not reorder categories")
		return
	}

	apt.RespondCollection(w, categories, "menu/category")
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteCategory")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.respondError(w, log, err, "Could not delete category")
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
	case errors.Is(err, ErrItemNotFound):
		apt.RespondError(w, http.StatusNotFound, "Menu item not found")
	case errors.Is(err, ErrCategoryNotFound):
		apt.RespondError(w, http.StatusNotFound, "Category not found")
	case errors.Is(err, ErrCategoryInUse):
		apt.RespondError(w, http.StatusConflict, "Category still has menu items")
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

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, log apt.Logger) ([]byte, bool) {
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

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	body, ok := h.readBody(w, r, log)
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

// decodeOptionalPayload accepts an empty body and leaves dst untouched.
func (h *Handler) decodeOptionalPayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	body, ok := h.readBody(w, r, log)
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
