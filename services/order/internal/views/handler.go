package views

import (
	"net/http"
	"strconv"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableflow/pkg/auth"
)

type Handler struct {
	aggregator *Aggregator
	gate       *auth.Gate
	logger     apt.Logger
	tlm        *telemetry.HTTP
}

func NewHandler(aggregator *Aggregator, gate *auth.Gate, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		aggregator: aggregator,
		gate:       gate,
		logger:     logger,
		tlm:        telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Authenticate())
		r.With(h.gate.Require(auth.ViewDashboard)).Get("/dashboard", h.GetDashboard)
		r.With(h.gate.Require(auth.ViewAnalytics)).Get("/analytics", h.GetAnalytics)
	})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetDashboard")
	defer finish()

	d, err := h.aggregator.Dashboard(r.Context())
	if err != nil {
		h.log(r).Error("cannot build dashboard", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not build dashboard")
		return
	}

	apt.RespondSuccess(w, d)
}

// GetAnalytics handles GET /analytics?days=N
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetAnalytics")
	defer finish()

	days := DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apt.RespondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	a, err := h.aggregator.Analytics(r.Context(), days)
	if err != nil {
		h.log(r).Error("cannot build analytics", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not build analytics")
		return
	}

	apt.RespondSuccess(w, a)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
