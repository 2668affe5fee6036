package billing

import (
	"errors"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/tableflow/pkg/auth"
	"github.com/appetiteclub/tableflow/services/order/internal/order"
)

type Handler struct {
	resolver *Resolver
	gate     *auth.Gate
	logger   apt.Logger
	tlm      *telemetry.HTTP
}

func NewHandler(resolver *Resolver, gate *auth.Gate, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		resolver: resolver,
		gate:     gate,
		logger:   logger,
		tlm:      telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Use(h.gate.Authenticate())
		r.Use(h.gate.Require(auth.ViewBilling))

		r.Get("/", h.GetQueue)
		r.Post("/{id}/pay", h.Pay)
		r.Get("/{id}/invoice", h.GetInvoice)
	})
}

func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetQueue")
	defer finish()

	q, err := h.resolver.Queue(r.Context())
	if err != nil {
		h.respondError(w, r, err, "Could not load billing queue")
		return
	}

	apt.RespondSuccess(w, q)
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Pay")
	defer finish()

	log := h.log(r)

	id, ok := order.ParseIDParam(w, r, log)
	if !ok {
		return
	}

	var req order.StatusRequest
	if !order.DecodeOptionalPayload(w, r, log, &req) {
		return
	}

	o, err := h.resolver.Pay(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, err, "Could not process payment")
		return
	}

	apt.RespondSuccess(w, o)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetInvoice")
	defer finish()

	log := h.log(r)

	id, ok := order.ParseIDParam(w, r, log)
	if !ok {
		return
	}

	inv, err := h.resolver.Invoice(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, "Could not build invoice")
		return
	}

	apt.RespondSuccess(w, inv)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, ErrNotBillable) {
		apt.RespondError(w, http.StatusConflict, err.Error())
		return
	}
	order.RespondError(w, h.log(r), err, fallback)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
