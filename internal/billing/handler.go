package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/facturio/facturio/internal/platform/httpx"
	"github.com/facturio/facturio/internal/shared"
)

// Handler wires HTTP endpoints for quotes and invoices.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers billing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", h.listQuotes)
		r.Post("/", h.createQuote)
		r.Get("/{id}", h.getQuote)
		r.Put("/{id}", h.updateQuote)
		r.Delete("/{id}", h.deleteQuote)
		r.Post("/{id}/convert", h.convertQuote)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.listInvoices)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}/payment", h.updateInvoicePayment)
		r.Delete("/{id}", h.deleteInvoice)
	})
}

// ============================================================================
// QUOTE HANDLERS
// ============================================================================

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	quotes, err := h.service.ListQuotes(r.Context(), company.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	quote, err := h.service.GetQuote(r.Context(), company.ID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldProblem(w, "quote payload is invalid", fields)
		return
	}
	quote, err := h.service.CreateQuote(r.Context(), company.ID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) updateQuote(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldProblem(w, "quote payload is invalid", fields)
		return
	}
	quote, err := h.service.UpdateQuote(r.Context(), company.ID, id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) deleteQuote(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	if err := h.service.DeleteQuote(r.Context(), company.ID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) convertQuote(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	invoice, err := h.service.ConvertQuoteToInvoice(r.Context(), company.ID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

// ============================================================================
// INVOICE HANDLERS
// ============================================================================

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	req, err := parseListInvoicesQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldProblem(w, "invoice filters are invalid", fields)
		return
	}
	invoices, page, err := h.service.ListInvoices(r.Context(), company.ID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices":   invoices,
		"pagination": page,
	})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), company.ID, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) updateInvoicePayment(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	var req UpdateInvoicePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.FieldProblem(w, "payment payload is invalid", fields)
		return
	}
	invoice, err := h.service.UpdateInvoicePayment(r.Context(), company.ID, id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	company, ok := shared.CompanyFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing company identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), company.ID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// HELPERS
// ============================================================================

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func parseListInvoicesQuery(r *http.Request) (ListInvoicesRequest, error) {
	var req ListInvoicesRequest
	q := r.URL.Query()

	if v := q.Get("payment_status"); v != "" {
		status := PaymentStatus(v)
		req.PaymentStatus = &status
	}
	if v := q.Get("client"); v != "" {
		req.Client = &v
	}
	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return req, errors.New("date_from must be formatted YYYY-MM-DD")
		}
		req.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return req, errors.New("date_to must be formatted YYYY-MM-DD")
		}
		req.DateTo = &t
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			return req, errors.New("page must be a non-negative integer")
		}
		req.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return req, errors.New("limit must be a non-negative integer")
		}
		req.Limit = limit
	}
	return req, nil
}

func (h *Handler) validate(payload any) map[string]string {
	err := h.validator.Struct(payload)
	if err == nil {
		return nil
	}
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Error()
		}
	} else {
		fields["payload"] = err.Error()
	}
	return fields
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "document not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotEligible):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Not Eligible", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("billing request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred")
	}
}
