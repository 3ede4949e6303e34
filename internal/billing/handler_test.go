package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturio/facturio/internal/shared"
)

func newTestHandler() (*Handler, *mockRepository) {
	repo := newMockRepository()
	logger := slog.New(slog.DiscardHandler)
	svc := NewService(repo, logger)
	return NewHandler(logger, svc), repo
}

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doRequest(t *testing.T, router chi.Router, method, path string, body any, company *shared.Company) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if company != nil {
		req = req.WithContext(shared.ContextWithCompany(req.Context(), *company))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var testCompany = shared.Company{ID: 1, Name: "Acme SARL"}

func TestHandlerCreateQuote(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	body := map[string]any{
		"number":      "DEV-2026-001",
		"client_name": "Acme SARL",
		"quote_date":  "2026-03-10T00:00:00Z",
		"tax_percent": 20,
		"lines": []map[string]any{
			{"description": "Consulting", "unit_price": 100, "quantity": 2, "unit": "day"},
		},
	}
	rec := doRequest(t, router, http.MethodPost, "/quotes", body, &testCompany)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var quote Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, "DEV-2026-001", quote.Number)
	assert.InDelta(t, 200.00, quote.Subtotal, 0.001)
	assert.InDelta(t, 240.00, quote.Total, 0.001)
}

func TestHandlerCreateQuoteValidation(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	// Missing client_name and lines.
	body := map[string]any{
		"number":     "DEV-2026-001",
		"quote_date": "2026-03-10T00:00:00Z",
	}
	rec := doRequest(t, router, http.MethodPost, "/quotes", body, &testCompany)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Fields, "ClientName")
	assert.Contains(t, problem.Fields, "Lines")
}

func TestHandlerCreateQuoteUnknownField(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	body := map[string]any{
		"number":      "DEV-2026-001",
		"client_name": "Acme SARL",
		"quote_date":  "2026-03-10T00:00:00Z",
		"totall":      999,
		"lines": []map[string]any{
			{"description": "Consulting", "unit_price": 100, "quantity": 2},
		},
	}
	rec := doRequest(t, router, http.MethodPost, "/quotes", body, &testCompany)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerMissingCompany(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	rec := doRequest(t, router, http.MethodGet, "/quotes", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerGetQuoteNotFound(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	rec := doRequest(t, router, http.MethodGet, "/quotes/42", nil, &testCompany)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerBadID(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	rec := doRequest(t, router, http.MethodGet, "/quotes/abc", nil, &testCompany)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/invoices/-1", nil, &testCompany)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerConvertFlow(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	body := map[string]any{
		"number":      "DEV-2026-002",
		"client_name": "Beta SAS",
		"quote_date":  "2026-03-10T00:00:00Z",
		"status":      "ACCEPTED",
		"lines": []map[string]any{
			{"description": "Licence", "unit_price": 50, "quantity": 1},
		},
	}
	rec := doRequest(t, router, http.MethodPost, "/quotes", body, &testCompany)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var quote Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))

	convertPath := fmt.Sprintf("/quotes/%d/convert", quote.ID)
	rec = doRequest(t, router, http.MethodPost, convertPath, nil, &testCompany)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var invoice Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invoice))
	assert.Equal(t, quote.ID, invoice.QuoteID)
	assert.Equal(t, PaymentStatusUnpaid, invoice.PaymentStatus)

	// Second conversion conflicts.
	rec = doRequest(t, router, http.MethodPost, convertPath, nil, &testCompany)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerConvertNotEligible(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	body := map[string]any{
		"number":      "DEV-2026-003",
		"client_name": "Beta SAS",
		"quote_date":  "2026-03-10T00:00:00Z",
		"lines": []map[string]any{
			{"description": "Licence", "unit_price": 50, "quantity": 1},
		},
	}
	rec := doRequest(t, router, http.MethodPost, "/quotes", body, &testCompany)
	require.Equal(t, http.StatusCreated, rec.Code)

	var quote Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))

	rec = doRequest(t, router, http.MethodPost, fmt.Sprintf("/quotes/%d/convert", quote.ID), nil, &testCompany)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerListInvoicesQuery(t *testing.T) {
	h, repo := newTestHandler()
	router := newTestRouter(h)

	now := time.Now()
	repo.invoices[1] = &Invoice{
		ID: 1, Number: "FAC-1", CompanyID: 1, QuoteID: 1,
		ClientName: "Acme SARL", IssueDate: now, PaymentStatus: PaymentStatusUnpaid,
	}
	repo.invoiceByQuote[1] = 1

	rec := doRequest(t, router, http.MethodGet, "/invoices?payment_status=UNPAID&page=1&limit=10", nil, &testCompany)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Invoices   []Invoice         `json:"invoices"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Invoices, 1)
	assert.Equal(t, 1, resp.Pagination.Total)
}

func TestHandlerListInvoicesBadQuery(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	rec := doRequest(t, router, http.MethodGet, "/invoices?date_from=15-03-2026", nil, &testCompany)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/invoices?page=x", nil, &testCompany)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdateInvoicePayment(t *testing.T) {
	h, repo := newTestHandler()
	router := newTestRouter(h)

	repo.invoices[7] = &Invoice{
		ID: 7, Number: "FAC-7", CompanyID: 1, QuoteID: 3,
		ClientName: "Acme SARL", IssueDate: time.Now(), PaymentStatus: PaymentStatusUnpaid,
		Subtotal: 100, Total: 120,
	}
	repo.invoiceByQuote[3] = 7

	body := map[string]any{"payment_status": "PAID", "payment_method": "card"}
	rec := doRequest(t, router, http.MethodPut, "/invoices/7/payment", body, &testCompany)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var invoice Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invoice))
	assert.Equal(t, PaymentStatusPaid, invoice.PaymentStatus)
	require.NotNil(t, invoice.PaymentDate)
	assert.InDelta(t, 120.00, invoice.Total, 0.001)
}

func TestHandlerDeleteQuote(t *testing.T) {
	h, _ := newTestHandler()
	router := newTestRouter(h)

	body := map[string]any{
		"number":      "DEV-2026-004",
		"client_name": "Gamma SA",
		"quote_date":  "2026-03-10T00:00:00Z",
		"lines": []map[string]any{
			{"description": "Work", "unit_price": 10, "quantity": 1},
		},
	}
	rec := doRequest(t, router, http.MethodPost, "/quotes", body, &testCompany)
	require.Equal(t, http.StatusCreated, rec.Code)

	var quote Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))

	rec = doRequest(t, router, http.MethodDelete, fmt.Sprintf("/quotes/%d", quote.ID), nil, &testCompany)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/quotes/%d", quote.ID), nil, &testCompany)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
