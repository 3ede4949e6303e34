package billing

import (
	"time"
)

// ============================================================================
// QUOTE
// ============================================================================

// QuoteStatus enumerates quote lifecycle states.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "DRAFT"
	QuoteStatusSent     QuoteStatus = "SENT"
	QuoteStatusAccepted QuoteStatus = "ACCEPTED"
	QuoteStatusRejected QuoteStatus = "REJECTED"
	QuoteStatusPaid     QuoteStatus = "PAID"
)

// DefaultUnit is the unit label applied when a line item does not carry one.
const DefaultUnit = "unit"

type Quote struct {
	ID              int64       `json:"id"`
	Number          string      `json:"number"`
	CompanyID       int64       `json:"company_id"`
	ClientName      string      `json:"client_name"`
	QuoteDate       time.Time   `json:"quote_date"`
	ValidUntil      *time.Time  `json:"valid_until,omitempty"`
	DiscountPercent float64     `json:"discount_percent"`
	TaxPercent      float64     `json:"tax_percent"`
	Status          QuoteStatus `json:"status"`
	Subtotal        float64     `json:"subtotal"`
	Total           float64     `json:"total"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Lines           []QuoteLine `json:"lines,omitempty"`
}

type QuoteLine struct {
	ID          int64   `json:"id"`
	QuoteID     int64   `json:"quote_id"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// ============================================================================
// INVOICE
// ============================================================================

// PaymentStatus enumerates invoice payment states.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Invoice is produced exactly once from an accepted quote. Its amounts are
// snapshots taken at conversion time and are never recomputed afterwards.
type Invoice struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	CompanyID     int64         `json:"company_id"`
	QuoteID       int64         `json:"quote_id"`
	ClientName    string        `json:"client_name"`
	IssueDate     time.Time     `json:"issue_date"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod *string       `json:"payment_method,omitempty"`
	Subtotal      float64       `json:"subtotal"`
	Total         float64       `json:"total"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Lines         []InvoiceLine `json:"lines,omitempty"`
}

type InvoiceLine struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// ============================================================================
// REQUESTS
// ============================================================================

// QuoteLineInput describes one desired line item. A populated ID targets an
// existing line during reconciliation; a nil ID always creates a new line.
type QuoteLineInput struct {
	ID          *int64  `json:"id,omitempty"`
	Description string  `json:"description" validate:"required,max=500"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Unit        string  `json:"unit" validate:"omitempty,max=20"`
}

type CreateQuoteRequest struct {
	Number          string           `json:"number" validate:"required,max=50"`
	ClientName      string           `json:"client_name" validate:"required,max=200"`
	QuoteDate       time.Time        `json:"quote_date" validate:"required"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
	DiscountPercent *float64         `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxPercent      *float64         `json:"tax_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	Status          *QuoteStatus     `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT ACCEPTED REJECTED PAID"`
	Lines           []QuoteLineInput `json:"lines" validate:"required,min=1,dive"`
}

type UpdateQuoteRequest struct {
	ClientName      *string           `json:"client_name,omitempty" validate:"omitempty,max=200"`
	QuoteDate       *time.Time        `json:"quote_date,omitempty"`
	ValidUntil      *time.Time        `json:"valid_until,omitempty"`
	DiscountPercent *float64          `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	TaxPercent      *float64          `json:"tax_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	Status          *QuoteStatus      `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT ACCEPTED REJECTED PAID"`
	Lines           *[]QuoteLineInput `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type UpdateInvoicePaymentRequest struct {
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty" validate:"omitempty,oneof=UNPAID PARTIAL PAID"`
	PaymentDate   *time.Time     `json:"payment_date,omitempty"`
	PaymentMethod *string        `json:"payment_method,omitempty" validate:"omitempty,max=50"`
}

type ListInvoicesRequest struct {
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty" validate:"omitempty,oneof=UNPAID PARTIAL PAID"`
	Client        *string        `json:"client,omitempty"`
	DateFrom      *time.Time     `json:"date_from,omitempty"`
	DateTo        *time.Time     `json:"date_to,omitempty"`
	Page          int            `json:"page" validate:"gte=0"`
	Limit         int            `json:"limit" validate:"gte=0,lte=200"`
}
