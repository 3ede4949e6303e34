package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/facturio/facturio/internal/shared"
)

// Service implements quote and invoice use cases on top of RepositoryPort.
// All multi-row writes run inside a single transaction so stored totals,
// document headers and line items never diverge.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ============================================================================
// QUOTES
// ============================================================================

func (s *Service) ListQuotes(ctx context.Context, companyID int64) ([]Quote, error) {
	quotes, err := s.repo.ListQuotes(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, nil
}

func (s *Service) GetQuote(ctx context.Context, companyID, id int64) (*Quote, error) {
	return s.repo.GetQuote(ctx, companyID, id)
}

// CreateQuote persists a new quote with its line items and computed totals.
func (s *Service) CreateQuote(ctx context.Context, companyID int64, req CreateQuoteRequest) (*Quote, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: a quote needs at least one line item", ErrValidation)
	}
	discount, tax := NormalizePercents(req.DiscountPercent, req.TaxPercent)
	totals, err := ComputeTotals(inputLineAmounts(req.Lines), discount, tax)
	if err != nil {
		return nil, err
	}

	status := QuoteStatusDraft
	if req.Status != nil {
		if !ValidQuoteStatus(*req.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
		}
		status = *req.Status
	}

	var quoteID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertQuote(ctx, Quote{
			Number:          req.Number,
			CompanyID:       companyID,
			ClientName:      req.ClientName,
			QuoteDate:       req.QuoteDate,
			ValidUntil:      req.ValidUntil,
			DiscountPercent: discount,
			TaxPercent:      tax,
			Status:          status,
			Subtotal:        totals.Subtotal,
			Total:           totals.Total,
		})
		if err != nil {
			return err
		}
		quoteID = id
		for _, input := range req.Lines {
			if _, err := tx.InsertQuoteLine(ctx, newQuoteLine(id, input)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quote created",
		slog.Int64("quote_id", quoteID),
		slog.Int64("company_id", companyID),
		slog.String("number", req.Number))
	return s.repo.GetQuote(ctx, companyID, quoteID)
}

// UpdateQuote applies a partial update. When line items are present they are
// reconciled against the stored set and the totals are recomputed from the
// resulting lines, all inside one transaction over a locked quote row.
func (s *Service) UpdateQuote(ctx context.Context, companyID, id int64, req UpdateQuoteRequest) (*Quote, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		quote, err := tx.GetQuoteForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}

		if req.Status != nil {
			if !ValidQuoteStatus(*req.Status) {
				return fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
			}
			if !CanTransition(quote.Status, *req.Status) {
				return fmt.Errorf("%w: cannot move quote from %s to %s", ErrValidation, quote.Status, *req.Status)
			}
			quote.Status = *req.Status
		}
		if req.ClientName != nil {
			quote.ClientName = *req.ClientName
		}
		if req.QuoteDate != nil {
			quote.QuoteDate = *req.QuoteDate
		}
		if req.ValidUntil != nil {
			quote.ValidUntil = req.ValidUntil
		}
		if req.DiscountPercent != nil {
			quote.DiscountPercent = clampPercent(*req.DiscountPercent)
		}
		if req.TaxPercent != nil {
			quote.TaxPercent = clampPercent(*req.TaxPercent)
		}

		effective := quote.Lines
		if req.Lines != nil {
			if !CanEditLines(quote.Status) {
				return fmt.Errorf("%w: line items cannot change while quote is %s", ErrValidation, quote.Status)
			}
			plan := ReconcileLines(quote.Lines, *req.Lines)
			if err := applyLinePlan(ctx, tx, quote.ID, plan); err != nil {
				return err
			}
			effective = desiredLines(*req.Lines)
		}

		totals, err := ComputeTotals(quoteLineAmounts(effective), quote.DiscountPercent, quote.TaxPercent)
		if err != nil {
			return err
		}
		quote.Subtotal = totals.Subtotal
		quote.Total = totals.Total

		return tx.UpdateQuote(ctx, *quote)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quote updated", slog.Int64("quote_id", id), slog.Int64("company_id", companyID))
	return s.repo.GetQuote(ctx, companyID, id)
}

func (s *Service) DeleteQuote(ctx context.Context, companyID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteQuoteLines(ctx, id); err != nil {
			return err
		}
		return tx.DeleteQuote(ctx, companyID, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("quote deleted", slog.Int64("quote_id", id), slog.Int64("company_id", companyID))
	return nil
}

// applyLinePlan executes a reconciliation plan against storage.
func applyLinePlan(ctx context.Context, tx TxRepository, quoteID int64, plan LinePlan) error {
	for _, lineID := range plan.Delete {
		if err := tx.DeleteQuoteLine(ctx, quoteID, lineID); err != nil {
			return err
		}
	}
	for _, upd := range plan.Update {
		line := newQuoteLine(quoteID, upd.Input)
		line.ID = upd.ID
		if err := tx.UpdateQuoteLine(ctx, line); err != nil {
			return err
		}
	}
	for _, input := range plan.Create {
		if _, err := tx.InsertQuoteLine(ctx, newQuoteLine(quoteID, input)); err != nil {
			return err
		}
	}
	return nil
}

// desiredLines converts the incoming line set to the shape storage holds after
// reconciliation, so the totals calculator sees exactly what was persisted.
func desiredLines(incoming []QuoteLineInput) []QuoteLine {
	result := make([]QuoteLine, len(incoming))
	for i, input := range incoming {
		result[i] = QuoteLine{
			Description: input.Description,
			UnitPrice:   input.UnitPrice,
			Quantity:    input.Quantity,
			Unit:        input.Unit,
		}
		if input.ID != nil {
			result[i].ID = *input.ID
		}
	}
	return result
}

func newQuoteLine(quoteID int64, input QuoteLineInput) QuoteLine {
	unit := input.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	return QuoteLine{
		QuoteID:     quoteID,
		Description: input.Description,
		UnitPrice:   input.UnitPrice,
		Quantity:    input.Quantity,
		Unit:        unit,
	}
}

// ============================================================================
// CONVERSION
// ============================================================================

// ConvertQuoteToInvoice turns an accepted quote into an invoice. The quote row
// is locked for the duration, totals are recomputed from the quote's current
// lines, and the invoice plus its copied lines are inserted atomically. The
// unique index on invoices.quote_id guarantees at most one invoice per quote;
// a second attempt surfaces as ErrConflict.
func (s *Service) ConvertQuoteToInvoice(ctx context.Context, companyID, quoteID int64) (*Invoice, error) {
	var invoiceID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		quote, err := tx.GetQuoteForUpdate(ctx, companyID, quoteID)
		if err != nil {
			return err
		}
		if !CanConvert(quote.Status) {
			return fmt.Errorf("%w: quote is %s", ErrNotEligible, quote.Status)
		}

		totals, err := ComputeTotals(quoteLineAmounts(quote.Lines), quote.DiscountPercent, quote.TaxPercent)
		if err != nil {
			return err
		}

		now := time.Now()
		id, err := tx.InsertInvoice(ctx, Invoice{
			Number:        GenerateInvoiceNumber(now),
			CompanyID:     companyID,
			QuoteID:       quote.ID,
			ClientName:    quote.ClientName,
			IssueDate:     now,
			PaymentStatus: PaymentStatusUnpaid,
			Subtotal:      totals.Subtotal,
			Total:         totals.Total,
		})
		if err != nil {
			return err
		}
		invoiceID = id

		for _, line := range quote.Lines {
			_, err := tx.InsertInvoiceLine(ctx, InvoiceLine{
				InvoiceID:   id,
				Description: line.Description,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
				Unit:        line.Unit,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quote converted",
		slog.Int64("quote_id", quoteID),
		slog.Int64("invoice_id", invoiceID),
		slog.Int64("company_id", companyID))
	return s.repo.GetInvoice(ctx, companyID, invoiceID)
}

// ============================================================================
// INVOICES
// ============================================================================

func (s *Service) GetInvoice(ctx context.Context, companyID, id int64) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, companyID, id)
}

// ListInvoices returns one page of invoices with pagination metadata.
func (s *Service) ListInvoices(ctx context.Context, companyID int64, req ListInvoicesRequest) ([]Invoice, shared.Pagination, error) {
	page := shared.NewPagination(req.Page, req.Limit, 0)
	invoices, total, err := s.repo.ListInvoices(ctx, companyID, req, page.PerPage, page.Offset())
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// UpdateInvoicePayment changes payment tracking fields. Amounts and line items
// are frozen at conversion time and cannot be modified here or anywhere else.
func (s *Service) UpdateInvoicePayment(ctx context.Context, companyID, id int64, req UpdateInvoicePaymentRequest) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	if req.PaymentStatus != nil {
		inv.PaymentStatus = *req.PaymentStatus
	}
	if req.PaymentDate != nil {
		inv.PaymentDate = req.PaymentDate
	}
	if req.PaymentMethod != nil {
		inv.PaymentMethod = req.PaymentMethod
	}
	// Marking an invoice paid without a date stamps it with the current time.
	if inv.PaymentStatus == PaymentStatusPaid && inv.PaymentDate == nil {
		now := time.Now()
		inv.PaymentDate = &now
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateInvoicePayment(ctx, *inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice payment updated",
		slog.Int64("invoice_id", id),
		slog.Int64("company_id", companyID),
		slog.String("payment_status", string(inv.PaymentStatus)))
	return s.repo.GetInvoice(ctx, companyID, id)
}

func (s *Service) DeleteInvoice(ctx context.Context, companyID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteInvoiceLines(ctx, id); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, companyID, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("invoice deleted", slog.Int64("invoice_id", id), slog.Int64("company_id", companyID))
	return nil
}
