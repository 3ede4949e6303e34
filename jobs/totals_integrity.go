package jobs

import (
	"context"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturio/facturio/internal/billing"
)

// TotalsIntegrityJob recomputes document totals from persisted line items and
// logs every row whose stored amounts drifted. It never writes: drift means a
// code path bypassed the transactional update, and that is worth a human look
// before any repair.
type TotalsIntegrityJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTotalsIntegrityJob constructs the integrity scan job.
func NewTotalsIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *TotalsIntegrityJob {
	return &TotalsIntegrityJob{pool: pool, logger: logger}
}

// Handle processes TaskTotalsIntegrity tasks.
func (j *TotalsIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	drifted, err := j.scanQuotes(ctx)
	if err != nil {
		return err
	}
	invoiceDrifted, err := j.scanInvoices(ctx)
	if err != nil {
		return err
	}
	j.logger.Info("totals integrity scan finished",
		slog.Int("quotes_drifted", drifted),
		slog.Int("invoices_drifted", invoiceDrifted))
	return nil
}

func (j *TotalsIntegrityJob) scanQuotes(ctx context.Context) (int, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT q.id, q.company_id, q.discount_percent, q.tax_percent, q.subtotal, q.total,
			COALESCE(json_agg(json_build_object('price', l.unit_price, 'qty', l.quantity))
				FILTER (WHERE l.id IS NOT NULL), '[]')
		FROM quotes q
		LEFT JOIN quote_lines l ON l.quote_id = q.id
		GROUP BY q.id
	`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	drifted := 0
	for rows.Next() {
		var (
			id, companyID             int64
			discount, tax             float64
			storedSubtotal, storedTot float64
			lines                     []struct {
				Price float64 `json:"price"`
				Qty   float64 `json:"qty"`
			}
		)
		if err := rows.Scan(&id, &companyID, &discount, &tax, &storedSubtotal, &storedTot, &lines); err != nil {
			return drifted, err
		}

		amounts := make([]billing.LineAmount, len(lines))
		for i, l := range lines {
			amounts[i] = billing.LineAmount{UnitPrice: l.Price, Quantity: l.Qty}
		}
		totals, err := billing.ComputeTotals(amounts, discount, tax)
		if err != nil {
			// Invalid stored line data is itself drift.
			j.logger.Warn("quote has invalid line data",
				slog.Int64("quote_id", id),
				slog.Int64("company_id", companyID),
				slog.Any("error", err))
			drifted++
			continue
		}
		if !centsEqual(totals.Subtotal, storedSubtotal) || !centsEqual(totals.Total, storedTot) {
			j.logger.Warn("quote totals drifted",
				slog.Int64("quote_id", id),
				slog.Int64("company_id", companyID),
				slog.Float64("stored_subtotal", storedSubtotal),
				slog.Float64("computed_subtotal", totals.Subtotal),
				slog.Float64("stored_total", storedTot),
				slog.Float64("computed_total", totals.Total))
			drifted++
		}
	}
	return drifted, rows.Err()
}

// scanInvoices checks the invoice subtotal against its line items. The grand
// total cannot be recomputed here because the discount and tax rates live on
// the source quote, so only the line-derived subtotal is verified.
func (j *TotalsIntegrityJob) scanInvoices(ctx context.Context) (int, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT i.id, i.company_id, i.subtotal,
			COALESCE(SUM(l.unit_price * l.quantity), 0)
		FROM invoices i
		LEFT JOIN invoice_lines l ON l.invoice_id = i.id
		GROUP BY i.id
	`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	drifted := 0
	for rows.Next() {
		var (
			id, companyID  int64
			storedSubtotal float64
			lineSum        float64
		)
		if err := rows.Scan(&id, &companyID, &storedSubtotal, &lineSum); err != nil {
			return drifted, err
		}
		if !centsEqual(billing.Round2(lineSum), storedSubtotal) {
			j.logger.Warn("invoice subtotal drifted",
				slog.Int64("invoice_id", id),
				slog.Int64("company_id", companyID),
				slog.Float64("stored_subtotal", storedSubtotal),
				slog.Float64("computed_subtotal", billing.Round2(lineSum)))
			drifted++
		}
	}
	return drifted, rows.Err()
}

func centsEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}
