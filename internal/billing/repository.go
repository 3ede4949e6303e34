package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/facturio/facturio/internal/platform/db"
)

// RepositoryPort defines data access for billing documents. Reads outside a
// transaction go through it directly; every write runs inside WithTx so a
// document header and its lines always change together.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetQuote(ctx context.Context, companyID, id int64) (*Quote, error)
	ListQuotes(ctx context.Context, companyID int64) ([]Quote, error)
	GetInvoice(ctx context.Context, companyID, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, companyID int64, req ListInvoicesRequest, limit, offset int) ([]Invoice, int, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	// GetQuoteForUpdate loads a quote with its lines and locks the header row
	// for the remainder of the transaction.
	GetQuoteForUpdate(ctx context.Context, companyID, id int64) (*Quote, error)

	InsertQuote(ctx context.Context, q Quote) (int64, error)
	UpdateQuote(ctx context.Context, q Quote) error
	DeleteQuote(ctx context.Context, companyID, id int64) error

	InsertQuoteLine(ctx context.Context, line QuoteLine) (int64, error)
	UpdateQuoteLine(ctx context.Context, line QuoteLine) error
	DeleteQuoteLine(ctx context.Context, quoteID, lineID int64) error
	DeleteQuoteLines(ctx context.Context, quoteID int64) error

	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertInvoiceLine(ctx context.Context, line InvoiceLine) (int64, error)
	UpdateInvoicePayment(ctx context.Context, inv Invoice) error
	DeleteInvoice(ctx context.Context, companyID, id int64) error
	DeleteInvoiceLines(ctx context.Context, invoiceID int64) error
}

// Repository provides PostgreSQL backed persistence for billing documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a RepeatableRead transaction. Any error rolls the whole
// unit back, with constraint violations translated to ErrConflict.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	if err != nil {
		return translateError(err)
	}
	return nil
}

// translateError maps storage-layer constraint violations to ErrConflict.
// The unique index on invoices.quote_id is what makes conversion exactly-once
// even under concurrent requests; foreign keys block deleting a quote that an
// invoice still references.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23503") {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// ============================================================================
// QUOTE READS
// ============================================================================

const quoteColumns = `id, number, company_id, client_name, quote_date, valid_until,
	discount_percent, tax_percent, status, subtotal, total, created_at, updated_at`

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.Number, &q.CompanyID, &q.ClientName, &q.QuoteDate, &q.ValidUntil,
		&q.DiscountPercent, &q.TaxPercent, &q.Status, &q.Subtotal, &q.Total,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *Repository) GetQuote(ctx context.Context, companyID, id int64) (*Quote, error) {
	query := fmt.Sprintf("SELECT %s FROM quotes WHERE id = $1 AND company_id = $2", quoteColumns)
	q, err := scanQuote(r.pool.QueryRow(ctx, query, id, companyID))
	if err != nil {
		return nil, err
	}
	lines, err := loadQuoteLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	q.Lines = lines
	return q, nil
}

func (r *Repository) ListQuotes(ctx context.Context, companyID int64) ([]Quote, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM quotes
		WHERE company_id = $1
		ORDER BY quote_date DESC, id DESC
	`, quoteColumns)

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		err := rows.Scan(
			&q.ID, &q.Number, &q.CompanyID, &q.ClientName, &q.QuoteDate, &q.ValidUntil,
			&q.DiscountPercent, &q.TaxPercent, &q.Status, &q.Subtotal, &q.Total,
			&q.CreatedAt, &q.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range quotes {
		lines, err := loadQuoteLines(ctx, r.pool, quotes[i].ID)
		if err != nil {
			return nil, err
		}
		quotes[i].Lines = lines
	}
	return quotes, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadQuoteLines(ctx context.Context, q querier, quoteID int64) ([]QuoteLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, quote_id, description, unit_price, quantity, unit
		FROM quote_lines
		WHERE quote_id = $1
		ORDER BY id
	`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []QuoteLine
	for rows.Next() {
		var l QuoteLine
		if err := rows.Scan(&l.ID, &l.QuoteID, &l.Description, &l.UnitPrice, &l.Quantity, &l.Unit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ============================================================================
// INVOICE READS
// ============================================================================

const invoiceColumns = `id, number, company_id, quote_id, client_name, issue_date,
	payment_date, payment_status, payment_method, subtotal, total, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.CompanyID, &inv.QuoteID, &inv.ClientName, &inv.IssueDate,
		&inv.PaymentDate, &inv.PaymentStatus, &inv.PaymentMethod, &inv.Subtotal, &inv.Total,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *Repository) GetInvoice(ctx context.Context, companyID, id int64) (*Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices WHERE id = $1 AND company_id = $2", invoiceColumns)
	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id, companyID))
	if err != nil {
		return nil, err
	}
	lines, err := loadInvoiceLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

func loadInvoiceLines(ctx context.Context, q querier, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, description, unit_price, quantity, unit
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.UnitPrice, &l.Quantity, &l.Unit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListInvoices returns one page of invoices plus the total match count. The
// count and page queries share the same predicates and run concurrently.
func (r *Repository) ListInvoices(ctx context.Context, companyID int64, req ListInvoicesRequest, limit, offset int) ([]Invoice, int, error) {
	conditions := []string{"company_id = $1"}
	args := []any{companyID}
	argPos := 2

	if req.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argPos))
		args = append(args, *req.PaymentStatus)
		argPos++
	}
	if req.Client != nil && *req.Client != "" {
		conditions = append(conditions, fmt.Sprintf("client_name ILIKE $%d", argPos))
		args = append(args, "%"+*req.Client+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM invoices %s", whereClause)
	pageQuery := fmt.Sprintf(`
		SELECT %s FROM invoices
		%s
		ORDER BY issue_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, invoiceColumns, whereClause, argPos, argPos+1)
	pageArgs := append(append([]any{}, args...), limit, offset)

	var (
		total    int
		invoices []Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, countQuery, args...).Scan(&total)
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, pageQuery, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var inv Invoice
			err := rows.Scan(
				&inv.ID, &inv.Number, &inv.CompanyID, &inv.QuoteID, &inv.ClientName, &inv.IssueDate,
				&inv.PaymentDate, &inv.PaymentStatus, &inv.PaymentMethod, &inv.Subtotal, &inv.Total,
				&inv.CreatedAt, &inv.UpdatedAt,
			)
			if err != nil {
				return err
			}
			invoices = append(invoices, inv)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	for i := range invoices {
		lines, err := loadInvoiceLines(ctx, r.pool, invoices[i].ID)
		if err != nil {
			return nil, 0, err
		}
		invoices[i].Lines = lines
	}
	return invoices, total, nil
}

// ============================================================================
// TRANSACTIONAL WRITES
// ============================================================================

func (t *txRepo) GetQuoteForUpdate(ctx context.Context, companyID, id int64) (*Quote, error) {
	query := fmt.Sprintf("SELECT %s FROM quotes WHERE id = $1 AND company_id = $2 FOR UPDATE", quoteColumns)
	q, err := scanQuote(t.tx.QueryRow(ctx, query, id, companyID))
	if err != nil {
		return nil, err
	}
	lines, err := loadQuoteLines(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	q.Lines = lines
	return q, nil
}

func (t *txRepo) InsertQuote(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO quotes (number, company_id, client_name, quote_date, valid_until,
			discount_percent, tax_percent, status, subtotal, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING id
	`, q.Number, q.CompanyID, q.ClientName, q.QuoteDate, q.ValidUntil,
		q.DiscountPercent, q.TaxPercent, q.Status, q.Subtotal, q.Total).Scan(&id)
	if err != nil {
		return 0, translateError(err)
	}
	return id, nil
}

func (t *txRepo) UpdateQuote(ctx context.Context, q Quote) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE quotes
		SET client_name = $1, quote_date = $2, valid_until = $3, discount_percent = $4,
			tax_percent = $5, status = $6, subtotal = $7, total = $8, updated_at = now()
		WHERE id = $9 AND company_id = $10
	`, q.ClientName, q.QuoteDate, q.ValidUntil, q.DiscountPercent,
		q.TaxPercent, q.Status, q.Subtotal, q.Total, q.ID, q.CompanyID)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteQuote(ctx context.Context, companyID, id int64) error {
	tag, err := t.tx.Exec(ctx, "DELETE FROM quotes WHERE id = $1 AND company_id = $2", id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertQuoteLine(ctx context.Context, line QuoteLine) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO quote_lines (quote_id, description, unit_price, quantity, unit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, line.QuoteID, line.Description, line.UnitPrice, line.Quantity, line.Unit).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateQuoteLine(ctx context.Context, line QuoteLine) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE quote_lines
		SET description = $1, unit_price = $2, quantity = $3, unit = $4
		WHERE id = $5 AND quote_id = $6
	`, line.Description, line.UnitPrice, line.Quantity, line.Unit, line.ID, line.QuoteID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteQuoteLine(ctx context.Context, quoteID, lineID int64) error {
	_, err := t.tx.Exec(ctx, "DELETE FROM quote_lines WHERE id = $1 AND quote_id = $2", lineID, quoteID)
	return err
}

func (t *txRepo) DeleteQuoteLines(ctx context.Context, quoteID int64) error {
	_, err := t.tx.Exec(ctx, "DELETE FROM quote_lines WHERE quote_id = $1", quoteID)
	return err
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (number, company_id, quote_id, client_name, issue_date,
			payment_date, payment_status, payment_method, subtotal, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING id
	`, inv.Number, inv.CompanyID, inv.QuoteID, inv.ClientName, inv.IssueDate,
		inv.PaymentDate, inv.PaymentStatus, inv.PaymentMethod, inv.Subtotal, inv.Total).Scan(&id)
	if err != nil {
		return 0, translateError(err)
	}
	return id, nil
}

func (t *txRepo) InsertInvoiceLine(ctx context.Context, line InvoiceLine) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoice_lines (invoice_id, description, unit_price, quantity, unit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, line.InvoiceID, line.Description, line.UnitPrice, line.Quantity, line.Unit).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateInvoicePayment(ctx context.Context, inv Invoice) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE invoices
		SET payment_status = $1, payment_date = $2, payment_method = $3, updated_at = now()
		WHERE id = $4 AND company_id = $5
	`, inv.PaymentStatus, inv.PaymentDate, inv.PaymentMethod, inv.ID, inv.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteInvoice(ctx context.Context, companyID, id int64) error {
	tag, err := t.tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1 AND company_id = $2", id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteInvoiceLines(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, "DELETE FROM invoice_lines WHERE invoice_id = $1", invoiceID)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
