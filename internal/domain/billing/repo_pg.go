package billing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dentaldesk/clinic/internal/platform/db"
)

type invoiceRepoPG struct{ pool db.Querier }

func NewInvoiceRepoPG(pool db.Querier) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

func (r *invoiceRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const invoiceCols = `id, visit_id, invoice_no, invoice_date, subtotal, total_amount, status`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.VisitID, &inv.InvoiceNo, &inv.InvoiceDate, &inv.Subtotal,
		&inv.TotalAmount, &inv.Status)
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoice (visit_id, invoice_no, invoice_date, subtotal, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		inv.VisitID, inv.InvoiceNo, inv.InvoiceDate, inv.Subtotal, inv.TotalAmount, inv.Status,
	).Scan(&inv.ID)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyInvoiced
	}
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepoPG) getOne(ctx context.Context, where string, arg int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE `+where, arg))
	if db.IsNoRows(err) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *invoiceRepoPG) GetByVisit(ctx context.Context, visitID int64) (*Invoice, error) {
	return r.getOne(ctx, `visit_id = $1`, visitID)
}

func (r *invoiceRepoPG) List(ctx context.Context) ([]*Invoice, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+invoiceCols+` FROM invoice ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]*Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invoiceRepoPG) NextInvoiceSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT setval('invoice_no_seq',
			GREATEST(nextval('invoice_no_seq'), (SELECT COUNT(*) + 1 FROM invoice)))`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next invoice sequence: %w", err)
	}
	return seq, nil
}
