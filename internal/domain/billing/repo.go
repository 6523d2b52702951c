package billing

import "context"

type InvoiceRepository interface {
	// Create assigns ID. A second invoice for the same visit yields
	// ErrAlreadyInvoiced.
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	GetByVisit(ctx context.Context, visitID int64) (*Invoice, error)
	List(ctx context.Context) ([]*Invoice, error)
	// NextInvoiceSeq returns a fresh invoice number, never below count+1.
	NextInvoiceSeq(ctx context.Context) (int64, error)
}
