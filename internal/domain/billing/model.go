package billing

import (
	"fmt"
	"time"

	"github.com/dentaldesk/clinic/internal/domain/identity"
	"github.com/dentaldesk/clinic/internal/domain/scheduling"
	"github.com/dentaldesk/clinic/internal/domain/visit"
)

const (
	StatusUnpaid = "UNPAID"
	// StatusPaid and StatusCancelled are recognised but not produced yet.
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
)

type Invoice struct {
	ID          int64     `json:"invoice_id"`
	VisitID     int64     `json:"visit_id"`
	InvoiceNo   string    `json:"invoice_no"`
	InvoiceDate time.Time `json:"invoice_date"`
	Subtotal    float64   `json:"subtotal"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
}

// InvoiceSummary is an invoice list row.
type InvoiceSummary struct {
	Invoice
	PatientName string `json:"patient_name"`
	MRN         string `json:"mrn"`
}

// InvoiceDetails is everything needed to print an invoice or prescription.
type InvoiceDetails struct {
	Invoice
	Visit         *visit.Visit            `json:"visit"`
	Appointment   *scheduling.Appointment `json:"appointment"`
	Patient       *identity.Patient       `json:"patient"`
	Doctor        *identity.Doctor        `json:"doctor"`
	Items         []*visit.Item           `json:"items"`
	Prescriptions []*visit.Prescription   `json:"prescriptions"`
}

// FormatInvoiceNo renders INV-<year>-<seq> with seq padded to four digits.
func FormatInvoiceNo(year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}
