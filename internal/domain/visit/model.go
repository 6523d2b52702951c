package visit

import (
	"math"
	"time"
)

const (
	StatusOpen   = "OPEN"
	StatusBilled = "BILLED"
	// StatusClosed is reserved; nothing transitions a visit to it yet.
	StatusClosed = "CLOSED"
)

type Visit struct {
	ID          int64     `json:"visit_id"`
	ApptID      int64     `json:"appt_id"`
	VisitDate   time.Time `json:"visit_date"`
	Complaint   string    `json:"complaint"`
	Diagnosis   string    `json:"diagnosis"`
	Treatment   string    `json:"treatment"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`

	Items         []*Item         `json:"items"`
	Prescriptions []*Prescription `json:"prescriptions"`
}

func (v *Visit) IsBilled() bool { return v.Status == StatusBilled }

// VisitPatch carries a partial notes update; nil fields are left unchanged.
type VisitPatch struct {
	Complaint *string `json:"complaint"`
	Diagnosis *string `json:"diagnosis"`
	Treatment *string `json:"treatment"`
}

func (p VisitPatch) apply(v *Visit) {
	if p.Complaint != nil {
		v.Complaint = *p.Complaint
	}
	if p.Diagnosis != nil {
		v.Diagnosis = *p.Diagnosis
	}
	if p.Treatment != nil {
		v.Treatment = *p.Treatment
	}
}

// Item is one procedure performed during a visit. Qty is always 1; a
// repeated procedure is a second item.
type Item struct {
	ID          int64   `json:"item_id"`
	VisitID     int64   `json:"visit_id"`
	ProcedureID int64   `json:"procedure_id"`
	ProcName    string  `json:"proc_name"`
	Qty         int     `json:"qty"`
	Price       float64 `json:"price"`
	Amount      float64 `json:"amount"`
}

type Prescription struct {
	ID           int64  `json:"rx_id"`
	VisitID      int64  `json:"visit_id"`
	Medication   string `json:"medication"`
	Instructions string `json:"instructions"`
}

// RecomputeTotal sums item amounts, rounded to cents.
func RecomputeTotal(items []*Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return math.Round(total*100) / 100
}
