package visit

import "context"

// Repository stores visits with their items and prescriptions. Visit reads
// return the header only; item and prescription lists are loaded separately.
type Repository interface {
	// Create assigns ID. A second visit for the same appointment yields
	// ErrVisitExists.
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id int64) (*Visit, error)
	GetByAppointment(ctx context.Context, apptID int64) (*Visit, error)
	UpdateNotes(ctx context.Context, v *Visit) error
	SetTotal(ctx context.Context, id int64, total float64) error
	SetStatus(ctx context.Context, id int64, status string) error

	ListItems(ctx context.Context, visitID int64) ([]*Item, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	CreateItem(ctx context.Context, it *Item) error
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, id int64) error

	ListPrescriptions(ctx context.Context, visitID int64) ([]*Prescription, error)
	GetPrescription(ctx context.Context, id int64) (*Prescription, error)
	CreatePrescription(ctx context.Context, rx *Prescription) error
	UpdatePrescription(ctx context.Context, rx *Prescription) error
	DeletePrescription(ctx context.Context, id int64) error
}
