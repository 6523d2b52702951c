package identity

import "context"

type PatientRepository interface {
	// Create assigns ID and CreatedAt. A duplicate MRN yields ErrMRNTaken.
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// GetByMRN matches case-insensitively.
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	ListByPhone(ctx context.Context, normalized string) ([]*Patient, error)
	Count(ctx context.Context) (int64, error)
	// NextMRNSeq returns a fresh MRN sequence number, never below count+1.
	NextMRNSeq(ctx context.Context) (int64, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	List(ctx context.Context) ([]*Doctor, error)
}
