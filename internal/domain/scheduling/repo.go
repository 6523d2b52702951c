package scheduling

import "context"

type AppointmentRepository interface {
	// Create assigns ID.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	// List returns matching appointments ordered by ScheduledAt, then ID.
	List(ctx context.Context, f Filter) ([]*Appointment, error)
}
