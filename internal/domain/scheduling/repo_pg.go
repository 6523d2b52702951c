package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dentaldesk/clinic/internal/platform/db"
)

type appointmentRepoPG struct{ pool db.Querier }

func NewAppointmentRepoPG(pool db.Querier) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, appt_no, patient_id, doctor_id, scheduled_at, duration_min, status, remarks`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ApptNo, &a.PatientID, &a.DoctorID, &a.ScheduledAt,
		&a.DurationMin, &a.Status, &a.Remarks)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (appt_no, patient_id, doctor_id, scheduled_at, duration_min, status, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.ApptNo, a.PatientID, a.DoctorID, a.ScheduledAt, a.DurationMin, a.Status, a.Remarks,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointment SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != 0 {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, f.PatientID)
		idx++
	}
	if f.DoctorID != 0 {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, f.DoctorID)
		idx++
	}
	if !f.From.IsZero() {
		query += fmt.Sprintf(` AND scheduled_at >= $%d`, idx)
		args = append(args, f.From)
		idx++
	}
	if !f.To.IsZero() {
		query += fmt.Sprintf(` AND scheduled_at < $%d`, idx)
		args = append(args, f.To)
	}
	query += ` ORDER BY scheduled_at, id`

	rows, err := r.conn(ctx).Query(ctx, strings.TrimSpace(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
