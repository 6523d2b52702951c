package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dentaldesk/clinic/internal/platform/db"
)

type patientRepoPG struct{ pool db.Querier }

func NewPatientRepoPG(pool db.Querier) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, mrn, full_name, guardian_name, dob, gender, mobile_no, mobile_norm,
	address, password_hash, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FullName, &p.GuardianName, &p.DOB, &p.Gender,
		&p.MobileNo, &p.MobileNorm, &p.Address, &p.PasswordHash, &p.CreatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (mrn, full_name, guardian_name, dob, gender, mobile_no, mobile_norm,
			address, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		p.MRN, p.FullName, p.GuardianName, p.DOB, p.Gender, p.MobileNo, p.MobileNorm,
		p.Address, p.PasswordHash,
	).Scan(&p.ID, &p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrMRNTaken
	}
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE upper(mrn) = upper($1)`, mrn))
	if db.IsNoRows(err) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient by mrn: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context) ([]*Patient, error) {
	return r.query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY id`)
}

func (r *patientRepoPG) ListByPhone(ctx context.Context, normalized string) ([]*Patient, error) {
	if normalized == "" {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+patientCols+` FROM patient WHERE mobile_norm = $1 ORDER BY id`, normalized)
}

func (r *patientRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *patientRepoPG) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}

func (r *patientRepoPG) NextMRNSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT setval('patient_mrn_seq',
			GREATEST(nextval('patient_mrn_seq'), (SELECT COUNT(*) + 1 FROM patient)))`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next mrn sequence: %w", err)
	}
	return seq, nil
}

func (r *patientRepoPG) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update patient password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

type doctorRepoPG struct{ pool db.Querier }

func NewDoctorRepoPG(pool db.Querier) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `id, code, registration_no, full_name, specialty, active, image_url`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Code, &d.RegistrationNo, &d.FullName, &d.Specialty, &d.Active, &d.ImageURL)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor (code, registration_no, full_name, specialty, active, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		d.Code, d.RegistrationNo, d.FullName, d.Specialty, d.Active, d.ImageURL,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET code = $2, registration_no = $3, full_name = $4, specialty = $5,
			active = $6, image_url = $7
		WHERE id = $1`,
		d.ID, d.Code, d.RegistrationNo, d.FullName, d.Specialty, d.Active, d.ImageURL)
	if err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
