package visit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dentaldesk/clinic/internal/platform/db"
)

type repoPG struct{ pool db.Querier }

func NewRepoPG(pool db.Querier) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const visitCols = `id, appt_id, visit_date, complaint, diagnosis, treatment, total_amount, status`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.ApptID, &v.VisitDate, &v.Complaint, &v.Diagnosis, &v.Treatment,
		&v.TotalAmount, &v.Status)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit (appt_id, visit_date, complaint, diagnosis, treatment, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		v.ApptID, v.VisitDate, v.Complaint, v.Diagnosis, v.Treatment, v.TotalAmount, v.Status,
	).Scan(&v.ID)
	if db.IsUniqueViolation(err) {
		return ErrVisitExists
	}
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (r *repoPG) getOne(ctx context.Context, where string, arg int64) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE `+where, arg))
	if db.IsNoRows(err) {
		return nil, ErrVisitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return v, nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Visit, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *repoPG) GetByAppointment(ctx context.Context, apptID int64) (*Visit, error) {
	return r.getOne(ctx, `appt_id = $1`, apptID)
}

func (r *repoPG) exec(ctx context.Context, what string, notFound error, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (r *repoPG) UpdateNotes(ctx context.Context, v *Visit) error {
	return r.exec(ctx, "update visit notes", ErrVisitNotFound,
		`UPDATE visit SET complaint = $2, diagnosis = $3, treatment = $4 WHERE id = $1`,
		v.ID, v.Complaint, v.Diagnosis, v.Treatment)
}

func (r *repoPG) SetTotal(ctx context.Context, id int64, total float64) error {
	return r.exec(ctx, "update visit total", ErrVisitNotFound,
		`UPDATE visit SET total_amount = $2 WHERE id = $1`, id, total)
}

func (r *repoPG) SetStatus(ctx context.Context, id int64, status string) error {
	return r.exec(ctx, "update visit status", ErrVisitNotFound,
		`UPDATE visit SET status = $2 WHERE id = $1`, id, status)
}

// -- Items --

const itemCols = `id, visit_id, procedure_id, proc_name, qty, price, amount`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.VisitID, &it.ProcedureID, &it.ProcName, &it.Qty, &it.Price, &it.Amount)
	return &it, err
}

func (r *repoPG) ListItems(ctx context.Context, visitID int64) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM visit_item WHERE visit_id = $1 ORDER BY id`, visitID)
	if err != nil {
		return nil, fmt.Errorf("list visit items: %w", err)
	}
	defer rows.Close()

	out := make([]*Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repoPG) GetItem(ctx context.Context, id int64) (*Item, error) {
	it, err := scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM visit_item WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get visit item: %w", err)
	}
	return it, nil
}

func (r *repoPG) CreateItem(ctx context.Context, it *Item) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit_item (visit_id, procedure_id, proc_name, qty, price, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		it.VisitID, it.ProcedureID, it.ProcName, it.Qty, it.Price, it.Amount,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("insert visit item: %w", err)
	}
	return nil
}

func (r *repoPG) UpdateItem(ctx context.Context, it *Item) error {
	return r.exec(ctx, "update visit item", ErrItemNotFound, `
		UPDATE visit_item SET procedure_id = $2, proc_name = $3, qty = $4, price = $5, amount = $6
		WHERE id = $1`,
		it.ID, it.ProcedureID, it.ProcName, it.Qty, it.Price, it.Amount)
}

func (r *repoPG) DeleteItem(ctx context.Context, id int64) error {
	return r.exec(ctx, "delete visit item", ErrItemNotFound, `DELETE FROM visit_item WHERE id = $1`, id)
}

// -- Prescriptions --

const rxCols = `id, visit_id, medication, instructions`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var rx Prescription
	err := row.Scan(&rx.ID, &rx.VisitID, &rx.Medication, &rx.Instructions)
	return &rx, err
}

func (r *repoPG) ListPrescriptions(ctx context.Context, visitID int64) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+rxCols+` FROM prescription WHERE visit_id = $1 ORDER BY id`, visitID)
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()

	out := make([]*Prescription, 0)
	for rows.Next() {
		rx, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		out = append(out, rx)
	}
	return out, rows.Err()
}

func (r *repoPG) GetPrescription(ctx context.Context, id int64) (*Prescription, error) {
	rx, err := scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+rxCols+` FROM prescription WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prescription: %w", err)
	}
	return rx, nil
}

func (r *repoPG) CreatePrescription(ctx context.Context, rx *Prescription) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (visit_id, medication, instructions)
		VALUES ($1, $2, $3)
		RETURNING id`,
		rx.VisitID, rx.Medication, rx.Instructions,
	).Scan(&rx.ID)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *repoPG) UpdatePrescription(ctx context.Context, rx *Prescription) error {
	return r.exec(ctx, "update prescription", ErrPrescriptionNotFound,
		`UPDATE prescription SET medication = $2, instructions = $3 WHERE id = $1`,
		rx.ID, rx.Medication, rx.Instructions)
}

func (r *repoPG) DeletePrescription(ctx context.Context, id int64) error {
	return r.exec(ctx, "delete prescription", ErrPrescriptionNotFound,
		`DELETE FROM prescription WHERE id = $1`, id)
}
