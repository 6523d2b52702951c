package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dentaldesk/clinic/internal/platform/db"
)

type procedureRepoPG struct{ pool db.Querier }

func NewProcedureRepoPG(pool db.Querier) ProcedureRepository { return &procedureRepoPG{pool: pool} }

const procedureCols = `id, code, name, description, price`

func scanProcedure(row pgx.Row) (*Procedure, error) {
	var p Procedure
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Price)
	return &p, err
}

func (r *procedureRepoPG) GetByID(ctx context.Context, id int64) (*Procedure, error) {
	p, err := scanProcedure(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+procedureCols+` FROM procedure WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrProcedureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get procedure: %w", err)
	}
	return p, nil
}

func (r *procedureRepoPG) List(ctx context.Context) ([]*Procedure, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+procedureCols+` FROM procedure ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list procedures: %w", err)
	}
	defer rows.Close()

	var out []*Procedure
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan procedure: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
