package catalog

import "context"

type ProcedureRepository interface {
	GetByID(ctx context.Context, id int64) (*Procedure, error)
	List(ctx context.Context) ([]*Procedure, error)
}
