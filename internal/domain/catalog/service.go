package catalog

import "context"

type Service struct {
	procs ProcedureRepository
}

func NewService(procs ProcedureRepository) *Service {
	return &Service{procs: procs}
}

func (s *Service) GetProcedure(ctx context.Context, id int64) (*Procedure, error) {
	return s.procs.GetByID(ctx, id)
}

func (s *Service) ListProcedures(ctx context.Context) ([]*Procedure, error) {
	return s.procs.List(ctx)
}
