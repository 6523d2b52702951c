package catalog

import (
	"context"
	"sort"
	"sync"
)

type ProcedureRepoMem struct {
	mu   sync.RWMutex
	byID map[int64]Procedure
}

// NewProcedureRepoMem returns a store holding procs, or DefaultProcedures
// when none are given.
func NewProcedureRepoMem(procs ...Procedure) *ProcedureRepoMem {
	if len(procs) == 0 {
		procs = DefaultProcedures()
	}
	r := &ProcedureRepoMem{byID: make(map[int64]Procedure, len(procs))}
	for _, p := range procs {
		r.byID[p.ID] = p
	}
	return r
}

func (r *ProcedureRepoMem) GetByID(_ context.Context, id int64) (*Procedure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrProcedureNotFound
	}
	return &p, nil
}

func (r *ProcedureRepoMem) List(_ context.Context) ([]*Procedure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Procedure, 0, len(r.byID))
	for _, p := range r.byID {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
