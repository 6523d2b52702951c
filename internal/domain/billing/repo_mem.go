package billing

import (
	"context"
	"sort"
	"sync"
)

type InvoiceRepoMem struct {
	mu     sync.RWMutex
	byID   map[int64]*Invoice
	lastID int64
	seq    int64
}

func NewInvoiceRepoMem() *InvoiceRepoMem {
	return &InvoiceRepoMem{byID: make(map[int64]*Invoice)}
}

func (r *InvoiceRepoMem) Create(_ context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.VisitID == inv.VisitID {
			return ErrAlreadyInvoiced
		}
	}
	r.lastID++
	inv.ID = r.lastID
	cp := *inv
	r.byID[inv.ID] = &cp
	return nil
}

func (r *InvoiceRepoMem) GetByID(_ context.Context, id int64) (*Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *InvoiceRepoMem) GetByVisit(_ context.Context, visitID int64) (*Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inv := range r.byID {
		if inv.VisitID == visitID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrInvoiceNotFound
}

func (r *InvoiceRepoMem) List(_ context.Context) ([]*Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Invoice, 0, len(r.byID))
	for _, inv := range r.byID {
		cp := *inv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InvoiceRepoMem) NextInvoiceSeq(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := int64(len(r.byID)); r.seq < n {
		r.seq = n
	}
	r.seq++
	return r.seq, nil
}
