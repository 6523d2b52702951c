package visit

import (
	"context"
	"sort"
	"sync"
)

type RepoMem struct {
	mu     sync.RWMutex
	visits map[int64]*Visit
	items  map[int64]*Item
	rxs    map[int64]*Prescription

	lastVisitID int64
	lastItemID  int64
	lastRxID    int64
}

func NewRepoMem() *RepoMem {
	return &RepoMem{
		visits: make(map[int64]*Visit),
		items:  make(map[int64]*Item),
		rxs:    make(map[int64]*Prescription),
	}
}

func headerCopy(v *Visit) *Visit {
	cp := *v
	cp.Items = nil
	cp.Prescriptions = nil
	return &cp
}

func (r *RepoMem) Create(_ context.Context, v *Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.visits {
		if existing.ApptID == v.ApptID {
			return ErrVisitExists
		}
	}
	r.lastVisitID++
	v.ID = r.lastVisitID
	r.visits[v.ID] = headerCopy(v)
	return nil
}

func (r *RepoMem) GetByID(_ context.Context, id int64) (*Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, ErrVisitNotFound
	}
	return headerCopy(v), nil
}

func (r *RepoMem) GetByAppointment(_ context.Context, apptID int64) (*Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.visits {
		if v.ApptID == apptID {
			return headerCopy(v), nil
		}
	}
	return nil, ErrVisitNotFound
}

func (r *RepoMem) UpdateNotes(_ context.Context, v *Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.visits[v.ID]
	if !ok {
		return ErrVisitNotFound
	}
	stored.Complaint, stored.Diagnosis, stored.Treatment = v.Complaint, v.Diagnosis, v.Treatment
	return nil
}

func (r *RepoMem) SetTotal(_ context.Context, id int64, total float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return ErrVisitNotFound
	}
	v.TotalAmount = total
	return nil
}

func (r *RepoMem) SetStatus(_ context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return ErrVisitNotFound
	}
	v.Status = status
	return nil
}

// -- Items --

func (r *RepoMem) ListItems(_ context.Context, visitID int64) ([]*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Item, 0)
	for _, it := range r.items {
		if it.VisitID == visitID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RepoMem) GetItem(_ context.Context, id int64) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *RepoMem) CreateItem(_ context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visits[it.VisitID]; !ok {
		return ErrVisitNotFound
	}
	r.lastItemID++
	it.ID = r.lastItemID
	cp := *it
	r.items[it.ID] = &cp
	return nil
}

func (r *RepoMem) UpdateItem(_ context.Context, it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; !ok {
		return ErrItemNotFound
	}
	cp := *it
	r.items[it.ID] = &cp
	return nil
}

func (r *RepoMem) DeleteItem(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

// -- Prescriptions --

func (r *RepoMem) ListPrescriptions(_ context.Context, visitID int64) ([]*Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Prescription, 0)
	for _, rx := range r.rxs {
		if rx.VisitID == visitID {
			cp := *rx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RepoMem) GetPrescription(_ context.Context, id int64) (*Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rx, ok := r.rxs[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	cp := *rx
	return &cp, nil
}

func (r *RepoMem) CreatePrescription(_ context.Context, rx *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visits[rx.VisitID]; !ok {
		return ErrVisitNotFound
	}
	r.lastRxID++
	rx.ID = r.lastRxID
	cp := *rx
	r.rxs[rx.ID] = &cp
	return nil
}

func (r *RepoMem) UpdatePrescription(_ context.Context, rx *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rxs[rx.ID]; !ok {
		return ErrPrescriptionNotFound
	}
	cp := *rx
	r.rxs[rx.ID] = &cp
	return nil
}

func (r *RepoMem) DeletePrescription(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rxs[id]; !ok {
		return ErrPrescriptionNotFound
	}
	delete(r.rxs, id)
	return nil
}
