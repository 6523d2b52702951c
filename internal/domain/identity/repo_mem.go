package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// PatientRepoMem keeps patients in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type PatientRepoMem struct {
	mu     sync.RWMutex
	byID   map[int64]*Patient
	lastID int64
	mrnSeq int64
	clock  func() time.Time
}

func NewPatientRepoMem() *PatientRepoMem {
	return &PatientRepoMem{byID: make(map[int64]*Patient), clock: time.Now}
}

func (r *PatientRepoMem) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if strings.EqualFold(existing.MRN, p.MRN) {
			return ErrMRNTaken
		}
	}
	r.lastID++
	p.ID = r.lastID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.clock().UTC()
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *PatientRepoMem) GetByID(_ context.Context, id int64) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepoMem) GetByMRN(_ context.Context, mrn string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byID {
		if strings.EqualFold(p.MRN, mrn) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *PatientRepoMem) List(_ context.Context) ([]*Patient, error) {
	return r.filter(func(*Patient) bool { return true }), nil
}

func (r *PatientRepoMem) ListByPhone(_ context.Context, normalized string) ([]*Patient, error) {
	if normalized == "" {
		return nil, nil
	}
	return r.filter(func(p *Patient) bool { return p.MobileNorm == normalized }), nil
}

func (r *PatientRepoMem) filter(keep func(*Patient) bool) []*Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, 0, len(r.byID))
	for _, p := range r.byID {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *PatientRepoMem) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *PatientRepoMem) NextMRNSeq(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := int64(len(r.byID)); r.mrnSeq < n {
		r.mrnSeq = n
	}
	r.mrnSeq++
	return r.mrnSeq, nil
}

func (r *PatientRepoMem) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.PasswordHash = hash
	return nil
}

type DoctorRepoMem struct {
	mu     sync.RWMutex
	byID   map[int64]*Doctor
	lastID int64
}

func NewDoctorRepoMem() *DoctorRepoMem {
	return &DoctorRepoMem{byID: make(map[int64]*Doctor)}
}

func (r *DoctorRepoMem) Create(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	d.ID = r.lastID
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *DoctorRepoMem) GetByID(_ context.Context, id int64) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *DoctorRepoMem) Update(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; !ok {
		return ErrDoctorNotFound
	}
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *DoctorRepoMem) List(_ context.Context) ([]*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Doctor, 0, len(r.byID))
	for _, d := range r.byID {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
