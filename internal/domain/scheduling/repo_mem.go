package scheduling

import (
	"context"
	"sort"
	"sync"
)

type AppointmentRepoMem struct {
	mu     sync.RWMutex
	byID   map[int64]*Appointment
	lastID int64
}

func NewAppointmentRepoMem() *AppointmentRepoMem {
	return &AppointmentRepoMem{byID: make(map[int64]*Appointment)}
}

func (r *AppointmentRepoMem) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	a.ID = r.lastID
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *AppointmentRepoMem) GetByID(_ context.Context, id int64) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AppointmentRepoMem) UpdateStatus(_ context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	return nil
}

func (r *AppointmentRepoMem) List(_ context.Context, f Filter) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Appointment, 0)
	for _, a := range r.byID {
		if f.Matches(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
