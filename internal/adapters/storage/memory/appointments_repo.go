package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"vet-appointments/internal/domain/appointments"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("status changed concurrently")
)

type appointmentsRepo struct {
	mu   sync.RWMutex
	byID map[string]appointments.Appointment

	// order mantiene el orden de inserción, para que los listados salgan
	// estables igual que el adapter de Postgres (created_at ASC).
	order []string
}

func NewAppointmentsRepo() appointments.Repository {
	return &appointmentsRepo{
		byID: make(map[string]appointments.Appointment),
	}
}

func (r *appointmentsRepo) Create(ctx context.Context, a appointments.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return errors.New("appointment id required")
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("appointment already exists")
	}
	r.byID[a.ID] = a
	r.order = append(r.order, a.ID)
	return nil
}

func (r *appointmentsRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return appointments.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *appointmentsRepo) Update(ctx context.Context, a appointments.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		return errors.New("appointment id required")
	}
	if _, exists := r.byID[a.ID]; !exists {
		return ErrNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *appointmentsRepo) UpdateFromStatus(ctx context.Context, a appointments.Appointment, from appointments.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.byID[a.ID]
	if !exists {
		return ErrNotFound
	}
	if current.Status != from {
		return ErrConflict
	}
	r.byID[a.ID] = a
	return nil
}

func (r *appointmentsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return ErrNotFound
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *appointmentsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]appointments.Appointment, error) {
	return r.list(func(a appointments.Appointment) bool {
		return a.OwnerUserID == ownerUserID
	}), nil
}

func (r *appointmentsRepo) ListByVet(ctx context.Context, vetUserID string) ([]appointments.Appointment, error) {
	return r.list(func(a appointments.Appointment) bool {
		return a.VetUserID == vetUserID
	}), nil
}

func (r *appointmentsRepo) ListByStatus(ctx context.Context, st appointments.Status) ([]appointments.Appointment, error) {
	return r.list(func(a appointments.Appointment) bool {
		return a.Status == st
	}), nil
}

func (r *appointmentsRepo) ListAll(ctx context.Context) ([]appointments.Appointment, error) {
	return r.list(func(appointments.Appointment) bool { return true }), nil
}

// Bordes inclusivos: un ActualAt exacto en from o to cuenta como match.
func (r *appointmentsRepo) ListApprovedBetween(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error) {
	return r.list(func(a appointments.Appointment) bool {
		if a.Status != appointments.StatusApproved || a.ActualAt == nil {
			return false
		}
		return !a.ActualAt.Before(from) && !a.ActualAt.After(to)
	}), nil
}

func (r *appointmentsRepo) list(match func(appointments.Appointment) bool) []appointments.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]appointments.Appointment, 0)
	for _, id := range r.order {
		a, ok := r.byID[id]
		if !ok {
			continue
		}
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}
