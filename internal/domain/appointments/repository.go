package appointments

import (
	"context"
	"time"
)

// Repository es la frontera de persistencia. Sin lógica de negocio; el
// workflow decide, el store guarda.
type Repository interface {
	Create(ctx context.Context, a Appointment) error
	GetByID(ctx context.Context, id string) (Appointment, error)
	Update(ctx context.Context, a Appointment) error

	// UpdateFromStatus persiste a solo si el estado actual en el store sigue
	// siendo from (compare-and-set). Es la defensa contra lost updates cuando
	// dos transiciones concurrentes vieron la misma cita pending.
	UpdateFromStatus(ctx context.Context, a Appointment, from Status) error

	// Delete existe a nivel store (camino administrativo); ninguna regla del
	// workflow lo ejercita.
	Delete(ctx context.Context, id string) error

	ListByOwner(ctx context.Context, ownerUserID string) ([]Appointment, error)
	ListByVet(ctx context.Context, vetUserID string) ([]Appointment, error)
	ListByStatus(ctx context.Context, st Status) ([]Appointment, error)
	ListAll(ctx context.Context) ([]Appointment, error)

	// ListApprovedBetween devuelve citas aprobadas con ActualAt dentro de
	// [from, to], bordes inclusivos.
	ListApprovedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
}
