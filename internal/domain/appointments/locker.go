package appointments

import (
	"context"
	"errors"
)

// ErrLockBusy: otro writer tiene el lock de la cita.
var ErrLockBusy = errors.New("appointment is being updated")

// Locker serializa mutaciones sobre una misma cita (single-writer por id).
// Junto con Repository.UpdateFromStatus cubre la carrera de dos transiciones
// concurrentes observando la misma cita pending.
type Locker interface {
	WithAppointmentLock(ctx context.Context, id string, fn func(ctx context.Context) error) error
}
