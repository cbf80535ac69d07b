package appointments

import (
	"strings"
	"time"
)

// Status define los estados de una cita.
// @Enum pending, approved, cancelled, completed, no_show
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// ParseStatus normaliza un status recibido por API (case-insensitive).
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusCancelled:
		return StatusCancelled, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusNoShow:
		return StatusNoShow, true
	}
	return "", false
}

// CanBeCancelled indica si el estado aún admite cancelación (semántica de UI;
// completed/no_show/cancelled son terminales).
func (s Status) CanBeCancelled() bool {
	return s == StatusPending || s == StatusApproved
}

// RequiresAction indica si la cita espera una decisión del staff.
func (s Status) RequiresAction() bool {
	return s == StatusPending
}

// IsTerminal: ya no hay transición posible vía workflow.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// Appointment es la entidad central del workflow de reservas.
// Invariantes:
//   - OwnerUserID es inmutable (exactamente un owner por cita).
//   - VetUserID y ActualAt quedan vacíos mientras Status == pending.
//   - La única transición expuesta es pending -> approved|cancelled, una sola vez.
type Appointment struct {
	ID          string
	PetID       string
	OwnerUserID string
	VetUserID   string // vacío hasta la aprobación; puede quedar vacío si no se asigna vet

	RequestedAt time.Time  // slot preferido por el owner; estrictamente futuro al crear
	ActualAt    *time.Time // slot confirmado; = RequestedAt al aprobar

	Reason     string // obligatorio
	Notes      string // libre, lo escribe el owner
	AdminNotes string // libre, lo escribe el admin en la transición

	Status Status

	CreatedAt       time.Time
	UpdatedAt       time.Time
	UpdatedByUserID string
}
