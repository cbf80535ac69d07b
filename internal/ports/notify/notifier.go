package notify

import (
	"context"
	"time"
)

// Appointment es la proyección mínima de una cita que viaja en una
// notificación. El puerto no importa el dominio para no acoplar el
// transporte a la entidad completa.
type Appointment struct {
	ID          string
	PetID       string
	OwnerUserID string
	VetUserID   string
	At          time.Time
	Reason      string
}

// Notifier es el colaborador externo de notificaciones.
// Contrato: best-effort. El workflow loguea fallos pero nunca los propaga;
// una notificación caída no revierte una transición ya persistida.
type Notifier interface {
	VetAssigned(ctx context.Context, appt Appointment, vetUserID string) error
	AppointmentApproved(ctx context.Context, appt Appointment, vetDisplayName string) error
	AppointmentCancelled(ctx context.Context, appt Appointment, reason string) error
}
