package notifier

import (
	"context"
	"time"

	"vet-appointments/internal/platform/logger"
	"vet-appointments/internal/ports/notify"
)

// LogNotifier escribe las notificaciones al log en vez de enviarlas.
// Es el default cuando no hay broker configurado (dev, tests).
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) VetAssigned(ctx context.Context, appt notify.Appointment, vetUserID string) error {
	n.log.Info("notification: vet assigned", map[string]any{
		"appointment_id": appt.ID,
		"vet_user_id":    vetUserID,
		"at":             appt.At.Format(time.RFC3339),
	})
	return nil
}

func (n *LogNotifier) AppointmentApproved(ctx context.Context, appt notify.Appointment, vetDisplayName string) error {
	n.log.Info("notification: appointment approved", map[string]any{
		"appointment_id": appt.ID,
		"owner_user_id":  appt.OwnerUserID,
		"vet_name":       vetDisplayName,
		"at":             appt.At.Format(time.RFC3339),
	})
	return nil
}

func (n *LogNotifier) AppointmentCancelled(ctx context.Context, appt notify.Appointment, reason string) error {
	n.log.Info("notification: appointment cancelled", map[string]any{
		"appointment_id": appt.ID,
		"owner_user_id":  appt.OwnerUserID,
		"reason":         reason,
	})
	return nil
}
