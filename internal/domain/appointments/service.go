package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"vet-appointments/internal/platform/logger"
	"vet-appointments/internal/ports/directory"
	"vet-appointments/internal/ports/notify"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPastDate     = errors.New("future_date_required")
	ErrNotFound     = errors.New("appointment not found")
	ErrForbidden    = errors.New("forbidden")
	ErrBadState     = errors.New("appointment already decided")
	ErrConflict     = errors.New("concurrent update, retry")
)

const defaultCancelReason = "appointment cancelled by clinic staff"

// Service orquesta el ciclo de vida de citas: valida input, consulta la
// política de acceso, muta vía Repository y dispara notificaciones en las
// transiciones. Las notificaciones son best-effort (se loguean, no se
// propagan).
type Service struct {
	repo      Repository
	locker    Locker
	conflicts ConflictDetector
	notifier  notify.Notifier
	directory directory.Directory
	log       logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, locker Locker, notifier notify.Notifier, dir directory.Directory, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		conflicts: NewConflictDetector(repo),
		notifier:  notifier,
		directory: dir,
		log:       log,
		now:       time.Now,
	}
}

// Conflicts expone el detector para chequeos puntuales del staff.
func (s *Service) Conflicts() ConflictDetector {
	return s.conflicts
}

type RequestInput struct {
	// OwnerUserID solo lo usa un admin reservando a nombre de un owner.
	// Para un owner se ignora: siempre reserva como sí mismo.
	OwnerUserID string
	PetID       string
	RequestedAt time.Time
	Reason      string
	Notes       string
}

// Request crea una cita en pending.
// Sin chequeo de conflicto al solicitar: la clínica acepta varias solicitudes
// para el mismo slot y resuelve la elección al aprobar.
func (s *Service) Request(ctx context.Context, actor Actor, in RequestInput) (Appointment, error) {
	if !Allows(actor, OpCreate, nil) {
		return Appointment{}, ErrForbidden
	}

	ownerID := strings.TrimSpace(in.OwnerUserID)
	if actor.Role != RoleAdmin || ownerID == "" {
		ownerID = actor.UserID
	}

	if strings.TrimSpace(in.PetID) == "" {
		return Appointment{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Reason) == "" {
		return Appointment{}, ErrInvalidInput
	}

	now := s.now()
	if !in.RequestedAt.After(now) {
		return Appointment{}, ErrPastDate
	}

	a := Appointment{
		ID:              uuid.NewString(),
		PetID:           strings.TrimSpace(in.PetID),
		OwnerUserID:     ownerID,
		RequestedAt:     in.RequestedAt,
		Reason:          strings.TrimSpace(in.Reason),
		Notes:           strings.TrimSpace(in.Notes),
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		UpdatedByUserID: actor.UserID,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

type TransitionInput struct {
	NewStatus  Status
	AdminNotes string
	VetUserID  string // opcional; solo tiene efecto al aprobar
}

// Transition decide una cita pending: approved o cancelled, una sola vez.
// Solo admin. El guard de estado corre bajo lock por cita y el persist usa
// compare-and-set, así el segundo writer de una carrera pierde con ErrConflict
// en vez de pisar la decisión del primero.
func (s *Service) Transition(ctx context.Context, actor Actor, id string, in TransitionInput) (Appointment, error) {
	if !Allows(actor, OpTransition, nil) {
		return Appointment{}, ErrForbidden
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Appointment{}, ErrNotFound
	}

	// La máquina de estados expuesta solo soporta pending -> approved|cancelled.
	// completed / no_show existen como estados pero ninguna operación los produce.
	if in.NewStatus != StatusApproved && in.NewStatus != StatusCancelled {
		return Appointment{}, ErrInvalidInput
	}

	var updated Appointment

	err := s.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		current, err := s.repo.GetByID(lockCtx, id)
		if err != nil {
			return ErrNotFound
		}
		if current.Status != StatusPending {
			return ErrBadState
		}

		now := s.now()
		current.Status = in.NewStatus
		current.AdminNotes = strings.TrimSpace(in.AdminNotes)
		current.UpdatedByUserID = actor.UserID
		current.UpdatedAt = now

		if in.NewStatus == StatusApproved {
			current.VetUserID = strings.TrimSpace(in.VetUserID)
			at := current.RequestedAt
			current.ActualAt = &at
		}

		if err := s.repo.UpdateFromStatus(lockCtx, current, StatusPending); err != nil {
			// El guard de pending ya pasó bajo lock; si el CAS falla es que
			// otro writer ganó la carrera (p.ej. un update a nivel store).
			return ErrConflict
		}

		updated = current
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLockBusy) {
			return Appointment{}, ErrConflict
		}
		return Appointment{}, err
	}

	// Side effects fuera del contrato transaccional: la transición ya quedó
	// persistida y se devuelve aunque todo lo de abajo falle.
	s.afterTransition(ctx, updated)

	return updated, nil
}

func (s *Service) afterTransition(ctx context.Context, a Appointment) {
	switch a.Status {
	case StatusApproved:
		s.warnIfDoubleBooked(ctx, a)

		if a.VetUserID != "" {
			if err := s.notifier.VetAssigned(ctx, toNotifyAppointment(a), a.VetUserID); err != nil {
				s.log.Warn("notify vet assigned failed", map[string]any{
					"appointment_id": a.ID,
					"vet_user_id":    a.VetUserID,
					"error":          err.Error(),
				})
			}
		}

		vetName := s.displayName(ctx, a.VetUserID)
		if err := s.notifier.AppointmentApproved(ctx, toNotifyAppointment(a), vetName); err != nil {
			s.log.Warn("notify appointment approved failed", map[string]any{
				"appointment_id": a.ID,
				"error":          err.Error(),
			})
		}

	case StatusCancelled:
		reason := a.AdminNotes
		if reason == "" {
			reason = defaultCancelReason
		}
		if err := s.notifier.AppointmentCancelled(ctx, toNotifyAppointment(a), reason); err != nil {
			s.log.Warn("notify appointment cancelled failed", map[string]any{
				"appointment_id": a.ID,
				"error":          err.Error(),
			})
		}
	}
}

// warnIfDoubleBooked deja rastro cuando una aprobación pisa la agenda del vet.
// No bloquea la aprobación: el detector no es guard de la transición.
func (s *Service) warnIfDoubleBooked(ctx context.Context, a Appointment) {
	if a.VetUserID == "" || a.ActualAt == nil {
		return
	}
	clash, err := s.conflicts.HasConflict(ctx, *a.ActualAt, a.VetUserID, a.ID)
	if err != nil || !clash {
		return
	}
	s.log.Warn("approved appointment overlaps another approved slot for vet", map[string]any{
		"appointment_id": a.ID,
		"vet_user_id":    a.VetUserID,
		"actual_at":      a.ActualAt.Format(time.RFC3339),
	})
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	if userID == "" || s.directory == nil {
		return ""
	}
	p, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		return ""
	}
	return p.DisplayName
}

func toNotifyAppointment(a Appointment) notify.Appointment {
	at := a.RequestedAt
	if a.ActualAt != nil {
		at = *a.ActualAt
	}
	return notify.Appointment{
		ID:          a.ID,
		PetID:       a.PetID,
		OwnerUserID: a.OwnerUserID,
		VetUserID:   a.VetUserID,
		At:          at,
		Reason:      a.Reason,
	}
}

// --- Lecturas (passthroughs al store, gateados por la política) ---

func (s *Service) GetByID(ctx context.Context, actor Actor, id string) (Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Appointment{}, ErrNotFound
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Appointment{}, ErrNotFound
	}

	if !Allows(actor, OpView, &a) {
		return Appointment{}, ErrForbidden
	}
	return a, nil
}

func (s *Service) ListOwn(ctx context.Context, actor Actor) ([]Appointment, error) {
	if !Allows(actor, OpListOwn, nil) {
		return nil, ErrForbidden
	}
	return s.repo.ListByOwner(ctx, actor.UserID)
}

func (s *Service) ListAll(ctx context.Context, actor Actor) ([]Appointment, error) {
	if !Allows(actor, OpListAll, nil) {
		return nil, ErrForbidden
	}
	return s.repo.ListAll(ctx)
}

func (s *Service) ListPending(ctx context.Context, actor Actor) ([]Appointment, error) {
	if !Allows(actor, OpListPending, nil) {
		return nil, ErrForbidden
	}
	return s.repo.ListByStatus(ctx, StatusPending)
}

func (s *Service) ListApproved(ctx context.Context, actor Actor) ([]Appointment, error) {
	if !Allows(actor, OpListApproved, nil) {
		return nil, ErrForbidden
	}
	return s.repo.ListByStatus(ctx, StatusApproved)
}

// ListAssigned lista las citas con vetUserId = actor (dashboard del vet).
func (s *Service) ListAssigned(ctx context.Context, actor Actor) ([]Appointment, error) {
	if !Allows(actor, OpListAssigned, nil) {
		return nil, ErrForbidden
	}
	return s.repo.ListByVet(ctx, actor.UserID)
}

// Summary arma el reporte agregado sobre el set completo de citas.
func (s *Service) Summary(ctx context.Context, actor Actor) (SummaryReport, error) {
	if !Allows(actor, OpSummary, nil) {
		return SummaryReport{}, ErrForbidden
	}

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return SummaryReport{}, err
	}
	return buildSummary(items, s.now()), nil
}
