package appointments

import "strings"

// Role es el rol que trae el claim del token.
type Role string

const (
	RoleOwner Role = "owner"
	RoleVet   Role = "vet"
	RoleAdmin Role = "admin"
)

// ParseRole normaliza el claim de rol (case-insensitive).
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleVet:
		return RoleVet, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Actor es la identidad autenticada que ejecuta una operación.
type Actor struct {
	UserID string
	Role   Role
}

type Operation string

const (
	OpCreate       Operation = "create"
	OpView         Operation = "view"
	OpListOwn      Operation = "list_own"
	OpListAll      Operation = "list_all"
	OpListPending  Operation = "list_pending"
	OpListApproved Operation = "list_approved"
	OpListAssigned Operation = "list_assigned"
	OpTransition   Operation = "transition"
	OpSummary      Operation = "summary"
)

// Allows es la tabla de decisión rol/operación, evaluada una vez por request.
// appt solo aplica a OpView (un owner ve únicamente sus propias citas);
// para operaciones de colección puede ser nil.
//
// Nota: fallar la política devuelve forbidden, distinto de not-found. Un owner
// que prueba ids ajenos recibe 403 y puede inferir que el id existe; se
// mantiene así a propósito por compatibilidad con el comportamiento previo.
func Allows(actor Actor, op Operation, appt *Appointment) bool {
	switch op {
	case OpCreate:
		// owner reserva como sí mismo; admin puede reservar a nombre de un owner
		return actor.Role == RoleOwner || actor.Role == RoleAdmin

	case OpView:
		switch actor.Role {
		case RoleAdmin, RoleVet:
			return true
		case RoleOwner:
			return appt != nil && appt.OwnerUserID == actor.UserID
		}
		return false

	case OpListOwn:
		return actor.Role == RoleOwner || actor.Role == RoleAdmin

	case OpListAll, OpListPending, OpSummary, OpTransition:
		return actor.Role == RoleAdmin

	case OpListApproved, OpListAssigned:
		return actor.Role == RoleVet || actor.Role == RoleAdmin
	}

	return false
}
