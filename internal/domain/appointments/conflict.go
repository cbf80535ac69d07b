package appointments

import (
	"context"
	"strings"
	"time"
)

// ConflictWindow es la media ventana alrededor de un slot candidato.
// ±30 minutos aproximan la duración mínima de una visita.
const ConflictWindow = 30 * time.Minute

// ConflictDetector responde si una reserva chocaría con una cita ya aprobada.
// Es un primitivo disponible para el staff; la aprobación NO lo consulta como
// guard (comportamiento heredado: aprobar puede doble-reservar un vet, y el
// workflow solo lo advierte en logs).
type ConflictDetector struct {
	repo Repository
}

func NewConflictDetector(repo Repository) ConflictDetector {
	return ConflictDetector{repo: repo}
}

// HasConflict: true si existe una cita aprobada con ActualAt dentro de
// [at-30m, at+30m] (bordes inclusivos). vetUserID != "" acota el chequeo a
// ese veterinario (la detección es por vet, no por clínica). excludeID != ""
// descarta esa cita, para re-chequear una cita que se está editando.
func (d ConflictDetector) HasConflict(ctx context.Context, at time.Time, vetUserID, excludeID string) (bool, error) {
	vetUserID = strings.TrimSpace(vetUserID)
	excludeID = strings.TrimSpace(excludeID)

	items, err := d.repo.ListApprovedBetween(ctx, at.Add(-ConflictWindow), at.Add(ConflictWindow))
	if err != nil {
		return false, err
	}

	for _, a := range items {
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		if vetUserID != "" && a.VetUserID != vetUserID {
			continue
		}
		return true, nil
	}

	return false, nil
}
