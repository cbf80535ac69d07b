package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"vet-appointments/internal/domain/appointments"
)

const appointmentColumns = `
	id, pet_id, owner_user_id, vet_user_id,
	requested_at, actual_at,
	reason, notes, admin_notes, status,
	created_at, updated_at, updated_by_user_id
`

type AppointmentsRepo struct {
	db *sql.DB
}

func NewAppointmentsRepo(db *sql.DB) *AppointmentsRepo {
	return &AppointmentsRepo{db: db}
}

func (r *AppointmentsRepo) Create(ctx context.Context, a appointments.Appointment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		a.ID,
		a.PetID,
		a.OwnerUserID,
		toNullString(a.VetUserID),
		a.RequestedAt,
		toNullTime(a.ActualAt),
		a.Reason,
		a.Notes,
		a.AdminNotes,
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
		a.UpdatedByUserID,
	)
	return err
}

func (r *AppointmentsRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return appointments.Appointment{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)

	return scanAppointment(row)
}

func (r *AppointmentsRepo) Update(ctx context.Context, a appointments.Appointment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET
			vet_user_id = $2,
			requested_at = $3,
			actual_at = $4,
			reason = $5,
			notes = $6,
			admin_notes = $7,
			status = $8,
			updated_at = $9,
			updated_by_user_id = $10
		WHERE id = $1
	`,
		a.ID,
		toNullString(a.VetUserID),
		a.RequestedAt,
		toNullTime(a.ActualAt),
		a.Reason,
		a.Notes,
		a.AdminNotes,
		string(a.Status),
		a.UpdatedAt,
		a.UpdatedByUserID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFromStatus: compare-and-set sobre el status actual. 0 filas afectadas
// significa que otro writer cambió el estado entre el load y este write.
func (r *AppointmentsRepo) UpdateFromStatus(ctx context.Context, a appointments.Appointment, from appointments.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET
			vet_user_id = $2,
			actual_at = $3,
			admin_notes = $4,
			status = $5,
			updated_at = $6,
			updated_by_user_id = $7
		WHERE id = $1 AND status = $8
	`,
		a.ID,
		toNullString(a.VetUserID),
		toNullTime(a.ActualAt),
		a.AdminNotes,
		string(a.Status),
		a.UpdatedAt,
		a.UpdatedByUserID,
		string(from),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *AppointmentsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AppointmentsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]appointments.Appointment, error) {
	return r.queryList(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
}

func (r *AppointmentsRepo) ListByVet(ctx context.Context, vetUserID string) ([]appointments.Appointment, error) {
	return r.queryList(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE vet_user_id = $1
		ORDER BY created_at ASC
	`, vetUserID)
}

func (r *AppointmentsRepo) ListByStatus(ctx context.Context, st appointments.Status) ([]appointments.Appointment, error) {
	return r.queryList(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = $1
		ORDER BY created_at ASC
	`, string(st))
}

func (r *AppointmentsRepo) ListAll(ctx context.Context) ([]appointments.Appointment, error) {
	return r.queryList(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY created_at ASC
	`)
}

func (r *AppointmentsRepo) ListApprovedBetween(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error) {
	// BETWEEN es inclusivo en ambos bordes, igual que el adapter in-memory.
	return r.queryList(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'approved'
		  AND actual_at IS NOT NULL
		  AND actual_at BETWEEN $1 AND $2
		ORDER BY actual_at ASC
	`, from, to)
}

func (r *AppointmentsRepo) queryList(ctx context.Context, query string, args ...any) ([]appointments.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]appointments.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (appointments.Appointment, error) {
	var a appointments.Appointment
	var vet sql.NullString
	var actual sql.NullTime
	var status string

	if err := row.Scan(
		&a.ID,
		&a.PetID,
		&a.OwnerUserID,
		&vet,
		&a.RequestedAt,
		&actual,
		&a.Reason,
		&a.Notes,
		&a.AdminNotes,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.UpdatedByUserID,
	); err != nil {
		if err == sql.ErrNoRows {
			return appointments.Appointment{}, ErrNotFound
		}
		return appointments.Appointment{}, err
	}

	if vet.Valid {
		a.VetUserID = vet.String
	}
	if actual.Valid {
		t := actual.Time
		a.ActualAt = &t
	}
	a.Status = appointments.Status(status)

	return a, nil
}

// vet_user_id es NULL mientras no haya asignación (string vacío en dominio).
func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
