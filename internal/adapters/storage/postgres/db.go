package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("status changed concurrently")
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema crea la tabla si no existe (bootstrap para dev/seed; en prod
// el schema lo maneja la migración de infraestructura).
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS appointments (
			id                 TEXT PRIMARY KEY,
			pet_id             TEXT NOT NULL,
			owner_user_id      TEXT NOT NULL,
			vet_user_id        TEXT,
			requested_at       TIMESTAMPTZ NOT NULL,
			actual_at          TIMESTAMPTZ,
			reason             TEXT NOT NULL,
			notes              TEXT NOT NULL DEFAULT '',
			admin_notes        TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL,
			updated_at         TIMESTAMPTZ NOT NULL,
			updated_by_user_id TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_appointments_owner  ON appointments (owner_user_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_vet    ON appointments (vet_user_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments (status);
		CREATE INDEX IF NOT EXISTS idx_appointments_actual ON appointments (actual_at) WHERE actual_at IS NOT NULL;
	`)
	return err
}
