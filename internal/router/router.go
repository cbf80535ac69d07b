package router

import (
	"database/sql"
	"net/http"
	"os"

	"vet-appointments/internal/adapters/identity"
	lockadapter "vet-appointments/internal/adapters/lock"
	"vet-appointments/internal/adapters/notifier"
	mem "vet-appointments/internal/adapters/storage/memory"
	pg "vet-appointments/internal/adapters/storage/postgres"
	"vet-appointments/internal/domain/appointments"
	"vet-appointments/internal/middleware"
	"vet-appointments/internal/platform/logger"
	"vet-appointments/internal/ports/auth"
	"vet-appointments/internal/ports/directory"
	"vet-appointments/internal/ports/notify"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // nil => modo dev (headers X-Debug-User-*)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcionales; nil cae al default in-process / log-only / estático.
	Locker    appointments.Locker
	Notifier  notify.Notifier
	Directory directory.Directory
	Logger    logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	var repo appointments.Repository
	if db != nil {
		repo = pg.NewAppointmentsRepo(db)
	} else {
		repo = mem.NewAppointmentsRepo()
	}

	locker := opts.Locker
	if locker == nil {
		locker = lockadapter.NewMemoryLocker()
	}

	notif := opts.Notifier
	if notif == nil {
		notif = notifier.NewLogNotifier(log)
	}

	dir := opts.Directory
	if dir == nil {
		dir = identity.NewStaticDirectory(nil)
	}

	svc := appointments.NewService(repo, locker, notif, dir, log)
	appointments.RegisterRoutes(r, svc, dir)

	return r
}
