package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	pg "vet-appointments/internal/adapters/storage/postgres"
	"vet-appointments/internal/config"
	"vet-appointments/internal/domain/appointments"
)

// Seeder de datos de prueba. Inserta directo por el repo (camino a nivel
// store), así también genera citas completed/no_show que el workflow nunca
// produce, útiles para probar el summary report.
func main() {
	count := flag.Int("count", 50, "appointments to create")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is required for seeding")
	}

	db, err := pg.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pg.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema error: %v", err)
	}

	repo := pg.NewAppointmentsRepo(db)

	owners := fakeIDs(8)
	vets := fakeIDs(3)
	admin := uuid.NewString()
	now := time.Now()

	for i := 0; i < *count; i++ {
		a := appointments.Appointment{
			ID:          uuid.NewString(),
			PetID:       uuid.NewString(),
			OwnerUserID: pick(owners),
			Reason:      gofakeit.RandomString(reasons),
			Notes:       gofakeit.Sentence(6),
			CreatedAt:   now.Add(-time.Duration(gofakeit.Number(0, 60*24)) * time.Hour),
		}
		a.UpdatedAt = a.CreatedAt
		a.UpdatedByUserID = a.OwnerUserID

		switch gofakeit.Number(0, 9) {
		case 0, 1, 2, 3: // pending a futuro
			a.Status = appointments.StatusPending
			a.RequestedAt = gofakeit.DateRange(now.Add(time.Hour), now.AddDate(0, 1, 0))
		case 4, 5: // approved a futuro, con vet
			a.Status = appointments.StatusApproved
			a.RequestedAt = gofakeit.DateRange(now.Add(time.Hour), now.AddDate(0, 1, 0))
			a.VetUserID = pick(vets)
			at := a.RequestedAt
			a.ActualAt = &at
			a.AdminNotes = "ok"
			a.UpdatedByUserID = admin
		case 6: // cancelada
			a.Status = appointments.StatusCancelled
			a.RequestedAt = gofakeit.DateRange(now.AddDate(0, -2, 0), now)
			a.AdminNotes = gofakeit.Sentence(4)
			a.UpdatedByUserID = admin
		case 7, 8: // completada en el pasado
			a.Status = appointments.StatusCompleted
			a.RequestedAt = gofakeit.DateRange(now.AddDate(0, -2, 0), now)
			a.VetUserID = pick(vets)
			at := a.RequestedAt
			a.ActualAt = &at
			a.UpdatedByUserID = admin
		default: // no-show
			a.Status = appointments.StatusNoShow
			a.RequestedAt = gofakeit.DateRange(now.AddDate(0, -2, 0), now)
			a.VetUserID = pick(vets)
			at := a.RequestedAt
			a.ActualAt = &at
			a.UpdatedByUserID = admin
		}

		if err := repo.Create(ctx, a); err != nil {
			log.Fatalf("insert appointment %d: %v", i, err)
		}
	}

	fmt.Printf("seeded %d appointments\n", *count)
	fmt.Printf("owners: %v\n", owners)
	fmt.Printf("vets:   %v\n", vets)
	fmt.Printf("admin:  %s\n", admin)
}

var reasons = []string{
	"Checkup", "Vaccination", "Dental cleaning", "Limping", "Skin rash",
	"Loss of appetite", "Spay/neuter consult", "Follow-up visit",
}

func fakeIDs(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, uuid.NewString())
	}
	return out
}

func pick(ids []string) string {
	return ids[gofakeit.Number(0, len(ids)-1)]
}
