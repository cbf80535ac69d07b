package appointments

import "time"

const (
	reportSampleSize = 10
	reportRecentDays = 30
)

// SummaryReport particiona el set completo de citas relativo a "now":
// próximas, pendientes y pasado reciente (últimos 30 días), con muestras
// top-10 por bucket en el orden que devuelva el store, más totales
// históricos y métricas de carga.
type SummaryReport struct {
	Upcoming      []Appointment
	UpcomingCount int

	Pending      []Appointment
	PendingCount int

	// RecentPast cubre solo los últimos 30 días; los totales de abajo son
	// históricos completos.
	RecentPast      []Appointment
	RecentPastCount int

	TotalCount     int
	CompletedCount int
	CancelledCount int
	NoShowCount    int

	// AveragePerDay = citas con RequestedAt en los últimos 30 días / 30.
	AveragePerDay float64

	// Empates: gana el índice de día más bajo (domingo=0) y la hora más baja.
	// El agrupamiento original no definía desempate; acá queda determinista.
	BusiestDayOfWeek string
	PeakHour         int
}

func buildSummary(items []Appointment, now time.Time) SummaryReport {
	var r SummaryReport
	cutoff := now.AddDate(0, 0, -reportRecentDays)

	var last30 int
	var byWeekday [7]int
	var byHour [24]int

	for _, a := range items {
		r.TotalCount++

		switch a.Status {
		case StatusCompleted:
			r.CompletedCount++
		case StatusCancelled:
			r.CancelledCount++
		case StatusNoShow:
			r.NoShowCount++
		}

		if a.RequestedAt.After(now) && (a.Status == StatusApproved || a.Status == StatusPending) {
			r.UpcomingCount++
			if len(r.Upcoming) < reportSampleSize {
				r.Upcoming = append(r.Upcoming, a)
			}
		}

		if a.Status == StatusPending {
			r.PendingCount++
			if len(r.Pending) < reportSampleSize {
				r.Pending = append(r.Pending, a)
			}
		}

		if !a.RequestedAt.After(now) && a.Status.IsTerminal() && a.RequestedAt.After(cutoff) {
			r.RecentPastCount++
			if len(r.RecentPast) < reportSampleSize {
				r.RecentPast = append(r.RecentPast, a)
			}
		}

		if a.RequestedAt.After(cutoff) && !a.RequestedAt.After(now) {
			last30++
		}

		byWeekday[int(a.RequestedAt.Weekday())]++
		byHour[a.RequestedAt.Hour()]++
	}

	r.AveragePerDay = float64(last30) / float64(reportRecentDays)

	busiest := 0
	for d := 1; d < len(byWeekday); d++ {
		if byWeekday[d] > byWeekday[busiest] {
			busiest = d
		}
	}
	r.BusiestDayOfWeek = time.Weekday(busiest).String()

	peak := 0
	for h := 1; h < len(byHour); h++ {
		if byHour[h] > byHour[peak] {
			peak = h
		}
	}
	r.PeakHour = peak

	return r
}
