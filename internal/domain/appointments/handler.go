package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"vet-appointments/internal/middleware"
	"vet-appointments/internal/ports/directory"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, dir directory.Directory) {
	r.Route("/appointments", func(ar chi.Router) {
		// Owner (o admin a nombre de un owner)
		ar.Post("/", requestAppointmentHandler(svc, dir))
		ar.Get("/my", listMyHandler(svc, dir))

		// Staff
		ar.Get("/", listAllHandler(svc, dir))
		ar.Get("/pending", listPendingHandler(svc, dir))
		ar.Get("/approved", listApprovedHandler(svc, dir))
		ar.Get("/assigned", listAssignedHandler(svc, dir))
		ar.Get("/summary-report", summaryReportHandler(svc, dir))

		ar.Get("/{appointmentID}", getAppointmentHandler(svc, dir))
		ar.Put("/{appointmentID}/status", transitionStatusHandler(svc, dir))
	})
}

type requestAppointmentRequest struct {
	PetID       string `json:"pet_id"`
	OwnerUserID string `json:"owner_user_id"` // solo admin reservando a nombre de un owner
	RequestedAt string `json:"requested_at"`  // RFC3339
	Reason      string `json:"reason"`
	Notes       string `json:"notes"`
}

type transitionStatusRequest struct {
	Status     string `json:"status"` // approved | cancelled
	AdminNotes string `json:"admin_notes"`
	VetUserID  string `json:"vet_user_id"`
}

type appointmentResponse struct {
	ID          string `json:"id"`
	PetID       string `json:"pet_id"`
	OwnerUserID string `json:"owner_user_id"`
	OwnerName   string `json:"owner_name,omitempty"`
	VetUserID   string `json:"vet_user_id,omitempty"`
	VetName     string `json:"vet_name,omitempty"`

	RequestedAt time.Time  `json:"requested_at"`
	ActualAt    *time.Time `json:"actual_at,omitempty"`

	Reason     string `json:"reason"`
	Notes      string `json:"notes,omitempty"`
	AdminNotes string `json:"admin_notes,omitempty"`

	Status         Status `json:"status"`
	CanBeCancelled bool   `json:"can_be_cancelled"`
	RequiresAction bool   `json:"requires_action"`

	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	UpdatedByUserID string    `json:"updated_by_user_id,omitempty"`
}

type summaryReportResponse struct {
	Upcoming      []appointmentResponse `json:"upcoming"`
	UpcomingCount int                   `json:"upcoming_count"`

	Pending      []appointmentResponse `json:"pending"`
	PendingCount int                   `json:"pending_count"`

	RecentPast      []appointmentResponse `json:"recent_past"`
	RecentPastCount int                   `json:"recent_past_count"`

	TotalCount     int `json:"total_count"`
	CompletedCount int `json:"completed_count"`
	CancelledCount int `json:"cancelled_count"`
	NoShowCount    int `json:"no_show_count"`

	AveragePerDay    float64 `json:"average_appointments_per_day"`
	BusiestDayOfWeek string  `json:"busiest_day_of_week"`
	PeakHour         int     `json:"peak_appointment_hour"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func requestAppointmentHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}

		var req requestAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "")
			return
		}

		requestedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.RequestedAt))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_requested_at", "requested_at must be RFC3339")
			return
		}

		a, err := svc.Request(r.Context(), actor, RequestInput{
			OwnerUserID: req.OwnerUserID,
			PetID:       req.PetID,
			RequestedAt: requestedAt,
			Reason:      req.Reason,
			Notes:       req.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		names := resolveDisplayNames(r.Context(), dir, []Appointment{a})
		writeJSON(w, http.StatusCreated, toAppointmentResponse(a, names))
	}
}

func getAppointmentHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}

		a, err := svc.GetByID(r.Context(), actor, chi.URLParam(r, "appointmentID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		names := resolveDisplayNames(r.Context(), dir, []Appointment{a})
		writeJSON(w, http.StatusOK, toAppointmentResponse(a, names))
	}
}

func transitionStatusHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}

		var req transitionStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "")
			return
		}

		st, ok := ParseStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be approved or cancelled")
			return
		}

		a, err := svc.Transition(r.Context(), actor, chi.URLParam(r, "appointmentID"), TransitionInput{
			NewStatus:  st,
			AdminNotes: req.AdminNotes,
			VetUserID:  req.VetUserID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		names := resolveDisplayNames(r.Context(), dir, []Appointment{a})
		writeJSON(w, http.StatusOK, toAppointmentResponse(a, names))
	}
}

func listMyHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return listHandler(dir, func(r *http.Request, actor Actor) ([]Appointment, error) {
		return svc.ListOwn(r.Context(), actor)
	})
}

func listAllHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return listHandler(dir, func(r *http.Request, actor Actor) ([]Appointment, error) {
		return svc.ListAll(r.Context(), actor)
	})
}

func listPendingHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return listHandler(dir, func(r *http.Request, actor Actor) ([]Appointment, error) {
		return svc.ListPending(r.Context(), actor)
	})
}

func listApprovedHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return listHandler(dir, func(r *http.Request, actor Actor) ([]Appointment, error) {
		return svc.ListApproved(r.Context(), actor)
	})
}

func listAssignedHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return listHandler(dir, func(r *http.Request, actor Actor) ([]Appointment, error) {
		return svc.ListAssigned(r.Context(), actor)
	})
}

func listHandler(dir directory.Directory, load func(*http.Request, Actor) ([]Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}

		items, err := load(r, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		names := resolveDisplayNames(r.Context(), dir, items)
		out := make([]appointmentResponse, 0, len(items))
		for _, a := range items {
			out = append(out, toAppointmentResponse(a, names))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func summaryReportHandler(svc *Service, dir directory.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}

		rep, err := svc.Summary(r.Context(), actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		// Un solo resolve para los tres buckets.
		samples := make([]Appointment, 0, len(rep.Upcoming)+len(rep.Pending)+len(rep.RecentPast))
		samples = append(samples, rep.Upcoming...)
		samples = append(samples, rep.Pending...)
		samples = append(samples, rep.RecentPast...)
		names := resolveDisplayNames(r.Context(), dir, samples)

		writeJSON(w, http.StatusOK, summaryReportResponse{
			Upcoming:         toAppointmentResponses(rep.Upcoming, names),
			UpcomingCount:    rep.UpcomingCount,
			Pending:          toAppointmentResponses(rep.Pending, names),
			PendingCount:     rep.PendingCount,
			RecentPast:       toAppointmentResponses(rep.RecentPast, names),
			RecentPastCount:  rep.RecentPastCount,
			TotalCount:       rep.TotalCount,
			CompletedCount:   rep.CompletedCount,
			CancelledCount:   rep.CancelledCount,
			NoShowCount:      rep.NoShowCount,
			AveragePerDay:    rep.AveragePerDay,
			BusiestDayOfWeek: rep.BusiestDayOfWeek,
			PeakHour:         rep.PeakHour,
		})
	}
}

func actorFromRequest(r *http.Request) (Actor, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		return Actor{}, false
	}
	role, ok := ParseRole(claims.Role)
	if !ok {
		return Actor{}, false
	}
	return Actor{UserID: claims.UserID, Role: role}, true
}

// resolveDisplayNames resuelve una sola vez cada user id distinto (owners y
// vets) del listado, en vez de un lookup secuencial por ítem. Best-effort:
// si el directorio falla para un id, la respuesta sale sin ese nombre.
func resolveDisplayNames(ctx context.Context, dir directory.Directory, items []Appointment) map[string]string {
	if dir == nil || len(items) == 0 {
		return nil
	}

	names := map[string]string{}
	for _, a := range items {
		for _, id := range [2]string{a.OwnerUserID, a.VetUserID} {
			if id == "" {
				continue
			}
			if _, seen := names[id]; seen {
				continue
			}
			p, err := dir.FindByID(ctx, id)
			if err != nil {
				names[id] = ""
				continue
			}
			names[id] = p.DisplayName
		}
	}
	return names
}

func toAppointmentResponse(a Appointment, names map[string]string) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		PetID:           a.PetID,
		OwnerUserID:     a.OwnerUserID,
		OwnerName:       names[a.OwnerUserID],
		VetUserID:       a.VetUserID,
		VetName:         names[a.VetUserID],
		RequestedAt:     a.RequestedAt,
		ActualAt:        a.ActualAt,
		Reason:          a.Reason,
		Notes:           a.Notes,
		AdminNotes:      a.AdminNotes,
		Status:          a.Status,
		CanBeCancelled:  a.Status.CanBeCancelled(),
		RequiresAction:  a.Status.RequiresAction(),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		UpdatedByUserID: a.UpdatedByUserID,
	}
}

func toAppointmentResponses(items []Appointment, names map[string]string) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAppointmentResponse(a, names))
	}
	return out
}

// writeDomainError mapea los sentinels del workflow a HTTP. Ningún detalle de
// infraestructura sale al cliente.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, ErrPastDate):
		writeError(w, http.StatusBadRequest, "future_date_required", "requested date must be in the future")
	case errors.Is(err, ErrBadState):
		writeError(w, http.StatusBadRequest, "not_pending", "appointment status has already been decided")
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "appointment was updated concurrently, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
