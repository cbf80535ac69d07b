package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"vet-appointments/internal/ports/directory"
	"vet-appointments/internal/ports/notify"
)

// -------------------------
// Test doubles (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")
var errRepoConflict = errors.New("repo: status changed")

type testRepo struct {
	byID map[string]Appointment
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Appointment{}}
}

func (r *testRepo) Create(ctx context.Context, a Appointment) error {
	if a.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[a.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[a.ID] = a
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Appointment, error) {
	a, ok := r.byID[id]
	if !ok {
		return Appointment{}, errRepoNotFound
	}
	return a, nil
}

func (r *testRepo) Update(ctx context.Context, a Appointment) error {
	if _, ok := r.byID[a.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[a.ID] = a
	return nil
}

func (r *testRepo) UpdateFromStatus(ctx context.Context, a Appointment, from Status) error {
	current, ok := r.byID[a.ID]
	if !ok {
		return errRepoNotFound
	}
	if current.Status != from {
		return errRepoConflict
	}
	r.byID[a.ID] = a
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return errRepoNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Appointment, error) {
	return r.filter(func(a Appointment) bool { return a.OwnerUserID == ownerUserID }), nil
}

func (r *testRepo) ListByVet(ctx context.Context, vetUserID string) ([]Appointment, error) {
	return r.filter(func(a Appointment) bool { return a.VetUserID == vetUserID }), nil
}

func (r *testRepo) ListByStatus(ctx context.Context, st Status) ([]Appointment, error) {
	return r.filter(func(a Appointment) bool { return a.Status == st }), nil
}

func (r *testRepo) ListAll(ctx context.Context) ([]Appointment, error) {
	return r.filter(func(Appointment) bool { return true }), nil
}

func (r *testRepo) ListApprovedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	return r.filter(func(a Appointment) bool {
		if a.Status != StatusApproved || a.ActualAt == nil {
			return false
		}
		return !a.ActualAt.Before(from) && !a.ActualAt.After(to)
	}), nil
}

func (r *testRepo) filter(match func(Appointment) bool) []Appointment {
	out := make([]Appointment, 0)
	for _, a := range r.byID {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

type notifierCall struct {
	kind string // vet_assigned | approved | cancelled
	arg  string // vet id, vet name o reason según el caso
}

type testNotifier struct {
	calls []notifierCall
	fail  bool
}

func (n *testNotifier) VetAssigned(ctx context.Context, appt notify.Appointment, vetUserID string) error {
	n.calls = append(n.calls, notifierCall{kind: "vet_assigned", arg: vetUserID})
	if n.fail {
		return errors.New("notifier down")
	}
	return nil
}

func (n *testNotifier) AppointmentApproved(ctx context.Context, appt notify.Appointment, vetDisplayName string) error {
	n.calls = append(n.calls, notifierCall{kind: "approved", arg: vetDisplayName})
	if n.fail {
		return errors.New("notifier down")
	}
	return nil
}

func (n *testNotifier) AppointmentCancelled(ctx context.Context, appt notify.Appointment, reason string) error {
	n.calls = append(n.calls, notifierCall{kind: "cancelled", arg: reason})
	if n.fail {
		return errors.New("notifier down")
	}
	return nil
}

type testDirectory struct {
	names map[string]string
}

func (d *testDirectory) FindByID(ctx context.Context, userID string) (directory.Profile, error) {
	name, ok := d.names[userID]
	if !ok {
		return directory.Profile{}, errors.New("directory: not found")
	}
	return directory.Profile{UserID: userID, DisplayName: name}, nil
}

type passLocker struct{}

func (passLocker) WithAppointmentLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(repo *testRepo, n *testNotifier, names map[string]string) *Service {
	if n == nil {
		n = &testNotifier{}
	}
	return NewService(repo, passLocker{}, n, &testDirectory{names: names}, nil)
}

var (
	ownerActor = Actor{UserID: "owner-1", Role: RoleOwner}
	adminActor = Actor{UserID: "admin-1", Role: RoleAdmin}
	vetActor   = Actor{UserID: "vet-1", Role: RoleVet}
)

// -------------------------
// Request
// -------------------------

func TestService_Request_CreatesPending(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a, err := svc.Request(context.Background(), ownerActor, RequestInput{
		PetID:       "pet-1",
		RequestedAt: now.Add(time.Hour),
		Reason:      "Checkup",
		Notes:       "first visit",
	})
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	if a.Status != StatusPending {
		t.Fatalf("expected pending, got %s", a.Status)
	}
	if a.VetUserID != "" {
		t.Fatalf("expected no vet on creation, got %q", a.VetUserID)
	}
	if a.ActualAt != nil {
		t.Fatalf("expected no actual date on creation")
	}
	if a.OwnerUserID != "owner-1" {
		t.Fatalf("expected owner-1 as owner, got %q", a.OwnerUserID)
	}
	if a.CreatedAt != now || a.UpdatedAt != now {
		t.Fatalf("expected CreatedAt/UpdatedAt = now")
	}

	if _, ok := repo.byID[a.ID]; !ok {
		t.Fatalf("appointment not persisted")
	}
}

func TestService_Request_PastDateFails(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// cualquier offset <= 0 falla, incluido exactamente "now"
	for _, offset := range []time.Duration{0, -time.Second, -24 * time.Hour, -365 * 24 * time.Hour} {
		_, err := svc.Request(context.Background(), ownerActor, RequestInput{
			PetID:       "pet-1",
			RequestedAt: now.Add(offset),
			Reason:      "Checkup",
		})
		if !errors.Is(err, ErrPastDate) {
			t.Fatalf("offset %s: expected ErrPastDate, got %v", offset, err)
		}
	}

	if len(repo.byID) != 0 {
		t.Fatalf("nothing should be persisted after validation failure")
	}
}

func TestService_Request_VetForbidden(t *testing.T) {
	svc := newTestService(newTestRepo(), nil, nil)

	_, err := svc.Request(context.Background(), vetActor, RequestInput{
		PetID:       "pet-1",
		RequestedAt: time.Now().Add(time.Hour),
		Reason:      "Checkup",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_Request_AdminOnBehalfOfOwner(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a, err := svc.Request(context.Background(), adminActor, RequestInput{
		OwnerUserID: "owner-7",
		PetID:       "pet-1",
		RequestedAt: now.Add(time.Hour),
		Reason:      "Checkup",
	})
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if a.OwnerUserID != "owner-7" {
		t.Fatalf("expected owner-7, got %q", a.OwnerUserID)
	}
	if a.UpdatedByUserID != "admin-1" {
		t.Fatalf("expected admin-1 as last updater, got %q", a.UpdatedByUserID)
	}
}

func TestService_Request_MissingFields(t *testing.T) {
	svc := newTestService(newTestRepo(), nil, nil)
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Request(context.Background(), ownerActor, RequestInput{
		RequestedAt: now.Add(time.Hour),
		Reason:      "Checkup",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing pet: expected ErrInvalidInput, got %v", err)
	}

	_, err = svc.Request(context.Background(), ownerActor, RequestInput{
		PetID:       "pet-1",
		RequestedAt: now.Add(time.Hour),
		Reason:      "   ",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing reason: expected ErrInvalidInput, got %v", err)
	}
}

// -------------------------
// Transition
// -------------------------

func requestOne(t *testing.T, svc *Service, now time.Time) Appointment {
	t.Helper()
	a, err := svc.Request(context.Background(), ownerActor, RequestInput{
		PetID:       "pet-1",
		RequestedAt: now.Add(24 * time.Hour),
		Reason:      "Checkup",
	})
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	return a
}

func TestService_Transition_ApproveSetsVetAndActualDate(t *testing.T) {
	repo := newTestRepo()
	n := &testNotifier{}
	svc := newTestService(repo, n, map[string]string{"vet-1": "Dr. Rivas"})

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	later := now.Add(time.Hour)
	svc.now = func() time.Time { return later }

	got, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{
		NewStatus:  StatusApproved,
		AdminNotes: "ok",
		VetUserID:  "vet-1",
	})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}

	if got.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if got.VetUserID != "vet-1" {
		t.Fatalf("expected vet-1, got %q", got.VetUserID)
	}
	if got.ActualAt == nil || !got.ActualAt.Equal(a.RequestedAt) {
		t.Fatalf("expected ActualAt == RequestedAt, got %v", got.ActualAt)
	}
	if got.AdminNotes != "ok" {
		t.Fatalf("expected admin notes persisted, got %q", got.AdminNotes)
	}
	if got.UpdatedByUserID != "admin-1" || got.UpdatedAt != later {
		t.Fatalf("expected audit fields updated")
	}

	// vet-assigned primero, luego approved con el display name resuelto
	if len(n.calls) != 2 {
		t.Fatalf("expected 2 notifications, got %d (%v)", len(n.calls), n.calls)
	}
	if n.calls[0].kind != "vet_assigned" || n.calls[0].arg != "vet-1" {
		t.Fatalf("expected vet_assigned(vet-1) first, got %+v", n.calls[0])
	}
	if n.calls[1].kind != "approved" || n.calls[1].arg != "Dr. Rivas" {
		t.Fatalf("expected approved(Dr. Rivas), got %+v", n.calls[1])
	}
}

func TestService_Transition_ApproveWithoutVet(t *testing.T) {
	repo := newTestRepo()
	n := &testNotifier{}
	svc := newTestService(repo, n, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	got, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{
		NewStatus: StatusApproved,
	})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if got.VetUserID != "" {
		t.Fatalf("expected vet to stay unset, got %q", got.VetUserID)
	}
	if got.ActualAt == nil {
		t.Fatalf("expected ActualAt set on approval")
	}

	// sin vet, no hay vet_assigned; approved sale igual (sin nombre)
	if len(n.calls) != 1 || n.calls[0].kind != "approved" || n.calls[0].arg != "" {
		t.Fatalf("expected single approved notification without name, got %v", n.calls)
	}
}

func TestService_Transition_CancelKeepsVetUnset(t *testing.T) {
	repo := newTestRepo()
	n := &testNotifier{}
	svc := newTestService(repo, n, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	got, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{
		NewStatus:  StatusCancelled,
		AdminNotes: "duplicate",
	})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.VetUserID != "" || got.ActualAt != nil {
		t.Fatalf("cancel must not set vet/actual date")
	}

	if len(n.calls) != 1 || n.calls[0].kind != "cancelled" || n.calls[0].arg != "duplicate" {
		t.Fatalf("expected cancelled(duplicate), got %v", n.calls)
	}
}

func TestService_Transition_CancelDefaultReason(t *testing.T) {
	repo := newTestRepo()
	n := &testNotifier{}
	svc := newTestService(repo, n, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	_, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{
		NewStatus: StatusCancelled,
	})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if len(n.calls) != 1 || n.calls[0].arg != defaultCancelReason {
		t.Fatalf("expected default cancel reason, got %v", n.calls)
	}
}

func TestService_Transition_SecondAttemptFails(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	if _, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{NewStatus: StatusApproved}); err != nil {
		t.Fatalf("first Transition error: %v", err)
	}

	_, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{NewStatus: StatusCancelled})
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState on second transition, got %v", err)
	}
}

func TestService_Transition_OnlyAdmin(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	for _, actor := range []Actor{ownerActor, vetActor} {
		_, err := svc.Transition(context.Background(), actor, a.ID, TransitionInput{NewStatus: StatusApproved})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("role %s: expected ErrForbidden, got %v", actor.Role, err)
		}
	}
}

func TestService_Transition_UnknownIDAndBadStatus(t *testing.T) {
	svc := newTestService(newTestRepo(), nil, nil)

	_, err := svc.Transition(context.Background(), adminActor, "nope", TransitionInput{NewStatus: StatusApproved})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// completed / no_show no son alcanzables vía workflow
	repo := newTestRepo()
	svc = newTestService(repo, nil, nil)
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	a := requestOne(t, svc, now)

	for _, st := range []Status{StatusCompleted, StatusNoShow, StatusPending} {
		_, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{NewStatus: st})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("status %s: expected ErrInvalidInput, got %v", st, err)
		}
	}
}

func TestService_Transition_NotifierFailureDoesNotFailTransition(t *testing.T) {
	repo := newTestRepo()
	n := &testNotifier{fail: true}
	svc := newTestService(repo, n, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	got, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{
		NewStatus: StatusApproved,
		VetUserID: "vet-1",
	})
	if err != nil {
		t.Fatalf("transition must succeed even if notifier fails: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if repo.byID[a.ID].Status != StatusApproved {
		t.Fatalf("expected persisted state approved")
	}
}

// racingRepo simula un writer concurrente que decide la cita entre el load
// y el CAS: el load reporta pending pero el store ya tiene cancelled.
type racingRepo struct {
	*testRepo
}

func (r *racingRepo) GetByID(ctx context.Context, id string) (Appointment, error) {
	a, err := r.testRepo.GetByID(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	a.Status = StatusPending
	return a, nil
}

func TestService_Transition_LostRaceReturnsConflict(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)
	decided := repo.byID[a.ID]
	decided.Status = StatusCancelled
	repo.byID[a.ID] = decided

	svc.repo = &racingRepo{testRepo: repo}

	_, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{NewStatus: StatusApproved})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if repo.byID[a.ID].Status != StatusCancelled {
		t.Fatalf("winner's decision must survive, got %s", repo.byID[a.ID].Status)
	}
}

// -------------------------
// Lecturas
// -------------------------

func TestService_GetByID_OwnerScoping(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)

	// owner dueño: ok
	if _, err := svc.GetByID(context.Background(), ownerActor, a.ID); err != nil {
		t.Fatalf("owner should read own appointment: %v", err)
	}

	// otro owner: forbidden (no not-found; se preserva el comportamiento)
	other := Actor{UserID: "owner-2", Role: RoleOwner}
	if _, err := svc.GetByID(context.Background(), other, a.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign owner, got %v", err)
	}

	// vet y admin: cualquier cita
	if _, err := svc.GetByID(context.Background(), vetActor, a.ID); err != nil {
		t.Fatalf("vet should read any appointment: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), adminActor, a.ID); err != nil {
		t.Fatalf("admin should read any appointment: %v", err)
	}

	// id inexistente: not found
	if _, err := svc.GetByID(context.Background(), adminActor, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Lists_PolicyGates(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	if _, err := svc.ListAll(context.Background(), ownerActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("owner ListAll: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListPending(context.Background(), vetActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("vet ListPending: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListApproved(context.Background(), ownerActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("owner ListApproved: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListAssigned(context.Background(), ownerActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("owner ListAssigned: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListOwn(context.Background(), vetActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("vet ListOwn: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Summary(context.Background(), vetActor); !errors.Is(err, ErrForbidden) {
		t.Fatalf("vet Summary: expected ErrForbidden, got %v", err)
	}
}

func TestService_ListAssigned_FiltersByVet(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, nil, nil)

	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	a := requestOne(t, svc, now)
	b := requestOne(t, svc, now)

	if _, err := svc.Transition(context.Background(), adminActor, a.ID, TransitionInput{NewStatus: StatusApproved, VetUserID: "vet-1"}); err != nil {
		t.Fatalf("approve a: %v", err)
	}
	if _, err := svc.Transition(context.Background(), adminActor, b.ID, TransitionInput{NewStatus: StatusApproved, VetUserID: "vet-9"}); err != nil {
		t.Fatalf("approve b: %v", err)
	}

	items, err := svc.ListAssigned(context.Background(), vetActor)
	if err != nil {
		t.Fatalf("ListAssigned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != a.ID {
		t.Fatalf("expected only the vet-1 appointment, got %d items", len(items))
	}
}
