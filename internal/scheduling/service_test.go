package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clinic-booking-server/internal/models"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(triage SpecialtySuggester) (*Scheduler, *fakeAppointmentRepo, *fakeDoctorRepo) {
	appointments := newFakeAppointmentRepo()
	doctors := newFakeDoctorRepo()
	doctors.addDoctor("doc-1", 150, true)
	scheduler := NewScheduler(appointments, doctors, triage, fixedClock(testNow))
	return scheduler, appointments, doctors
}

func patientActor(id string) Actor { return Actor{ID: id, Role: models.RolePatient} }

func doctorActor(id string) Actor { return Actor{ID: id, Role: models.RoleDoctor} }

func adminActor(id string) Actor { return Actor{ID: id, Role: models.RoleAdmin} }

func futureBooking(start time.Time) BookingRequest {
	return BookingRequest{
		DoctorID:  "doc-1",
		StartTime: start,
		Symptoms:  "recurring migraines",
	}
}

func TestBookCreatesPendingAppointmentWithFee(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	start := testNow.Add(5 * 24 * time.Hour)

	appointment, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(start))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if appointment.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", appointment.Status)
	}
	if appointment.PatientID != "pat-1" {
		t.Errorf("patientID = %s, want pat-1", appointment.PatientID)
	}
	if appointment.Duration != DefaultSlotMinutes {
		t.Errorf("duration = %d, want %d", appointment.Duration, DefaultSlotMinutes)
	}
	if appointment.EndTime != start.Add(30*time.Minute) {
		t.Errorf("endTime = %v, want %v", appointment.EndTime, start.Add(30*time.Minute))
	}
	if appointment.Fee.Consultation != 150 || appointment.Fee.Total != 150 {
		t.Errorf("fee = %+v, want consultation and total of 150", appointment.Fee)
	}
	if appointment.AppointmentType != models.TypeConsultation || appointment.Urgency != models.UrgencyMedium {
		t.Errorf("defaults not applied: type=%s urgency=%s", appointment.AppointmentType, appointment.Urgency)
	}
}

func TestBookPatientAlwaysBooksForSelf(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	req := futureBooking(testNow.Add(48 * time.Hour))
	req.PatientID = "someone-else"

	appointment, err := scheduler.Book(context.Background(), patientActor("pat-1"), req)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appointment.PatientID != "pat-1" {
		t.Errorf("patientID = %s, want the booking patient's own id", appointment.PatientID)
	}
}

func TestBookValidation(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	actor := patientActor("pat-1")

	past := futureBooking(testNow.Add(-time.Hour))
	if _, err := scheduler.Book(ctx, actor, past); !errors.Is(err, ErrValidation) {
		t.Errorf("past start time: got %v, want ErrValidation", err)
	}

	blank := futureBooking(testNow.Add(48 * time.Hour))
	blank.Symptoms = "   "
	if _, err := scheduler.Book(ctx, actor, blank); !errors.Is(err, ErrValidation) {
		t.Errorf("blank symptoms: got %v, want ErrValidation", err)
	}

	tooShort := futureBooking(testNow.Add(48 * time.Hour))
	tooShort.Duration = 10
	if _, err := scheduler.Book(ctx, actor, tooShort); !errors.Is(err, ErrValidation) {
		t.Errorf("10 minute duration: got %v, want ErrValidation", err)
	}

	tooLong := futureBooking(testNow.Add(48 * time.Hour))
	tooLong.Duration = 180
	if _, err := scheduler.Book(ctx, actor, tooLong); !errors.Is(err, ErrValidation) {
		t.Errorf("180 minute duration: got %v, want ErrValidation", err)
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	req := futureBooking(testNow.Add(48 * time.Hour))
	req.DoctorID = "doc-missing"

	if _, err := scheduler.Book(context.Background(), patientActor("pat-1"), req); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestBookDoctorNotAccepting(t *testing.T) {
	scheduler, _, doctors := newTestScheduler(nil)
	doctors.addDoctor("doc-closed", 100, false)
	req := futureBooking(testNow.Add(48 * time.Hour))
	req.DoctorID = "doc-closed"

	if _, err := scheduler.Book(context.Background(), patientActor("pat-1"), req); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestBookRejectsOverlap(t *testing.T) {
	scheduler, repo, _ := newTestScheduler(nil)
	ctx := context.Background()
	actor := patientActor("pat-1")
	start := testNow.Add(5 * 24 * time.Hour)

	first := futureBooking(start)
	first.Duration = 60
	if _, err := scheduler.Book(ctx, actor, first); err != nil {
		t.Fatalf("first Book: %v", err)
	}

	second := futureBooking(start.Add(15 * time.Minute))
	if _, err := scheduler.Book(ctx, patientActor("pat-2"), second); !errors.Is(err, ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
	if repo.count() != 1 {
		t.Errorf("conflicting booking must not persist, have %d appointments", repo.count())
	}

	// Touching interval right after the first booking is allowed.
	touching := futureBooking(start.Add(60 * time.Minute))
	if _, err := scheduler.Book(ctx, patientActor("pat-2"), touching); err != nil {
		t.Errorf("touching booking should succeed, got %v", err)
	}
}

func TestBookConcurrentSameSlotAdmitsOne(t *testing.T) {
	scheduler, repo, _ := newTestScheduler(nil)
	start := testNow.Add(5 * 24 * time.Hour)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := scheduler.Book(context.Background(), patientActor(fmt.Sprintf("pat-%d", n)), futureBooking(start))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("got %d successful bookings for one slot, want exactly 1", successes)
	}
	if conflicts != attempts-1 {
		t.Errorf("got %d conflicts, want %d", conflicts, attempts-1)
	}
	if repo.count() != 1 {
		t.Errorf("repository holds %d appointments, want 1", repo.count())
	}
}

type stubSuggester struct {
	specialty  string
	confidence float64
	err        error
}

func (s stubSuggester) Suggest(ctx context.Context, symptoms string) (string, float64, error) {
	return s.specialty, s.confidence, s.err
}

func TestBookAttachesSpecialtyHint(t *testing.T) {
	scheduler, _, _ := newTestScheduler(stubSuggester{specialty: "Neurology", confidence: 0.82})

	appointment, err := scheduler.Book(context.Background(), patientActor("pat-1"), futureBooking(testNow.Add(48*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appointment.SuggestedSpecialty != "Neurology" || appointment.SuggestionConfidence != 0.82 {
		t.Errorf("hint = %q/%v, want Neurology/0.82", appointment.SuggestedSpecialty, appointment.SuggestionConfidence)
	}
}

func TestBookSurvivesTriageFailure(t *testing.T) {
	scheduler, _, _ := newTestScheduler(stubSuggester{err: errors.New("service down")})

	appointment, err := scheduler.Book(context.Background(), patientActor("pat-1"), futureBooking(testNow.Add(48*time.Hour)))
	if err != nil {
		t.Fatalf("Book must succeed without a triage hint: %v", err)
	}
	if appointment.SuggestedSpecialty != "" {
		t.Errorf("hint should be empty on triage failure, got %q", appointment.SuggestedSpecialty)
	}
}

func TestCancelRecordsMetadata(t *testing.T) {
	scheduler, repo, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	cancelled, err := scheduler.Cancel(ctx, patientActor("pat-1"), booked.ID, "feeling better")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancellationReason != "feeling better" {
		t.Errorf("reason = %q, want %q", cancelled.CancellationReason, "feeling better")
	}
	if cancelled.CancelledBy != models.RolePatient {
		t.Errorf("cancelledBy = %s, want patient", cancelled.CancelledBy)
	}
	if cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(testNow) {
		t.Errorf("cancelledAt = %v, want %v", cancelled.CancelledAt, testNow)
	}

	stored, err := repo.GetByID(ctx, booked.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != models.StatusCancelled {
		t.Errorf("stored status = %s, want cancelled", stored.Status)
	}
}

func TestCancelInsideWindowRefused(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(20*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, err := scheduler.Cancel(ctx, patientActor("pat-1"), booked.ID, ""); !errors.Is(err, ErrStateGuard) {
		t.Errorf("got %v, want ErrStateGuard", err)
	}

	// No admin override on the cut-off.
	if _, err := scheduler.Cancel(ctx, adminActor("adm-1"), booked.ID, ""); !errors.Is(err, ErrStateGuard) {
		t.Errorf("admin cancel inside window: got %v, want ErrStateGuard", err)
	}
}

func TestCancelByStranger(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, err := scheduler.Cancel(ctx, patientActor("pat-2"), booked.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestRescheduleMovesAppointment(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(96*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	newStart := testNow.Add(120 * time.Hour)
	moved, err := scheduler.Reschedule(ctx, patientActor("pat-1"), booked.ID, newStart, "work trip")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Status != models.StatusRescheduled {
		t.Errorf("status = %s, want rescheduled", moved.Status)
	}
	if !moved.StartTime.Equal(newStart) {
		t.Errorf("startTime = %v, want %v", moved.StartTime, newStart)
	}
	if moved.EndTime != newStart.Add(30*time.Minute) {
		t.Errorf("endTime = %v, want %v", moved.EndTime, newStart.Add(30*time.Minute))
	}
}

func TestRescheduleConflictLeavesOriginalUntouched(t *testing.T) {
	scheduler, repo, _ := newTestScheduler(nil)
	ctx := context.Background()

	blocker, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(96*time.Hour)))
	if err != nil {
		t.Fatalf("Book blocker: %v", err)
	}
	victimStart := testNow.Add(100 * time.Hour)
	victim, err := scheduler.Book(ctx, patientActor("pat-2"), futureBooking(victimStart))
	if err != nil {
		t.Fatalf("Book victim: %v", err)
	}

	_, err = scheduler.Reschedule(ctx, patientActor("pat-2"), victim.ID, blocker.StartTime.Add(15*time.Minute), "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	stored, err := repo.GetByID(ctx, victim.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.StartTime.Equal(victimStart) || stored.Status != models.StatusPending {
		t.Errorf("failed reschedule mutated the appointment: start=%v status=%s", stored.StartTime, stored.Status)
	}
}

func TestRescheduleInsideWindowRefused(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(40*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	_, err = scheduler.Reschedule(ctx, patientActor("pat-1"), booked.ID, testNow.Add(200*time.Hour), "")
	if !errors.Is(err, ErrStateGuard) {
		t.Errorf("got %v, want ErrStateGuard", err)
	}
}

func TestConfirmRequiresDoctorOfRecordOrAdmin(t *testing.T) {
	scheduler, repo, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	// Pending appointments cannot be confirmed directly.
	if _, err := scheduler.Confirm(ctx, doctorActor("doc-1"), booked.ID); !errors.Is(err, ErrStateGuard) {
		t.Errorf("confirm from pending: got %v, want ErrStateGuard", err)
	}

	// Move to scheduled through an admin update.
	scheduled := models.StatusScheduled
	if _, err := scheduler.Update(ctx, adminActor("adm-1"), booked.ID, UpdateRequest{Status: &scheduled}); err != nil {
		t.Fatalf("Update to scheduled: %v", err)
	}

	if _, err := scheduler.Confirm(ctx, patientActor("pat-1"), booked.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient confirm: got %v, want ErrForbidden", err)
	}
	if _, err := scheduler.Confirm(ctx, doctorActor("doc-2"), booked.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other doctor confirm: got %v, want ErrForbidden", err)
	}

	confirmed, err := scheduler.Confirm(ctx, doctorActor("doc-1"), booked.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != models.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", confirmed.Status)
	}

	stored, _ := repo.GetByID(ctx, booked.ID)
	if stored.Status != models.StatusConfirmed {
		t.Errorf("stored status = %s, want confirmed", stored.Status)
	}
}

func TestCompleteOnlyByDoctorFromConfirmed(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	// Not confirmed yet.
	if _, err := scheduler.Complete(ctx, doctorActor("doc-1"), booked.ID); !errors.Is(err, ErrStateGuard) {
		t.Errorf("complete from pending: got %v, want ErrStateGuard", err)
	}

	confirmed := models.StatusConfirmed
	if _, err := scheduler.Update(ctx, adminActor("adm-1"), booked.ID, UpdateRequest{Status: &confirmed}); err != nil {
		t.Fatalf("Update to confirmed: %v", err)
	}

	if _, err := scheduler.Complete(ctx, adminActor("adm-1"), booked.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin complete: got %v, want ErrForbidden", err)
	}
	if _, err := scheduler.Complete(ctx, patientActor("pat-1"), booked.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient complete: got %v, want ErrForbidden", err)
	}

	completed, err := scheduler.Complete(ctx, doctorActor("doc-1"), booked.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", completed.Status)
	}
}

func TestUpdateRejectsIllegalStatusTransition(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	completed := models.StatusCompleted
	_, err = scheduler.Update(ctx, adminActor("adm-1"), booked.ID, UpdateRequest{Status: &completed})
	if !errors.Is(err, ErrStateGuard) {
		t.Errorf("pending to completed: got %v, want ErrStateGuard", err)
	}
}

func TestUpdateRecomputesFeeTotal(t *testing.T) {
	scheduler, repo, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	additional := 35.0
	updated, err := scheduler.Update(ctx, adminActor("adm-1"), booked.ID, UpdateRequest{FeeAdditional: &additional})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Fee.Total != 185 {
		t.Errorf("fee total = %v, want 185", updated.Fee.Total)
	}

	stored, _ := repo.GetByID(ctx, booked.ID)
	if stored.Fee.Total != 185 {
		t.Errorf("stored fee total = %v, want 185", stored.Fee.Total)
	}
}

func TestListScopesToRole(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()

	if _, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour))); err != nil {
		t.Fatalf("Book: %v", err)
	}
	if _, err := scheduler.Book(ctx, patientActor("pat-2"), futureBooking(testNow.Add(80*time.Hour))); err != nil {
		t.Fatalf("Book: %v", err)
	}

	own, total, err := scheduler.List(ctx, patientActor("pat-1"), ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(own) != 1 || own[0].PatientID != "pat-1" {
		t.Errorf("patient list: got %d/%d, want exactly the patient's own appointment", len(own), total)
	}

	// A patient cannot widen the scope by passing someone else's filter.
	other, _, err := scheduler.List(ctx, patientActor("pat-1"), ListFilter{PatientID: "pat-2"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(other) != 1 || other[0].PatientID != "pat-1" {
		t.Error("patient-supplied filters must not escape the caller's own scope")
	}

	all, total, err := scheduler.List(ctx, adminActor("adm-1"), ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("admin list: got %d/%d, want all appointments", len(all), total)
	}
}

func TestAddReminderIncrementsCounter(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	first, err := scheduler.AddReminder(ctx, adminActor("adm-1"), booked.ID)
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}
	if first.RemindersSent != 1 || first.LastReminderSent == nil {
		t.Errorf("after first reminder: count=%d last=%v", first.RemindersSent, first.LastReminderSent)
	}

	second, err := scheduler.AddReminder(ctx, adminActor("adm-1"), booked.ID)
	if err != nil {
		t.Fatalf("AddReminder: %v", err)
	}
	if second.RemindersSent != 2 {
		t.Errorf("after second reminder: count=%d, want 2", second.RemindersSent)
	}
}

func TestGetRestrictedToPartiesAndAdmin(t *testing.T) {
	scheduler, _, _ := newTestScheduler(nil)
	ctx := context.Background()
	booked, err := scheduler.Book(ctx, patientActor("pat-1"), futureBooking(testNow.Add(72*time.Hour)))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if _, err := scheduler.Get(ctx, patientActor("pat-1"), booked.ID); err != nil {
		t.Errorf("patient party Get: %v", err)
	}
	if _, err := scheduler.Get(ctx, doctorActor("doc-1"), booked.ID); err != nil {
		t.Errorf("doctor party Get: %v", err)
	}
	if _, err := scheduler.Get(ctx, adminActor("adm-1"), booked.ID); err != nil {
		t.Errorf("admin Get: %v", err)
	}
	if _, err := scheduler.Get(ctx, patientActor("pat-2"), booked.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger Get: got %v, want ErrForbidden", err)
	}
	if _, err := scheduler.Get(ctx, adminActor("adm-1"), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: got %v, want ErrNotFound", err)
	}
}
