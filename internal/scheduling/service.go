package scheduling

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"clinic-booking-server/internal/logging"
	"clinic-booking-server/internal/models"
)

// Actor identifies the authenticated caller of an engine operation.
// Identity and role resolution happen upstream in the auth middleware.
type Actor struct {
	ID   string
	Role models.Role
}

// isParty reports whether the actor is the patient or doctor on the
// appointment.
func (actor Actor) isParty(a *models.Appointment) bool {
	return actor.ID == a.PatientID || actor.ID == a.DoctorID
}

// canAct reports whether the actor may operate on the appointment at all:
// admins always, everyone else only as a party.
func (actor Actor) canAct(a *models.Appointment) bool {
	return actor.Role == models.RoleAdmin || actor.isParty(a)
}

// SpecialtySuggester is the advisory triage collaborator. Suggest failures
// must never block or fail a booking; the service logs and moves on.
type SpecialtySuggester interface {
	Suggest(ctx context.Context, symptoms string) (specialty string, confidence float64, err error)
}

// doctorLocks serializes conflict-check-then-write sequences per doctor so
// concurrent bookings against one doctor cannot both pass the conflict
// check. Locks are never removed; the map grows with the number of doctors,
// which is small.
type doctorLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDoctorLocks() *doctorLocks {
	return &doctorLocks{locks: make(map[string]*sync.Mutex)}
}

func (d *doctorLocks) forDoctor(doctorID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[doctorID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[doctorID] = lock
	}
	return lock
}

// BookingRequest carries the inputs for creating an appointment.
type BookingRequest struct {
	PatientID       string // ignored unless the actor is an admin or doctor booking on behalf
	DoctorID        string
	StartTime       time.Time
	Duration        int // minutes; 0 means the 30-minute default
	AppointmentType models.AppointmentType
	Urgency         models.Urgency
	Symptoms        string
	PatientNotes    string
}

// Scheduler is the appointment scheduling and conflict-resolution engine.
// It owns booking, slot queries, lifecycle transitions, and policy-filtered
// updates. Construct one per process and share it; all state lives in the
// repositories except the per-doctor lock table.
type Scheduler struct {
	appointments AppointmentRepository
	doctors      DoctorRepository
	conflicts    *ConflictDetector
	slots        *SlotGenerator
	triage       SpecialtySuggester // optional
	locks        *doctorLocks
	now          func() time.Time
}

// NewScheduler wires the engine. triage may be nil; nowFn nil means
// time.Now.
func NewScheduler(appointments AppointmentRepository, doctors DoctorRepository, triage SpecialtySuggester, nowFn func() time.Time) *Scheduler {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Scheduler{
		appointments: appointments,
		doctors:      doctors,
		conflicts:    NewConflictDetector(appointments),
		slots:        NewSlotGenerator(appointments, nowFn),
		triage:       triage,
		locks:        newDoctorLocks(),
		now:          nowFn,
	}
}

// Book validates the doctor and the request, runs the conflict check under
// the doctor's lock, and creates the appointment with status pending and a
// fee derived from the doctor's consultation rate.
func (s *Scheduler) Book(ctx context.Context, actor Actor, req BookingRequest) (*models.Appointment, error) {
	if req.Duration == 0 {
		req.Duration = DefaultSlotMinutes
	}
	if req.AppointmentType == "" {
		req.AppointmentType = models.TypeConsultation
	}
	if req.Urgency == "" {
		req.Urgency = models.UrgencyMedium
	}

	if strings.TrimSpace(req.Symptoms) == "" {
		return nil, fmt.Errorf("%w: symptoms are required", ErrValidation)
	}
	if len(req.Symptoms) > 1000 {
		return nil, fmt.Errorf("%w: symptoms description cannot be more than 1000 characters", ErrValidation)
	}
	if req.Duration < models.MinDurationMinutes || req.Duration > models.MaxDurationMinutes {
		return nil, fmt.Errorf("%w: duration must be between %d and %d minutes", ErrValidation, models.MinDurationMinutes, models.MaxDurationMinutes)
	}
	if !req.StartTime.After(s.now()) {
		return nil, fmt.Errorf("%w: appointment time must be in the future", ErrValidation)
	}

	patientID := req.PatientID
	if actor.Role == models.RolePatient {
		// Patients can only book for themselves.
		patientID = actor.ID
	}
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient is required", ErrValidation)
	}

	doctor, err := s.doctors.GetDoctorUser(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	profile, err := s.doctors.GetProfile(ctx, doctor.ID)
	if err != nil {
		return nil, err
	}
	if !profile.IsAcceptingPatients {
		return nil, fmt.Errorf("%w: doctor is not currently accepting patients", ErrForbidden)
	}

	appointment := &models.Appointment{
		PatientID:       patientID,
		DoctorID:        doctor.ID,
		CreatedBy:       actor.ID,
		StartTime:       req.StartTime,
		Duration:        req.Duration,
		Status:          models.StatusPending,
		AppointmentType: req.AppointmentType,
		Urgency:         req.Urgency,
		Symptoms:        req.Symptoms,
		PatientNotes:    req.PatientNotes,
		Fee:             NewFee(profile.ConsultationFee),
	}

	s.attachSpecialtyHint(ctx, appointment)

	end := req.StartTime.Add(time.Duration(req.Duration) * time.Minute)

	lock := s.locks.forDoctor(doctor.ID)
	lock.Lock()
	defer lock.Unlock()

	conflict, err := s.conflicts.HasConflict(ctx, doctor.ID, req.StartTime, end, "")
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, fmt.Errorf("%w: doctor is not available at the requested time", ErrConflict)
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// attachSpecialtyHint asks the triage collaborator for a specialty
// suggestion. Any failure is logged and swallowed.
func (s *Scheduler) attachSpecialtyHint(ctx context.Context, a *models.Appointment) {
	if s.triage == nil {
		return
	}
	specialty, confidence, err := s.triage.Suggest(ctx, a.Symptoms)
	if err != nil {
		logging.L.Warn("triage suggestion unavailable, booking continues without hint",
			zap.String("doctorId", a.DoctorID), zap.Error(err))
		return
	}
	a.SuggestedSpecialty = specialty
	a.SuggestionConfidence = confidence
}

// AvailableSlots lists the doctor's free 30-minute slots for a calendar
// date, ascending by start time.
func (s *Scheduler) AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]Slot, error) {
	if _, err := s.doctors.GetDoctorUser(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.slots.AvailableSlots(ctx, doctorID, date, DefaultSlotMinutes)
}

// Get fetches one appointment, restricted to its parties and admins.
func (s *Scheduler) Get(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAct(appointment) {
		return nil, fmt.Errorf("%w: not authorized to view this appointment", ErrForbidden)
	}
	return appointment, nil
}

// List returns appointments scoped to the caller: patients see their own,
// doctors see theirs, admins see everything the filter matches.
func (s *Scheduler) List(ctx context.Context, actor Actor, filter ListFilter) ([]models.Appointment, int64, error) {
	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.ID
		filter.DoctorID = ""
	case models.RoleDoctor:
		filter.DoctorID = actor.ID
		filter.PatientID = ""
	case models.RoleAdmin:
		// Admin filters pass through untouched.
	default:
		return nil, 0, fmt.Errorf("%w: role may not list appointments", ErrForbidden)
	}
	return s.appointments.List(ctx, filter)
}

// History returns the caller's completed and cancelled appointments.
func (s *Scheduler) History(ctx context.Context, actor Actor, page, pageSize int) ([]models.Appointment, int64, error) {
	filter := ListFilter{
		Statuses: []models.AppointmentStatus{models.StatusCompleted, models.StatusCancelled},
		Page:     page,
		PageSize: pageSize,
	}
	return s.List(ctx, actor, filter)
}

// Cancel moves a non-terminal appointment to cancelled when more than 24
// hours remain, recording the reason, cancelling role, and timestamp.
// There is no admin override on the time window.
func (s *Scheduler) Cancel(ctx context.Context, actor Actor, id, reason string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAct(appointment) {
		return nil, fmt.Errorf("%w: not authorized to cancel this appointment", ErrForbidden)
	}
	now := s.now()
	if !CanCancel(appointment, now) {
		return nil, fmt.Errorf("%w: appointment cannot be cancelled (less than %d hours remaining or already terminal)", ErrStateGuard, CancelCutoffHours)
	}

	cancelledBy := actor.Role
	if actor.Role != models.RoleAdmin {
		if actor.ID == appointment.PatientID {
			cancelledBy = models.RolePatient
		} else {
			cancelledBy = models.RoleDoctor
		}
	}

	appointment.Status = models.StatusCancelled
	appointment.CancellationReason = reason
	appointment.CancelledBy = cancelledBy
	appointment.CancelledAt = &now

	if err := s.appointments.Save(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Reschedule moves a non-terminal appointment to a new start time when more
// than 48 hours remain and the new interval is free. On conflict the
// original interval is left untouched.
func (s *Scheduler) Reschedule(ctx context.Context, actor Actor, id string, newStart time.Time, reason string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAct(appointment) {
		return nil, fmt.Errorf("%w: not authorized to reschedule this appointment", ErrForbidden)
	}
	if !CanReschedule(appointment, s.now()) {
		return nil, fmt.Errorf("%w: appointment cannot be rescheduled (less than %d hours remaining or already terminal)", ErrStateGuard, RescheduleCutoffHours)
	}
	if !newStart.After(s.now()) {
		return nil, fmt.Errorf("%w: new appointment time must be in the future", ErrValidation)
	}

	newEnd := newStart.Add(time.Duration(appointment.Duration) * time.Minute)

	lock := s.locks.forDoctor(appointment.DoctorID)
	lock.Lock()
	defer lock.Unlock()

	conflict, err := s.conflicts.HasConflict(ctx, appointment.DoctorID, newStart, newEnd, appointment.ID)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, fmt.Errorf("%w: doctor is not available at the requested new time", ErrConflict)
	}

	appointment.StartTime = newStart
	appointment.Status = models.StatusRescheduled
	if reason != "" {
		if appointment.PatientNotes != "" {
			appointment.PatientNotes += "\n"
		}
		appointment.PatientNotes += "Rescheduled: " + reason
	}

	if err := s.appointments.Save(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Confirm moves a scheduled (or rescheduled) appointment to confirmed.
// Only the doctor of record or an admin may confirm.
func (s *Scheduler) Confirm(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && !(actor.Role == models.RoleDoctor && actor.ID == appointment.DoctorID) {
		return nil, fmt.Errorf("%w: not authorized to confirm this appointment", ErrForbidden)
	}
	if !canConfirmFrom(appointment.Status) {
		return nil, fmt.Errorf("%w: only scheduled appointments can be confirmed", ErrStateGuard)
	}

	appointment.Status = models.StatusConfirmed
	if err := s.appointments.Save(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Complete moves a confirmed appointment to completed. Only the doctor of
// record may complete a visit.
func (s *Scheduler) Complete(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleDoctor || actor.ID != appointment.DoctorID {
		return nil, fmt.Errorf("%w: only the appointment's doctor can complete it", ErrForbidden)
	}
	if !CanTransition(appointment.Status, models.StatusCompleted) {
		return nil, fmt.Errorf("%w: only confirmed appointments can be completed", ErrStateGuard)
	}

	appointment.Status = models.StatusCompleted
	if err := s.appointments.Save(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Update applies a policy-filtered field update. Disallowed fields are
// dropped silently; a surviving status change must still be a legal
// transition.
func (s *Scheduler) Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAct(appointment) {
		return nil, fmt.Errorf("%w: not authorized to update this appointment", ErrForbidden)
	}

	update := NarrowUpdate(actor.Role, req)
	if next := update.StatusChange(); next != nil && *next != appointment.Status {
		if !CanTransition(appointment.Status, *next) {
			return nil, fmt.Errorf("%w: cannot move appointment from %s to %s", ErrStateGuard, appointment.Status, *next)
		}
	}
	update.Apply(appointment)

	if err := s.appointments.Save(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// AddReminder bumps the reminder counter and timestamp. Delivery itself is
// an external concern; the engine only records that a reminder went out.
func (s *Scheduler) AddReminder(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAct(appointment) {
		return nil, fmt.Errorf("%w: not authorized to add a reminder for this appointment", ErrForbidden)
	}

	now := s.now()
	appointment.RemindersSent++
	appointment.LastReminderSent = &now

	if err := s.appointments.Save(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}
