package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clinic-booking-server/internal/models"
)

// fakeAppointmentRepo is an in-memory AppointmentRepository. It mirrors the
// persistence hook by deriving EndTime and Fee.Total on every write, and it
// hands out copies so callers cannot mutate stored state without Save.
type fakeAppointmentRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[string]models.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: make(map[string]models.Appointment)}
}

func derive(a *models.Appointment) {
	a.EndTime = a.StartTime.Add(time.Duration(a.Duration) * time.Minute)
	a.Fee.Total = a.Fee.Consultation + a.Fee.Additional
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = fmt.Sprintf("appt-%d", r.nextID)
	derive(a)
	r.items[a.ID] = *a
	return nil
}

func (r *fakeAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	clone := stored
	return &clone, nil
}

func (r *fakeAppointmentRepo) Save(ctx context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return fmt.Errorf("%w: appointment %s", ErrNotFound, a.ID)
	}
	derive(a)
	r.items[a.ID] = *a
	return nil
}

func (r *fakeAppointmentRepo) ListOverlapping(ctx context.Context, doctorID string, start, end time.Time, excludeID string, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, a := range r.items {
		if a.DoctorID != doctorID || a.ID == excludeID {
			continue
		}
		if !statusIn(a.Status, statuses) {
			continue
		}
		if Overlaps(start, end, a.StartTime, a.EndTime) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListForDoctorDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, a := range r.items {
		if a.DoctorID != doctorID {
			continue
		}
		if !statusIn(a.Status, statuses) {
			continue
		}
		if a.StartTime.Before(dayStart) || !a.StartTime.Before(dayEnd) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filter ListFilter) ([]models.Appointment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, a := range r.items {
		if filter.DoctorID != "" && a.DoctorID != filter.DoctorID {
			continue
		}
		if filter.PatientID != "" && a.PatientID != filter.PatientID {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(a.Status, filter.Statuses) {
			continue
		}
		if filter.From != nil && a.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.StartTime.After(*filter.To) {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAppointmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func statusIn(status models.AppointmentStatus, statuses []models.AppointmentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// fakeDoctorRepo resolves doctors from a fixed map.
type fakeDoctorRepo struct {
	doctors  map[string]*models.User
	profiles map[string]*models.DoctorProfile
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{
		doctors:  make(map[string]*models.User),
		profiles: make(map[string]*models.DoctorProfile),
	}
}

func (r *fakeDoctorRepo) addDoctor(id string, fee float64, accepting bool) {
	user := &models.User{Role: models.RoleDoctor}
	user.ID = id
	r.doctors[id] = user
	r.profiles[id] = &models.DoctorProfile{
		UserID:              id,
		ConsultationFee:     fee,
		IsAcceptingPatients: accepting,
	}
}

func (r *fakeDoctorRepo) GetDoctorUser(ctx context.Context, id string) (*models.User, error) {
	doctor, ok := r.doctors[id]
	if !ok {
		return nil, fmt.Errorf("%w: doctor %s", ErrNotFound, id)
	}
	return doctor, nil
}

func (r *fakeDoctorRepo) GetProfile(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: doctor profile %s", ErrNotFound, userID)
	}
	return profile, nil
}
