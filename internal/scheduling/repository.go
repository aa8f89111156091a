package scheduling

import (
	"context"
	"time"

	"clinic-booking-server/internal/models"
)

// ListFilter narrows appointment listings. Zero values mean "no filter".
type ListFilter struct {
	DoctorID  string
	PatientID string
	Statuses  []models.AppointmentStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// AppointmentRepository is the persistence surface the engine needs.
// The gorm implementation lives in repository_gorm.go; tests substitute an
// in-memory fake.
type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	Save(ctx context.Context, a *models.Appointment) error

	// ListOverlapping returns the doctor's appointments in the given
	// statuses whose [start,end) interval intersects [start,end), skipping
	// excludeID when non-empty.
	ListOverlapping(ctx context.Context, doctorID string, start, end time.Time, excludeID string, statuses []models.AppointmentStatus) ([]models.Appointment, error)

	// ListForDoctorDay returns the doctor's appointments in the given
	// statuses starting within [dayStart, dayEnd), ordered by start time.
	ListForDoctorDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error)

	// List returns a page of appointments matching the filter, newest
	// start time first, along with the total match count.
	List(ctx context.Context, filter ListFilter) ([]models.Appointment, int64, error)
}

// DoctorRepository resolves doctors and their profiles. Profile data is
// consumed read-only by the engine.
type DoctorRepository interface {
	// GetDoctorUser returns the user with the given id if it has the
	// doctor role, or ErrNotFound.
	GetDoctorUser(ctx context.Context, id string) (*models.User, error)

	// GetProfile returns the doctor's profile, or ErrNotFound when no
	// profile exists for that user.
	GetProfile(ctx context.Context, userID string) (*models.DoctorProfile, error)
}
