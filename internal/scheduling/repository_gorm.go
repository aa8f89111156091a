package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"clinic-booking-server/internal/models"
)

// GormAppointmentRepository implements AppointmentRepository on gorm.
type GormAppointmentRepository struct {
	db *gorm.DB
}

// NewGormAppointmentRepository creates a gorm-backed appointment repository.
func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func (r *GormAppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := r.db.WithContext(ctx).First(&appointment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *GormAppointmentRepository) Save(ctx context.Context, a *models.Appointment) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *GormAppointmentRepository) ListOverlapping(ctx context.Context, doctorID string, start, end time.Time, excludeID string, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	query := r.db.WithContext(ctx).
		Where("doctor_id = ? AND status IN ?", doctorID, statuses).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *GormAppointmentRepository) ListForDoctorDay(ctx context.Context, doctorID string, dayStart, dayEnd time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND status IN ?", doctorID, statuses).
		Where("start_time >= ? AND start_time < ?", dayStart, dayEnd).
		Order("start_time asc").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *GormAppointmentRepository) List(ctx context.Context, filter ListFilter) ([]models.Appointment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Appointment{})

	if filter.DoctorID != "" {
		query = query.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.PatientID != "" {
		query = query.Where("patient_id = ?", filter.PatientID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		query = query.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("start_time <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	var appointments []models.Appointment
	err := query.
		Preload("Patient").Preload("Doctor").
		Order("start_time desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

// GormDoctorRepository implements DoctorRepository on gorm.
type GormDoctorRepository struct {
	db *gorm.DB
}

// NewGormDoctorRepository creates a gorm-backed doctor repository.
func NewGormDoctorRepository(db *gorm.DB) *GormDoctorRepository {
	return &GormDoctorRepository{db: db}
}

func (r *GormDoctorRepository) GetDoctorUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND role = ?", id, models.RoleDoctor).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: doctor %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormDoctorRepository) GetProfile(ctx context.Context, userID string) (*models.DoctorProfile, error) {
	var profile models.DoctorProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: doctor profile for %s", ErrNotFound, userID)
		}
		return nil, err
	}
	return &profile, nil
}
