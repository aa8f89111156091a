package scheduling

import (
	"context"
	"time"

	"clinic-booking-server/internal/models"
)

// conflictActiveStatuses are the statuses that count toward conflict checks.
// Rescheduled is included because a rescheduled appointment still occupies
// its interval exactly like a scheduled one.
var conflictActiveStatuses = []models.AppointmentStatus{
	models.StatusPending,
	models.StatusScheduled,
	models.StatusConfirmed,
	models.StatusRescheduled,
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Touching
// intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ConflictDetector answers whether a proposed interval collides with any
// active booking of a doctor.
type ConflictDetector struct {
	appointments AppointmentRepository
}

// NewConflictDetector creates a ConflictDetector over the given repository.
func NewConflictDetector(appointments AppointmentRepository) *ConflictDetector {
	return &ConflictDetector{appointments: appointments}
}

// HasConflict scans the doctor's active appointments for an overlap with
// [start, end). excludeID ignores the appointment being rescheduled; pass
// "" when booking.
func (d *ConflictDetector) HasConflict(ctx context.Context, doctorID string, start, end time.Time, excludeID string) (bool, error) {
	overlapping, err := d.appointments.ListOverlapping(ctx, doctorID, start, end, excludeID, conflictActiveStatuses)
	if err != nil {
		return false, err
	}
	return len(overlapping) > 0, nil
}
