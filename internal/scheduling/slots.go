package scheduling

import (
	"context"
	"time"

	"clinic-booking-server/internal/models"
)

// Working window and default slot granularity.
const (
	WorkdayStartHour   = 9
	WorkdayEndHour     = 17
	DefaultSlotMinutes = 30
)

// Slot is one bookable candidate interval.
type Slot struct {
	Time          time.Time `json:"time"`
	FormattedTime string    `json:"formattedTime"` // HH:MM, 24-hour
}

// SlotGenerator enumerates a doctor's free intervals for a calendar day by
// walking the fixed working window and dropping candidates that overlap an
// active booking or have already started.
type SlotGenerator struct {
	appointments AppointmentRepository
	now          func() time.Time
}

// NewSlotGenerator creates a SlotGenerator. nowFn is the clock; pass nil
// for time.Now.
func NewSlotGenerator(appointments AppointmentRepository, nowFn func() time.Time) *SlotGenerator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &SlotGenerator{appointments: appointments, now: nowFn}
}

// AvailableSlots returns the doctor's free slots for the given calendar
// date, ascending by start time. slotMinutes <= 0 falls back to the
// 30-minute default. Only the date part of date is used; times are built in
// its location.
func (g *SlotGenerator) AvailableSlots(ctx context.Context, doctorID string, date time.Time, slotMinutes int) ([]Slot, error) {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}

	year, month, day := date.Date()
	loc := date.Location()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	booked, err := g.appointments.ListForDoctorDay(ctx, doctorID, dayStart, dayEnd, conflictActiveStatuses)
	if err != nil {
		return nil, err
	}

	windowStart := time.Date(year, month, day, WorkdayStartHour, 0, 0, 0, loc)
	windowEnd := time.Date(year, month, day, WorkdayEndHour, 0, 0, 0, loc)
	slotSize := time.Duration(slotMinutes) * time.Minute
	now := g.now()

	slots := []Slot{}
	for candidate := windowStart; candidate.Before(windowEnd); candidate = candidate.Add(slotSize) {
		if !candidate.After(now) {
			continue
		}
		candidateEnd := candidate.Add(slotSize)
		if overlapsAny(candidate, candidateEnd, booked) {
			continue
		}
		slots = append(slots, Slot{
			Time:          candidate,
			FormattedTime: candidate.Format("15:04"),
		})
	}
	return slots, nil
}

func overlapsAny(start, end time.Time, appointments []models.Appointment) bool {
	for _, a := range appointments {
		if Overlaps(start, end, a.StartTime, a.EndTime) {
			return true
		}
	}
	return false
}
