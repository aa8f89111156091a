package scheduling

import (
	"time"

	"clinic-booking-server/internal/models"
)

// Cancellation and reschedule cut-offs, in hours before the appointment start.
const (
	CancelCutoffHours     = 24
	RescheduleCutoffHours = 48
)

// transitions is the legal status edge table. A status missing from the map
// (completed, cancelled, no-show) is terminal. Rescheduled behaves like
// scheduled: it can be confirmed, cancelled, or rescheduled again.
var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending: {
		models.StatusScheduled,
		models.StatusConfirmed,
		models.StatusCancelled,
		models.StatusRescheduled,
	},
	models.StatusScheduled: {
		models.StatusConfirmed,
		models.StatusCancelled,
		models.StatusRescheduled,
	},
	models.StatusRescheduled: {
		models.StatusConfirmed,
		models.StatusCancelled,
		models.StatusRescheduled,
	},
	models.StatusConfirmed: {
		models.StatusCompleted,
		models.StatusCancelled,
		models.StatusNoShow,
		models.StatusRescheduled,
	},
}

// CanTransition reports whether moving from one status to another is a
// legal edge of the lifecycle state machine.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// hoursUntil returns the number of hours between now and the appointment start.
func hoursUntil(start, now time.Time) float64 {
	return start.Sub(now).Hours()
}

// CanCancel reports whether the appointment may still be cancelled:
// it must not be terminal and must start more than 24 hours from now.
func CanCancel(a *models.Appointment, now time.Time) bool {
	if a.Status.IsTerminal() {
		return false
	}
	return hoursUntil(a.StartTime, now) > CancelCutoffHours
}

// CanReschedule reports whether the appointment may still be rescheduled:
// it must not be terminal and must start more than 48 hours from now.
func CanReschedule(a *models.Appointment, now time.Time) bool {
	if a.Status.IsTerminal() {
		return false
	}
	return hoursUntil(a.StartTime, now) > RescheduleCutoffHours
}

// canConfirmFrom reports whether a confirm operation is valid from the
// given status.
func canConfirmFrom(status models.AppointmentStatus) bool {
	return status == models.StatusScheduled || status == models.StatusRescheduled
}
