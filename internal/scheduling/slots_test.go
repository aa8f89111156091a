package scheduling

import (
	"context"
	"testing"
	"time"

	"clinic-booking-server/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAvailableSlotsEmptyDay(t *testing.T) {
	repo := newFakeAppointmentRepo()
	now := time.Date(2026, 9, 9, 12, 0, 0, 0, time.UTC)
	gen := NewSlotGenerator(repo, fixedClock(now))

	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	slots, err := gen.AvailableSlots(context.Background(), "doc-1", date, 0)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	// 09:00 through 16:30 at 30-minute steps.
	if len(slots) != 16 {
		t.Fatalf("got %d slots, want 16", len(slots))
	}
	if slots[0].FormattedTime != "09:00" {
		t.Errorf("first slot = %s, want 09:00", slots[0].FormattedTime)
	}
	if slots[len(slots)-1].FormattedTime != "16:30" {
		t.Errorf("last slot = %s, want 16:30", slots[len(slots)-1].FormattedTime)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Time.After(slots[i-1].Time) {
			t.Fatalf("slots out of order at index %d", i)
		}
	}
}

func TestAvailableSlotsSkipsBookedIntervals(t *testing.T) {
	repo := newFakeAppointmentRepo()
	now := time.Date(2026, 9, 9, 12, 0, 0, 0, time.UTC)
	gen := NewSlotGenerator(repo, fixedClock(now))
	ctx := context.Background()

	// 10:00-11:00 booking removes the 10:00 and 10:30 candidates.
	booked := &models.Appointment{
		DoctorID:  "doc-1",
		StartTime: time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC),
		Duration:  60,
		Status:    models.StatusConfirmed,
		Symptoms:  "checkup",
	}
	if err := repo.Create(ctx, booked); err != nil {
		t.Fatalf("Create: %v", err)
	}

	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	slots, err := gen.AvailableSlots(ctx, "doc-1", date, 0)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	if len(slots) != 14 {
		t.Fatalf("got %d slots, want 14", len(slots))
	}
	for _, slot := range slots {
		if slot.FormattedTime == "10:00" || slot.FormattedTime == "10:30" {
			t.Errorf("slot %s overlaps the booking and must be excluded", slot.FormattedTime)
		}
	}
	// Touching slots on both sides stay available.
	found := map[string]bool{}
	for _, slot := range slots {
		found[slot.FormattedTime] = true
	}
	if !found["09:30"] || !found["11:00"] {
		t.Error("slots touching the booking boundary must remain available")
	}
}

func TestAvailableSlotsExcludesPastTimes(t *testing.T) {
	repo := newFakeAppointmentRepo()
	// Midday on the queried date itself.
	now := time.Date(2026, 9, 10, 12, 10, 0, 0, time.UTC)
	gen := NewSlotGenerator(repo, fixedClock(now))

	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	slots, err := gen.AvailableSlots(context.Background(), "doc-1", date, 0)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	// First remaining candidate is 12:30.
	if len(slots) == 0 {
		t.Fatal("expected afternoon slots to remain")
	}
	if slots[0].FormattedTime != "12:30" {
		t.Errorf("first slot = %s, want 12:30", slots[0].FormattedTime)
	}
	if len(slots) != 9 {
		t.Errorf("got %d slots, want 9", len(slots))
	}
}

func TestAvailableSlotsAllInPast(t *testing.T) {
	repo := newFakeAppointmentRepo()
	now := time.Date(2026, 9, 11, 9, 0, 0, 0, time.UTC)
	gen := NewSlotGenerator(repo, fixedClock(now))

	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	slots, err := gen.AvailableSlots(context.Background(), "doc-1", date, 0)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("got %d slots for a fully past day, want 0", len(slots))
	}
}
