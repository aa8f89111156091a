package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no-show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// AppointmentType classifies the kind of visit.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeCheckup      AppointmentType = "checkup"
	TypeEmergency    AppointmentType = "emergency"
)

// Urgency indicates how soon the patient needs to be seen.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Duration bounds in minutes.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 120
)

// Fee holds the charge breakdown for an appointment.
// Total is recomputed from Consultation + Additional on every save.
type Fee struct {
	Consultation float64 `gorm:"column:fee_consultation" json:"consultation"`
	Additional   float64 `gorm:"column:fee_additional" json:"additional"`
	Total        float64 `gorm:"column:fee_total" json:"total"`
	Currency     string  `gorm:"column:fee_currency;size:3;default:'USD'" json:"currency"`
}

// Medication is a single prescribed item.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription is the set of medications issued during a visit.
type Prescription struct {
	Medications            []Medication `json:"medications"`
	AdditionalInstructions string       `json:"additionalInstructions,omitempty"`
}

// Diagnosis captures the outcome of a completed visit.
type Diagnosis struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary,omitempty"`
	ICD10Code string   `json:"icd10Code,omitempty"`
}

// Vitals are measurements taken during the appointment.
type Vitals struct {
	BloodPressureSystolic  int     `json:"bloodPressureSystolic,omitempty"`
	BloodPressureDiastolic int     `json:"bloodPressureDiastolic,omitempty"`
	HeartRate              int     `json:"heartRate,omitempty"`
	Temperature            float64 `json:"temperature,omitempty"`
	Weight                 float64 `json:"weight,omitempty"`
	Height                 float64 `json:"height,omitempty"`
	OxygenSaturation       int     `json:"oxygenSaturation,omitempty"`
}

func (p Prescription) Value() (driver.Value, error) { return jsonValue(p) }
func (p *Prescription) Scan(src interface{}) error  { return jsonScan(src, p) }
func (d Diagnosis) Value() (driver.Value, error)    { return jsonValue(d) }
func (d *Diagnosis) Scan(src interface{}) error     { return jsonScan(src, d) }
func (v Vitals) Value() (driver.Value, error)       { return jsonValue(v) }
func (v *Vitals) Scan(src interface{}) error        { return jsonScan(src, v) }

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch s := src.(type) {
	case []byte:
		if len(s) == 0 {
			return nil
		}
		return json.Unmarshal(s, dst)
	case string:
		if s == "" {
			return nil
		}
		return json.Unmarshal([]byte(s), dst)
	default:
		return errors.New("unsupported column type for JSON scan")
	}
}

// Appointment represents a scheduled medical appointment between a patient
// and a doctor. EndTime and Fee.Total are derived columns maintained by the
// BeforeSave hook.
type Appointment struct {
	BaseModel
	PatientID string    `gorm:"size:36;index:idx_appointments_patient_time" json:"patientId"`
	DoctorID  string    `gorm:"size:36;index:idx_appointments_doctor_time" json:"doctorId"`
	CreatedBy string    `gorm:"size:36" json:"createdBy"`
	StartTime time.Time `gorm:"index:idx_appointments_patient_time;index:idx_appointments_doctor_time" json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  int       `gorm:"default:30" json:"duration"` // minutes

	Status          AppointmentStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	AppointmentType AppointmentType   `gorm:"size:20;default:'consultation'" json:"appointmentType"`
	Urgency         Urgency           `gorm:"size:10;default:'medium'" json:"urgency"`

	Symptoms     string       `gorm:"size:1000;not null" json:"symptoms"`
	PatientNotes string       `gorm:"size:500" json:"patientNotes,omitempty"`
	DoctorNotes  string       `gorm:"size:1000" json:"doctorNotes,omitempty"`
	Diagnosis    Diagnosis    `gorm:"type:json" json:"diagnosis"`
	Prescription Prescription `gorm:"type:json" json:"prescription"`
	Vitals       Vitals       `gorm:"type:json" json:"vitals"`

	Fee Fee `gorm:"embedded" json:"fee"`

	// Triage advisory metadata, attached at booking time when the advisory
	// service is reachable. Never required for a booking to succeed.
	SuggestedSpecialty   string  `gorm:"size:100" json:"suggestedSpecialty,omitempty"`
	SuggestionConfidence float64 `json:"suggestionConfidence,omitempty"`

	CancellationReason string     `gorm:"size:500" json:"cancellationReason,omitempty"`
	CancelledBy        Role       `gorm:"size:20" json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`

	RemindersSent    int        `gorm:"default:0" json:"remindersSent"`
	LastReminderSent *time.Time `json:"lastReminderSent,omitempty"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// BeforeSave keeps the derived columns consistent on every persist:
// EndTime = StartTime + Duration, Fee.Total = Fee.Consultation + Fee.Additional.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	if a.Duration < MinDurationMinutes || a.Duration > MaxDurationMinutes {
		return fmt.Errorf("appointment duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes)
	}
	a.EndTime = a.StartTime.Add(time.Duration(a.Duration) * time.Minute)
	a.Fee.Total = a.Fee.Consultation + a.Fee.Additional
	return nil
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}
