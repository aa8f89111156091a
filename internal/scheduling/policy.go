package scheduling

import (
	"clinic-booking-server/internal/models"
)

// UpdateRequest is the full mutation surface a caller may submit. Which
// fields actually reach persistence depends on the caller's role: the
// mutation policy narrows the request to a role-specific variant and
// silently drops everything else.
type UpdateRequest struct {
	Symptoms     *string                   `json:"symptoms,omitempty"`
	PatientNotes *string                   `json:"patientNotes,omitempty"`
	DoctorNotes  *string                   `json:"doctorNotes,omitempty"`
	Diagnosis    *models.Diagnosis         `json:"diagnosis,omitempty"`
	Prescription *models.Prescription      `json:"prescription,omitempty"`
	Vitals       *models.Vitals            `json:"vitals,omitempty"`
	Status       *models.AppointmentStatus `json:"status,omitempty"`

	// Admin-only fields.
	AppointmentType *models.AppointmentType `json:"appointmentType,omitempty"`
	Urgency         *models.Urgency         `json:"urgency,omitempty"`
	FeeAdditional   *float64                `json:"feeAdditional,omitempty"`
}

// FieldUpdate is a role-scoped view of an UpdateRequest. Apply writes the
// permitted fields onto the appointment; StatusChange exposes a requested
// status so the service can run it through the transition table first.
type FieldUpdate interface {
	Apply(a *models.Appointment)
	StatusChange() *models.AppointmentStatus
}

// PatientUpdate may touch only the patient's own narrative fields.
type PatientUpdate struct {
	Symptoms     *string
	PatientNotes *string
}

func (u PatientUpdate) Apply(a *models.Appointment) {
	if u.Symptoms != nil {
		a.Symptoms = *u.Symptoms
	}
	if u.PatientNotes != nil {
		a.PatientNotes = *u.PatientNotes
	}
}

func (u PatientUpdate) StatusChange() *models.AppointmentStatus { return nil }

// DoctorUpdate may write clinical content and move the status to confirmed
// or completed.
type DoctorUpdate struct {
	DoctorNotes  *string
	Diagnosis    *models.Diagnosis
	Prescription *models.Prescription
	Vitals       *models.Vitals
	Status       *models.AppointmentStatus
}

func (u DoctorUpdate) Apply(a *models.Appointment) {
	if u.DoctorNotes != nil {
		a.DoctorNotes = *u.DoctorNotes
	}
	if u.Diagnosis != nil {
		a.Diagnosis = *u.Diagnosis
	}
	if u.Prescription != nil {
		a.Prescription = *u.Prescription
	}
	if u.Vitals != nil {
		a.Vitals = *u.Vitals
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
}

func (u DoctorUpdate) StatusChange() *models.AppointmentStatus { return u.Status }

// AdminUpdate carries the whole request through unrestricted.
type AdminUpdate struct {
	Request UpdateRequest
}

func (u AdminUpdate) Apply(a *models.Appointment) {
	r := u.Request
	if r.Symptoms != nil {
		a.Symptoms = *r.Symptoms
	}
	if r.PatientNotes != nil {
		a.PatientNotes = *r.PatientNotes
	}
	if r.DoctorNotes != nil {
		a.DoctorNotes = *r.DoctorNotes
	}
	if r.Diagnosis != nil {
		a.Diagnosis = *r.Diagnosis
	}
	if r.Prescription != nil {
		a.Prescription = *r.Prescription
	}
	if r.Vitals != nil {
		a.Vitals = *r.Vitals
	}
	if r.Status != nil {
		a.Status = *r.Status
	}
	if r.AppointmentType != nil {
		a.AppointmentType = *r.AppointmentType
	}
	if r.Urgency != nil {
		a.Urgency = *r.Urgency
	}
	if r.FeeAdditional != nil {
		a.Fee.Additional = *r.FeeAdditional
	}
}

func (u AdminUpdate) StatusChange() *models.AppointmentStatus { return u.Request.Status }

// doctorWritableStatuses are the only statuses a doctor may set through a
// field update; everything else is dropped, not rejected.
var doctorWritableStatuses = map[models.AppointmentStatus]bool{
	models.StatusConfirmed: true,
	models.StatusCompleted: true,
}

// NarrowUpdate maps a caller role to its permitted update variant.
// Fields outside the role's allowlist are dropped silently, matching the
// policy that disallowed fields are not an error.
func NarrowUpdate(role models.Role, req UpdateRequest) FieldUpdate {
	switch role {
	case models.RolePatient:
		return PatientUpdate{
			Symptoms:     req.Symptoms,
			PatientNotes: req.PatientNotes,
		}
	case models.RoleDoctor:
		update := DoctorUpdate{
			DoctorNotes:  req.DoctorNotes,
			Diagnosis:    req.Diagnosis,
			Prescription: req.Prescription,
			Vitals:       req.Vitals,
		}
		if req.Status != nil && doctorWritableStatuses[*req.Status] {
			update.Status = req.Status
		}
		return update
	case models.RoleAdmin:
		return AdminUpdate{Request: req}
	default:
		// Unknown roles may write nothing.
		return PatientUpdate{}
	}
}
