package models

import "database/sql/driver"

// AvailabilitySlot is a fixed sub-interval of a working day, stored as
// HH:MM strings the way the profile editor submits them.
type AvailabilitySlot struct {
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsAvailable bool   `json:"isAvailable"`
}

// DayAvailability lists the bookable sub-intervals for one weekday.
type DayAvailability struct {
	Day   string             `json:"day"` // Monday..Sunday
	Slots []AvailabilitySlot `json:"slots"`
}

// WeeklyAvailability is the per-weekday template consumed read-only by the
// slot engine's collaborators.
type WeeklyAvailability []DayAvailability

func (w WeeklyAvailability) Value() (driver.Value, error) { return jsonValue(w) }
func (w *WeeklyAvailability) Scan(src interface{}) error  { return jsonScan(src, w) }

// DoctorProfile holds the doctor-specific data the scheduling engine
// consults: the consultation fee used for fee computation and the
// accepting-patients flag checked at booking time.
type DoctorProfile struct {
	BaseModel
	UserID              string             `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialty           string             `gorm:"size:100" json:"specialty"`
	LicenseNumber       string             `gorm:"size:50" json:"licenseNumber"`
	YearsOfExperience   int                `json:"yearsOfExperience"`
	Bio                 string             `gorm:"size:1000" json:"bio,omitempty"`
	ConsultationFee     float64            `json:"consultationFee"`
	IsAcceptingPatients bool               `gorm:"default:true" json:"isAcceptingPatients"`
	Availability        WeeklyAvailability `gorm:"type:json" json:"availability"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
