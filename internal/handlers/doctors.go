package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// DoctorHandler manages doctor profiles: the consultation fee, the
// accepting-patients flag, and the weekly availability template the slot
// engine's collaborators read.
type DoctorHandler struct {
	DB *gorm.DB
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB) *DoctorHandler {
	return &DoctorHandler{DB: db}
}

// GetDoctorProfile fetches a doctor's public profile by user id.
func (h *DoctorHandler) GetDoctorProfile(c *gin.Context) {
	doctorID := c.Param("id")

	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", doctorID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Doctor profile fetched successfully", profile)
}

// UpsertProfileRequest represents the request body for creating or
// updating the caller's doctor profile.
type UpsertProfileRequest struct {
	Specialty           string                    `json:"specialty" binding:"required"`
	LicenseNumber       string                    `json:"licenseNumber"`
	YearsOfExperience   int                       `json:"yearsOfExperience" binding:"gte=0"`
	Bio                 string                    `json:"bio" binding:"omitempty,max=1000"`
	ConsultationFee     float64                   `json:"consultationFee" binding:"gte=0"`
	IsAcceptingPatients *bool                     `json:"isAcceptingPatients"`
	Availability        models.WeeklyAvailability `json:"availability"`
}

// UpsertOwnProfile creates or updates the authenticated doctor's profile.
func (h *DoctorHandler) UpsertOwnProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpsertProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var profile models.DoctorProfile
	err := h.DB.Where("user_id = ?", userID).First(&profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	profile.UserID = userID
	profile.Specialty = req.Specialty
	profile.LicenseNumber = req.LicenseNumber
	profile.YearsOfExperience = req.YearsOfExperience
	profile.Bio = req.Bio
	profile.ConsultationFee = req.ConsultationFee
	if req.IsAcceptingPatients != nil {
		profile.IsAcceptingPatients = *req.IsAcceptingPatients
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		profile.IsAcceptingPatients = true
	}
	if req.Availability != nil {
		profile.Availability = req.Availability
	}

	if err := h.DB.Save(&profile).Error; err != nil {
		utils.InternalServerError(c, "Failed to save doctor profile: "+err.Error())
		return
	}

	utils.Success(c, "Doctor profile saved successfully", profile)
}

// SetAcceptingRequest toggles whether the doctor takes new bookings.
type SetAcceptingRequest struct {
	IsAcceptingPatients bool `json:"isAcceptingPatients"`
}

// SetAccepting updates the accepting-patients flag on the caller's profile.
func (h *DoctorHandler) SetAccepting(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req SetAcceptingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	result := h.DB.Model(&models.DoctorProfile{}).
		Where("user_id = ?", userID).
		Update("is_accepting_patients", req.IsAcceptingPatients)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to update profile: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Doctor profile not found")
		return
	}

	utils.Success(c, "Accepting-patients flag updated", gin.H{
		"isAcceptingPatients": req.IsAcceptingPatients,
	})
}
