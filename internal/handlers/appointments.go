package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/scheduling"
	"clinic-booking-server/internal/utils"
)

// AppointmentHandler exposes the scheduling engine over HTTP.
type AppointmentHandler struct {
	Scheduler *scheduling.Scheduler
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(scheduler *scheduling.Scheduler) *AppointmentHandler {
	return &AppointmentHandler{Scheduler: scheduler}
}

// actorFromContext builds the engine actor from the auth middleware values.
func actorFromContext(c *gin.Context) (scheduling.Actor, bool) {
	userID, okID := middleware.GetUserIDFromContext(c)
	role, okRole := middleware.GetUserRoleFromContext(c)
	if !okID || !okRole {
		utils.Unauthorized(c, "User not authenticated")
		return scheduling.Actor{}, false
	}
	return scheduling.Actor{ID: userID, Role: role}, true
}

// respondSchedulingError maps engine error categories onto HTTP statuses.
func respondSchedulingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduling.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, scheduling.ErrConflict):
		utils.Conflict(c, err.Error())
	case errors.Is(err, scheduling.ErrStateGuard):
		utils.UnprocessableEntity(c, err.Error())
	default:
		utils.InternalServerError(c, "Unexpected error: "+err.Error())
	}
}

// intQuery parses an integer query parameter, falling back to a default.
func intQuery(c *gin.Context, key string, def int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 1 {
		return def
	}
	return value
}

// CreateAppointmentRequest represents the request body for booking.
type CreateAppointmentRequest struct {
	DoctorID        string    `json:"doctorId" binding:"required,uuid"`
	PatientID       string    `json:"patientId"` // only honored for admin/doctor callers
	StartTime       time.Time `json:"startTime" binding:"required"`
	Duration        int       `json:"duration"`
	AppointmentType string    `json:"appointmentType" binding:"omitempty,oneof=consultation follow-up checkup emergency"`
	Urgency         string    `json:"urgency" binding:"omitempty,oneof=low medium high urgent"`
	Symptoms        string    `json:"symptoms" binding:"required,max=1000"`
	PatientNotes    string    `json:"patientNotes" binding:"omitempty,max=500"`
}

// CreateAppointment books a new appointment with status pending.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Scheduler.Book(c.Request.Context(), actor, scheduling.BookingRequest{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		StartTime:       req.StartTime,
		Duration:        req.Duration,
		AppointmentType: models.AppointmentType(req.AppointmentType),
		Urgency:         models.Urgency(req.Urgency),
		Symptoms:        req.Symptoms,
		PatientNotes:    req.PatientNotes,
	})
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointments lists appointments scoped to the caller's role, with
// optional status/date/party filters and pagination.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filter := scheduling.ListFilter{
		DoctorID:  c.Query("doctorId"),
		PatientID: c.Query("patientId"),
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "limit", 10),
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []models.AppointmentStatus{models.AppointmentStatus(status)}
	}
	if from, err := time.Parse(time.RFC3339, c.Query("dateFrom")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("dateTo")); err == nil {
		filter.To = &to
	}

	appointments, total, err := h.Scheduler.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", gin.H{
		"appointments": appointments,
		"total":        total,
		"page":         filter.Page,
		"pageSize":     filter.PageSize,
	})
}

// GetAppointmentHistory lists the caller's completed and cancelled
// appointments.
func (h *AppointmentHandler) GetAppointmentHistory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointments, total, err := h.Scheduler.History(c.Request.Context(), actor, intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment history fetched successfully", gin.H{
		"appointments": appointments,
		"total":        total,
	})
}

// GetAppointmentByID fetches a single appointment for a party or admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// GetAvailableSlots lists a doctor's free slots for a calendar date.
func (h *AppointmentHandler) GetAvailableSlots(c *gin.Context) {
	doctorID := c.Query("doctorId")
	dateStr := c.Query("date")
	if doctorID == "" || dateStr == "" {
		utils.BadRequest(c, "doctorId and date are required")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		utils.BadRequest(c, "date must be formatted as YYYY-MM-DD")
		return
	}

	slots, err := h.Scheduler.AvailableSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Available slots fetched successfully", gin.H{
		"doctorId":       doctorID,
		"date":           dateStr,
		"availableSlots": slots,
	})
}

// UpdateAppointment applies a policy-filtered field update; fields outside
// the caller's role allowlist are dropped silently.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req scheduling.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	appointment, err := h.Scheduler.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment updated successfully", appointment)
}

// CancelAppointmentRequest carries the optional cancellation reason.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// CancelAppointment cancels an appointment more than 24 hours out.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request payload: "+err.Error())
			return
		}
	}

	appointment, err := h.Scheduler.Cancel(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// RescheduleAppointmentRequest carries the new start time.
type RescheduleAppointmentRequest struct {
	NewStartTime time.Time `json:"newStartTime" binding:"required"`
	Reason       string    `json:"reason" binding:"omitempty,max=500"`
}

// RescheduleAppointment moves an appointment to a new start time, more
// than 48 hours out and conflict-free.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Scheduler.Reschedule(c.Request.Context(), actor, c.Param("id"), req.NewStartTime, req.Reason)
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appointment)
}

// ConfirmAppointment moves a scheduled appointment to confirmed.
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.Confirm(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment confirmed successfully", appointment)
}

// CompleteAppointment moves a confirmed appointment to completed.
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.Complete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Appointment completed successfully", appointment)
}

// AddAppointmentReminder bumps the reminder counter and timestamp.
func (h *AppointmentHandler) AddAppointmentReminder(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appointment, err := h.Scheduler.AddReminder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondSchedulingError(c, err)
		return
	}

	utils.Success(c, "Reminder recorded successfully", gin.H{
		"remindersSent":    appointment.RemindersSent,
		"lastReminderSent": appointment.LastReminderSent,
	})
}
