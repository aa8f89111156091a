package routes

import (
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/scheduling"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, scheduler *scheduling.Scheduler) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	doctorHandler := handlers.NewDoctorHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(scheduler)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes (typically admin-only)
		userRoutes := private.Group("/users")
		{
			// Doctor directory - accessible by all authenticated users for booking
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Patient list for doctors and admins
			userRoutes.GET("/patients", userHandler.GetPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Doctor profile routes
		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("/:id/profile", doctorHandler.GetDoctorProfile)

			ownProfileRoutes := doctorRoutes.Group("/me")
			ownProfileRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
			{
				ownProfileRoutes.PUT("/profile", doctorHandler.UpsertOwnProfile)
				ownProfileRoutes.PATCH("/accepting", doctorHandler.SetAccepting)
			}
		}

		// Appointment routes; per-appointment authorization happens inside
		// the scheduling engine
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/history", appointmentHandler.GetAppointmentHistory)
			appointmentRoutes.GET("/available-slots", appointmentHandler.GetAvailableSlots)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PUT("/:id", appointmentHandler.UpdateAppointment)
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.PATCH("/:id/confirm", appointmentHandler.ConfirmAppointment)
			appointmentRoutes.PATCH("/:id/complete", appointmentHandler.CompleteAppointment)
			appointmentRoutes.PATCH("/:id/reminder", appointmentHandler.AddAppointmentReminder)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
