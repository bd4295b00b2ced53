package routes

import (
	"time"

	"consultbook/handlers"
	"consultbook/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterAppointmentRoutes registers the client-facing booking endpoints.
func RegisterAppointmentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	api.Use(middleware.JWTAuthUserMiddleware(hb.JWTSecret))
	{
		api.GET("/slots/check", hb.Appointments.CheckSlotHandler)

		api.POST("/appointments", hb.Appointments.BookAppointmentHandler)
		api.GET("/appointments", hb.Appointments.ListMyAppointmentsHandler)
		api.GET("/appointments/:id", hb.Appointments.GetMyAppointmentHandler)
		api.POST("/appointments/:id/reschedule", hb.Appointments.RequestRescheduleHandler)
	}
}

// RegisterPlanRoutes registers the self-service plan endpoints.
func RegisterPlanRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	plan := r.Group("/api/users/me/plan")
	plan.Use(middleware.JWTAuthUserMiddleware(hb.JWTSecret))
	{
		plan.GET("", hb.Plans.GetMyPlanHandler)
		plan.PUT("", hb.Plans.UpdateMyPlanHandler)
		plan.POST("/renew", hb.Plans.RenewMyPlanHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.JWTAuthAdminMiddleware(hb.AdminToken))
	{
		adminGroup.GET("/appointments", hb.Appointments.AdminListAppointmentsHandler)
		adminGroup.PATCH("/appointments/:id/status", hb.Appointments.AdminUpdateStatusHandler)
		adminGroup.GET("/appointments/:id/invoices", hb.Invoices.AppointmentInvoicesHandler)

		adminGroup.POST("/blocked-slots", hb.Appointments.CreateBlockedSlotHandler)
		adminGroup.DELETE("/blocked-slots/:id", hb.Appointments.RemoveBlockedSlotHandler)

		adminGroup.POST("/invoices", hb.Invoices.CreateInvoiceHandler)
		adminGroup.GET("/invoices", hb.Invoices.ListInvoicesHandler)
		adminGroup.GET("/invoices/:id", hb.Invoices.GetInvoiceHandler)
		adminGroup.POST("/invoices/:id/reissue", hb.Invoices.ReissueInvoiceHandler)
		adminGroup.PATCH("/invoices/:id/status", hb.Invoices.UpdateInvoiceStatusHandler)

		adminGroup.PUT("/users/:uid/plan", hb.Plans.AdminUpdatePlanHandler)
	}
}

// RegisterPaymentRoutes registers provider callbacks; they authenticate by signature.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/payments/stripe/webhook", hb.Payments.StripeWebhookHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "If-Match"},
		ExposeHeaders:    []string{"Content-Length", "ETag"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(hb.MaxRequestsPerMin))

	RegisterHealthRoute(r)
	RegisterAppointmentRoutes(r, hb)
	RegisterPlanRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
}
