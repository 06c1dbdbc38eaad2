package http

import "github.com/gin-gonic/gin"

func registerRoutes(router *gin.Engine, deps Dependencies, logger Logger) {
	h := NewHandlers(deps, logger)

	router.GET("/health", h.HealthCheck)

	api := router.Group("/", authMiddleware(deps.Tokens, deps.Users))

	requests := api.Group("/travel-requests")
	requests.POST("", h.CreateTravelRequest)
	requests.GET("", h.ListTravelRequests)
	requests.GET("/export", h.ExportTravelRequests)
	requests.GET("/:id", h.GetTravelRequest)
	requests.DELETE("/:id", h.DeleteTravelRequest)
	requests.PATCH("/:id/approve", h.ApproveTravelRequest)
	requests.PATCH("/:id/reject", h.RejectTravelRequest)
	requests.POST("/:id/complete", h.CompleteTravelRequest)
	requests.GET("/:id/bookings", h.ListBookings)

	api.POST("/bookings", h.CreateBooking)

	api.GET("/me", h.Me)
	api.PUT("/me/active-role", h.SetActiveRole)
	api.GET("/users", h.ListUsers)
	api.PATCH("/users/:id/role", h.UpdateUserRole)

	api.GET("/projects", h.ListProjects)

	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/:id/retry", h.RetryNotification)
}
