package routes

import (
	"swiftride/internal/handlers"
	"swiftride/internal/middleware"
	"swiftride/internal/models"

	"github.com/gin-gonic/gin"
)

func SetupTripRoutes(rg *gin.RouterGroup, h *handlers.TripHandler) {
	trips := rg.Group("/trips")
	{
		trips.POST("", h.CreateTrip)
		trips.GET("", h.ListTrips)
		trips.GET("/active", h.ActiveTrip)
		trips.GET("/:id", h.GetTrip)
		trips.POST("/:id/accept", middleware.RoleRequired(models.RoleDriver), h.AcceptTrip)
		trips.POST("/:id/decline", middleware.RoleRequired(models.RoleDriver), h.DeclineTrip)
		trips.POST("/:id/complete", middleware.RoleRequired(models.RoleDriver), h.CompleteTrip)
		trips.POST("/:id/cancel", h.CancelTrip)
	}
}
