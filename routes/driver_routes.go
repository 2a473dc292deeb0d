package routes

import (
	"swiftride/internal/handlers"
	"swiftride/internal/middleware"
	"swiftride/internal/models"

	"github.com/gin-gonic/gin"
)

func SetupDriverRoutes(rg *gin.RouterGroup, h *handlers.DriverHandler) {
	drivers := rg.Group("/drivers")
	{
		drivers.GET("/presence", middleware.RoleRequired(models.RoleDriver), h.GetPresence)
		drivers.PUT("/presence", middleware.RoleRequired(models.RoleDriver), h.SetPresence)
		drivers.PUT("/location", middleware.RoleRequired(models.RoleDriver), h.UpdateLocation)
		drivers.GET("/nearby", h.Nearby)
	}
}
