package handlers

import (
	"net/http"
	"strconv"

	"swiftride/internal/middleware"
	"swiftride/internal/models"
	"swiftride/internal/services"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultNearbyRadiusMeters = 5000

type DriverHandler struct {
	presence *services.PresenceService
	log      *logger.Logger
}

func NewDriverHandler(presence *services.PresenceService, log *logger.Logger) *DriverHandler {
	return &DriverHandler{presence: presence, log: log}
}

type presenceRequest struct {
	Connected *bool `json:"connected" binding:"required"`
}

// SetPresence toggles the authenticated driver online or offline.
func (h *DriverHandler) SetPresence(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, err.Error())
		return
	}

	presence, err := h.presence.SetConnected(c.Request.Context(), user.ID, *req.Connected)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "presence updated", presence)
}

// GetPresence returns the authenticated driver's own presence document.
func (h *DriverHandler) GetPresence(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	presence, err := h.presence.GetPresence(c.Request.Context(), user.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "presence", presence)
}

type locationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// UpdateLocation stores the driver's live position; only connected drivers
// may report.
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, err.Error())
		return
	}

	location := models.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := h.presence.UpdateLocation(c.Request.Context(), user.ID, location); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "location updated", location)
}

// Nearby lists connected drivers around a point, nearest first.
func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr != nil || lngErr != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "latitude and longitude are required")
		return
	}

	radius := float64(defaultNearbyRadiusMeters)
	if q := c.Query("radius"); q != "" {
		r, err := strconv.ParseFloat(q, 64)
		if err != nil || r <= 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "radius must be a positive number")
			return
		}
		radius = r
	}

	center := models.GeoPoint{Latitude: lat, Longitude: lng}
	if !center.Valid() {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "coordinates out of range")
		return
	}

	drivers, err := h.presence.NearbyDrivers(c.Request.Context(), center, radius)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "nearby drivers", drivers)
}
