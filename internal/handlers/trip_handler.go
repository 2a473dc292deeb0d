package handlers

import (
	"net/http"

	"swiftride/internal/middleware"
	"swiftride/internal/models"
	"swiftride/internal/services"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripHandler struct {
	trips *services.TripService
	log   *logger.Logger
}

func NewTripHandler(trips *services.TripService, log *logger.Logger) *TripHandler {
	return &TripHandler{trips: trips, log: log}
}

type createTripRequest struct {
	Pickup        models.GeoPoint `json:"pickup" binding:"required"`
	Destination   models.GeoPoint `json:"destination" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Fee           int64           `json:"fee" binding:"required,gt=0"`
}

// CreateTrip opens a new pending request for the authenticated customer.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, err.Error())
		return
	}
	if !req.Pickup.Valid() || !req.Destination.Valid() {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "coordinates out of range")
		return
	}

	trip, err := h.trips.CreateRequest(c.Request.Context(), user.ID,
		req.Pickup, req.Destination, models.PaymentMethod(req.PaymentMethod), req.Fee)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "trip request created", trip)
}

// ActiveTrip returns the caller's in-flight request, if any.
func (h *TripHandler) ActiveTrip(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	trip, err := h.trips.ActiveRequest(c.Request.Context(), user.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "active trip", trip)
}

// GetTrip returns one request by id.
func (h *TripHandler) GetTrip(c *gin.Context) {
	id, ok := tripID(c)
	if !ok {
		return
	}
	trip, err := h.trips.GetRequest(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "trip request", trip)
}

// ListTrips returns the caller's trip history. Customers see trips they
// requested, drivers trips they served; ?role= overrides for users holding
// both sides.
func (h *TripHandler) ListTrips(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	role := user.Role
	if q := c.Query("role"); q != "" {
		role = models.UserRole(q)
	}

	trips, err := h.trips.History(c.Request.Context(), user.ID, role)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "trip history", trips)
}

// AcceptTrip claims a pending request for the authenticated driver. Exactly
// one driver wins; losers get a conflict and fall back to waiting.
func (h *TripHandler) AcceptTrip(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}
	id, ok := tripID(c)
	if !ok {
		return
	}

	trip, err := h.trips.AcceptRequest(c.Request.Context(), id, user.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "trip request accepted", trip)
}

// DeclineTrip hides a request from this driver's feed only.
func (h *TripHandler) DeclineTrip(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}
	id, ok := tripID(c)
	if !ok {
		return
	}

	if err := h.trips.DeclineRequest(c.Request.Context(), user.ID, id); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "trip request declined", nil)
}

// CompleteTrip ends an accepted trip and returns the fare snapshot the
// settlement step runs on. Only the assigned driver may complete.
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}
	id, ok := tripID(c)
	if !ok {
		return
	}

	fare, err := h.trips.CompleteRequest(c.Request.Context(), id, user.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "trip completed", fare)
}

// CancelTrip cancels a pending or accepted trip; completed and canceled
// trips reject, and so do callers who are not a party to the trip.
func (h *TripHandler) CancelTrip(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}
	id, ok := tripID(c)
	if !ok {
		return
	}

	trip, err := h.trips.CancelRequest(c.Request.Context(), id, user)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "trip canceled", trip)
}

func tripID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "invalid trip id")
		return primitive.NilObjectID, false
	}
	return id, true
}
