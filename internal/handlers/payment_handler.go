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
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentHandler struct {
	trips    *services.TripService
	payments *services.PaymentService
	log      *logger.Logger
}

func NewPaymentHandler(trips *services.TripService, payments *services.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{trips: trips, payments: payments, log: log}
}

type qrResponse struct {
	QRURL  string `json:"qr_url"`
	Memo   string `json:"memo"`
	Amount int64  `json:"amount"`
}

// GetQR builds a transfer QR. With ?trip_id= the amount is the trip's fee
// and the memo is the trip id, so polling can correlate the transfer; with
// ?amount= (and optional ?memo=) it builds a free-standing QR.
func (h *PaymentHandler) GetQR(c *gin.Context) {
	if tripHex := c.Query("trip_id"); tripHex != "" {
		id, err := primitive.ObjectIDFromHex(tripHex)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "invalid trip id")
			return
		}
		trip, err := h.trips.GetRequest(c.Request.Context(), id)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		qrURL, memo := h.payments.QRURL(trip.Fee, trip.ID.Hex())
		utils.SuccessResponse(c, "scan to pay", qrResponse{QRURL: qrURL, Memo: memo, Amount: trip.Fee})
		return
	}

	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount <= 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "amount must be a positive integer")
		return
	}
	qrURL, memo := h.payments.QRURL(amount, c.Query("memo"))
	utils.SuccessResponse(c, "scan to pay", qrResponse{QRURL: qrURL, Memo: memo, Amount: amount})
}

// Settle finalizes the charge for a completed trip. Only the trip's customer
// or its assigned driver may settle. SePay trips block on the polling
// protocol until the transfer lands, times out, or the network drops; cash
// and wallet settle immediately.
func (h *PaymentHandler) Settle(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, "invalid trip id")
		return
	}

	trip, err := h.trips.GetRequest(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	if trip.PaymentMethod == models.PaymentMethodSePay {
		err = h.payments.SettleSePay(c.Request.Context(), id, user.ID)
	} else {
		err = h.payments.SettleRide(c.Request.Context(), id, user.ID)
	}
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "ride settled", gin.H{"trip_id": id.Hex(), "payment_status": models.PaymentStatusSettled})
}
