package handlers

import (
	"context"
	"net/http"

	"swiftride/internal/middleware"
	"swiftride/internal/services"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets  *services.WalletService
	payments *services.PaymentService
	log      *logger.Logger
}

func NewWalletHandler(wallets *services.WalletService, payments *services.PaymentService, log *logger.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, payments: payments, log: log}
}

// GetWallet returns the caller's wallet, creating it with the seed balance
// on first access.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	wallet, err := h.wallets.GetWallet(c.Request.Context(), user.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, "wallet", gin.H{
		"wallet":       wallet,
		"transactions": wallet.SortedTransactions(),
	})
}

type topUpRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Memo   string `json:"memo"`
}

type topUpResponse struct {
	QRURL  string `json:"qr_url"`
	Memo   string `json:"memo"`
	Amount int64  `json:"amount"`
}

// TopUp hands back a transfer QR and confirms the credit in the background
// once the transfer lands. The memo doubles as the idempotency reference, so
// a retried confirmation cannot double-credit.
func (h *WalletHandler) TopUp(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "authentication required")
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeBadRequest, err.Error())
		return
	}

	qrURL, memo := h.payments.QRURL(req.Amount, req.Memo)

	// The client pays the QR while this runs; polling is bounded by the
	// configured timeout. Balance updates surface on the wallet endpoint.
	go func() {
		err := h.payments.ConfirmTopUp(context.Background(), user.ID, req.Amount, memo)
		if err != nil {
			h.log.WithError(err).WithUserID(user.ID).Warn("top-up confirmation failed")
		}
	}()

	utils.SuccessResponse(c, "scan to top up", topUpResponse{QRURL: qrURL, Memo: memo, Amount: req.Amount})
}
