package routes

import (
	"swiftride/internal/handlers"

	"github.com/gin-gonic/gin"
)

func SetupWalletRoutes(rg *gin.RouterGroup, h *handlers.WalletHandler) {
	wallet := rg.Group("/wallet")
	{
		wallet.GET("", h.GetWallet)
		wallet.POST("/topup", h.TopUp)
	}
}
