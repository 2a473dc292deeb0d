package routes

import (
	"swiftride/internal/handlers"

	"github.com/gin-gonic/gin"
)

func SetupPaymentRoutes(rg *gin.RouterGroup, h *handlers.PaymentHandler) {
	payments := rg.Group("/payments")
	{
		payments.GET("/qr", h.GetQR)
		payments.POST("/:id/settle", h.Settle)
	}
}
