package routes

import (
	"net/http"
	"time"

	"swiftride/internal/handlers"
	"swiftride/internal/middleware"
	"swiftride/internal/repositories/interfaces"

	"github.com/gin-gonic/gin"
)

// Dependencies carries everything route registration needs.
type Dependencies struct {
	TripHandler    *handlers.TripHandler
	WalletHandler  *handlers.WalletHandler
	PaymentHandler *handlers.PaymentHandler
	DriverHandler  *handlers.DriverHandler
	WSHandler      *handlers.WSHandler

	JWTSecret        string
	FirebaseVerifier *middleware.FirebaseVerifier
	Users            interfaces.UserRepository
	AllowedOrigin    string
}

// Setup registers the full API surface on the engine.
func Setup(router *gin.Engine, deps Dependencies) {
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigin))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
	})

	auth := middleware.AuthRequired(deps.JWTSecret, deps.FirebaseVerifier, deps.Users)

	router.GET("/ws", auth, deps.WSHandler.Handle)

	v1 := router.Group("/api/v1")
	v1.Use(auth)

	SetupTripRoutes(v1, deps.TripHandler)
	SetupWalletRoutes(v1, deps.WalletHandler)
	SetupPaymentRoutes(v1, deps.PaymentHandler)
	SetupDriverRoutes(v1, deps.DriverHandler)
}
