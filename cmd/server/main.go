package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swiftride/internal/config"
	"swiftride/internal/handlers"
	"swiftride/internal/middleware"
	"swiftride/internal/repositories/mongodb"
	"swiftride/internal/services"
	"swiftride/pkg/cache"
	"swiftride/pkg/database"
	"swiftride/pkg/logger"
	"swiftride/pkg/maps"
	"swiftride/pkg/sepay"
	"swiftride/pkg/websocket"
	"swiftride/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewMongoDB(&database.MongoConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to mongodb")
	}
	defer db.Close()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		log.WithError(err).Fatal("failed to ensure indexes")
	}
	cancelIndex()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisCache.Close()

	routeProvider := buildRouteProvider(cfg.Maps, log)

	tripRepo := mongodb.NewTripRequestRepository(db.Database, redisCache)
	driverRepo := mongodb.NewDriverPresenceRepository(db.Database, redisCache)
	walletRepo := mongodb.NewWalletRepository(db.Database)
	userRepo := mongodb.NewUserRepository(db.Database)

	ledger := sepay.NewClient(cfg.SePay.APIKey, sepay.WithBaseURL(cfg.SePay.BaseURL))
	reach := sepay.NewReachabilityProbe(cfg.SePay.BaseURL)

	tripService := services.NewTripService(tripRepo, driverRepo, routeProvider, redisCache, log)
	walletService := services.NewWalletService(walletRepo, cfg.Wallet.SeedBalance, log)
	paymentService := services.NewPaymentService(tripRepo, walletService, ledger, reach, services.PaymentConfig{
		AccountNumber: cfg.SePay.AccountNumber,
		BankCode:      cfg.SePay.BankCode,
		PollInterval:  cfg.SePay.PollInterval,
		PollTimeout:   cfg.SePay.PollTimeout,
		ListLimit:     cfg.SePay.ListLimit,
	}, log)
	presenceService := services.NewPresenceService(driverRepo, redisCache, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	wsHandler := handlers.NewWSHandler(ctx, hub, redisCache, tripService, log)
	go hub.Run(ctx)
	go wsHandler.Run(ctx)

	var verifier *middleware.FirebaseVerifier
	if cfg.Security.FirebaseCredentials != "" {
		verifier, err = middleware.NewFirebaseVerifier(ctx, cfg.Security.FirebaseCredentials)
		if err != nil {
			log.WithError(err).Fatal("failed to init firebase verifier")
		}
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	routes.Setup(router, routes.Dependencies{
		TripHandler:      handlers.NewTripHandler(tripService, log),
		WalletHandler:    handlers.NewWalletHandler(walletService, paymentService, log),
		PaymentHandler:   handlers.NewPaymentHandler(tripService, paymentService, log),
		DriverHandler:    handlers.NewDriverHandler(presenceService, log),
		WSHandler:        wsHandler,
		JWTSecret:        cfg.Security.JWTSecret,
		FirebaseVerifier: verifier,
		Users:            userRepo,
		AllowedOrigin:    cfg.Security.CORSAllowedOrigins[0],
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func buildRouteProvider(cfg *config.MapsConfig, log *logger.Logger) maps.RouteProvider {
	switch cfg.Provider {
	case "google":
		if cfg.GoogleAPIKey == "" {
			log.Warn("no google maps api key, route validation disabled")
			return nil
		}
		provider, err := maps.NewGoogleMapsProvider(cfg.GoogleAPIKey)
		if err != nil {
			log.WithError(err).Warn("google maps init failed, route validation disabled")
			return nil
		}
		return provider
	case "mapbox":
		if cfg.MapboxAccessToken == "" {
			log.Warn("no mapbox token, route validation disabled")
			return nil
		}
		return maps.NewMapboxProvider(cfg.MapboxAccessToken)
	default:
		log.WithField("provider", cfg.Provider).Warn("unknown maps provider, route validation disabled")
		return nil
	}
}
