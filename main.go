package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"incidentwatch/config"
	"incidentwatch/controllers"
	"incidentwatch/events"
	"incidentwatch/middleware"
	"incidentwatch/routes"
	"incidentwatch/services"
	"incidentwatch/store"
	"incidentwatch/utils"
	ws "incidentwatch/websocket"
	"incidentwatch/workers"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := clockwork.NewRealClock()
	ids := utils.NewUUIDGenerator()

	// Stores
	reportStore := store.NewReportStore()
	reporterStore := store.NewReporterStore()

	redisClient := config.InitRedis(cfg)
	snapshotStore := store.NewSnapshotStore(redisClient, reportStore, reporterStore)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := snapshotStore.Load(loadCtx); err != nil {
		logrus.Warnf("Could not load snapshot, starting empty: %v", err)
	} else {
		logrus.Infof("Loaded snapshot: %d reports, %d reporters", reportStore.Count(), reporterStore.Count())
	}
	cancelLoad()

	// Core services
	bus := events.NewBus()
	priorityService := services.NewPriorityService(clock)
	consensusService := services.NewConsensusService()
	reportService := services.NewReportService(reportStore, reporterStore, priorityService, consensusService, bus, clock, ids)
	evidenceService := services.NewEvidenceService(reportStore, bus, clock, ids, cfg.UploadPath, cfg.BaseURL)
	analyticsService := services.NewAnalyticsService(reportStore, reporterStore, clock)

	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL())
	authService := services.NewAuthService(reporterStore, jwtService, clock, ids)

	notificationService := services.NewNotificationService(reporterStore, services.NotificationConfig{
		FirebaseCredentialsFile: cfg.FirebaseCredentials,
		TwilioAccountSID:        cfg.TwilioAccountSID,
		TwilioAuthToken:         cfg.TwilioAuthToken,
		TwilioFromNumber:        cfg.TwilioPhoneNumber,
	})
	notificationService.Subscribe(bus)

	// Websocket relay
	hub := ws.NewHub(bus, clock)
	go hub.Run()

	// Background workers
	pipelineWorker := workers.NewPipelineWorker(reportService, clock, cfg.PipelineInterval())
	pipelineWorker.Start()

	snapshotWorker := workers.NewSnapshotWorker(snapshotStore, clock, cfg.SnapshotInterval())
	snapshotWorker.Start()

	// HTTP surface
	router := gin.New()
	router.Use(gin.Recovery())

	routes.Setup(router, routes.Dependencies{
		AuthController:      controllers.NewAuthController(authService),
		ReportController:    controllers.NewReportController(reportService, evidenceService),
		AnalyticsController: controllers.NewAnalyticsController(analyticsService),
		HealthController:    controllers.NewHealthController(reportStore, reporterStore, snapshotStore, clock, version),
		AuthMiddleware:      middleware.NewAuthMiddleware(jwtService),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			Redis:     redisClient,
			Requests:  cfg.RateLimitRequests,
			Window:    cfg.RateLimitWindow(),
			SkipPaths: []string{"/health", "/metrics"},
		}),
		Hub: hub,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("incidentwatch listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}

	pipelineWorker.Stop()
	evidenceService.Wait()
	snapshotWorker.Stop()
	hub.Shutdown()
	notificationService.Unsubscribe(bus)

	if err := redisClient.Close(); err != nil {
		logrus.Errorf("Redis close failed: %v", err)
	}
	logrus.Info("Shutdown complete")
}
