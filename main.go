package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qr-table-order/config"
	"github.com/yeremiapane/qr-table-order/database"
	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/router"
	"github.com/yeremiapane/qr-table-order/services"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
)

func main() {
	utils.InitLogger()

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		utils.SetDebug(true)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		utils.ErrorLogger.Fatalf("Failed to seed admin: %v", err)
	}

	var audio services.AudioStore
	if cfg.Minio.Enabled() {
		store, err := services.NewMinioAudioStore(cfg.Minio)
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to init audio store: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.EnsureBucket(ctx)
		cancel()
		if err != nil {
			utils.ErrorLogger.Fatalf("Failed to prepare audio bucket: %v", err)
		}
		audio = store
		utils.InfoLogger.Printf("Voice recordings stored in bucket %q", cfg.Minio.Bucket)
	}

	hub := kds.NewHub()
	deps := newDeps(cfg, db, hub, audio)

	sweeper := services.NewSessionSweeper(deps.Sessions, cfg.SweepSchedule, cfg.StaleSessionAfter)
	if err := sweeper.Start(); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start session sweeper: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.InfoLogger.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sweeper.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Printf("Graceful shutdown failed: %v", err)
	}
}

// newDeps builds the services and hands them to the router.
func newDeps(cfg *config.Config, db *gorm.DB, hub *kds.Hub, audio services.AudioStore) router.Deps {
	gate := services.NewDeviceGate(db, hub)
	sessions := services.NewSessionService(db, gate, hub, cfg.TableSessionTTL)
	if cfg.RevokeOnBlock {
		gate.OnBlock = sessions.CloseDeviceSession
	}

	settings := services.NewSettingsService(db)
	rewards := services.NewRewardService(db, settings)

	orders := services.NewOrderService(db, sessions, rewards, hub)
	orders.AutoCloseOnPaid = cfg.AutoCloseOnPaid

	return router.Deps{
		Sessions: sessions,
		Orders:   orders,
		Requests: services.NewRequestService(db, sessions, audio, hub),
		Gate:     gate,
		Tables:   services.NewTableService(db, hub),
		Users:    services.NewUserService(db, cfg.JWTSecret, cfg.AuthTokenTTL),
		Settings: settings,
		Rewards:  rewards,
		Hub:      hub,

		CookieSecure:     cfg.CookieSecure,
		CORSOrigins:      cfg.CORSOrigins,
		CountryHeader:    cfg.CountryHeader,
		AllowedCountries: cfg.AllowedCountries,
		LoginRatePerMin:  cfg.LoginRatePerMin,
	}
}
