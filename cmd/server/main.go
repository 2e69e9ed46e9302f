package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/alert"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/broadcast"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/config"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/database"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/logging"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/mailer"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/powerbi"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/predict"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/redis"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/server"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/version"
)

const maxAlertClients = 1000

func setupConfig() *config.Config {
	// Local development reads .env; ignore when absent
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *database.DB {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	return db
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version)

	db := setupDB(cfg)
	defer func() { _ = db.Close() }()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	userRepo := database.NewUserRepo(db)
	campaignRepo := database.NewCampaignRepo(db)
	analyticsRepo := database.NewAnalyticsRepo(db)
	predictionRepo := database.NewPredictionRepo(db)
	reportRepo := database.NewReportRepo(db)

	summaryCache := redis.NewSummaryCacheRepo(redisClient.Underlying(), analyticsRepo)
	embedCache := redis.NewEmbedCacheRepo(redisClient.Underlying())

	hub := broadcast.NewHub(clock, maxAlertClients)

	deps := server.Deps{
		Users:       userRepo,
		Campaigns:   campaignRepo,
		Analytics:   analyticsRepo,
		Predictions: predictionRepo,
		Reports:     reportRepo,

		Summaries:  summaryCache,
		EmbedCache: embedCache,
		Hub:        hub,

		PostgresHealth: db.HealthCheck,
		RedisHealth:    redisClient.Ping,
	}

	// Power BI wrapper only runs with full service principal credentials
	if cfg.PowerBIConfigured() {
		tokens := powerbi.NewTokenManager(cfg.PowerBITenantID, cfg.PowerBIClientID, cfg.PowerBIClientSecret)
		deps.PowerBI = powerbi.NewClient(tokens)
		slog.Info("Power BI integration enabled", "workspace", cfg.PowerBIWorkspaceID)
	} else {
		slog.Warn("Power BI credentials not set, embedding endpoints disabled")
	}

	// Prediction models are optional; endpoints answer 503 without them
	engine, err := predict.NewEngine(cfg.ModelDir)
	if err != nil {
		slog.Warn("Prediction models not loaded", "dir", cfg.ModelDir, "error", err)
	} else {
		deps.Engine = engine
		slog.Info("Prediction models loaded", "models", engine.Loaded())
	}

	var sender mailer.Sender
	if cfg.MailConfigured() {
		sender = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.DashboardURL)
		deps.Mailer = sender
		slog.Info("SMTP transport enabled", "host", cfg.SMTPHost)
	} else {
		slog.Warn("SMTP credentials not set, alert emails disabled")
	}

	deps.Alerts = alert.NewService(sender, hub, cfg.AlertRecipients, alert.DefaultThresholds())

	srv := server.NewServer(cfg, deps)
	done := runGracefulShutdown(srv, hub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
