// Package server wires the HTTP API: routing, JWT auth, validation,
// and JSON handlers over the repository and service layers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/alert"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/broadcast"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/config"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/mailer"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/powerbi"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/predict"
)

// summaryProvider serves aggregated analytics, normally through the
// Redis read-through cache.
type summaryProvider interface {
	Summary(ctx context.Context, userID int64, filter domain.AnalyticsFilter) (*domain.AnalyticsSummary, error)
	Invalidate(ctx context.Context, userID int64) error
}

// embedConfigCache caches composite embed configs keyed by report.
type embedConfigCache interface {
	Get(ctx context.Context, reportID, role string, out any) error
	Set(ctx context.Context, reportID, role string, config any, tokenExpiry, now time.Time)
	Invalidate(ctx context.Context, reportID string) error
}

// powerBIClient is the subset of the Power BI wrapper the handlers use.
// Nil when no service principal is configured.
type powerBIClient interface {
	ListWorkspaces(ctx context.Context) ([]powerbi.Workspace, error)
	ListReports(ctx context.Context, workspaceID string) ([]powerbi.Report, error)
	ListDatasets(ctx context.Context, workspaceID string) ([]powerbi.Dataset, error)
	ListPages(ctx context.Context, workspaceID, reportID string) ([]powerbi.Page, error)
	GetEmbedConfig(ctx context.Context, workspaceID, reportID string, identities []powerbi.EffectiveIdentity) (*powerbi.EmbedConfig, error)
	RefreshDataset(ctx context.Context, workspaceID, datasetID string) error
	GetRefreshHistory(ctx context.Context, workspaceID, datasetID string, top int) ([]powerbi.Refresh, error)
	Status(ctx context.Context) (map[string]any, error)
}

// predictor scores features against the loaded models.
type predictor interface {
	PredictConversion(features map[string]float64) (*predict.Result, error)
	PredictChurn(features map[string]float64) (*predict.Result, error)
	PredictROI(features map[string]float64) (*predict.Result, error)
	PredictCampaignPerformance(features map[string]float64) (*predict.Result, error)
	Status() map[string]any
}

// alertService evaluates thresholds and sends the weekly report.
type alertService interface {
	CheckBudget(ctx context.Context, figures alert.BudgetFigures) (*domain.Alert, error)
	CheckPerformance(ctx context.Context, figures alert.PerformanceFigures) ([]domain.Alert, error)
	SendWeeklyReport(ctx context.Context, figures alert.WeeklyFigures, recipients []string) error
}

// Deps carries everything the server needs. Optional integrations
// (Power BI, mailer-backed alerts) may be nil and their endpoints
// answer 503.
type Deps struct {
	Users       domain.UserRepository
	Campaigns   domain.CampaignRepository
	Analytics   domain.AnalyticsRepository
	Predictions domain.PredictionRepository
	Reports     domain.ReportRepository

	Summaries  summaryProvider
	EmbedCache embedConfigCache
	PowerBI    powerBIClient
	Engine     predictor
	Alerts     alertService
	Mailer     mailer.Sender
	Hub        *broadcast.Hub

	PostgresHealth func(ctx context.Context) error
	RedisHealth    func(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	deps      Deps
	startTime time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(apperrors.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	srv := &Server{
		echo:      e,
		config:    cfg,
		deps:      deps,
		startTime: time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestValidator adapts go-playground/validator to echo's interface.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	return nil
}
