// Command seeder fills a development database with demo users,
// campaigns, analytics rows, and report metadata.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/database"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

const demoPassword = "demo12345"

func main() {
	_ = godotenv.Load()

	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Database URL required (--database or DATABASE_URL env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	db, err := database.Connect(*databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	if err := seed(ctx, db); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	slog.Info("Seeding complete")
}

func seed(ctx context.Context, db *database.DB) error {
	start := time.Now()

	users := database.NewUserRepo(db)
	campaigns := database.NewCampaignRepo(db)
	analytics := database.NewAnalyticsRepo(db)
	reports := database.NewReportRepo(db)

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	admin, err := users.Create(ctx, "admin@demo.local", "admin", "Demo Admin", string(hashed), domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to create admin (already seeded?): %w", err)
	}
	marketer, err := users.Create(ctx, "marketer@demo.local", "marketer", "Demo Marketer", string(hashed), domain.RoleUser)
	if err != nil {
		return fmt.Errorf("failed to create marketer: %w", err)
	}
	slog.Info("Demo users created", "admin_id", admin.ID, "marketer_id", marketer.ID, "password", demoPassword)

	now := time.Now()
	monthAgo := now.AddDate(0, -1, 0)
	monthAhead := now.AddDate(0, 1, 0)

	demoCampaigns := []*domain.Campaign{
		{
			UserID:       marketer.ID,
			Name:         "Summer Email Blast",
			Description:  "Seasonal promotion to the newsletter list",
			CampaignType: domain.CampaignTypeEmail,
			Status:       domain.CampaignStatusActive,
			StartDate:    &monthAgo,
			EndDate:      &monthAhead,
			Budget:       5000,
			Channels:     json.RawMessage(`["email"]`),
		},
		{
			UserID:       marketer.ID,
			Name:         "Search Brand Defense",
			CampaignType: domain.CampaignTypePPC,
			Status:       domain.CampaignStatusActive,
			StartDate:    &monthAgo,
			EndDate:      &monthAhead,
			Budget:       12000,
			Channels:     json.RawMessage(`["google_ads"]`),
		},
		{
			UserID:       marketer.ID,
			Name:         "Influencer Teaser",
			CampaignType: domain.CampaignTypeSocial,
			Status:       domain.CampaignStatusDraft,
			Budget:       3000,
		},
	}

	for _, campaign := range demoCampaigns {
		created, err := campaigns.Create(ctx, campaign)
		if err != nil {
			return fmt.Errorf("failed to create campaign %q: %w", campaign.Name, err)
		}
		slog.Debug("Campaign created", "id", created.ID, "name", created.Name)

		// A month of daily metric rows per campaign
		for day := 0; day < 30; day++ {
			date := monthAgo.AddDate(0, 0, day)
			record := &domain.Analytics{
				UserID:       marketer.ID,
				CampaignID:   &created.ID,
				DataSource:   "seed",
				MetricDate:   date,
				MetricPeriod: domain.PeriodDaily,
				Impressions:  int64(2000 + 150*day),
				Clicks:       int64(40 + 3*day),
				Conversions:  int64(3 + day/4),
				Spend:        80 + 2.5*float64(day),
				Revenue:      260 + 11*float64(day),
				Channel:      campaign.CampaignType,
			}
			record.RecomputeRates()
			if _, err := analytics.Create(ctx, record); err != nil {
				return fmt.Errorf("failed to create analytics row: %w", err)
			}
		}
	}

	demoReports := []*domain.Report{
		{
			UserID:      admin.ID,
			ReportName:  "Executive Overview",
			ReportID:    "00000000-0000-0000-0000-000000000001",
			WorkspaceID: "00000000-0000-0000-0000-0000000000aa",
			DatasetID:   "00000000-0000-0000-0000-0000000000d1",
			ReportType:  domain.ReportTypeDashboard,
			Category:    "executive",
			IsPublic:    true,
			Theme:       "default",
		},
		{
			UserID:       admin.ID,
			ReportName:   "Channel Deep Dive",
			ReportID:     "00000000-0000-0000-0000-000000000002",
			WorkspaceID:  "00000000-0000-0000-0000-0000000000aa",
			DatasetID:    "00000000-0000-0000-0000-0000000000d2",
			ReportType:   domain.ReportTypeReport,
			Category:     "channels",
			AllowedRoles: []string{domain.RoleAnalyst},
			Theme:        "default",
		},
	}

	for _, report := range demoReports {
		created, err := reports.Create(ctx, report)
		if err != nil {
			return fmt.Errorf("failed to create report %q: %w", report.ReportName, err)
		}
		slog.Debug("Report created", "id", created.ID, "name", created.ReportName)
	}

	slog.Info("Seed summary",
		"users", 2,
		"campaigns", len(demoCampaigns),
		"analytics_rows", len(demoCampaigns)*30,
		"reports", len(demoReports),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
