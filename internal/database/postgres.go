// Package database provides PostgreSQL-backed repositories for the
// marketing intelligence platform.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

type DB struct {
	*sql.DB
}

func Connect(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings for production use
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// observe records query duration and error counts for a named query.
// Call with the start time deferred at the top of a repository method.
func observe(query string, start time.Time, err *error) {
	metrics.DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		metrics.DBErrorsTotal.WithLabelValues(query).Inc()
	}
}

func (db *DB) RunMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			username TEXT UNIQUE NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			hashed_password TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
			role TEXT NOT NULL DEFAULT 'user',
			company TEXT NOT NULL DEFAULT '',
			position TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT 'UTC',
			language TEXT NOT NULL DEFAULT 'en',
			notification_preferences JSONB,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE TABLE IF NOT EXISTS campaigns (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			campaign_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			start_date TIMESTAMPTZ,
			end_date TIMESTAMPTZ,
			budget DOUBLE PRECISION NOT NULL DEFAULT 0,
			target_audience TEXT NOT NULL DEFAULT '',
			goals JSONB,
			channels JSONB,
			targeting_criteria JSONB,
			creative_assets JSONB,
			impressions BIGINT NOT NULL DEFAULT 0,
			clicks BIGINT NOT NULL DEFAULT 0,
			conversions BIGINT NOT NULL DEFAULT 0,
			spend DOUBLE PRECISION NOT NULL DEFAULT 0,
			ctr DOUBLE PRECISION NOT NULL DEFAULT 0,
			cpc DOUBLE PRECISION NOT NULL DEFAULT 0,
			cpa DOUBLE PRECISION NOT NULL DEFAULT 0,
			roas DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_user_id ON campaigns(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status)`,
		`CREATE TABLE IF NOT EXISTS analytics (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			campaign_id BIGINT REFERENCES campaigns(id) ON DELETE CASCADE,
			data_source TEXT NOT NULL,
			metric_date TIMESTAMPTZ NOT NULL,
			metric_period TEXT NOT NULL,
			impressions BIGINT NOT NULL DEFAULT 0,
			clicks BIGINT NOT NULL DEFAULT 0,
			conversions BIGINT NOT NULL DEFAULT 0,
			spend DOUBLE PRECISION NOT NULL DEFAULT 0,
			revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
			ctr DOUBLE PRECISION NOT NULL DEFAULT 0,
			cpc DOUBLE PRECISION NOT NULL DEFAULT 0,
			cpa DOUBLE PRECISION NOT NULL DEFAULT 0,
			roas DOUBLE PRECISION NOT NULL DEFAULT 0,
			conversion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			channel TEXT NOT NULL DEFAULT '',
			ad_group TEXT NOT NULL DEFAULT '',
			keyword TEXT NOT NULL DEFAULT '',
			placement TEXT NOT NULL DEFAULT '',
			reach BIGINT NOT NULL DEFAULT 0,
			frequency DOUBLE PRECISION NOT NULL DEFAULT 0,
			unique_visitors BIGINT NOT NULL DEFAULT 0,
			returning_visitors BIGINT NOT NULL DEFAULT 0,
			time_on_site DOUBLE PRECISION NOT NULL DEFAULT 0,
			bounce_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			page_views BIGINT NOT NULL DEFAULT 0,
			social_shares BIGINT NOT NULL DEFAULT 0,
			custom_dimensions JSONB,
			segments JSONB,
			data_confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			is_estimated BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_user_id ON analytics(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_campaign_date ON analytics(campaign_id, metric_date DESC)`,
		`CREATE TABLE IF NOT EXISTS ml_predictions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			campaign_id BIGINT REFERENCES campaigns(id) ON DELETE CASCADE,
			prediction_type TEXT NOT NULL,
			model_version TEXT NOT NULL,
			prediction_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			input_features JSONB,
			feature_importance JSONB,
			prediction_value DOUBLE PRECISION NOT NULL,
			prediction_probability DOUBLE PRECISION,
			prediction_class TEXT NOT NULL DEFAULT '',
			confidence_score DOUBLE PRECISION,
			threshold DOUBLE PRECISION,
			decision TEXT NOT NULL DEFAULT '',
			risk_level TEXT NOT NULL DEFAULT '',
			expected_value DOUBLE PRECISION,
			roi_prediction DOUBLE PRECISION,
			conversion_probability DOUBLE PRECISION,
			model_accuracy DOUBLE PRECISION,
			training_data_size BIGINT,
			last_training_date TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ml_predictions_user_id ON ml_predictions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ml_predictions_campaign_id ON ml_predictions(campaign_id)`,
		`CREATE TABLE IF NOT EXISTS powerbi_reports (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			report_name TEXT NOT NULL,
			report_id TEXT UNIQUE NOT NULL,
			workspace_id TEXT NOT NULL,
			dataset_id TEXT NOT NULL DEFAULT '',
			report_type TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			embed_url TEXT NOT NULL DEFAULT '',
			embed_token TEXT NOT NULL DEFAULT '',
			token_expiry TIMESTAMPTZ,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			allowed_users JSONB,
			allowed_roles JSONB,
			refresh_schedule TEXT NOT NULL DEFAULT '',
			last_refresh TIMESTAMPTZ,
			auto_refresh BOOLEAN NOT NULL DEFAULT TRUE,
			theme TEXT NOT NULL DEFAULT 'default',
			layout_settings JSONB,
			filter_defaults JSONB,
			view_count BIGINT NOT NULL DEFAULT 0,
			last_viewed TIMESTAMPTZ,
			favorite_count BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_powerbi_reports_category ON powerbi_reports(category)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed successfully")
	return nil
}
