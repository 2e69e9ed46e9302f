package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

// analyticsColumns must match the Scan order in scanAnalytics.
const analyticsColumns = `id, user_id, campaign_id, data_source, metric_date, metric_period,
	impressions, clicks, conversions, spend, revenue,
	ctr, cpc, cpa, roas, conversion_rate,
	channel, ad_group, keyword, placement,
	reach, frequency, unique_visitors, returning_visitors,
	time_on_site, bounce_rate, page_views, social_shares,
	custom_dimensions, segments, data_confidence, is_estimated, created_at, updated_at`

// AnalyticsRepo implements domain.AnalyticsRepository backed by PostgreSQL.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db.DB}
}

func scanAnalytics(row rowScanner) (*domain.Analytics, error) {
	var (
		a          domain.Analytics
		campaignID sql.NullInt64
		custom     []byte
		segments   []byte
	)
	err := row.Scan(
		&a.ID, &a.UserID, &campaignID, &a.DataSource, &a.MetricDate, &a.MetricPeriod,
		&a.Impressions, &a.Clicks, &a.Conversions, &a.Spend, &a.Revenue,
		&a.CTR, &a.CPC, &a.CPA, &a.ROAS, &a.ConversionRate,
		&a.Channel, &a.AdGroup, &a.Keyword, &a.Placement,
		&a.Reach, &a.Frequency, &a.UniqueVisitors, &a.ReturningVisitors,
		&a.TimeOnSite, &a.BounceRate, &a.PageViews, &a.SocialShares,
		&custom, &segments, &a.DataConfidence, &a.IsEstimated, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if campaignID.Valid {
		a.CampaignID = &campaignID.Int64
	}
	a.CustomDimensions = custom
	a.Segments = segments
	return &a, nil
}

func (r *AnalyticsRepo) Create(ctx context.Context, record *domain.Analytics) (created *domain.Analytics, err error) {
	defer observe("analytics_create", time.Now(), &err)

	record.RecomputeRates()

	created, err = scanAnalytics(r.db.QueryRowContext(ctx, `
		INSERT INTO analytics (user_id, campaign_id, data_source, metric_date, metric_period,
			impressions, clicks, conversions, spend, revenue,
			ctr, cpc, cpa, roas, conversion_rate,
			channel, ad_group, keyword, placement,
			reach, frequency, unique_visitors, returning_visitors,
			time_on_site, bounce_rate, page_views, social_shares,
			custom_dimensions, segments, data_confidence, is_estimated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, NOW(), NOW())
		RETURNING `+analyticsColumns+`
	`, record.UserID, record.CampaignID, record.DataSource, record.MetricDate, record.MetricPeriod,
		record.Impressions, record.Clicks, record.Conversions, record.Spend, record.Revenue,
		record.CTR, record.CPC, record.CPA, record.ROAS, record.ConversionRate,
		record.Channel, record.AdGroup, record.Keyword, record.Placement,
		record.Reach, record.Frequency, record.UniqueVisitors, record.ReturningVisitors,
		record.TimeOnSite, record.BounceRate, record.PageViews, record.SocialShares,
		nullJSON(record.CustomDimensions), nullJSON(record.Segments),
		record.DataConfidence, record.IsEstimated))
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics record: %w", err)
	}
	return created, nil
}

func (r *AnalyticsRepo) GetByID(ctx context.Context, id int64) (*domain.Analytics, error) {
	record, err := scanAnalytics(r.db.QueryRowContext(ctx,
		`SELECT `+analyticsColumns+` FROM analytics WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAnalyticsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics record: %w", err)
	}
	return record, nil
}

// filterClause appends WHERE conditions for the optional filter fields,
// continuing the placeholder numbering from args.
func filterClause(filter domain.AnalyticsFilter, args *[]any) string {
	clause := ""
	add := func(condition string, value any) {
		*args = append(*args, value)
		clause += ` AND ` + fmt.Sprintf(condition, len(*args))
	}

	if filter.CampaignID != nil {
		add(`campaign_id = $%d`, *filter.CampaignID)
	}
	if filter.DataSource != "" {
		add(`data_source = $%d`, filter.DataSource)
	}
	if filter.Channel != "" {
		add(`channel = $%d`, filter.Channel)
	}
	if filter.Period != "" {
		add(`metric_period = $%d`, filter.Period)
	}
	if filter.From != nil {
		add(`metric_date >= $%d`, *filter.From)
	}
	if filter.To != nil {
		add(`metric_date <= $%d`, *filter.To)
	}
	return clause
}

func (r *AnalyticsRepo) ListByUser(ctx context.Context, userID int64, filter domain.AnalyticsFilter) (records []*domain.Analytics, err error) {
	defer observe("analytics_list", time.Now(), &err)

	args := []any{userID}
	query := `SELECT ` + analyticsColumns + ` FROM analytics WHERE user_id = $1` +
		filterClause(filter, &args)

	args = append(args, filter.Limit, filter.Offset)
	query += ` ORDER BY metric_date DESC LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analytics: %w", err)
	}
	return records, nil
}

func (r *AnalyticsRepo) Summary(ctx context.Context, userID int64, filter domain.AnalyticsFilter) (summary *domain.AnalyticsSummary, err error) {
	defer observe("analytics_summary", time.Now(), &err)

	args := []any{userID}
	query := `
		SELECT
			COALESCE(SUM(impressions), 0),
			COALESCE(SUM(clicks), 0),
			COALESCE(SUM(conversions), 0),
			COALESCE(SUM(spend), 0),
			COALESCE(SUM(revenue), 0),
			COALESCE(AVG(ctr), 0),
			COALESCE(AVG(conversion_rate), 0),
			COALESCE(AVG(cpc), 0),
			COUNT(*)
		FROM analytics WHERE user_id = $1` + filterClause(filter, &args)

	var s domain.AnalyticsSummary
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.TotalImpressions, &s.TotalClicks, &s.TotalConversions,
		&s.TotalSpend, &s.TotalRevenue,
		&s.AvgCTR, &s.AvgConversionRate, &s.AvgCPC, &s.RecordCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute analytics summary: %w", err)
	}
	if s.TotalSpend > 0 {
		s.OverallROAS = s.TotalRevenue / s.TotalSpend
	}
	return &s, nil
}

// LatestForCampaign returns the n most recent metric rows for a
// campaign, newest first. The campaign alert check compares the first two.
func (r *AnalyticsRepo) LatestForCampaign(ctx context.Context, campaignID int64, n int) ([]*domain.Analytics, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+analyticsColumns+` FROM analytics WHERE campaign_id = $1 ORDER BY metric_date DESC LIMIT $2`,
		campaignID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest analytics: %w", err)
	}
	defer rows.Close()

	var records []*domain.Analytics
	for rows.Next() {
		record, err := scanAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analytics: %w", err)
	}
	return records, nil
}

func (r *AnalyticsRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM analytics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analytics record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrAnalyticsNotFound
	}
	return nil
}
