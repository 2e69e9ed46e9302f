package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

// campaignColumns must match the Scan order in scanCampaign.
const campaignColumns = `id, user_id, name, description, campaign_type, status, start_date, end_date,
	budget, target_audience, goals, channels, targeting_criteria, creative_assets,
	impressions, clicks, conversions, spend,
	ctr, cpc, cpa, roas, created_at, updated_at`

// CampaignRepo implements domain.CampaignRepository backed by PostgreSQL.
type CampaignRepo struct {
	db *sql.DB
}

func NewCampaignRepo(db *DB) *CampaignRepo {
	return &CampaignRepo{db: db.DB}
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var (
		c         domain.Campaign
		startDate sql.NullTime
		endDate   sql.NullTime
		goals     []byte
		channels  []byte
		targeting []byte
		creatives []byte
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Description, &c.CampaignType, &c.Status,
		&startDate, &endDate, &c.Budget, &c.TargetAudience, &goals, &channels,
		&targeting, &creatives,
		&c.Impressions, &c.Clicks, &c.Conversions, &c.Spend,
		&c.CTR, &c.CPC, &c.CPA, &c.ROAS, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		c.StartDate = &startDate.Time
	}
	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	c.Goals = goals
	c.Channels = channels
	c.TargetingCriteria = targeting
	c.CreativeAssets = creatives
	return &c, nil
}

func (r *CampaignRepo) Create(ctx context.Context, campaign *domain.Campaign) (created *domain.Campaign, err error) {
	defer observe("campaign_create", time.Now(), &err)

	created, err = scanCampaign(r.db.QueryRowContext(ctx, `
		INSERT INTO campaigns (user_id, name, description, campaign_type, status, start_date, end_date,
			budget, target_audience, goals, channels, targeting_criteria, creative_assets, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING `+campaignColumns+`
	`, campaign.UserID, campaign.Name, campaign.Description, campaign.CampaignType,
		campaign.Status, campaign.StartDate, campaign.EndDate, campaign.Budget,
		campaign.TargetAudience, nullJSON(campaign.Goals), nullJSON(campaign.Channels),
		nullJSON(campaign.TargetingCriteria), nullJSON(campaign.CreativeAssets)))
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return created, nil
}

func (r *CampaignRepo) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	campaign, err := scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

func (r *CampaignRepo) ListByUser(ctx context.Context, userID int64, status string, limit, offset int) (campaigns []*domain.Campaign, err error) {
	defer observe("campaign_list", time.Now(), &err)

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		args = append(args, status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepo) Update(ctx context.Context, id int64, update domain.CampaignUpdate) (campaign *domain.Campaign, err error) {
	defer observe("campaign_update", time.Now(), &err)

	set := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.CampaignType != nil {
		add("campaign_type", *update.CampaignType)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.StartDate != nil {
		add("start_date", *update.StartDate)
	}
	if update.EndDate != nil {
		add("end_date", *update.EndDate)
	}
	if update.Budget != nil {
		add("budget", *update.Budget)
	}
	if update.TargetAudience != nil {
		add("target_audience", *update.TargetAudience)
	}
	if update.Goals != nil {
		add("goals", []byte(update.Goals))
	}
	if update.Channels != nil {
		add("channels", []byte(update.Channels))
	}
	if update.TargetingCriteria != nil {
		add("targeting_criteria", []byte(update.TargetingCriteria))
	}
	if update.CreativeAssets != nil {
		add("creative_assets", []byte(update.CreativeAssets))
	}

	query := `UPDATE campaigns SET ` + strings.Join(set, ", ") +
		` WHERE id = $1 RETURNING ` + campaignColumns

	campaign, err = scanCampaign(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}
	return campaign, nil
}

// UpdateMetrics overwrites the raw counters and recomputes the derived
// rates in a single statement.
func (r *CampaignRepo) UpdateMetrics(ctx context.Context, id int64, m domain.CampaignMetrics) (campaign *domain.Campaign, err error) {
	defer observe("campaign_update_metrics", time.Now(), &err)

	campaign, err = scanCampaign(r.db.QueryRowContext(ctx, `
		UPDATE campaigns SET
			impressions = $2,
			clicks = $3,
			conversions = $4,
			spend = $5,
			ctr = CASE WHEN $2 > 0 THEN $3::float / $2 ELSE 0 END,
			cpc = CASE WHEN $3 > 0 THEN $5 / $3 ELSE 0 END,
			cpa = CASE WHEN $4 > 0 THEN $5 / $4 ELSE 0 END,
			roas = CASE WHEN $5 > 0 THEN $6 / $5 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+campaignColumns+`
	`, id, m.Impressions, m.Clicks, m.Conversions, m.Spend, m.Revenue))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign metrics: %w", err)
	}
	return campaign, nil
}

func (r *CampaignRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

// nullJSON maps empty raw JSON to NULL so JSONB columns stay NULL
// instead of holding empty strings.
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
