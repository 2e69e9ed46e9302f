package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Campaign statuses.
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// Campaign types.
const (
	CampaignTypeEmail   = "email"
	CampaignTypeSocial  = "social"
	CampaignTypePPC     = "ppc"
	CampaignTypeContent = "content"
)

type Campaign struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	CampaignType string     `json:"campaign_type"`
	Status       string     `json:"status"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`

	Budget            float64         `json:"budget"`
	TargetAudience    string          `json:"target_audience,omitempty"`
	Goals             json.RawMessage `json:"goals,omitempty"`
	Channels          json.RawMessage `json:"channels,omitempty"`
	TargetingCriteria json.RawMessage `json:"targeting_criteria,omitempty"`
	CreativeAssets    json.RawMessage `json:"creative_assets,omitempty"`

	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Spend       float64 `json:"spend"`

	CTR  float64 `json:"ctr"`
	CPC  float64 `json:"cpc"`
	CPA  float64 `json:"cpa"`
	ROAS float64 `json:"roas"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the campaign is in its active window at the
// given instant. Campaigns without both dates set are never active.
func (c *Campaign) IsActive(now time.Time) bool {
	if c.StartDate == nil || c.EndDate == nil {
		return false
	}
	if c.Status != CampaignStatusActive {
		return false
	}
	return !now.Before(*c.StartDate) && !now.After(*c.EndDate)
}

// PerformanceScore is a 0-100 score weighting CTR (30%), conversion
// volume (40%) and ROAS (30%). Zero impressions score zero.
func (c *Campaign) PerformanceScore() float64 {
	if c.Impressions == 0 {
		return 0
	}

	ctrScore := min(c.CTR*100, 100)
	conversionScore := min(float64(c.Conversions)/float64(c.Impressions)*1000, 100)
	roasScore := min(c.ROAS*20, 100)

	return ctrScore*0.3 + conversionScore*0.4 + roasScore*0.3
}

// PerformanceLevel buckets the performance score into a label.
func (c *Campaign) PerformanceLevel() string {
	score := c.PerformanceScore()
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "average"
	default:
		return "poor"
	}
}

// BudgetUtilization is the fraction of the budget spent, in percent.
func (c *Campaign) BudgetUtilization() float64 {
	if c.Budget <= 0 {
		return 0
	}
	return c.Spend / c.Budget * 100
}

// CampaignUpdate carries the mutable fields of a campaign; nil pointers
// leave the corresponding column untouched.
type CampaignUpdate struct {
	Name              *string
	Description       *string
	CampaignType      *string
	Status            *string
	StartDate         *time.Time
	EndDate           *time.Time
	Budget            *float64
	TargetAudience    *string
	Goals             json.RawMessage
	Channels          json.RawMessage
	TargetingCriteria json.RawMessage
	CreativeAssets    json.RawMessage
}

// CampaignMetrics is the raw-counter update applied by metric ingestion;
// derived rates (CTR, CPC, CPA, ROAS) are recomputed on write.
type CampaignMetrics struct {
	Impressions int64
	Clicks      int64
	Conversions int64
	Spend       float64
	Revenue     float64
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) (*Campaign, error)
	GetByID(ctx context.Context, id int64) (*Campaign, error)
	ListByUser(ctx context.Context, userID int64, status string, limit, offset int) ([]*Campaign, error)
	Update(ctx context.Context, id int64, update CampaignUpdate) (*Campaign, error)
	UpdateMetrics(ctx context.Context, id int64, metrics CampaignMetrics) (*Campaign, error)
	Delete(ctx context.Context, id int64) error
}
