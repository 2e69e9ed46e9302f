package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Metric periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Analytics is a single metric observation for a campaign and data
// source on a given date.
type Analytics struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	CampaignID *int64 `json:"campaign_id,omitempty"`

	DataSource   string    `json:"data_source"`
	MetricDate   time.Time `json:"metric_date"`
	MetricPeriod string    `json:"metric_period"`

	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`

	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	CPA            float64 `json:"cpa"`
	ROAS           float64 `json:"roas"`
	ConversionRate float64 `json:"conversion_rate"`

	Channel   string `json:"channel,omitempty"`
	AdGroup   string `json:"ad_group,omitempty"`
	Keyword   string `json:"keyword,omitempty"`
	Placement string `json:"placement,omitempty"`

	Reach             int64   `json:"reach"`
	Frequency         float64 `json:"frequency"`
	UniqueVisitors    int64   `json:"unique_visitors"`
	ReturningVisitors int64   `json:"returning_visitors"`

	TimeOnSite   float64 `json:"time_on_site"`
	BounceRate   float64 `json:"bounce_rate"`
	PageViews    int64   `json:"page_views"`
	SocialShares int64   `json:"social_shares"`

	CustomDimensions json.RawMessage `json:"custom_dimensions,omitempty"`
	Segments         json.RawMessage `json:"segments,omitempty"`

	DataConfidence float64 `json:"data_confidence"`
	IsEstimated    bool    `json:"is_estimated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPerformingWell reports whether all key rates clear their healthy
// thresholds: CTR >= 2%, conversion rate >= 1%, ROAS >= 2x.
func (a *Analytics) IsPerformingWell() bool {
	return a.CTR >= 0.02 && a.ConversionRate >= 0.01 && a.ROAS >= 2.0
}

// NeedsAttention reports whether any key rate has dropped below its
// floor: CTR < 0.5%, conversion rate < 0.5%, or ROAS < 1x.
func (a *Analytics) NeedsAttention() bool {
	return a.CTR < 0.005 || a.ConversionRate < 0.005 || a.ROAS < 1.0
}

// EfficiencyScore is a 0-100 score weighting CTR (30%), conversion
// rate (40%) and ROAS (30%). Zero impressions score zero.
func (a *Analytics) EfficiencyScore() float64 {
	if a.Impressions == 0 {
		return 0
	}

	ctrScore := min(a.CTR*1000, 100)
	conversionScore := min(a.ConversionRate*1000, 100)
	roasScore := min(a.ROAS*10, 100)

	return ctrScore*0.3 + conversionScore*0.4 + roasScore*0.3
}

// RecomputeRates fills the derived rate fields from the raw counters.
func (a *Analytics) RecomputeRates() {
	if a.Impressions > 0 {
		a.CTR = float64(a.Clicks) / float64(a.Impressions)
	}
	if a.Clicks > 0 {
		a.CPC = a.Spend / float64(a.Clicks)
		a.ConversionRate = float64(a.Conversions) / float64(a.Clicks)
	}
	if a.Conversions > 0 {
		a.CPA = a.Spend / float64(a.Conversions)
	}
	if a.Spend > 0 {
		a.ROAS = a.Revenue / a.Spend
	}
}

// AnalyticsSummary aggregates metric rows over a window.
type AnalyticsSummary struct {
	TotalImpressions  int64   `json:"total_impressions"`
	TotalClicks       int64   `json:"total_clicks"`
	TotalConversions  int64   `json:"total_conversions"`
	TotalSpend        float64 `json:"total_spend"`
	TotalRevenue      float64 `json:"total_revenue"`
	AvgCTR            float64 `json:"avg_ctr"`
	AvgConversionRate float64 `json:"avg_conversion_rate"`
	AvgCPC            float64 `json:"avg_cpc"`
	OverallROAS       float64 `json:"overall_roas"`
	RecordCount       int64   `json:"record_count"`
}

// AnalyticsFilter narrows list and summary queries.
type AnalyticsFilter struct {
	CampaignID *int64
	DataSource string
	Channel    string
	Period     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type AnalyticsRepository interface {
	Create(ctx context.Context, record *Analytics) (*Analytics, error)
	GetByID(ctx context.Context, id int64) (*Analytics, error)
	ListByUser(ctx context.Context, userID int64, filter AnalyticsFilter) ([]*Analytics, error)
	Summary(ctx context.Context, userID int64, filter AnalyticsFilter) (*AnalyticsSummary, error)
	LatestForCampaign(ctx context.Context, campaignID int64, n int) ([]*Analytics, error)
	Delete(ctx context.Context, id int64) error
}
