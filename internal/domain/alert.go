package domain

import "time"

// Alert types raised by the threshold monitor.
const (
	AlertBudgetOverrun      = "budget_overrun"
	AlertConversionRateDrop = "conversion_rate_drop"
	AlertCTRDrop            = "ctr_drop"
	AlertCPCIncrease        = "cpc_increase"
	AlertRevenueDrop        = "revenue_drop"
)

// Alert severities.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Alert is a triggered threshold violation for a campaign. It is
// published to WebSocket subscribers and emailed to configured
// recipients; it is not persisted.
type Alert struct {
	CampaignID    int64     `json:"campaign_id"`
	CampaignName  string    `json:"campaign_name"`
	Type          string    `json:"type"`
	Severity      string    `json:"severity"`
	Metric        string    `json:"metric"`
	CurrentValue  float64   `json:"current_value"`
	PreviousValue float64   `json:"previous_value"`
	ChangePercent float64   `json:"change_percent"`
	Threshold     float64   `json:"threshold"`
	Message       string    `json:"message"`
	TriggeredAt   time.Time `json:"triggered_at"`
}
