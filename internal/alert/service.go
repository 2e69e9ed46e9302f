// Package alert evaluates marketing thresholds and dispatches triggered
// alerts over email and the WebSocket hub.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/mailer"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

// Publisher fans a triggered alert out to connected dashboard clients.
type Publisher interface {
	Publish(alert domain.Alert)
}

// Thresholds are the trigger points for each monitored metric, in percent.
type Thresholds struct {
	BudgetUtilization  float64
	ConversionRateDrop float64
	CTRDrop            float64
	CPCIncrease        float64
	RevenueDrop        float64
}

// DefaultThresholds returns the platform defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BudgetUtilization:  80,
		ConversionRateDrop: 30,
		CTRDrop:            25,
		CPCIncrease:        50,
		RevenueDrop:        20,
	}
}

// Service checks campaign figures against thresholds and sends alerts.
type Service struct {
	mailer     mailer.Sender
	hub        Publisher
	recipients []string
	thresholds Thresholds
}

func NewService(sender mailer.Sender, hub Publisher, recipients []string, thresholds Thresholds) *Service {
	return &Service{
		mailer:     sender,
		hub:        hub,
		recipients: recipients,
		thresholds: thresholds,
	}
}

// BudgetFigures is the input for a budget utilization check.
type BudgetFigures struct {
	CampaignID   int64   `json:"campaign_id"`
	CampaignName string  `json:"campaign_name" validate:"required"`
	Budget       float64 `json:"budget" validate:"gte=0"`
	Spent        float64 `json:"spent" validate:"gte=0"`
}

// PerformanceFigures carries current/previous metric pairs for a
// performance check. Nil or zero previous values skip that metric.
type PerformanceFigures struct {
	CampaignID   int64  `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`

	ConversionRateCurrent  *float64 `json:"conversion_rate_current"`
	ConversionRatePrevious *float64 `json:"conversion_rate_previous"`
	CTRCurrent             *float64 `json:"ctr_current"`
	CTRPrevious            *float64 `json:"ctr_previous"`
	CPCCurrent             *float64 `json:"cpc_current"`
	CPCPrevious            *float64 `json:"cpc_previous"`
	RevenueCurrent         *float64 `json:"revenue_current"`
	RevenuePrevious        *float64 `json:"revenue_previous"`
}

// CheckBudget triggers a budget alert when spend crosses the utilization
// threshold. Returns the triggered alert, or nil when within budget.
func (s *Service) CheckBudget(ctx context.Context, figures BudgetFigures) (*domain.Alert, error) {
	if figures.Budget <= 0 {
		return nil, nil
	}

	usage := figures.Spent / figures.Budget * 100
	if usage < s.thresholds.BudgetUtilization {
		return nil, nil
	}

	alert := domain.Alert{
		CampaignID:    figures.CampaignID,
		CampaignName:  figures.CampaignName,
		Type:          domain.AlertBudgetOverrun,
		Severity:      domain.SeverityHigh,
		Metric:        "budget_utilization",
		CurrentValue:  usage,
		PreviousValue: s.thresholds.BudgetUtilization,
		ChangePercent: usage - s.thresholds.BudgetUtilization,
		Threshold:     s.thresholds.BudgetUtilization,
		Message: fmt.Sprintf(
			"Campaign '%s' has used %.1f%% of its budget (rm%.0f of rm%.0f). This exceeds the %.0f%% threshold.",
			figures.CampaignName, usage, figures.Spent, figures.Budget, s.thresholds.BudgetUtilization,
		),
		TriggeredAt: time.Now().UTC(),
	}

	s.dispatch(ctx, alert, budgetRecommendations(figures.CampaignName))
	return &alert, nil
}

type performanceRule struct {
	metric    string
	alertType string
	current   *float64
	previous  *float64
	threshold float64
	increase  bool
}

// CheckPerformance evaluates every metric pair against its threshold and
// dispatches an alert per tripped metric.
func (s *Service) CheckPerformance(ctx context.Context, figures PerformanceFigures) ([]domain.Alert, error) {
	rules := []performanceRule{
		{"conversion_rate", domain.AlertConversionRateDrop, figures.ConversionRateCurrent, figures.ConversionRatePrevious, s.thresholds.ConversionRateDrop, false},
		{"ctr", domain.AlertCTRDrop, figures.CTRCurrent, figures.CTRPrevious, s.thresholds.CTRDrop, false},
		{"cpc", domain.AlertCPCIncrease, figures.CPCCurrent, figures.CPCPrevious, s.thresholds.CPCIncrease, true},
		{"revenue", domain.AlertRevenueDrop, figures.RevenueCurrent, figures.RevenuePrevious, s.thresholds.RevenueDrop, false},
	}

	var triggered []domain.Alert
	for _, rule := range rules {
		if rule.current == nil || rule.previous == nil || *rule.previous == 0 {
			continue
		}

		change := percentageChange(*rule.current, *rule.previous)
		if rule.increase {
			if change < rule.threshold {
				continue
			}
		} else if change > -rule.threshold {
			continue
		}

		severity := domain.SeverityMedium
		if math.Abs(change) > 50 {
			severity = domain.SeverityHigh
		}

		direction := "dropped"
		if change > 0 {
			direction = "increased"
		}

		alert := domain.Alert{
			CampaignID:    figures.CampaignID,
			CampaignName:  figures.CampaignName,
			Type:          rule.alertType,
			Severity:      severity,
			Metric:        rule.metric,
			CurrentValue:  *rule.current,
			PreviousValue: *rule.previous,
			ChangePercent: change,
			Threshold:     rule.threshold,
			Message: fmt.Sprintf(
				"Your %s has %s by %.1f%% from %.4f to %.4f. This requires immediate attention.",
				strings.ReplaceAll(rule.metric, "_", " "), direction, math.Abs(change), *rule.previous, *rule.current,
			),
			TriggeredAt: time.Now().UTC(),
		}

		s.dispatch(ctx, alert, performanceRecommendations(rule.metric))
		triggered = append(triggered, alert)
	}

	return triggered, nil
}

// dispatch publishes to the hub and emails the configured recipients.
// Email failures are logged, not fatal; the alert already reached the hub.
func (s *Service) dispatch(ctx context.Context, alert domain.Alert, recommendations []string) {
	metrics.AlertsTriggeredTotal.WithLabelValues(alert.Type).Inc()
	slog.Info("Alert triggered",
		"type", alert.Type,
		"severity", alert.Severity,
		"campaign", alert.CampaignName,
		"metric", alert.Metric,
		"change_percent", alert.ChangePercent,
	)

	if s.hub != nil {
		s.hub.Publish(alert)
	}

	if s.mailer == nil || len(s.recipients) == 0 {
		return
	}
	if err := s.mailer.SendAlert(ctx, s.recipients, alert, recommendations); err != nil {
		slog.Error("Failed to send alert email", "type", alert.Type, "error", err)
	}
}

func percentageChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func budgetRecommendations(campaignName string) []string {
	return []string{
		fmt.Sprintf("Consider pausing '%s' if performance is not meeting expectations", campaignName),
		"Review current ad creative performance and optimize low-performing ads",
		"Analyze conversion data to ensure budget is being used effectively",
		"Consider reallocating budget to higher-performing campaigns",
		"Set up automated rules to prevent overspending",
	}
}

func performanceRecommendations(metric string) []string {
	switch metric {
	case "conversion_rate":
		return []string{
			"Review and optimize your landing pages for better user experience",
			"Test different call-to-action buttons and placement",
			"Analyze your target audience and refine your targeting",
			"Check if there are technical issues affecting the conversion process",
			"Consider running A/B tests on your ad creative",
		}
	case "ctr":
		return []string{
			"Refresh your ad creative with new images and copy",
			"Review your audience targeting and exclude non-performing segments",
			"Test different ad formats and placements",
			"Adjust your bidding strategy to improve ad position",
			"Analyze competitor ads for inspiration and differentiation",
		}
	case "revenue":
		return []string{
			"Investigate if there are external factors affecting sales",
			"Review your pricing strategy and promotions",
			"Analyze customer feedback for potential issues",
			"Consider expanding to new marketing channels",
			"Focus budget on your highest-converting campaigns",
		}
	default:
		return []string{
			"Monitor the situation closely for trend continuation",
			"Review recent changes that might have caused this drop",
			"Consider consulting with your marketing team",
			"Analyze competitor activity and market conditions",
		}
	}
}
