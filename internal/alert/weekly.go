package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/mailer"
)

// WeeklyFigures is the input for the weekly report. WeekStart/WeekEnd
// default to the last seven days; Insights default to generated ones.
type WeeklyFigures struct {
	WeekStart        string               `json:"week_start"`
	WeekEnd          string               `json:"week_end"`
	TotalRevenue     float64              `json:"total_revenue"`
	TotalSpend       float64              `json:"total_spend"`
	TotalConversions int64                `json:"total_conversions"`
	OverallROAS      float64              `json:"overall_roas"`
	RevenueTrend     string               `json:"revenue_trend"`
	ConversionRate   float64              `json:"conversion_rate"`
	TopChannel       string               `json:"top_channel"`
	TopCampaigns     []mailer.TopCampaign `json:"top_campaigns"`
	Insights         []string             `json:"insights"`
}

// SendWeeklyReport assembles and emails the weekly performance digest.
func (s *Service) SendWeeklyReport(ctx context.Context, figures WeeklyFigures, recipients []string) error {
	if s.mailer == nil {
		return fmt.Errorf("no mail transport configured")
	}
	if len(recipients) == 0 {
		recipients = s.recipients
	}

	if figures.WeekStart == "" || figures.WeekEnd == "" {
		figures.WeekStart, figures.WeekEnd = mailer.WeekWindow(time.Now())
	}
	if len(figures.Insights) == 0 {
		figures.Insights = GenerateInsights(figures)
	}

	data := mailer.WeeklyReportData{
		WeekStart:        figures.WeekStart,
		WeekEnd:          figures.WeekEnd,
		TotalRevenue:     figures.TotalRevenue,
		TotalSpend:       figures.TotalSpend,
		TotalConversions: figures.TotalConversions,
		OverallROAS:      figures.OverallROAS,
		TopCampaigns:     figures.TopCampaigns,
		Insights:         figures.Insights,
	}

	return s.mailer.SendWeeklyReport(ctx, recipients, data)
}

// GenerateInsights derives headline insights from the weekly figures.
// At most four are returned.
func GenerateInsights(figures WeeklyFigures) []string {
	var insights []string

	switch figures.RevenueTrend {
	case "up":
		insights = append(insights, "Revenue is trending upward - consider scaling successful campaigns")
	case "down":
		insights = append(insights, "Revenue decline detected - investigate underperforming channels")
	}

	if figures.ConversionRate > 0 && figures.ConversionRate < 3 {
		insights = append(insights, "Conversion rate below industry average - focus on landing page optimization")
	} else if figures.ConversionRate > 6 {
		insights = append(insights, "Excellent conversion rate - consider increasing ad spend to scale results")
	}

	if figures.TopChannel != "" {
		insights = append(insights, fmt.Sprintf("%s is your top-performing channel - allocate more budget here", figures.TopChannel))
	}

	insights = append(insights,
		"Weekend campaigns typically show 32% better performance - consider scheduling more ads for weekends",
		"Mobile users show 65% higher conversion rates - ensure mobile-optimized landing pages",
	)

	if len(insights) > 4 {
		insights = insights[:4]
	}
	return insights
}
