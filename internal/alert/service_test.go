package alert

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/mailer"
)

type mockSender struct {
	mu      sync.Mutex
	alerts  []domain.Alert
	recs    [][]string
	weekly  []mailer.WeeklyReportData
	sendErr error
}

func (m *mockSender) SendAlert(_ context.Context, _ []string, alert domain.Alert, recommendations []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	m.recs = append(m.recs, recommendations)
	return m.sendErr
}

func (m *mockSender) SendCampaignUpdate(_ context.Context, _ []string, _ mailer.CampaignUpdateData) error {
	return nil
}

func (m *mockSender) SendWeeklyReport(_ context.Context, _ []string, data mailer.WeeklyReportData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weekly = append(m.weekly, data)
	return m.sendErr
}

type mockHub struct {
	mu        sync.Mutex
	published []domain.Alert
}

func (m *mockHub) Publish(alert domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, alert)
}

func testService() (*Service, *mockSender, *mockHub) {
	sender := &mockSender{}
	hub := &mockHub{}
	svc := NewService(sender, hub, []string{"admin@company.com"}, DefaultThresholds())
	return svc, sender, hub
}

func ptr(v float64) *float64 { return &v }

func TestCheckBudget_Triggered(t *testing.T) {
	svc, sender, hub := testService()

	alert, err := svc.CheckBudget(context.Background(), BudgetFigures{
		CampaignID:   1,
		CampaignName: "Summer Sale 2024",
		Budget:       25000,
		Spent:        21000, // 84% usage
	})
	require.NoError(t, err)
	require.NotNil(t, alert)

	assert.Equal(t, domain.AlertBudgetOverrun, alert.Type)
	assert.Equal(t, domain.SeverityHigh, alert.Severity)
	assert.InDelta(t, 84.0, alert.CurrentValue, 0.001)
	assert.Contains(t, alert.Message, "84.0% of its budget")
	assert.Contains(t, alert.Message, "rm21000 of rm25000")

	require.Len(t, sender.alerts, 1)
	assert.Contains(t, sender.recs[0][0], "Summer Sale 2024")
	require.Len(t, hub.published, 1)
	assert.Equal(t, domain.AlertBudgetOverrun, hub.published[0].Type)
}

func TestCheckBudget_WithinBudget(t *testing.T) {
	svc, sender, hub := testService()

	alert, err := svc.CheckBudget(context.Background(), BudgetFigures{
		CampaignName: "Quiet", Budget: 1000, Spent: 500,
	})
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Empty(t, sender.alerts)
	assert.Empty(t, hub.published)
}

func TestCheckBudget_ZeroBudgetIgnored(t *testing.T) {
	svc, _, _ := testService()

	alert, err := svc.CheckBudget(context.Background(), BudgetFigures{
		CampaignName: "Free", Budget: 0, Spent: 100,
	})
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestCheckPerformance_AllMetricsTripped(t *testing.T) {
	svc, sender, hub := testService()

	triggered, err := svc.CheckPerformance(context.Background(), PerformanceFigures{
		CampaignID:             1,
		CampaignName:           "Summer Sale",
		ConversionRateCurrent:  ptr(2.1),
		ConversionRatePrevious: ptr(4.2), // -50%
		CTRCurrent:             ptr(1.8),
		CTRPrevious:            ptr(3.5), // -48.6%
		CPCCurrent:             ptr(3.0),
		CPCPrevious:            ptr(1.5), // +100%
		RevenueCurrent:         ptr(18500),
		RevenuePrevious:        ptr(24000), // -22.9%
	})
	require.NoError(t, err)
	require.Len(t, triggered, 4)

	byType := make(map[string]domain.Alert)
	for _, a := range triggered {
		byType[a.Type] = a
	}

	conv := byType[domain.AlertConversionRateDrop]
	assert.Equal(t, domain.SeverityMedium, conv.Severity) // exactly -50%, not above
	assert.InDelta(t, -50.0, conv.ChangePercent, 0.001)
	assert.Contains(t, conv.Message, "conversion rate has dropped by 50.0%")

	cpc := byType[domain.AlertCPCIncrease]
	assert.Equal(t, domain.SeverityHigh, cpc.Severity)
	assert.Contains(t, cpc.Message, "cpc has increased by 100.0%")

	rev := byType[domain.AlertRevenueDrop]
	assert.Equal(t, domain.SeverityMedium, rev.Severity)

	assert.Len(t, sender.alerts, 4)
	assert.Len(t, hub.published, 4)
}

func TestCheckPerformance_BelowThresholds(t *testing.T) {
	svc, sender, _ := testService()

	triggered, err := svc.CheckPerformance(context.Background(), PerformanceFigures{
		ConversionRateCurrent:  ptr(4.0),
		ConversionRatePrevious: ptr(4.2), // -4.8%
		RevenueCurrent:         ptr(23000),
		RevenuePrevious:        ptr(24000), // -4.2%
	})
	require.NoError(t, err)
	assert.Empty(t, triggered)
	assert.Empty(t, sender.alerts)
}

func TestCheckPerformance_MissingPreviousSkipped(t *testing.T) {
	svc, _, _ := testService()

	triggered, err := svc.CheckPerformance(context.Background(), PerformanceFigures{
		ConversionRateCurrent:  ptr(1.0),
		ConversionRatePrevious: nil,
		CTRCurrent:             ptr(1.0),
		CTRPrevious:            ptr(0), // zero previous ignored
	})
	require.NoError(t, err)
	assert.Empty(t, triggered)
}

func TestCheckPerformance_ImprovementNotAlerted(t *testing.T) {
	svc, _, _ := testService()

	// Conversion rate doubled, CPC halved: both moved past their
	// thresholds but in the good direction.
	triggered, err := svc.CheckPerformance(context.Background(), PerformanceFigures{
		ConversionRateCurrent:  ptr(8.0),
		ConversionRatePrevious: ptr(4.0),
		CPCCurrent:             ptr(0.5),
		CPCPrevious:            ptr(1.0),
	})
	require.NoError(t, err)
	assert.Empty(t, triggered)
}

func TestCheckPerformance_RecommendationsPerMetric(t *testing.T) {
	svc, sender, _ := testService()

	_, err := svc.CheckPerformance(context.Background(), PerformanceFigures{
		CTRCurrent:  ptr(1.0),
		CTRPrevious: ptr(2.0),
	})
	require.NoError(t, err)

	require.Len(t, sender.recs, 1)
	assert.Contains(t, sender.recs[0], "Refresh your ad creative with new images and copy")
}

func TestDispatch_EmailFailureStillPublishes(t *testing.T) {
	sender := &mockSender{sendErr: assert.AnError}
	hub := &mockHub{}
	svc := NewService(sender, hub, []string{"admin@company.com"}, DefaultThresholds())

	alert, err := svc.CheckBudget(context.Background(), BudgetFigures{
		CampaignName: "C", Budget: 100, Spent: 90,
	})
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Len(t, hub.published, 1)
}

func TestSendWeeklyReport_DefaultsApplied(t *testing.T) {
	svc, sender, _ := testService()

	err := svc.SendWeeklyReport(context.Background(), WeeklyFigures{
		TotalRevenue:     48500,
		TotalSpend:       12000,
		TotalConversions: 245,
		OverallROAS:      4.04,
		RevenueTrend:     "up",
		ConversionRate:   2.5,
		TopChannel:       "Google Ads",
	}, nil)
	require.NoError(t, err)

	require.Len(t, sender.weekly, 1)
	data := sender.weekly[0]
	assert.NotEmpty(t, data.WeekStart)
	assert.NotEmpty(t, data.WeekEnd)
	require.Len(t, data.Insights, 4)
	assert.Equal(t, "Revenue is trending upward - consider scaling successful campaigns", data.Insights[0])
}

func TestGenerateInsights(t *testing.T) {
	insights := GenerateInsights(WeeklyFigures{
		RevenueTrend:   "down",
		ConversionRate: 7.2,
		TopChannel:     "Facebook",
	})

	require.Len(t, insights, 4)
	assert.Equal(t, "Revenue decline detected - investigate underperforming channels", insights[0])
	assert.Equal(t, "Excellent conversion rate - consider increasing ad spend to scale results", insights[1])
	assert.Contains(t, insights[2], "Facebook is your top-performing channel")
	assert.Contains(t, insights[3], "Weekend campaigns")
}

func TestGenerateInsights_MinimalFigures(t *testing.T) {
	insights := GenerateInsights(WeeklyFigures{})
	require.Len(t, insights, 2)
	assert.Contains(t, insights[0], "Weekend campaigns")
	assert.Contains(t, insights[1], "Mobile users")
}
