package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/alert"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/broadcast"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/config"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/mailer"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/powerbi"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/predict"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/redis"
)

// --- in-memory repositories ---

type memUsers struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*domain.User
}

func newMemUsers() *memUsers { return &memUsers{rows: make(map[int64]*domain.User)} }

func (m *memUsers) Create(_ context.Context, email, username, fullName, hashedPassword, role string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			return nil, domain.ErrEmailTaken
		}
		if u.Username == username {
			return nil, domain.ErrUsernameTaken
		}
	}
	m.seq++
	user := &domain.User{
		ID: m.seq, Email: email, Username: username, FullName: fullName,
		HashedPassword: hashedPassword, IsActive: true, Role: role,
		Timezone: "UTC", Language: "en",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.rows[user.ID] = user
	return user, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for id := int64(1); id <= m.seq; id++ {
		if u, ok := m.rows[id]; ok {
			clone := *u
			out = append(out, &clone)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.FullName = update.FullName
	user.Company = update.Company
	user.Position = update.Position
	user.Phone = update.Phone
	if update.Timezone != "" {
		user.Timezone = update.Timezone
	}
	if update.Language != "" {
		user.Language = update.Language
	}
	user.UpdatedAt = time.Now()
	clone := *user
	return &clone, nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.rows[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	now := time.Now()
	user.LastLogin = &now
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.rows, id)
	return nil
}

type memCampaigns struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*domain.Campaign
}

func newMemCampaigns() *memCampaigns { return &memCampaigns{rows: make(map[int64]*domain.Campaign)} }

func (m *memCampaigns) Create(_ context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	clone := *campaign
	clone.ID = m.seq
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = time.Now()
	m.rows[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memCampaigns) GetByID(_ context.Context, id int64) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	clone := *campaign
	return &clone, nil
}

func (m *memCampaigns) ListByUser(_ context.Context, userID int64, status string, limit, offset int) ([]*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Campaign
	for id := int64(1); id <= m.seq; id++ {
		campaign, ok := m.rows[id]
		if !ok || campaign.UserID != userID {
			continue
		}
		if status != "" && campaign.Status != status {
			continue
		}
		clone := *campaign
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memCampaigns) Update(_ context.Context, id int64, update domain.CampaignUpdate) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	if update.Name != nil {
		campaign.Name = *update.Name
	}
	if update.Description != nil {
		campaign.Description = *update.Description
	}
	if update.CampaignType != nil {
		campaign.CampaignType = *update.CampaignType
	}
	if update.Status != nil {
		campaign.Status = *update.Status
	}
	if update.StartDate != nil {
		campaign.StartDate = update.StartDate
	}
	if update.EndDate != nil {
		campaign.EndDate = update.EndDate
	}
	if update.Budget != nil {
		campaign.Budget = *update.Budget
	}
	if update.TargetAudience != nil {
		campaign.TargetAudience = *update.TargetAudience
	}
	if update.Goals != nil {
		campaign.Goals = update.Goals
	}
	if update.Channels != nil {
		campaign.Channels = update.Channels
	}
	if update.TargetingCriteria != nil {
		campaign.TargetingCriteria = update.TargetingCriteria
	}
	if update.CreativeAssets != nil {
		campaign.CreativeAssets = update.CreativeAssets
	}
	campaign.UpdatedAt = time.Now()
	clone := *campaign
	return &clone, nil
}

func (m *memCampaigns) UpdateMetrics(_ context.Context, id int64, metrics domain.CampaignMetrics) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	campaign, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	campaign.Impressions += metrics.Impressions
	campaign.Clicks += metrics.Clicks
	campaign.Conversions += metrics.Conversions
	campaign.Spend += metrics.Spend
	if campaign.Impressions > 0 {
		campaign.CTR = float64(campaign.Clicks) / float64(campaign.Impressions)
	}
	if campaign.Clicks > 0 {
		campaign.CPC = campaign.Spend / float64(campaign.Clicks)
	}
	if campaign.Conversions > 0 {
		campaign.CPA = campaign.Spend / float64(campaign.Conversions)
	}
	if campaign.Spend > 0 {
		campaign.ROAS = metrics.Revenue / campaign.Spend
	}
	clone := *campaign
	return &clone, nil
}

func (m *memCampaigns) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrCampaignNotFound
	}
	delete(m.rows, id)
	return nil
}

type memAnalytics struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*domain.Analytics
}

func newMemAnalytics() *memAnalytics { return &memAnalytics{rows: make(map[int64]*domain.Analytics)} }

func (m *memAnalytics) Create(_ context.Context, record *domain.Analytics) (*domain.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	clone := *record
	clone.ID = m.seq
	clone.CreatedAt = time.Now()
	m.rows[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memAnalytics) GetByID(_ context.Context, id int64) (*domain.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrAnalyticsNotFound
	}
	clone := *record
	return &clone, nil
}

func (m *memAnalytics) ListByUser(_ context.Context, userID int64, filter domain.AnalyticsFilter) ([]*domain.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Analytics
	for id := int64(1); id <= m.seq; id++ {
		record, ok := m.rows[id]
		if !ok || record.UserID != userID {
			continue
		}
		if filter.DataSource != "" && record.DataSource != filter.DataSource {
			continue
		}
		if filter.CampaignID != nil && (record.CampaignID == nil || *record.CampaignID != *filter.CampaignID) {
			continue
		}
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memAnalytics) Summary(_ context.Context, userID int64, _ domain.AnalyticsFilter) (*domain.AnalyticsSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &domain.AnalyticsSummary{}
	for _, record := range m.rows {
		if record.UserID != userID {
			continue
		}
		summary.TotalImpressions += record.Impressions
		summary.TotalClicks += record.Clicks
		summary.TotalConversions += record.Conversions
		summary.TotalSpend += record.Spend
		summary.TotalRevenue += record.Revenue
		summary.RecordCount++
	}
	if summary.TotalSpend > 0 {
		summary.OverallROAS = summary.TotalRevenue / summary.TotalSpend
	}
	return summary, nil
}

func (m *memAnalytics) LatestForCampaign(_ context.Context, campaignID int64, n int) ([]*domain.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Analytics
	for id := m.seq; id >= 1 && len(out) < n; id-- {
		record, ok := m.rows[id]
		if !ok || record.CampaignID == nil || *record.CampaignID != campaignID {
			continue
		}
		clone := *record
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memAnalytics) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrAnalyticsNotFound
	}
	delete(m.rows, id)
	return nil
}

type memPredictions struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*domain.Prediction
}

func newMemPredictions() *memPredictions {
	return &memPredictions{rows: make(map[int64]*domain.Prediction)}
}

func (m *memPredictions) Create(_ context.Context, prediction *domain.Prediction) (*domain.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	clone := *prediction
	clone.ID = m.seq
	clone.CreatedAt = time.Now()
	m.rows[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memPredictions) GetByID(_ context.Context, id int64) (*domain.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prediction, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrPredictionNotFound
	}
	clone := *prediction
	return &clone, nil
}

func (m *memPredictions) ListByUser(_ context.Context, userID int64, predictionType string, limit, offset int) ([]*domain.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Prediction
	for id := int64(1); id <= m.seq; id++ {
		prediction, ok := m.rows[id]
		if !ok || prediction.UserID != userID {
			continue
		}
		if predictionType != "" && prediction.PredictionType != predictionType {
			continue
		}
		clone := *prediction
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memPredictions) ListByCampaign(_ context.Context, campaignID int64, limit int) ([]*domain.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Prediction
	for id := m.seq; id >= 1 && len(out) < limit; id-- {
		prediction, ok := m.rows[id]
		if !ok || prediction.CampaignID == nil || *prediction.CampaignID != campaignID {
			continue
		}
		clone := *prediction
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memPredictions) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrPredictionNotFound
	}
	delete(m.rows, id)
	return nil
}

type memReports struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*domain.Report
}

func newMemReports() *memReports { return &memReports{rows: make(map[int64]*domain.Report)} }

func (m *memReports) Create(_ context.Context, report *domain.Report) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	clone := *report
	clone.ID = m.seq
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = time.Now()
	m.rows[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memReports) GetByID(_ context.Context, id int64) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	clone := *report
	return &clone, nil
}

func (m *memReports) GetByReportID(_ context.Context, reportID string) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, report := range m.rows {
		if report.ReportID == reportID {
			clone := *report
			return &clone, nil
		}
	}
	return nil, domain.ErrReportNotFound
}

func (m *memReports) List(_ context.Context, category string, limit, offset int) ([]*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Report
	for id := int64(1); id <= m.seq; id++ {
		report, ok := m.rows[id]
		if !ok {
			continue
		}
		if category != "" && report.Category != category {
			continue
		}
		clone := *report
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memReports) Update(_ context.Context, id int64, update domain.ReportUpdate) (*domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	if update.ReportName != nil {
		report.ReportName = *update.ReportName
	}
	if update.Category != nil {
		report.Category = *update.Category
	}
	if update.Description != nil {
		report.Description = *update.Description
	}
	if update.IsPublic != nil {
		report.IsPublic = *update.IsPublic
	}
	if update.AllowedUsers != nil {
		report.AllowedUsers = update.AllowedUsers
	}
	if update.AllowedRoles != nil {
		report.AllowedRoles = update.AllowedRoles
	}
	if update.RefreshSchedule != nil {
		report.RefreshSchedule = *update.RefreshSchedule
	}
	if update.AutoRefresh != nil {
		report.AutoRefresh = *update.AutoRefresh
	}
	if update.Theme != nil {
		report.Theme = *update.Theme
	}
	report.UpdatedAt = time.Now()
	clone := *report
	return &clone, nil
}

func (m *memReports) RecordView(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.rows[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	report.ViewCount++
	now := time.Now()
	report.LastViewed = &now
	return nil
}

func (m *memReports) SetFavorite(_ context.Context, id int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.rows[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	report.FavoriteCount += int64(delta)
	if report.FavoriteCount < 0 {
		report.FavoriteCount = 0
	}
	return nil
}

func (m *memReports) SaveEmbedToken(_ context.Context, id int64, token string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.rows[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	report.EmbedToken = token
	report.TokenExpiry = &expiry
	return nil
}

func (m *memReports) MarkRefreshed(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.rows[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	report.LastRefresh = &at
	return nil
}

func (m *memReports) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrReportNotFound
	}
	delete(m.rows, id)
	return nil
}

// --- mock services ---

type mockSummaries struct {
	analytics   *memAnalytics
	invalidated int
}

func (m *mockSummaries) Summary(ctx context.Context, userID int64, filter domain.AnalyticsFilter) (*domain.AnalyticsSummary, error) {
	return m.analytics.Summary(ctx, userID, filter)
}

func (m *mockSummaries) Invalidate(_ context.Context, _ int64) error {
	m.invalidated++
	return nil
}

type mockEngine struct {
	result *predict.Result
	err    error
}

func (m *mockEngine) score() (*predict.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockEngine) PredictConversion(_ map[string]float64) (*predict.Result, error) {
	return m.score()
}
func (m *mockEngine) PredictChurn(_ map[string]float64) (*predict.Result, error) { return m.score() }
func (m *mockEngine) PredictROI(_ map[string]float64) (*predict.Result, error)   { return m.score() }
func (m *mockEngine) PredictCampaignPerformance(_ map[string]float64) (*predict.Result, error) {
	return m.score()
}
func (m *mockEngine) Status() map[string]any {
	return map[string]any{"status": "ready", "total_models": 4}
}

type mockPowerBI struct {
	embedConfig    *powerbi.EmbedConfig
	embedErr       error
	lastIdentities []powerbi.EffectiveIdentity
	refreshErr     error
	refreshCalled  int
	workspaces     []powerbi.Workspace
	pages          []powerbi.Page
	history        []powerbi.Refresh
}

func (m *mockPowerBI) ListWorkspaces(_ context.Context) ([]powerbi.Workspace, error) {
	return m.workspaces, nil
}
func (m *mockPowerBI) ListReports(_ context.Context, _ string) ([]powerbi.Report, error) {
	return nil, nil
}
func (m *mockPowerBI) ListDatasets(_ context.Context, _ string) ([]powerbi.Dataset, error) {
	return nil, nil
}
func (m *mockPowerBI) ListPages(_ context.Context, _, _ string) ([]powerbi.Page, error) {
	return m.pages, nil
}
func (m *mockPowerBI) GetEmbedConfig(_ context.Context, _, _ string, identities []powerbi.EffectiveIdentity) (*powerbi.EmbedConfig, error) {
	m.lastIdentities = identities
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedConfig, nil
}
func (m *mockPowerBI) RefreshDataset(_ context.Context, _, _ string) error {
	m.refreshCalled++
	return m.refreshErr
}
func (m *mockPowerBI) GetRefreshHistory(_ context.Context, _, _ string, _ int) ([]powerbi.Refresh, error) {
	return m.history, nil
}
func (m *mockPowerBI) Status(_ context.Context) (map[string]any, error) {
	return map[string]any{"status": "connected"}, nil
}

type mockEmbedCache struct {
	mu    sync.Mutex
	store map[string][]byte
	sets  int
	hits  int
}

func newMockEmbedCache() *mockEmbedCache {
	return &mockEmbedCache{store: make(map[string][]byte)}
}

func (m *mockEmbedCache) Get(_ context.Context, reportID, role string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.store[reportID+":"+role]
	if !ok {
		return redis.ErrEmbedNotCached
	}
	m.hits++
	return json.Unmarshal(data, out)
}

func (m *mockEmbedCache) Set(_ context.Context, reportID, role string, config any, _, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(config)
	if err != nil {
		return
	}
	m.store[reportID+":"+role] = data
	m.sets++
}

func (m *mockEmbedCache) Invalidate(_ context.Context, reportID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.store {
		if len(key) >= len(reportID) && key[:len(reportID)] == reportID {
			delete(m.store, key)
		}
	}
	return nil
}

type mockAlerts struct {
	budgetAlert  *domain.Alert
	perfAlerts   []domain.Alert
	weeklyCalled int

	lastBudget *alert.BudgetFigures
	lastPerf   *alert.PerformanceFigures
}

func (m *mockAlerts) CheckBudget(_ context.Context, figures alert.BudgetFigures) (*domain.Alert, error) {
	m.lastBudget = &figures
	return m.budgetAlert, nil
}
func (m *mockAlerts) CheckPerformance(_ context.Context, figures alert.PerformanceFigures) ([]domain.Alert, error) {
	m.lastPerf = &figures
	return m.perfAlerts, nil
}
func (m *mockAlerts) SendWeeklyReport(_ context.Context, _ alert.WeeklyFigures, _ []string) error {
	m.weeklyCalled++
	return nil
}

type mockMailer struct {
	mu         sync.Mutex
	alerts     int
	updates    int
	weeklies   int
	lastUpdate mailer.CampaignUpdateData
}

func (m *mockMailer) SendAlert(_ context.Context, _ []string, _ domain.Alert, _ []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts++
	return nil
}

func (m *mockMailer) SendCampaignUpdate(_ context.Context, _ []string, data mailer.CampaignUpdateData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	m.lastUpdate = data
	return nil
}

func (m *mockMailer) SendWeeklyReport(_ context.Context, _ []string, _ mailer.WeeklyReportData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weeklies++
	return nil
}

func (m *mockMailer) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *mockMailer) lastUpdateData() mailer.CampaignUpdateData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdate
}

// --- test server ---

type testServer struct {
	srv         *Server
	users       *memUsers
	campaigns   *memCampaigns
	analytics   *memAnalytics
	predictions *memPredictions
	reports     *memReports
	summaries   *mockSummaries
	embedCache  *mockEmbedCache
	engine      *mockEngine
	powerbi     *mockPowerBI
	alerts      *mockAlerts
	mailer      *mockMailer
	hub         *broadcast.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		users:       newMemUsers(),
		campaigns:   newMemCampaigns(),
		analytics:   newMemAnalytics(),
		predictions: newMemPredictions(),
		reports:     newMemReports(),
		embedCache:  newMockEmbedCache(),
		engine:      &mockEngine{result: &predict.Result{PredictionType: domain.PredictionTypeConversion, ModelVersion: "v1", Timestamp: time.Now()}},
		powerbi:     &mockPowerBI{},
		alerts:      &mockAlerts{},
		mailer:      &mockMailer{},
		hub:         broadcast.NewHub(clockwork.NewRealClock(), 8),
	}
	ts.summaries = &mockSummaries{analytics: ts.analytics}
	t.Cleanup(ts.hub.Stop)

	cfg := &config.Config{
		AppEnv:             "test",
		Port:               "0",
		JWTSecret:          "test-secret-0123456789",
		TokenExpiryMinutes: 30,
		AlertRecipients:    []string{"ops@example.com"},
	}

	ts.srv = NewServer(cfg, Deps{
		Users:       ts.users,
		Campaigns:   ts.campaigns,
		Analytics:   ts.analytics,
		Predictions: ts.predictions,
		Reports:     ts.reports,
		Summaries:   ts.summaries,
		EmbedCache:  ts.embedCache,
		Engine:      ts.engine,
		PowerBI:     ts.powerbi,
		Alerts:      ts.alerts,
		Mailer:      ts.mailer,
		Hub:         ts.hub,
	})
	return ts
}

// addUser creates a user directly and returns it with a signed token.
func (ts *testServer) addUser(t *testing.T, email, username, role string) (*domain.User, string) {
	t.Helper()
	hashed, err := hashPassword("password123")
	require.NoError(t, err)
	user, err := ts.users.Create(context.Background(), email, username, "", hashed, role)
	require.NoError(t, err)
	token, _, err := ts.srv.signToken(user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

// request performs a full round trip through the router and middleware.
func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.srv.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}
