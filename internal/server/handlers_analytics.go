package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
)

type createAnalyticsRequest struct {
	CampaignID   *int64    `json:"campaign_id"`
	DataSource   string    `json:"data_source" validate:"required,max=100"`
	MetricDate   time.Time `json:"metric_date" validate:"required"`
	MetricPeriod string    `json:"metric_period" validate:"omitempty,oneof=daily weekly monthly"`

	Impressions int64   `json:"impressions" validate:"gte=0"`
	Clicks      int64   `json:"clicks" validate:"gte=0"`
	Conversions int64   `json:"conversions" validate:"gte=0"`
	Spend       float64 `json:"spend" validate:"gte=0"`
	Revenue     float64 `json:"revenue" validate:"gte=0"`

	Channel   string `json:"channel"`
	AdGroup   string `json:"ad_group"`
	Keyword   string `json:"keyword"`
	Placement string `json:"placement"`

	Reach             int64   `json:"reach" validate:"gte=0"`
	Frequency         float64 `json:"frequency" validate:"gte=0"`
	UniqueVisitors    int64   `json:"unique_visitors" validate:"gte=0"`
	ReturningVisitors int64   `json:"returning_visitors" validate:"gte=0"`

	TimeOnSite   float64 `json:"time_on_site" validate:"gte=0"`
	BounceRate   float64 `json:"bounce_rate" validate:"gte=0,lte=1"`
	PageViews    int64   `json:"page_views" validate:"gte=0"`
	SocialShares int64   `json:"social_shares" validate:"gte=0"`

	CustomDimensions json.RawMessage `json:"custom_dimensions"`
	Segments         json.RawMessage `json:"segments"`

	DataConfidence float64 `json:"data_confidence" validate:"gte=0,lte=1"`
	IsEstimated    bool    `json:"is_estimated"`
}

// analyticsResponse augments the stored row with computed health fields.
type analyticsResponse struct {
	*domain.Analytics
	IsPerformingWell bool    `json:"is_performing_well"`
	NeedsAttention   bool    `json:"needs_attention"`
	EfficiencyScore  float64 `json:"efficiency_score"`
}

func newAnalyticsResponse(record *domain.Analytics) analyticsResponse {
	return analyticsResponse{
		Analytics:        record,
		IsPerformingWell: record.IsPerformingWell(),
		NeedsAttention:   record.NeedsAttention(),
		EfficiencyScore:  record.EfficiencyScore(),
	}
}

func (s *Server) analyticsFilterFromQuery(c echo.Context) (domain.AnalyticsFilter, error) {
	filter := domain.AnalyticsFilter{
		DataSource: c.QueryParam("data_source"),
		Channel:    c.QueryParam("channel"),
		Period:     c.QueryParam("period"),
		Limit:      intQuery(c, "limit", 100, 500),
		Offset:     intQuery(c, "offset", 0, 0),
	}

	if raw := c.QueryParam("campaign_id"); raw != "" {
		id, err := pathIDValue(raw)
		if err != nil {
			return filter, apperrors.ValidationError("invalid campaign_id").WithField("campaign_id", raw)
		}
		filter.CampaignID = &id
	}
	if raw := c.QueryParam("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, apperrors.ValidationError("from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, apperrors.ValidationError("to must be YYYY-MM-DD")
		}
		filter.To = &to
	}
	if filter.Period != "" {
		switch filter.Period {
		case domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly:
		default:
			return filter, apperrors.ValidationError("invalid period").WithField("period", filter.Period)
		}
	}
	return filter, nil
}

func (s *Server) handleCreateAnalytics(c echo.Context) error {
	var req createAnalyticsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	period := req.MetricPeriod
	if period == "" {
		period = domain.PeriodDaily
	}

	record := &domain.Analytics{
		UserID:            currentUserID(c),
		CampaignID:        req.CampaignID,
		DataSource:        req.DataSource,
		MetricDate:        req.MetricDate,
		MetricPeriod:      period,
		Impressions:       req.Impressions,
		Clicks:            req.Clicks,
		Conversions:       req.Conversions,
		Spend:             req.Spend,
		Revenue:           req.Revenue,
		Channel:           req.Channel,
		AdGroup:           req.AdGroup,
		Keyword:           req.Keyword,
		Placement:         req.Placement,
		Reach:             req.Reach,
		Frequency:         req.Frequency,
		UniqueVisitors:    req.UniqueVisitors,
		ReturningVisitors: req.ReturningVisitors,
		TimeOnSite:        req.TimeOnSite,
		BounceRate:        req.BounceRate,
		PageViews:         req.PageViews,
		SocialShares:      req.SocialShares,
		CustomDimensions:  req.CustomDimensions,
		Segments:          req.Segments,
		DataConfidence:    req.DataConfidence,
		IsEstimated:       req.IsEstimated,
	}
	record.RecomputeRates()

	ctx := c.Request().Context()
	created, err := s.deps.Analytics.Create(ctx, record)
	if err != nil {
		return apperrors.InternalError("failed to create analytics record", err)
	}

	// New rows change every aggregate for this user
	if s.deps.Summaries != nil {
		if err := s.deps.Summaries.Invalidate(ctx, created.UserID); err != nil {
			slog.Warn("Failed to invalidate summary cache", "user_id", created.UserID, "error", err)
		}
	}

	return c.JSON(201, newAnalyticsResponse(created))
}

func (s *Server) handleListAnalytics(c echo.Context) error {
	filter, err := s.analyticsFilterFromQuery(c)
	if err != nil {
		return err
	}

	records, err := s.deps.Analytics.ListByUser(c.Request().Context(), currentUserID(c), filter)
	if err != nil {
		return apperrors.InternalError("failed to list analytics", err)
	}

	out := make([]analyticsResponse, 0, len(records))
	for _, record := range records {
		out = append(out, newAnalyticsResponse(record))
	}
	return c.JSON(200, out)
}

func (s *Server) handleGetAnalytics(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	record, err := s.deps.Analytics.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAnalyticsNotFound) {
			return apperrors.NotFoundError("analytics record not found")
		}
		return apperrors.InternalError("failed to load analytics record", err)
	}
	if record.UserID != currentUserID(c) && currentRole(c) != domain.RoleAdmin {
		return apperrors.ForbiddenError("analytics record belongs to another user")
	}
	return c.JSON(200, newAnalyticsResponse(record))
}

func (s *Server) handleAnalyticsSummary(c echo.Context) error {
	filter, err := s.analyticsFilterFromQuery(c)
	if err != nil {
		return err
	}

	userID := currentUserID(c)
	ctx := c.Request().Context()

	var summary *domain.AnalyticsSummary
	if s.deps.Summaries != nil {
		summary, err = s.deps.Summaries.Summary(ctx, userID, filter)
	} else {
		summary, err = s.deps.Analytics.Summary(ctx, userID, filter)
	}
	if err != nil {
		return apperrors.InternalError("failed to compute analytics summary", err)
	}
	return c.JSON(200, summary)
}

func (s *Server) handleDeleteAnalytics(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	record, err := s.deps.Analytics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAnalyticsNotFound) {
			return apperrors.NotFoundError("analytics record not found")
		}
		return apperrors.InternalError("failed to load analytics record", err)
	}
	if record.UserID != currentUserID(c) && currentRole(c) != domain.RoleAdmin {
		return apperrors.ForbiddenError("analytics record belongs to another user")
	}

	if err := s.deps.Analytics.Delete(ctx, id); err != nil {
		return apperrors.InternalError("failed to delete analytics record", err)
	}

	if s.deps.Summaries != nil {
		if err := s.deps.Summaries.Invalidate(ctx, record.UserID); err != nil {
			slog.Warn("Failed to invalidate summary cache", "user_id", record.UserID, "error", err)
		}
	}
	return c.NoContent(204)
}
