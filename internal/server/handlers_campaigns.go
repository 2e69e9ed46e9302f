package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/mailer"
)

type createCampaignRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description"`
	CampaignType      string          `json:"campaign_type" validate:"required,oneof=email social ppc content"`
	Status            string          `json:"status" validate:"omitempty,oneof=draft active paused completed"`
	StartDate         *time.Time      `json:"start_date"`
	EndDate           *time.Time      `json:"end_date"`
	Budget            float64         `json:"budget" validate:"gte=0"`
	TargetAudience    string          `json:"target_audience"`
	Goals             json.RawMessage `json:"goals"`
	Channels          json.RawMessage `json:"channels"`
	TargetingCriteria json.RawMessage `json:"targeting_criteria"`
	CreativeAssets    json.RawMessage `json:"creative_assets"`
}

type updateCampaignRequest struct {
	Name              *string         `json:"name" validate:"omitempty,max=200"`
	Description       *string         `json:"description"`
	CampaignType      *string         `json:"campaign_type" validate:"omitempty,oneof=email social ppc content"`
	Status            *string         `json:"status" validate:"omitempty,oneof=draft active paused completed"`
	StartDate         *time.Time      `json:"start_date"`
	EndDate           *time.Time      `json:"end_date"`
	Budget            *float64        `json:"budget" validate:"omitempty,gte=0"`
	TargetAudience    *string         `json:"target_audience"`
	Goals             json.RawMessage `json:"goals"`
	Channels          json.RawMessage `json:"channels"`
	TargetingCriteria json.RawMessage `json:"targeting_criteria"`
	CreativeAssets    json.RawMessage `json:"creative_assets"`
}

type campaignMetricsRequest struct {
	Impressions int64   `json:"impressions" validate:"gte=0"`
	Clicks      int64   `json:"clicks" validate:"gte=0"`
	Conversions int64   `json:"conversions" validate:"gte=0"`
	Spend       float64 `json:"spend" validate:"gte=0"`
	Revenue     float64 `json:"revenue" validate:"gte=0"`
}

// campaignResponse augments the stored row with computed fields.
type campaignResponse struct {
	*domain.Campaign
	PerformanceScore  float64 `json:"performance_score"`
	PerformanceLevel  string  `json:"performance_level"`
	BudgetUtilization float64 `json:"budget_utilization"`
	IsCurrentlyActive bool    `json:"is_currently_active"`
}

func newCampaignResponse(campaign *domain.Campaign) campaignResponse {
	return campaignResponse{
		Campaign:          campaign,
		PerformanceScore:  campaign.PerformanceScore(),
		PerformanceLevel:  campaign.PerformanceLevel(),
		BudgetUtilization: campaign.BudgetUtilization(),
		IsCurrentlyActive: campaign.IsActive(time.Now()),
	}
}

// loadOwnedCampaign fetches a campaign and enforces ownership; admins
// may access any campaign.
func (s *Server) loadOwnedCampaign(c echo.Context, id int64) (*domain.Campaign, error) {
	campaign, err := s.deps.Campaigns.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			return nil, apperrors.NotFoundError("campaign not found").WithField("campaign_id", id)
		}
		return nil, apperrors.InternalError("failed to load campaign", err)
	}
	if campaign.UserID != currentUserID(c) && currentRole(c) != domain.RoleAdmin {
		return nil, apperrors.ForbiddenError("campaign belongs to another user")
	}
	return campaign, nil
}

func (s *Server) handleCreateCampaign(c echo.Context) error {
	var req createCampaignRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return apperrors.ValidationError("end_date must not be before start_date")
	}

	status := req.Status
	if status == "" {
		status = domain.CampaignStatusDraft
	}

	campaign, err := s.deps.Campaigns.Create(c.Request().Context(), &domain.Campaign{
		UserID:            currentUserID(c),
		Name:              req.Name,
		Description:       req.Description,
		CampaignType:      req.CampaignType,
		Status:            status,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Budget:            req.Budget,
		TargetAudience:    req.TargetAudience,
		Goals:             req.Goals,
		Channels:          req.Channels,
		TargetingCriteria: req.TargetingCriteria,
		CreativeAssets:    req.CreativeAssets,
	})
	if err != nil {
		return apperrors.InternalError("failed to create campaign", err)
	}
	return c.JSON(201, newCampaignResponse(campaign))
}

func (s *Server) handleListCampaigns(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" {
		switch status {
		case domain.CampaignStatusDraft, domain.CampaignStatusActive, domain.CampaignStatusPaused, domain.CampaignStatusCompleted:
		default:
			return apperrors.ValidationError("invalid status filter").WithField("status", status)
		}
	}
	limit := intQuery(c, "limit", 50, 200)
	offset := intQuery(c, "offset", 0, 0)

	campaigns, err := s.deps.Campaigns.ListByUser(c.Request().Context(), currentUserID(c), status, limit, offset)
	if err != nil {
		return apperrors.InternalError("failed to list campaigns", err)
	}

	out := make([]campaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		out = append(out, newCampaignResponse(campaign))
	}
	return c.JSON(200, out)
}

func (s *Server) handleGetCampaign(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	campaign, err := s.loadOwnedCampaign(c, id)
	if err != nil {
		return err
	}
	return c.JSON(200, newCampaignResponse(campaign))
}

func (s *Server) handleUpdateCampaign(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.loadOwnedCampaign(c, id); err != nil {
		return err
	}

	var req updateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	campaign, err := s.deps.Campaigns.Update(c.Request().Context(), id, domain.CampaignUpdate{
		Name:              req.Name,
		Description:       req.Description,
		CampaignType:      req.CampaignType,
		Status:            req.Status,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Budget:            req.Budget,
		TargetAudience:    req.TargetAudience,
		Goals:             req.Goals,
		Channels:          req.Channels,
		TargetingCriteria: req.TargetingCriteria,
		CreativeAssets:    req.CreativeAssets,
	})
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			return apperrors.NotFoundError("campaign not found")
		}
		return apperrors.InternalError("failed to update campaign", err)
	}
	return c.JSON(200, newCampaignResponse(campaign))
}

func (s *Server) handleUpdateCampaignMetrics(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.loadOwnedCampaign(c, id); err != nil {
		return err
	}

	var req campaignMetricsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	campaign, err := s.deps.Campaigns.UpdateMetrics(c.Request().Context(), id, domain.CampaignMetrics{
		Impressions: req.Impressions,
		Clicks:      req.Clicks,
		Conversions: req.Conversions,
		Spend:       req.Spend,
		Revenue:     req.Revenue,
	})
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			return apperrors.NotFoundError("campaign not found")
		}
		return apperrors.InternalError("failed to update campaign metrics", err)
	}

	s.notifyCampaignUpdate(campaign)
	return c.JSON(200, newCampaignResponse(campaign))
}

// notifyCampaignUpdate emails the refreshed figures to the configured
// recipients. Delivery is best-effort and off the request path.
func (s *Server) notifyCampaignUpdate(campaign *domain.Campaign) {
	if s.deps.Mailer == nil || len(s.config.AlertRecipients) == 0 {
		return
	}

	data := mailer.CampaignUpdateData{
		CampaignID:        campaign.ID,
		CampaignName:      campaign.Name,
		Budget:            campaign.Budget,
		Spent:             campaign.Spend,
		BudgetUtilization: campaign.BudgetUtilization(),
		Impressions:       campaign.Impressions,
		Clicks:            campaign.Clicks,
		Conversions:       campaign.Conversions,
		CTR:               campaign.CTR,
		CPC:               campaign.CPC,
		ROAS:              campaign.ROAS,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.deps.Mailer.SendCampaignUpdate(ctx, s.config.AlertRecipients, data); err != nil {
			slog.Warn("Failed to send campaign update email", "campaign_id", data.CampaignID, "error", err)
		}
	}()
}

func (s *Server) handleDeleteCampaign(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.loadOwnedCampaign(c, id); err != nil {
		return err
	}

	if err := s.deps.Campaigns.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			return apperrors.NotFoundError("campaign not found")
		}
		return apperrors.InternalError("failed to delete campaign", err)
	}
	return c.NoContent(204)
}

// handleCampaignPerformance returns only the derived performance block,
// for dashboards that poll it without the full campaign payload.
func (s *Server) handleCampaignPerformance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	campaign, err := s.loadOwnedCampaign(c, id)
	if err != nil {
		return err
	}

	return c.JSON(200, map[string]any{
		"campaign_id":         campaign.ID,
		"performance_score":   campaign.PerformanceScore(),
		"performance_level":   campaign.PerformanceLevel(),
		"budget_utilization":  campaign.BudgetUtilization(),
		"ctr":                 campaign.CTR,
		"cpc":                 campaign.CPC,
		"cpa":                 campaign.CPA,
		"roas":                campaign.ROAS,
		"is_currently_active": campaign.IsActive(time.Now()),
	})
}

func (s *Server) handleCampaignPredictions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := s.loadOwnedCampaign(c, id); err != nil {
		return err
	}

	limit := intQuery(c, "limit", 20, 100)
	predictions, err := s.deps.Predictions.ListByCampaign(c.Request().Context(), id, limit)
	if err != nil {
		return apperrors.InternalError("failed to list predictions", err)
	}
	return c.JSON(200, predictions)
}
