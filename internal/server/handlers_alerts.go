package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/alert"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard origin enforcement happens at the token check
	},
}

// handleAlertsWebSocket upgrades the connection and attaches it to the
// alert hub. Browsers cannot set headers on WebSocket dials, so the
// bearer token arrives as a query parameter.
func (s *Server) handleAlertsWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		return apperrors.UnauthorizedError("missing token")
	}
	if _, err := s.parseToken(token); err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		return apperrors.UnauthorizedError("invalid or expired token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		return apperrors.InternalError("websocket upgrade failed", err)
	}

	if err := s.deps.Hub.Register(conn); err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		conn.Close()
		return nil
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()

	// Confirm the subscription before any alert traffic
	heartbeat := map[string]string{
		"type":      "heartbeat",
		"message":   "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := conn.WriteJSON(heartbeat); err != nil {
		s.deps.Hub.Unregister(conn)
		return nil
	}

	// Reads keep pong handling alive; any error means the client left
	go func() {
		defer s.deps.Hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}

type publishAlertRequest struct {
	Type         string  `json:"type" validate:"required,max=50"`
	Severity     string  `json:"severity" validate:"omitempty,oneof=medium high"`
	CampaignID   int64   `json:"campaign_id"`
	CampaignName string  `json:"campaign_name" validate:"max=200"`
	Metric       string  `json:"metric" validate:"max=50"`
	CurrentValue float64 `json:"current_value"`
	Message      string  `json:"message" validate:"required"`
}

func (s *Server) handlePublishAlert(c echo.Context) error {
	var req publishAlertRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	severity := req.Severity
	if severity == "" {
		severity = domain.SeverityMedium
	}

	s.deps.Hub.Publish(domain.Alert{
		CampaignID:   req.CampaignID,
		CampaignName: req.CampaignName,
		Type:         req.Type,
		Severity:     severity,
		Metric:       req.Metric,
		CurrentValue: req.CurrentValue,
		Message:      req.Message,
		TriggeredAt:  time.Now().UTC(),
	})

	return c.JSON(200, map[string]any{"delivered": s.deps.Hub.ClientCount()})
}

func (s *Server) handleCheckBudget(c echo.Context) error {
	if s.deps.Alerts == nil {
		return apperrors.UnavailableError("alerting not configured")
	}

	var figures alert.BudgetFigures
	if err := c.Bind(&figures); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&figures); err != nil {
		return err
	}

	triggered, err := s.deps.Alerts.CheckBudget(c.Request().Context(), figures)
	if err != nil {
		return apperrors.InternalError("budget check failed", err)
	}

	return c.JSON(200, map[string]any{
		"triggered": triggered != nil,
		"alert":     triggered,
	})
}

func (s *Server) handleCheckPerformance(c echo.Context) error {
	if s.deps.Alerts == nil {
		return apperrors.UnavailableError("alerting not configured")
	}

	var figures alert.PerformanceFigures
	if err := c.Bind(&figures); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	triggered, err := s.deps.Alerts.CheckPerformance(c.Request().Context(), figures)
	if err != nil {
		return apperrors.InternalError("performance check failed", err)
	}

	return c.JSON(200, map[string]any{
		"triggered": len(triggered) > 0,
		"alerts":    triggered,
	})
}

// handleCheckCampaign runs the threshold checks against stored data:
// budget figures come from the campaign row, performance figures from
// the two most recent analytics rows.
func (s *Server) handleCheckCampaign(c echo.Context) error {
	if s.deps.Alerts == nil {
		return apperrors.UnavailableError("alerting not configured")
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	campaign, err := s.loadOwnedCampaign(c, id)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var triggered []domain.Alert

	budgetAlert, err := s.deps.Alerts.CheckBudget(ctx, alert.BudgetFigures{
		CampaignID:   campaign.ID,
		CampaignName: campaign.Name,
		Budget:       campaign.Budget,
		Spent:        campaign.Spend,
	})
	if err != nil {
		return apperrors.InternalError("budget check failed", err)
	}
	if budgetAlert != nil {
		triggered = append(triggered, *budgetAlert)
	}

	rows, err := s.deps.Analytics.LatestForCampaign(ctx, id, 2)
	if err != nil {
		return apperrors.InternalError("failed to load campaign analytics", err)
	}
	if len(rows) == 2 {
		current, previous := rows[0], rows[1]
		perfAlerts, err := s.deps.Alerts.CheckPerformance(ctx, alert.PerformanceFigures{
			CampaignID:             campaign.ID,
			CampaignName:           campaign.Name,
			ConversionRateCurrent:  &current.ConversionRate,
			ConversionRatePrevious: &previous.ConversionRate,
			CTRCurrent:             &current.CTR,
			CTRPrevious:            &previous.CTR,
			CPCCurrent:             &current.CPC,
			CPCPrevious:            &previous.CPC,
			RevenueCurrent:         &current.Revenue,
			RevenuePrevious:        &previous.Revenue,
		})
		if err != nil {
			return apperrors.InternalError("performance check failed", err)
		}
		triggered = append(triggered, perfAlerts...)
	}

	return c.JSON(200, map[string]any{
		"campaign_id":   campaign.ID,
		"triggered":     len(triggered) > 0,
		"alerts":        triggered,
		"compared_rows": len(rows),
	})
}

type weeklyReportRequest struct {
	alert.WeeklyFigures
	Recipients []string `json:"recipients" validate:"omitempty,dive,email"`
}

func (s *Server) handleSendWeeklyReport(c echo.Context) error {
	if s.deps.Alerts == nil {
		return apperrors.UnavailableError("alerting not configured")
	}

	var req weeklyReportRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := s.deps.Alerts.SendWeeklyReport(c.Request().Context(), req.WeeklyFigures, req.Recipients); err != nil {
		return apperrors.InternalError("failed to send weekly report", err)
	}
	return c.JSON(200, map[string]string{"status": "sent"})
}
