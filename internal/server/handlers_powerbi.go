package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
	"github.com/Subaashini27/precision-marketing-intelligence/internal/powerbi"
)

type createReportRequest struct {
	ReportName  string `json:"report_name" validate:"required,max=200"`
	ReportID    string `json:"report_id" validate:"required,max=100"`
	WorkspaceID string `json:"workspace_id" validate:"required,max=100"`
	DatasetID   string `json:"dataset_id" validate:"max=100"`

	ReportType  string `json:"report_type" validate:"omitempty,oneof=dashboard report paginated"`
	Category    string `json:"category" validate:"max=100"`
	Description string `json:"description"`

	IsPublic     bool     `json:"is_public"`
	AllowedUsers []int64  `json:"allowed_users"`
	AllowedRoles []string `json:"allowed_roles"`

	RefreshSchedule string `json:"refresh_schedule" validate:"omitempty,oneof=daily weekly monthly"`
	AutoRefresh     bool   `json:"auto_refresh"`
	Theme           string `json:"theme" validate:"max=50"`

	LayoutSettings json.RawMessage `json:"layout_settings"`
	FilterDefaults json.RawMessage `json:"filter_defaults"`
}

type updateReportRequest struct {
	ReportName      *string         `json:"report_name" validate:"omitempty,max=200"`
	Category        *string         `json:"category" validate:"omitempty,max=100"`
	Description     *string         `json:"description"`
	IsPublic        *bool           `json:"is_public"`
	AllowedUsers    []int64         `json:"allowed_users"`
	AllowedRoles    []string        `json:"allowed_roles"`
	RefreshSchedule *string         `json:"refresh_schedule" validate:"omitempty,oneof=daily weekly monthly"`
	AutoRefresh     *bool           `json:"auto_refresh"`
	Theme           *string         `json:"theme" validate:"omitempty,max=50"`
	LayoutSettings  json.RawMessage `json:"layout_settings"`
	FilterDefaults  json.RawMessage `json:"filter_defaults"`
}

// reportResponse augments stored metadata with computed fields.
type reportResponse struct {
	*domain.Report
	PopularityScore float64 `json:"popularity_score"`
	NeedsRefresh    bool    `json:"needs_refresh"`
}

func newReportResponse(report *domain.Report) reportResponse {
	return reportResponse{
		Report:          report,
		PopularityScore: report.PopularityScore(),
		NeedsRefresh:    report.NeedsRefresh(time.Now()),
	}
}

// requirePowerBI guards routes that need the REST wrapper.
func (s *Server) requirePowerBI() (powerBIClient, error) {
	if s.deps.PowerBI == nil {
		return nil, apperrors.UnavailableError("Power BI integration not configured")
	}
	return s.deps.PowerBI, nil
}

// loadAccessibleReport fetches a report and enforces the access list.
func (s *Server) loadAccessibleReport(c echo.Context, id int64) (*domain.Report, *domain.User, error) {
	ctx := c.Request().Context()

	report, err := s.deps.Reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, nil, apperrors.NotFoundError("report not found").WithField("report_id", id)
		}
		return nil, nil, apperrors.InternalError("failed to load report", err)
	}

	user, err := s.deps.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		return nil, nil, apperrors.InternalError("failed to load user", err)
	}

	if !report.AccessibleBy(user) {
		return nil, nil, apperrors.ForbiddenError("no access to this report").WithField("report_id", id)
	}
	return report, user, nil
}

func (s *Server) handleCreateReport(c echo.Context) error {
	var req createReportRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	reportType := req.ReportType
	if reportType == "" {
		reportType = domain.ReportTypeReport
	}
	theme := req.Theme
	if theme == "" {
		theme = "default"
	}

	// Each Power BI report registers at most once
	if _, err := s.deps.Reports.GetByReportID(c.Request().Context(), req.ReportID); err == nil {
		return apperrors.ConflictError("report already registered").WithField("report_id", req.ReportID)
	} else if !errors.Is(err, domain.ErrReportNotFound) {
		return apperrors.InternalError("failed to check report", err)
	}

	report, err := s.deps.Reports.Create(c.Request().Context(), &domain.Report{
		UserID:          currentUserID(c),
		ReportName:      req.ReportName,
		ReportID:        req.ReportID,
		WorkspaceID:     req.WorkspaceID,
		DatasetID:       req.DatasetID,
		ReportType:      reportType,
		Category:        req.Category,
		Description:     req.Description,
		IsPublic:        req.IsPublic,
		AllowedUsers:    req.AllowedUsers,
		AllowedRoles:    req.AllowedRoles,
		RefreshSchedule: req.RefreshSchedule,
		AutoRefresh:     req.AutoRefresh,
		Theme:           theme,
		LayoutSettings:  req.LayoutSettings,
		FilterDefaults:  req.FilterDefaults,
	})
	if err != nil {
		return apperrors.InternalError("failed to create report", err)
	}
	return c.JSON(201, newReportResponse(report))
}

func (s *Server) handleListReports(c echo.Context) error {
	category := c.QueryParam("category")
	limit := intQuery(c, "limit", 50, 200)
	offset := intQuery(c, "offset", 0, 0)

	ctx := c.Request().Context()
	reports, err := s.deps.Reports.List(ctx, category, limit, offset)
	if err != nil {
		return apperrors.InternalError("failed to list reports", err)
	}

	user, err := s.deps.Users.GetByID(ctx, currentUserID(c))
	if err != nil {
		return apperrors.InternalError("failed to load user", err)
	}

	out := make([]reportResponse, 0, len(reports))
	for _, report := range reports {
		if report.AccessibleBy(user) {
			out = append(out, newReportResponse(report))
		}
	}
	return c.JSON(200, out)
}

func (s *Server) handleGetReport(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, _, err := s.loadAccessibleReport(c, id)
	if err != nil {
		return err
	}
	return c.JSON(200, newReportResponse(report))
}

func (s *Server) handleUpdateReport(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	report, _, err := s.loadAccessibleReport(c, id)
	if err != nil {
		return err
	}
	if report.UserID != currentUserID(c) && currentRole(c) != domain.RoleAdmin {
		return apperrors.ForbiddenError("only the owner can modify a report")
	}

	var req updateReportRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := s.deps.Reports.Update(c.Request().Context(), id, domain.ReportUpdate{
		ReportName:      req.ReportName,
		Category:        req.Category,
		Description:     req.Description,
		IsPublic:        req.IsPublic,
		AllowedUsers:    req.AllowedUsers,
		AllowedRoles:    req.AllowedRoles,
		RefreshSchedule: req.RefreshSchedule,
		AutoRefresh:     req.AutoRefresh,
		Theme:           req.Theme,
		LayoutSettings:  req.LayoutSettings,
		FilterDefaults:  req.FilterDefaults,
	})
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return apperrors.NotFoundError("report not found")
		}
		return apperrors.InternalError("failed to update report", err)
	}
	return c.JSON(200, newReportResponse(updated))
}

func (s *Server) handleDeleteReport(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	report, _, err := s.loadAccessibleReport(c, id)
	if err != nil {
		return err
	}
	if report.UserID != currentUserID(c) && currentRole(c) != domain.RoleAdmin {
		return apperrors.ForbiddenError("only the owner can delete a report")
	}

	if err := s.deps.Reports.Delete(c.Request().Context(), id); err != nil {
		return apperrors.InternalError("failed to delete report", err)
	}
	return c.NoContent(204)
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (s *Server) handleFavoriteReport(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, _, err := s.loadAccessibleReport(c, id); err != nil {
		return err
	}

	var req favoriteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	delta := 1
	if !req.Favorite {
		delta = -1
	}
	if err := s.deps.Reports.SetFavorite(c.Request().Context(), id, delta); err != nil {
		return apperrors.InternalError("failed to update favorite count", err)
	}
	return c.JSON(200, map[string]string{"status": "ok"})
}

// handleEmbedConfig returns everything the frontend needs to embed a
// report: embed URL, token, and expiry. Configs are served from the
// Redis cache while the token is still comfortably valid.
func (s *Server) handleEmbedConfig(c echo.Context) error {
	client, err := s.requirePowerBI()
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, user, err := s.loadAccessibleReport(c, id)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	if err := s.deps.Reports.RecordView(ctx, id); err != nil {
		slog.Warn("Failed to record report view", "report_id", id, "error", err)
	}

	if s.deps.EmbedCache != nil {
		var cached powerbi.EmbedConfig
		if err := s.deps.EmbedCache.Get(ctx, report.ReportID, user.Role, &cached); err == nil {
			return c.JSON(200, cached)
		}
	}

	// Row-level security: the embed token carries the caller's identity
	// so Power BI filters rows by role.
	var identities []powerbi.EffectiveIdentity
	if report.DatasetID != "" {
		identities = []powerbi.EffectiveIdentity{{
			Username: user.Email,
			Roles:    []string{user.Role},
			Datasets: []string{report.DatasetID},
		}}
	}

	embedConfig, err := client.GetEmbedConfig(ctx, report.WorkspaceID, report.ReportID, identities)
	if err != nil {
		return apperrors.ExternalError("failed to generate embed configuration", err)
	}

	// Keep the freshest token on the row so the frontend can resume an
	// embed session without another GenerateToken round trip
	if err := s.deps.Reports.SaveEmbedToken(ctx, id, embedConfig.AccessToken, embedConfig.Expiration); err != nil {
		slog.Warn("Failed to save embed token", "report_id", id, "error", err)
	}

	if s.deps.EmbedCache != nil {
		s.deps.EmbedCache.Set(ctx, report.ReportID, user.Role, embedConfig, embedConfig.Expiration, time.Now())
	}

	return c.JSON(200, embedConfig)
}

func (s *Server) handleRefreshReport(c echo.Context) error {
	client, err := s.requirePowerBI()
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, _, err := s.loadAccessibleReport(c, id)
	if err != nil {
		return err
	}
	if report.DatasetID == "" {
		return apperrors.ValidationError("report has no dataset to refresh")
	}

	ctx := c.Request().Context()
	if err := client.RefreshDataset(ctx, report.WorkspaceID, report.DatasetID); err != nil {
		return apperrors.ExternalError("failed to trigger dataset refresh", err)
	}

	if err := s.deps.Reports.MarkRefreshed(ctx, id, time.Now()); err != nil {
		slog.Warn("Failed to record refresh time", "report_id", id, "error", err)
	}
	if s.deps.EmbedCache != nil {
		if err := s.deps.EmbedCache.Invalidate(ctx, report.ReportID); err != nil {
			slog.Warn("Failed to invalidate embed cache", "report_id", report.ReportID, "error", err)
		}
	}

	// Power BI accepts the refresh asynchronously
	return c.JSON(202, map[string]string{"status": "refresh_started"})
}

func (s *Server) handleRefreshHistory(c echo.Context) error {
	client, err := s.requirePowerBI()
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, _, err := s.loadAccessibleReport(c, id)
	if err != nil {
		return err
	}
	if report.DatasetID == "" {
		return apperrors.ValidationError("report has no dataset")
	}

	top := intQuery(c, "top", 10, 100)
	history, err := client.GetRefreshHistory(c.Request().Context(), report.WorkspaceID, report.DatasetID, top)
	if err != nil {
		return apperrors.ExternalError("failed to fetch refresh history", err)
	}
	return c.JSON(200, history)
}

func (s *Server) handleReportPages(c echo.Context) error {
	client, err := s.requirePowerBI()
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	report, _, err := s.loadAccessibleReport(c, id)
	if err != nil {
		return err
	}

	pages, err := client.ListPages(c.Request().Context(), report.WorkspaceID, report.ReportID)
	if err != nil {
		return apperrors.ExternalError("failed to list report pages", err)
	}
	return c.JSON(200, pages)
}

func (s *Server) handleListWorkspaces(c echo.Context) error {
	client, err := s.requirePowerBI()
	if err != nil {
		return err
	}

	workspaces, err := client.ListWorkspaces(c.Request().Context())
	if err != nil {
		return apperrors.ExternalError("failed to list workspaces", err)
	}
	return c.JSON(200, workspaces)
}

func (s *Server) handleWorkspaceReports(c echo.Context) error {
	client, err := s.requirePowerBI()
	if err != nil {
		return err
	}

	reports, err := client.ListReports(c.Request().Context(), c.Param("workspaceID"))
	if err != nil {
		return apperrors.ExternalError("failed to list workspace reports", err)
	}
	return c.JSON(200, reports)
}

func (s *Server) handleWorkspaceDatasets(c echo.Context) error {
	client, err := s.requirePowerBI()
	if err != nil {
		return err
	}

	datasets, err := client.ListDatasets(c.Request().Context(), c.Param("workspaceID"))
	if err != nil {
		return apperrors.ExternalError("failed to list workspace datasets", err)
	}
	return c.JSON(200, datasets)
}

func (s *Server) handlePowerBIStatus(c echo.Context) error {
	if s.deps.PowerBI == nil {
		return c.JSON(200, map[string]any{"status": "not_configured"})
	}

	status, err := s.deps.PowerBI.Status(c.Request().Context())
	if err != nil {
		return c.JSON(200, map[string]any{"status": "unreachable", "error": err.Error()})
	}
	return c.JSON(200, status)
}
