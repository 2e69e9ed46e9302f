package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

// reportColumns must match the Scan order in scanReport.
const reportColumns = `id, user_id, report_name, report_id, workspace_id, dataset_id,
	report_type, category, description, embed_url, embed_token, token_expiry,
	is_public, allowed_users, allowed_roles,
	refresh_schedule, last_refresh, auto_refresh, theme, layout_settings, filter_defaults,
	view_count, last_viewed, favorite_count, created_at, updated_at`

// ReportRepo implements domain.ReportRepository backed by PostgreSQL.
// Access lists are stored as JSONB arrays.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db.DB}
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var (
		r            domain.Report
		tokenExpiry  sql.NullTime
		allowedUsers []byte
		allowedRoles []byte
		lastRefresh  sql.NullTime
		lastViewed   sql.NullTime
		layout       []byte
		filters      []byte
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.ReportName, &r.ReportID, &r.WorkspaceID, &r.DatasetID,
		&r.ReportType, &r.Category, &r.Description, &r.EmbedURL, &r.EmbedToken, &tokenExpiry,
		&r.IsPublic,
		&allowedUsers, &allowedRoles, &r.RefreshSchedule, &lastRefresh, &r.AutoRefresh,
		&r.Theme, &layout, &filters, &r.ViewCount, &lastViewed, &r.FavoriteCount,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tokenExpiry.Valid {
		r.TokenExpiry = &tokenExpiry.Time
	}
	if len(allowedUsers) > 0 {
		if err := json.Unmarshal(allowedUsers, &r.AllowedUsers); err != nil {
			return nil, fmt.Errorf("failed to decode allowed users: %w", err)
		}
	}
	if len(allowedRoles) > 0 {
		if err := json.Unmarshal(allowedRoles, &r.AllowedRoles); err != nil {
			return nil, fmt.Errorf("failed to decode allowed roles: %w", err)
		}
	}
	if lastRefresh.Valid {
		r.LastRefresh = &lastRefresh.Time
	}
	if lastViewed.Valid {
		r.LastViewed = &lastViewed.Time
	}
	r.LayoutSettings = layout
	r.FilterDefaults = filters
	return &r, nil
}

func encodeList[T any](list []T) (any, error) {
	if list == nil {
		return nil, nil
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode access list: %w", err)
	}
	return raw, nil
}

func (r *ReportRepo) Create(ctx context.Context, report *domain.Report) (created *domain.Report, err error) {
	defer observe("report_create", time.Now(), &err)

	users, err := encodeList(report.AllowedUsers)
	if err != nil {
		return nil, err
	}
	roles, err := encodeList(report.AllowedRoles)
	if err != nil {
		return nil, err
	}

	theme := report.Theme
	if theme == "" {
		theme = "default"
	}

	created, err = scanReport(r.db.QueryRowContext(ctx, `
		INSERT INTO powerbi_reports (user_id, report_name, report_id, workspace_id, dataset_id,
			report_type, category, description, embed_url, is_public, allowed_users, allowed_roles,
			refresh_schedule, auto_refresh, theme, layout_settings, filter_defaults, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		RETURNING `+reportColumns+`
	`, report.UserID, report.ReportName, report.ReportID, report.WorkspaceID, report.DatasetID,
		report.ReportType, report.Category, report.Description, report.EmbedURL, report.IsPublic,
		users, roles, report.RefreshSchedule, report.AutoRefresh, theme,
		nullJSON(report.LayoutSettings), nullJSON(report.FilterDefaults)))
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return created, nil
}

func (r *ReportRepo) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	report, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM powerbi_reports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *ReportRepo) GetByReportID(ctx context.Context, reportID string) (*domain.Report, error) {
	report, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM powerbi_reports WHERE report_id = $1`, reportID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *ReportRepo) List(ctx context.Context, category string, limit, offset int) (reports []*domain.Report, err error) {
	defer observe("report_list", time.Now(), &err)

	query := `SELECT ` + reportColumns + ` FROM powerbi_reports`
	args := []any{}
	if category != "" {
		args = append(args, category)
		query += ` WHERE category = $1`
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY view_count DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

func (r *ReportRepo) Update(ctx context.Context, id int64, update domain.ReportUpdate) (report *domain.Report, err error) {
	defer observe("report_update", time.Now(), &err)

	set := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.ReportName != nil {
		add("report_name", *update.ReportName)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.IsPublic != nil {
		add("is_public", *update.IsPublic)
	}
	if update.AllowedUsers != nil {
		users, err := encodeList(update.AllowedUsers)
		if err != nil {
			return nil, err
		}
		add("allowed_users", users)
	}
	if update.AllowedRoles != nil {
		roles, err := encodeList(update.AllowedRoles)
		if err != nil {
			return nil, err
		}
		add("allowed_roles", roles)
	}
	if update.RefreshSchedule != nil {
		add("refresh_schedule", *update.RefreshSchedule)
	}
	if update.AutoRefresh != nil {
		add("auto_refresh", *update.AutoRefresh)
	}
	if update.Theme != nil {
		add("theme", *update.Theme)
	}
	if update.LayoutSettings != nil {
		add("layout_settings", []byte(update.LayoutSettings))
	}
	if update.FilterDefaults != nil {
		add("filter_defaults", []byte(update.FilterDefaults))
	}

	query := `UPDATE powerbi_reports SET ` + strings.Join(set, ", ") +
		` WHERE id = $1 RETURNING ` + reportColumns

	report, err = scanReport(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	return report, nil
}

func (r *ReportRepo) RecordView(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE powerbi_reports SET view_count = view_count + 1, last_viewed = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

// SetFavorite adjusts the favorite counter by delta, clamped at zero.
func (r *ReportRepo) SetFavorite(ctx context.Context, id int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE powerbi_reports SET favorite_count = GREATEST(favorite_count + $2, 0), updated_at = NOW() WHERE id = $1`,
		id, delta)
	if err != nil {
		return fmt.Errorf("failed to update favorite count: %w", err)
	}
	return nil
}

// SaveEmbedToken caches the last generated embed token on the row so
// the frontend can resume an embed session without a fresh GenerateToken.
func (r *ReportRepo) SaveEmbedToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE powerbi_reports SET embed_token = $2, token_expiry = $3, updated_at = NOW() WHERE id = $1`,
		id, token, expiry)
	if err != nil {
		return fmt.Errorf("failed to save embed token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepo) MarkRefreshed(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE powerbi_reports SET last_refresh = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark report refreshed: %w", err)
	}
	return nil
}

func (r *ReportRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM powerbi_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}
