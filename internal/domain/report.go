package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Report types.
const (
	ReportTypeDashboard = "dashboard"
	ReportTypeReport    = "report"
	ReportTypePaginated = "paginated"
)

// Refresh schedules.
const (
	RefreshDaily   = "daily"
	RefreshWeekly  = "weekly"
	RefreshMonthly = "monthly"
)

// Report is locally stored metadata for an embedded Power BI report.
type Report struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`

	ReportName  string `json:"report_name"`
	ReportID    string `json:"report_id"`
	WorkspaceID string `json:"workspace_id"`
	DatasetID   string `json:"dataset_id,omitempty"`

	ReportType  string `json:"report_type"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`

	// EmbedToken holds the last generated embed token; it never leaves
	// the API except through the embed-config endpoint.
	EmbedURL    string     `json:"embed_url,omitempty"`
	EmbedToken  string     `json:"-"`
	TokenExpiry *time.Time `json:"token_expiry,omitempty"`

	IsPublic     bool     `json:"is_public"`
	AllowedUsers []int64  `json:"allowed_users,omitempty"`
	AllowedRoles []string `json:"allowed_roles,omitempty"`

	RefreshSchedule string     `json:"refresh_schedule,omitempty"`
	LastRefresh     *time.Time `json:"last_refresh,omitempty"`
	AutoRefresh     bool       `json:"auto_refresh"`

	Theme          string          `json:"theme"`
	LayoutSettings json.RawMessage `json:"layout_settings,omitempty"`
	FilterDefaults json.RawMessage `json:"filter_defaults,omitempty"`

	ViewCount     int64      `json:"view_count"`
	LastViewed    *time.Time `json:"last_viewed,omitempty"`
	FavoriteCount int64      `json:"favorite_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessibleBy reports whether the user may view this report: public
// reports are open, otherwise owner, explicit user grant, or role grant.
func (r *Report) AccessibleBy(user *User) bool {
	if r.IsPublic {
		return true
	}
	if user == nil {
		return false
	}
	if user.ID == r.UserID {
		return true
	}
	for _, id := range r.AllowedUsers {
		if id == user.ID {
			return true
		}
	}
	for _, role := range r.AllowedRoles {
		if role == user.Role {
			return true
		}
	}
	return false
}

// NeedsRefresh reports whether the report is overdue according to its
// refresh schedule. Reports never refreshed, or without a schedule,
// are not flagged.
func (r *Report) NeedsRefresh(now time.Time) bool {
	if r.LastRefresh == nil || r.RefreshSchedule == "" {
		return false
	}

	age := now.Sub(*r.LastRefresh)
	switch r.RefreshSchedule {
	case RefreshDaily:
		return age >= 24*time.Hour
	case RefreshWeekly:
		return age >= 7*24*time.Hour
	case RefreshMonthly:
		return age >= 30*24*time.Hour
	}
	return false
}

// PopularityScore weights views (70%) against favorites (30%).
func (r *Report) PopularityScore() float64 {
	return (float64(r.ViewCount)*0.7 + float64(r.FavoriteCount)*0.3) / 100
}

// ReportUpdate carries mutable report metadata; nil pointers leave the
// corresponding column untouched.
type ReportUpdate struct {
	ReportName      *string
	Category        *string
	Description     *string
	IsPublic        *bool
	AllowedUsers    []int64
	AllowedRoles    []string
	RefreshSchedule *string
	AutoRefresh     *bool
	Theme           *string
	LayoutSettings  json.RawMessage
	FilterDefaults  json.RawMessage
}

type ReportRepository interface {
	Create(ctx context.Context, report *Report) (*Report, error)
	GetByID(ctx context.Context, id int64) (*Report, error)
	GetByReportID(ctx context.Context, reportID string) (*Report, error)
	List(ctx context.Context, category string, limit, offset int) ([]*Report, error)
	Update(ctx context.Context, id int64, update ReportUpdate) (*Report, error)
	RecordView(ctx context.Context, id int64) error
	SetFavorite(ctx context.Context, id int64, delta int) error
	SaveEmbedToken(ctx context.Context, id int64, token string, expiry time.Time) error
	MarkRefreshed(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}
