package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

func TestReportRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewUserRepo(db)
	repo := NewReportRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, userRepo, "report@example.com", "reporter")

	report, err := repo.Create(ctx, &domain.Report{
		UserID:       owner.ID,
		ReportName:   "Marketing Overview",
		ReportID:     "abc-123",
		WorkspaceID:  "ws-1",
		DatasetID:    "ds-1",
		ReportType:   domain.ReportTypeDashboard,
		Category:     "marketing",
		AllowedUsers: []int64{42},
		AllowedRoles: []string{domain.RoleAnalyst},
		AutoRefresh:  true,
	})
	require.NoError(t, err)

	assert.NotZero(t, report.ID)
	assert.Equal(t, "default", report.Theme)
	assert.Equal(t, []int64{42}, report.AllowedUsers)
	assert.Equal(t, []string{domain.RoleAnalyst}, report.AllowedRoles)

	byGUID, err := repo.GetByReportID(ctx, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, report.ID, byGUID.ID)

	_, err = repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportRepo_Update(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewUserRepo(db)
	repo := NewReportRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, userRepo, "upd@example.com", "updr")
	report, err := repo.Create(ctx, &domain.Report{
		UserID:      owner.ID,
		ReportName:  "Before",
		ReportID:    "upd-1",
		WorkspaceID: "ws-1",
		ReportType:  domain.ReportTypeReport,
	})
	require.NoError(t, err)

	name := "After"
	isPublic := true
	schedule := domain.RefreshDaily

	updated, err := repo.Update(ctx, report.ID, domain.ReportUpdate{
		ReportName:      &name,
		IsPublic:        &isPublic,
		RefreshSchedule: &schedule,
		AllowedRoles:    []string{domain.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.ReportName)
	assert.True(t, updated.IsPublic)
	assert.Equal(t, domain.RefreshDaily, updated.RefreshSchedule)
	assert.Equal(t, []string{domain.RoleAdmin}, updated.AllowedRoles)
}

func TestReportRepo_UsageTracking(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewUserRepo(db)
	repo := NewReportRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, userRepo, "usage@example.com", "usage")
	report, err := repo.Create(ctx, &domain.Report{
		UserID:      owner.ID,
		ReportName:  "Tracked",
		ReportID:    "usage-1",
		WorkspaceID: "ws-1",
		ReportType:  domain.ReportTypeDashboard,
	})
	require.NoError(t, err)

	require.NoError(t, repo.RecordView(ctx, report.ID))
	require.NoError(t, repo.RecordView(ctx, report.ID))
	require.NoError(t, repo.SetFavorite(ctx, report.ID, 1))

	found, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.ViewCount)
	assert.Equal(t, int64(1), found.FavoriteCount)
	assert.NotNil(t, found.LastViewed)

	// Unfavorite never drops below zero
	require.NoError(t, repo.SetFavorite(ctx, report.ID, -5))
	found, err = repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Zero(t, found.FavoriteCount)
}

func TestReportRepo_SaveEmbedToken(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewUserRepo(db)
	repo := NewReportRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, userRepo, "embed@example.com", "embedder")
	report, err := repo.Create(ctx, &domain.Report{
		UserID:      owner.ID,
		ReportName:  "Embedded",
		ReportID:    "embed-1",
		WorkspaceID: "ws-1",
		ReportType:  domain.ReportTypeReport,
	})
	require.NoError(t, err)
	assert.Empty(t, report.EmbedToken)
	assert.Nil(t, report.TokenExpiry)

	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, repo.SaveEmbedToken(ctx, report.ID, "token-abc", expiry))

	found, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "token-abc", found.EmbedToken)
	require.NotNil(t, found.TokenExpiry)
	assert.WithinDuration(t, expiry, *found.TokenExpiry, time.Second)

	assert.ErrorIs(t, repo.SaveEmbedToken(ctx, 999999, "x", expiry), domain.ErrReportNotFound)
}

func TestReportRepo_MarkRefreshed(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewUserRepo(db)
	repo := NewReportRepo(db)
	ctx := context.Background()

	owner := createTestUser(t, userRepo, "refresh@example.com", "refresher")
	report, err := repo.Create(ctx, &domain.Report{
		UserID:      owner.ID,
		ReportName:  "Refreshed",
		ReportID:    "refresh-1",
		WorkspaceID: "ws-1",
		ReportType:  domain.ReportTypeDashboard,
	})
	require.NoError(t, err)
	require.Nil(t, report.LastRefresh)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkRefreshed(ctx, report.ID, at))

	found, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastRefresh)
	assert.WithinDuration(t, at, *found.LastRefresh, time.Second)
}
