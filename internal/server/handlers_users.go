package server

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
)

type updateProfileRequest struct {
	FullName string `json:"full_name" validate:"max=100"`
	Company  string `json:"company" validate:"max=100"`
	Position string `json:"position" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=30"`
	Timezone string `json:"timezone" validate:"max=50"`
	Language string `json:"language" validate:"max=10"`
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := pathIDValue(c.Param(name))
	if err != nil {
		return 0, apperrors.ValidationError("invalid id").WithField(name, c.Param(name))
	}
	return id, nil
}

func pathIDValue(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func intQuery(c echo.Context, name string, def, max int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func (s *Server) handleListUsers(c echo.Context) error {
	limit := intQuery(c, "limit", 50, 200)
	offset := intQuery(c, "offset", 0, 0)

	users, err := s.deps.Users.List(c.Request().Context(), limit, offset)
	if err != nil {
		return apperrors.InternalError("failed to list users", err)
	}
	return c.JSON(200, users)
}

func (s *Server) handleGetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	// Regular users may only read their own record
	if id != currentUserID(c) && currentRole(c) != domain.RoleAdmin {
		return apperrors.ForbiddenError("cannot access other users")
	}

	user, err := s.deps.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.NotFoundError("user not found")
		}
		return apperrors.InternalError("failed to load user", err)
	}
	return c.JSON(200, user)
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := s.deps.Users.UpdateProfile(c.Request().Context(), currentUserID(c), domain.UserUpdate{
		FullName: req.FullName,
		Company:  req.Company,
		Position: req.Position,
		Phone:    req.Phone,
		Timezone: req.Timezone,
		Language: req.Language,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.NotFoundError("user not found")
		}
		return apperrors.InternalError("failed to update profile", err)
	}
	return c.JSON(200, user)
}

func (s *Server) handleDeleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := s.deps.Users.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.NotFoundError("user not found")
		}
		return apperrors.InternalError("failed to delete user", err)
	}
	return c.NoContent(204)
}
