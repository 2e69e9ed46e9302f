package server

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
	apperrors "github.com/Subaashini27/precision-marketing-intelligence/internal/errors"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"full_name" validate:"max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   int64        `json:"expires_at"`
	User        *domain.User `json:"user"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return apperrors.InternalError("failed to hash password", err)
	}

	ctx := c.Request().Context()
	user, err := s.deps.Users.Create(ctx, req.Email, req.Username, req.FullName, hashed, domain.RoleUser)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return apperrors.ConflictError("email already registered")
		}
		if errors.Is(err, domain.ErrUsernameTaken) {
			return apperrors.ConflictError("username already taken")
		}
		return apperrors.InternalError("failed to create user", err)
	}

	token, expiry, err := s.signToken(user.ID, user.Role)
	if err != nil {
		return apperrors.InternalError("failed to issue token", err)
	}

	slog.Info("User registered", "user_id", user.ID, "username", user.Username)
	return c.JSON(201, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiry.Unix(),
		User:        user,
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := s.deps.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.UnauthorizedError("incorrect email or password")
		}
		return apperrors.InternalError("failed to load user", err)
	}

	if !checkPassword(user.HashedPassword, req.Password) {
		return apperrors.UnauthorizedError("incorrect email or password")
	}
	if !user.IsActive {
		return apperrors.ForbiddenError("account is deactivated")
	}

	if err := s.deps.Users.TouchLastLogin(ctx, user.ID); err != nil {
		slog.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}

	token, expiry, err := s.signToken(user.ID, user.Role)
	if err != nil {
		return apperrors.InternalError("failed to issue token", err)
	}

	slog.Info("User logged in", "user_id", user.ID)
	return c.JSON(200, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiry.Unix(),
		User:        user,
	})
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := s.deps.Users.GetByID(c.Request().Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.NotFoundError("user not found")
		}
		return apperrors.InternalError("failed to load user", err)
	}
	return c.JSON(200, user)
}
