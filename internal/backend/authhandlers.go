package backend

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/pokescan/internal/backend/auth"
	"github.com/jo-hoe/pokescan/internal/backend/database"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(user *database.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

func (s *APIService) registerHandler(ctx echo.Context) error {
	var req registerRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return writeError(ctx, err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("registerHandler: failed to hash password", "error", err)
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error"})
	}

	user, err := s.db.CreateUser(ctx.Request().Context(), req.Username, req.Email, hash)
	if err != nil {
		return writeError(ctx, err)
	}

	slog.Info("registerHandler: user registered", "user_id", user.ID, "username", user.Username)
	return ctx.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *APIService) loginHandler(ctx echo.Context) error {
	var req loginRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	user, err := s.db.GetUserByUsername(ctx.Request().Context(), req.Username)
	if err != nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		// One message for both cases so usernames cannot be probed.
		return ctx.JSON(http.StatusUnauthorized, echo.Map{"detail": "incorrect username or password"})
	}

	pair, err := s.jwt.SignPair(user.ID, user.Username)
	if err != nil {
		slog.Error("loginHandler: failed to sign tokens", "error", err)
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error"})
	}

	slog.Info("loginHandler: user logged in", "user_id", user.ID)
	return ctx.JSON(http.StatusOK, pair)
}

func (s *APIService) refreshHandler(ctx echo.Context) error {
	var req refreshRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	claims, err := s.jwt.Verify(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return writeError(ctx, err)
	}

	// The user may have been deleted since the token was issued.
	user, err := s.db.GetUserByID(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, echo.Map{"detail": "invalid or expired token"})
	}

	pair, err := s.jwt.SignPair(user.ID, user.Username)
	if err != nil {
		slog.Error("refreshHandler: failed to sign tokens", "error", err)
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error"})
	}
	return ctx.JSON(http.StatusOK, pair)
}

func (s *APIService) meHandler(ctx echo.Context) error {
	claims, ok := auth.CurrentUser(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	user, err := s.db.GetUserByID(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toUserResponse(user))
}
