package backend

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/pokescan/internal/backend/auth"
	"github.com/jo-hoe/pokescan/internal/backend/database"
)

type collectionAddRequest struct {
	PokemonName string          `json:"pokemon_name" validate:"required"`
	PokemonID   int             `json:"pokemon_id" validate:"required,gt=0"`
	PokemonData json.RawMessage `json:"pokemon_data,omitempty"`
}

func (s *APIService) listCollectionHandler(ctx echo.Context) error {
	claims, ok := auth.CurrentUser(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	entries, err := s.db.ListCollection(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return writeError(ctx, err)
	}
	if entries == nil {
		entries = []*database.CollectionEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (s *APIService) addCollectionHandler(ctx echo.Context) error {
	claims, ok := auth.CurrentUser(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	var req collectionAddRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	entry, err := s.db.AddCollectionEntry(ctx.Request().Context(), claims.UserID, req.PokemonName, req.PokemonID, req.PokemonData)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (s *APIService) removeCollectionHandler(ctx echo.Context) error {
	claims, ok := auth.CurrentUser(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	entryID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"detail": "invalid collection entry id"})
	}

	if err := s.db.RemoveCollectionEntry(ctx.Request().Context(), claims.UserID, entryID); err != nil {
		return writeError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) countCollectionHandler(ctx echo.Context) error {
	claims, ok := auth.CurrentUser(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	count, err := s.db.CountCollection(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"count":     count,
		"max":       s.config.MaxCollectionSize,
		"remaining": s.config.MaxCollectionSize - count,
	})
}
