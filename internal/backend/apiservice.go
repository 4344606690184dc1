package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jo-hoe/pokescan/internal/backend/auth"
	"github.com/jo-hoe/pokescan/internal/backend/database"
	"github.com/jo-hoe/pokescan/internal/backend/pokeapi"
	"github.com/jo-hoe/pokescan/internal/common"
)

// Scanner is the identification pipeline consumed by the API layer.
type Scanner interface {
	Scan(ctx context.Context, imageBytes []byte, mediaType string) (*pokeapi.Pokemon, error)
	Search(ctx context.Context, name string) (*pokeapi.Pokemon, error)
}

type APIService struct {
	config  *BackendConfig
	scanner Scanner
	db      database.DatabaseService
	jwt     auth.JWT
	echo    *echo.Echo
}

func NewAPIService(config *BackendConfig, scanner Scanner, db database.DatabaseService) *APIService {
	return &APIService{
		config:  config,
		scanner: scanner,
		db:      db,
		jwt: auth.JWT{
			Secret:     []byte(config.Auth.JWTSecret),
			AccessTTL:  config.Auth.AccessTTL.Std(),
			RefreshTTL: config.Auth.RefreshTTL.Std(),
		},
	}
}

func (s *APIService) Start() error {
	s.echo = s.buildEcho()

	port := strconv.Itoa(s.config.Port)
	slog.Info("starting server", "port", port)
	return s.echo.Start(fmt.Sprintf(":%s", port))
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *APIService) Shutdown(ctx context.Context) error {
	if s.echo == nil {
		return nil
	}
	return s.echo.Shutdown(ctx)
}

// buildEcho wires middleware and routes; split from Start so handler tests
// can run against the full route table without a listener.
func (s *APIService) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())
	if len(s.config.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.config.CORSOrigins,
			AllowCredentials: true,
		}))
	}

	e.Validator = &common.GenericEchoValidator{}

	s.setRoutes(e)
	return e
}

func (s *APIService) setRoutes(e *echo.Echo) {
	// Probe routes
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	api := e.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.registerHandler)
	authGroup.POST("/login", s.loginHandler)
	authGroup.POST("/refresh", s.refreshHandler)
	authGroup.GET("/me", s.meHandler, auth.Middleware(s.jwt))

	pokemonGroup := api.Group("/pokemon", auth.Middleware(s.jwt))
	pokemonGroup.POST("/scan", s.scanHandler)
	pokemonGroup.GET("/search/:name", s.searchHandler)

	collectionGroup := api.Group("/collection", auth.Middleware(s.jwt))
	collectionGroup.GET("", s.listCollectionHandler)
	collectionGroup.POST("", s.addCollectionHandler)
	collectionGroup.GET("/count", s.countCollectionHandler)
	collectionGroup.DELETE("/:id", s.removeCollectionHandler)
}

// writeError maps a typed application error to its stable status code and a
// caller-safe message. Internal detail is logged, never forwarded.
func writeError(ctx echo.Context, err error) error {
	appErr, ok := common.AsAppError(err)
	if !ok {
		slog.Error("unhandled internal error", "error", err, "path", ctx.Path())
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error"})
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case common.KindInvalidInput, common.KindCollectionFull, common.KindDuplicateEntry:
		status = http.StatusBadRequest
	case common.KindNotRecognized, common.KindRecordNotFound, common.KindNotFound:
		status = http.StatusNotFound
	case common.KindUnauthorized:
		status = http.StatusUnauthorized
	case common.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	}

	if appErr.Cause != nil {
		slog.Warn("request failed", "status", status, "detail", appErr.Message, "cause", appErr.Cause, "path", ctx.Path())
	}
	return ctx.JSON(status, echo.Map{"detail": appErr.Message})
}
