package backend

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// scanHandler runs the identification pipeline on an uploaded image:
// normalize (best-effort), classify, enrich with reference data.
func (s *APIService) scanHandler(ctx echo.Context) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"detail": "missing file upload"})
	}
	if s.config.Scan.MaxUploadBytes > 0 && file.Size > s.config.Scan.MaxUploadBytes {
		return ctx.JSON(http.StatusRequestEntityTooLarge, echo.Map{"detail": "uploaded file is too large"})
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("scanHandler: failed to open uploaded file", "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"detail": "failed to read uploaded file"})
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("scanHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	imageBytes, err := io.ReadAll(src)
	if err != nil {
		slog.Error("scanHandler: failed to read uploaded file", "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"detail": "failed to read uploaded file"})
	}

	mediaType := file.Header.Get(echo.HeaderContentType)
	record, err := s.scanner.Scan(ctx.Request().Context(), imageBytes, mediaType)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, record)
}

func (s *APIService) searchHandler(ctx echo.Context) error {
	name := ctx.Param("name")
	record, err := s.scanner.Search(ctx.Request().Context(), name)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, record)
}
