package server

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"spanfs/pkg/engine"
	"spanfs/pkg/log"

	"github.com/labstack/echo/v4"
)

// fileID parses the :id route parameter.
func fileID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid file id")
	}
	return id, nil
}

func (srv *Server) downloadFile(ctx echo.Context) error {
	user, err := userID(ctx)
	if err != nil {
		return err
	}
	id, err := fileID(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("user_id", user).Int64("file_id", id).Msg("File download request")

	// Reassemble into a staging file first so a mid-stream chunk failure
	// never truncates a response that already carries a 200.
	staging, err := os.CreateTemp(srv.tempDir, "download-*")
	if err != nil {
		log.Error().Err(err).Msg("Failed to create staging file")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to stage download",
		})
	}
	stagingPath := staging.Name()
	defer func() {
		if err := os.Remove(stagingPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", stagingPath).Msg("Failed to remove staging file")
		}
	}()

	file, err := srv.files.Download(ctx.Request().Context(), user, id, staging)
	closeErr := staging.Close()
	if err != nil {
		if errors.Is(err, engine.ErrFileNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "file not found",
			})
		}
		if errors.Is(err, engine.ErrChunkUnavailable) || errors.Is(err, engine.ErrNoChunks) {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "file is currently not reconstructible",
			})
		}
		log.Error().Err(err).Msg("Failed to download file")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to download file",
		})
	}
	if closeErr != nil {
		log.Error().Err(closeErr).Msg("Failed to flush staging file")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to stage download",
		})
	}

	log.Info().Int64("file_id", id).Str("name", file.Name()).Msg("Serving file download")
	return ctx.Attachment(stagingPath, file.Name())
}
