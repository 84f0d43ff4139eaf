package server

import (
	"errors"
	"net/http"

	"spanfs/pkg/log"
	"spanfs/pkg/models"
	"spanfs/pkg/planner"

	"github.com/labstack/echo/v4"
)

func (srv *Server) uploadFile(ctx echo.Context) error {
	user, err := userID(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("user_id", user).Msg("File upload request received")

	file, err := ctx.FormFile("file")
	if err != nil {
		log.Error().Err(err).Msg("File parameter is required")
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "file parameter is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to open uploaded file",
		})
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close source file")
		}
	}()

	fileID, err := srv.files.Upload(ctx.Request().Context(), user, file.Filename, file.Size, src)
	if err != nil {
		if errors.Is(err, planner.ErrInsufficientStorage) {
			return ctx.JSON(http.StatusInsufficientStorage, map[string]string{
				"error": "insufficient storage across linked accounts",
			})
		}
		if errors.Is(err, planner.ErrInvalidSize) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid file size",
			})
		}
		log.Error().Err(err).Msg("Failed to upload file")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to upload file",
		})
	}

	return ctx.JSON(http.StatusOK, models.UploadResponse{FileID: fileID})
}
