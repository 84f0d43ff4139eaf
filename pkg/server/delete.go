package server

import (
	"errors"
	"net/http"

	"spanfs/pkg/engine"
	"spanfs/pkg/log"

	"github.com/labstack/echo/v4"
)

func (srv *Server) deleteFile(ctx echo.Context) error {
	user, err := userID(ctx)
	if err != nil {
		return err
	}
	id, err := fileID(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("user_id", user).Int64("file_id", id).Msg("File delete request")

	if err := srv.files.Delete(ctx.Request().Context(), user, id); err != nil {
		if errors.Is(err, engine.ErrFileNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "file not found",
			})
		}
		log.Error().Err(err).Msg("Failed to delete file")
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to delete file from providers",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"status": "deleted",
	})
}
