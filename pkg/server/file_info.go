package server

import (
	"errors"
	"net/http"

	"spanfs/pkg/engine"
	"spanfs/pkg/log"

	"github.com/labstack/echo/v4"
)

func (srv *Server) getFileInfo(ctx echo.Context) error {
	user, err := userID(ctx)
	if err != nil {
		return err
	}
	id, err := fileID(ctx)
	if err != nil {
		return err
	}

	info, err := srv.files.Info(ctx.Request().Context(), user, id)
	if err != nil {
		if errors.Is(err, engine.ErrFileNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "file not found",
			})
		}
		log.Error().Err(err).Int64("file_id", id).Msg("Failed to load file info")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to load file info",
		})
	}

	return ctx.JSON(http.StatusOK, info)
}
