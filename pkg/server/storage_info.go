package server

import (
	"net/http"

	"spanfs/pkg/log"

	"github.com/labstack/echo/v4"
)

func (srv *Server) getStorageInfo(ctx echo.Context) error {
	user, err := userID(ctx)
	if err != nil {
		return err
	}

	info, err := srv.files.StorageInfo(ctx.Request().Context(), user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user).Msg("Failed to snapshot storage")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to snapshot storage",
		})
	}

	return ctx.JSON(http.StatusOK, info)
}
