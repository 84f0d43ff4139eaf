package server

import (
	"errors"
	"net/http"
	"time"

	"spanfs/pkg/log"
	"spanfs/pkg/metadata"
	"spanfs/pkg/models"

	"github.com/labstack/echo/v4"
)

// linkAccountRequest is the body of POST /account/link.
type linkAccountRequest struct {
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

func (srv *Server) linkAccount(ctx echo.Context) error {
	user, err := userID(ctx)
	if err != nil {
		return err
	}

	var req linkAccountRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	providerType, err := models.ParseProvider(req.Provider)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}
	if req.RefreshToken == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "refresh_token is required",
		})
	}

	accountID, err := srv.accounts.AddAccount(ctx.Request().Context(), &models.Account{
		UserID:       user,
		Provider:     providerType,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		Expiry:       req.Expiry,
	})
	if err != nil {
		if errors.Is(err, metadata.ErrAccountExists) {
			return ctx.JSON(http.StatusConflict, map[string]string{
				"error": "account already linked",
			})
		}
		log.Error().Err(err).Str("user_id", user).Str("provider", req.Provider).Msg("Failed to link account")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to link account",
		})
	}

	log.Info().Str("user_id", user).Str("provider", req.Provider).Int64("account_id", accountID).
		Msg("Account linked")
	return ctx.JSON(http.StatusOK, map[string]int64{
		"account_id": accountID,
	})
}

func (srv *Server) listAccounts(ctx echo.Context) error {
	user, err := userID(ctx)
	if err != nil {
		return err
	}

	accounts, err := srv.accounts.ListAccounts(ctx.Request().Context(), user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user).Msg("Failed to list accounts")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list accounts",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"accounts": accounts,
	})
}
