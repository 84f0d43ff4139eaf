// Package server exposes the placement engine over HTTP. Callers identify
// themselves with the X-User-ID header; every file and account operation is
// scoped to that user.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spanfs/pkg/log"
	"spanfs/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10

// userIDHeader carries the caller identity.
const userIDHeader = "X-User-ID"

// FileService is the engine surface the file handlers need.
type FileService interface {
	Upload(ctx context.Context, userID, name string, size int64, data io.Reader) (int64, error)
	Download(ctx context.Context, userID string, fileID int64, dst io.Writer) (*models.File, error)
	Delete(ctx context.Context, userID string, fileID int64) error
	Info(ctx context.Context, userID string, fileID int64) (*models.FileInfoResponse, error)
	StorageInfo(ctx context.Context, userID string) (*models.StorageInfoResponse, error)
}

// AccountService is the store surface the account handlers need.
type AccountService interface {
	AddAccount(ctx context.Context, account *models.Account) (int64, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
}

// Server is the HTTP front of the placement engine.
type Server struct {
	tempDir  string // staging area for downloads being reassembled
	webDir   string
	version  string
	echo     *echo.Echo
	files    FileService
	accounts AccountService
}

// New creates a server over the given services.
func New(tempDir, webDir, version string, files FileService, accounts AccountService) *Server {
	return &Server{
		tempDir:  tempDir,
		webDir:   webDir,
		version:  version,
		echo:     echo.New(),
		files:    files,
		accounts: accounts,
	}
}

// Start runs the server until SIGINT or SIGTERM, then shuts down gracefully.
func (srv *Server) Start(addr string) error {
	srv.setupRoutes()

	go func() {
		log.Info().
			Str("addr", addr).
			Str("temp_dir", srv.tempDir).
			Str("version", srv.version).
			Str("web_dir", srv.webDir).
			Msg("Starting spanfs server")

		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return srv.Shutdown()
}

// Shutdown stops the server gracefully.
func (srv *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (srv *Server) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true
	srv.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	srv.echo.Use(middleware.Recover())

	srv.echo.GET("/", srv.serveSwaggerUI)
	srv.echo.GET("/swagger.yml", srv.serveSwaggerSpec)
	srv.echo.POST("/file/upload", srv.uploadFile)
	srv.echo.GET("/file/:id/download", srv.downloadFile)
	srv.echo.GET("/file/:id/info", srv.getFileInfo)
	srv.echo.DELETE("/file/:id/delete", srv.deleteFile)
	srv.echo.GET("/storage/info", srv.getStorageInfo)
	srv.echo.POST("/account/link", srv.linkAccount)
	srv.echo.GET("/account/list", srv.listAccounts)
}

// userID extracts the caller identity from the request. A missing header
// fails the request with 400.
func userID(ctx echo.Context) (string, error) {
	id := ctx.Request().Header.Get(userIDHeader)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "X-User-ID header is required")
	}
	return id, nil
}
