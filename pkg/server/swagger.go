package server

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"spanfs/pkg/log"

	"github.com/labstack/echo/v4"
)

func (srv *Server) serveSwaggerUI(ctx echo.Context) error {
	tmplPath := filepath.Join(srv.webDir, "swagger-ui.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		log.Error().Err(err).Str("template_path", tmplPath).Msg("Failed to load template")
		return ctx.String(http.StatusInternalServerError, fmt.Sprintf("Failed to load template: %v", err))
	}

	data := struct {
		Title       string
		SwaggerPath string
	}{
		Title:       "Spanfs Server API Documentation",
		SwaggerPath: "/swagger.yml",
	}

	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)
	return tmpl.Execute(ctx.Response().Writer, data)
}

func (srv *Server) serveSwaggerSpec(ctx echo.Context) error {
	swaggerPath := filepath.Join(srv.webDir, "swagger.yml")
	return ctx.File(swaggerPath)
}
