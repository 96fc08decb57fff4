package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grachmannico95/branch-ingest/internal/config"
	"github.com/grachmannico95/branch-ingest/internal/handler"
	"github.com/grachmannico95/branch-ingest/internal/middleware"
	"github.com/grachmannico95/branch-ingest/pkg/logger"
)

const (
	UploadPath = "/enterprise-upload/"

	// multipartHeadroomMB covers the form envelope around the archive.
	multipartHeadroomMB = 1
)

type Server struct {
	echo          *echo.Echo
	cfg           *config.Config
	logger        *logger.Logger
	uploadHandler *handler.UploadHandler
	healthHandler *handler.HealthHandler
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	uploadHandler *handler.UploadHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		echo:          e,
		cfg:           cfg,
		logger:        log,
		uploadHandler: uploadHandler,
		healthHandler: healthHandler,
	}
	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info(context.Background(), "Starting HTTP server",
		"address", addr,
	)

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(echoMiddleware.CORS())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Logging(s.logger))
	if limit := s.cfg.Upload.MaxArchiveMB; limit > 0 {
		s.echo.Use(echoMiddleware.BodyLimit(fmt.Sprintf("%dM", limit+multipartHeadroomMB)))
	}
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler.Check)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Any method reaches the handler so non-POST requests get the JSON 405.
	s.echo.Any(UploadPath, s.uploadHandler.Upload)
	s.echo.Any(UploadPath[:len(UploadPath)-1], s.uploadHandler.Upload)
}

// errorHandler renders framework errors (404, 413, recovered panics) in the
// same JSON envelope the upload handler uses.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{
		"status":  "error",
		"message": message,
	})
}

func (s *Server) Handler() *echo.Echo {
	return s.echo
}
