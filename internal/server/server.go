// Package server serves the QA command surface over plain HTTP for local
// runs, plus Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aurora-qa/internal/api"
	"aurora-qa/internal/logging"
	"aurora-qa/internal/usecase"
)

type Server struct {
	echo   *echo.Echo
	svc    api.Service
	logger *zap.Logger
	addr   string
}

// New builds the server. gatherer backs /metrics; nil leaves the route out.
func New(svc api.Service, gatherer prometheus.Gatherer, logger *zap.Logger, addr string) (*Server, error) {
	if svc == nil {
		return nil, errors.New("server: service must not be nil")
	}
	if logger == nil {
		return nil, errors.New("server: logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: logging.CorrelationHeader,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithCorrelationID(req.Context(), id)))
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logging.FromContext(c.Request().Context(), logger).Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	})

	s := &Server{echo: e, svc: svc, logger: logger, addr: addr}
	s.registerRoutes(gatherer)
	return s, nil
}

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET(api.PathHealth, s.handleHealth)
	s.echo.GET(api.PathAsk, s.handleAsk)
	s.echo.POST(api.PathAsk, s.handleAsk)
	s.echo.GET(api.PathMessagesSample, s.handleMessagesSample)
	s.echo.GET(api.PathMemberNames, s.handleMemberNames)
	if gatherer != nil {
		s.echo.GET(api.PathMetrics, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, api.Health)
}

func (s *Server) handleAsk(c echo.Context) error {
	question, err := askQuestion(c)
	if err != nil {
		logging.FromContext(c.Request().Context(), s.logger).Warn("invalid ask request", zap.Error(err))
		status, code := api.ErrorStatus(err)
		return c.JSON(status, api.ErrorResponse{Error: code})
	}
	status, body := api.Ask(c.Request().Context(), s.svc, question)
	return c.JSON(status, body)
}

func (s *Server) handleMessagesSample(c echo.Context) error {
	status, body := api.MessagesSample(c.Request().Context(), s.svc)
	return c.JSON(status, body)
}

func (s *Server) handleMemberNames(c echo.Context) error {
	status, body := api.MemberNames(c.Request().Context(), s.svc)
	return c.JSON(status, body)
}

func askQuestion(c echo.Context) (string, error) {
	if c.Request().Method == http.MethodGet {
		if !c.QueryParams().Has("question") {
			return "", api.MissingQuestion()
		}
		return c.QueryParam("question"), nil
	}
	var in api.AskRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &in); err != nil {
		return "", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
	}
	if in.Question == nil {
		return "", api.MissingQuestion()
	}
	return *in.Question, nil
}

// errorHandler renders router and handler errors as {"error": CODE}.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, code := http.StatusInternalServerError, string(usecase.ErrorInternal)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch he.Code {
			case http.StatusNotFound:
				code = api.CodeNotFound
			case http.StatusMethodNotAllowed:
				code = api.CodeMethodNotAllowed
			case http.StatusBadRequest, http.StatusUnsupportedMediaType:
				status, code = http.StatusBadRequest, string(usecase.ErrorInvalidInput)
			default:
				code = strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
			}
		} else {
			logging.FromContext(c.Request().Context(), logger).Error("unhandled error", zap.Error(err))
		}
		if werr := c.JSON(status, api.ErrorResponse{Error: code}); werr != nil {
			logger.Warn("failed to write error response", zap.Error(werr))
		}
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
