package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ticketgate/internal/entities"
	"ticketgate/internal/qr"
)

// TicketStore is the persistence and state-machine layer the API
// surface depends on; transitions are race-safe inside the store.
type TicketStore interface {
	GetByTicketID(ctx context.Context, ticketID string) (*entities.Ticket, error)
	Search(ctx context.Context, filter entities.TicketFilter) ([]entities.Ticket, error)
	Stats(ctx context.Context) (entities.TicketStats, error)
	Validate(ctx context.Context, ticketID, validatedBy, notes string) (entities.TransitionResult, error)
	MarkUsed(ctx context.Context, ticketID string) (entities.TransitionResult, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Server struct {
	e      *echo.Echo
	logger zerolog.Logger

	store     TicketStore
	publisher EventPublisher
	renderer  qr.Renderer

	addr          string
	baseURL       string
	webhookSecret string
	qrOpts        qr.RenderOptions
}

func NewServer(
	logger zerolog.Logger,
	store TicketStore,
	publisher EventPublisher,
	renderer qr.Renderer,
	addr string,
	baseURL string,
	webhookSecret string,
	qrOpts qr.RenderOptions,
	routerIsRunning func() bool,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		e:             e,
		logger:        logger,
		store:         store,
		publisher:     publisher,
		renderer:      renderer,
		addr:          addr,
		baseURL:       baseURL,
		webhookSecret: webhookSecret,
		qrOpts:        qrOpts,
	}

	e.POST("/api/shopify/webhook", srv.ShopifyWebhookHandler)

	e.GET("/api/ticket/validate/:ticketId", srv.GetTicketInfoHandler)
	e.POST("/api/ticket/validate/:ticketId", srv.ValidateTicketHandler)
	e.PUT("/api/ticket/validate/:ticketId", srv.MarkTicketUsedHandler)

	e.GET("/api/tickets", srv.SearchTicketsHandler)
	e.GET("/api/ticket/stats", srv.TicketStatsHandler)
	e.GET("/api/qr/:ticketId", srv.TicketQRImageHandler)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		if routerIsRunning != nil && !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})

	e.Use(srv.requestLogging)

	return srv
}

func (s *Server) requestLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.logger.Info().
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Msg("handling a request")

		err := next(c)
		if err != nil {
			s.logger.Error().
				Str("path", c.Request().URL.Path).
				Err(err).
				Msg("request handling error")
		}
		return err
	}
}

// storeFault maps storage unavailability onto 503 so callers retry
// with backoff instead of reading it as a missing ticket.
func (s *Server) storeFault(c echo.Context, err error) error {
	if errors.Is(err, entities.ErrStorageUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable, retry later"})
	}
	return err
}

func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
