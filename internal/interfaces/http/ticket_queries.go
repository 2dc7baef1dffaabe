package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"ticketgate/internal/entities"
	"ticketgate/internal/qr"
)

// SearchTicketsHandler lists tickets. Query params status,
// customerEmail, orderNumber, dateFrom and dateTo are AND-combined;
// dates are inclusive RFC 3339 bounds.
func (s *Server) SearchTicketsHandler(c echo.Context) error {
	var filter entities.TicketFilter

	filter.Status = entities.TicketStatus(c.QueryParam("status"))
	filter.CustomerEmail = c.QueryParam("customerEmail")

	if raw := c.QueryParam("orderNumber"); raw != "" {
		orderNumber, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid orderNumber"})
		}
		filter.OrderNumber = orderNumber
	}
	if raw := c.QueryParam("dateFrom"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid dateFrom, want RFC 3339"})
		}
		filter.DateFrom = &from
	}
	if raw := c.QueryParam("dateTo"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid dateTo, want RFC 3339"})
		}
		filter.DateTo = &to
	}

	tickets, err := s.store.Search(c.Request().Context(), filter)
	if err != nil {
		return s.storeFault(c, err)
	}

	responses := make([]TicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		responses = append(responses, toTicketResponse(ticket))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"tickets": responses,
	})
}

func (s *Server) TicketStatsHandler(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return s.storeFault(c, err)
	}
	tickets, err := s.store.Search(ctx, entities.TicketFilter{})
	if err != nil {
		return s.storeFault(c, err)
	}

	responses := make([]TicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		responses = append(responses, toTicketResponse(ticket))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
		"tickets": responses,
	})
}

// TicketQRImageHandler renders the ticket's QR PNG on the fly. The
// payload is derived from the ticket id, so the image never goes
// stale and can be cached hard.
func (s *Server) TicketQRImageHandler(c echo.Context) error {
	ticketID := c.Param("ticketId")

	if _, err := s.store.GetByTicketID(c.Request().Context(), ticketID); err != nil {
		if errors.Is(err, entities.ErrTicketNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "ticket not found"})
		}
		return s.storeFault(c, err)
	}

	payload := qr.EncodePayload(s.baseURL, ticketID)
	png, err := s.renderer.Render(payload, s.qrOpts)
	if err != nil {
		var renderErr *qr.RenderError
		if errors.As(err, &renderErr) {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: renderErr.Reason})
		}
		return err
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000")
	return c.Blob(http.StatusOK, "image/png", png)
}
