package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ticketgate/internal/entities"
	"ticketgate/internal/observability"
)

// TicketResponse is the public view of a ticket. There is nothing to
// redact beyond what purchase already collected.
type TicketResponse struct {
	ID            string     `json:"id"`
	TicketID      string     `json:"ticketId"`
	OrderNumber   int64      `json:"orderNumber"`
	CustomerEmail string     `json:"customerEmail"`
	TicketTitle   string     `json:"ticketTitle"`
	Price         string     `json:"price"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	ValidatedAt   *time.Time `json:"validatedAt,omitempty"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
	ValidatedBy   *string    `json:"validatedBy,omitempty"`
}

func toTicketResponse(t entities.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID,
		TicketID:      t.TicketID,
		OrderNumber:   t.OrderNumber,
		CustomerEmail: t.CustomerEmail,
		TicketTitle:   t.TicketTitle,
		Price:         t.Price.Amount,
		Currency:      t.Price.Currency,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
		ValidatedAt:   t.ValidatedAt,
		UsedAt:        t.UsedAt,
		ValidatedBy:   t.ValidatedBy,
	}
}

func (s *Server) GetTicketInfoHandler(c echo.Context) error {
	ticketID := c.Param("ticketId")

	ticket, err := s.store.GetByTicketID(c.Request().Context(), ticketID)
	if errors.Is(err, entities.ErrTicketNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "ticket not found"})
	}
	if err != nil {
		return s.storeFault(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"ticket":  toTicketResponse(*ticket),
	})
}

type ValidateTicketRequest struct {
	ValidatedBy string `json:"validatedBy"`
	Notes       string `json:"notes"`
}

func (s *Server) ValidateTicketHandler(c echo.Context) error {
	ticketID := c.Param("ticketId")

	var request ValidateTicketRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if request.ValidatedBy == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "validatedBy is required"})
	}

	result, err := s.store.Validate(c.Request().Context(), ticketID, request.ValidatedBy, request.Notes)
	if err != nil {
		return s.storeFault(c, err)
	}

	observability.TicketValidation(result.Success)
	if !result.Success {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: result.Reason})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "ticket validated: " + ticketID,
	})
}

func (s *Server) MarkTicketUsedHandler(c echo.Context) error {
	ticketID := c.Param("ticketId")

	result, err := s.store.MarkUsed(c.Request().Context(), ticketID)
	if err != nil {
		return s.storeFault(c, err)
	}

	observability.TicketUsage(result.Success)
	if !result.Success {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: result.Reason})
	}

	message := "ticket used: " + ticketID
	if result.Reason != "" {
		message = result.Reason
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}
