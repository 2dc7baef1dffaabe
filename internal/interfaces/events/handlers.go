package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/rs/zerolog"

	"ticketgate/internal/application/services"
	"ticketgate/internal/entities"
	"ticketgate/internal/idempotency"
	"ticketgate/internal/infrastructure/clients"
)

type TicketGenerator interface {
	GenerateTicketsForOrder(ctx context.Context, order entities.Order) (services.GenerationResult, error)
}

type EmailSender interface {
	SendTicketsEmail(ctx context.Context, email clients.TicketsEmail) error
}

// GenerateTicketsHandler consumes OrderPaid_v1 and mints the order's
// tickets. Redeliveries are harmless: the orchestrator adopts existing
// tickets instead of re-minting.
func GenerateTicketsHandler(generator TicketGenerator) cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"generate_tickets_handler",
		func(ctx context.Context, event *entities.OrderPaid_v1) error {
			zerolog.Ctx(ctx).Info().
				Int64("order_number", event.OrderNumber).
				Msg("generating tickets for paid order")

			ctx = idempotency.WithKey(ctx, event.Header.IdempotencyKey)

			order := entities.Order{
				ID:              event.OrderID,
				OrderNumber:     event.OrderNumber,
				Currency:        event.Currency,
				FinancialStatus: "paid",
				Customer:        entities.Customer{Email: event.CustomerEmail},
				LineItems:       event.LineItems,
			}

			result, err := generator.GenerateTicketsForOrder(ctx, order)
			if err != nil {
				return err
			}
			if !result.Complete() {
				// Nack so the router retries the whole order; units
				// that already succeeded are adopted on the next pass.
				return fmt.Errorf("order %d: %d of %d units failed, first: %w",
					event.OrderNumber, len(result.Failures),
					len(result.Tickets)+len(result.Failures), result.Failures[0])
			}
			return nil
		},
	)
}

// SendTicketsEmailHandler consumes TicketsGenerated_v1 and hands the
// ticket set to the email collaborator. Message composition beyond the
// QR links lives with the collaborator.
func SendTicketsEmailHandler(sender EmailSender, baseURL string) cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"send_tickets_email_handler",
		func(ctx context.Context, event *entities.TicketsGenerated_v1) error {
			zerolog.Ctx(ctx).Info().
				Int64("order_number", event.OrderNumber).
				Str("customer_email", event.CustomerEmail).
				Msg("sending tickets email")

			tickets := make([]clients.EmailTicket, 0, len(event.Tickets))
			for _, ref := range event.Tickets {
				tickets = append(tickets, clients.EmailTicket{
					TicketID:    ref.TicketID,
					TicketTitle: ref.TicketTitle,
					Price:       ref.Price.Amount + " " + ref.Price.Currency,
					QRImageURL:  qrImageURL(baseURL, ref.TicketID),
				})
			}

			return sender.SendTicketsEmail(ctx, clients.TicketsEmail{
				To:          event.CustomerEmail,
				OrderNumber: event.OrderNumber,
				Tickets:     tickets,
			})
		},
	)
}

func qrImageURL(baseURL, ticketID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/qr/" + ticketID
}
