package app

import (
	"context"

	"ticketgate/internal/infrastructure/clients"
)

// EmailService is injected rather than constructed here so tests can
// run the full pipeline against a fake delivery backend.
type EmailService interface {
	SendTicketsEmail(ctx context.Context, email clients.TicketsEmail) error
}
