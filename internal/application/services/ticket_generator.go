package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ticketgate/internal/entities"
	"ticketgate/internal/idempotency"
	"ticketgate/internal/observability"
	"ticketgate/internal/qr"
	"ticketgate/internal/ticketid"
)

// feeMarkers flags administrative line items (service fees and the
// like) that must never become admission tickets.
var feeMarkers = []string{"service", "frais", "charge"}

type TicketStore interface {
	Create(ctx context.Context, t *entities.Ticket) error
	GetByTicketID(ctx context.Context, ticketID string) (*entities.Ticket, error)
	GetByOrderNumber(ctx context.Context, orderNumber int64) ([]entities.Ticket, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// UnitFailure reports one seat unit that could not be generated. The
// rest of the batch is unaffected; retrying the order is safe because
// generation is idempotent.
type UnitFailure struct {
	LineItemTitle string
	UnitIndex     int
	Err           error
}

func (f UnitFailure) Error() string {
	return fmt.Sprintf("unit %d of %q: %v", f.UnitIndex, f.LineItemTitle, f.Err)
}

type GenerationResult struct {
	Tickets  []entities.Ticket
	Failures []UnitFailure
}

func (r GenerationResult) Complete() bool { return len(r.Failures) == 0 }

// TicketGenerator turns one paid order into its set of tickets:
// fee line items are skipped, every remaining line item of quantity N
// expands into N single-seat tickets, and re-processing the same order
// returns the existing tickets instead of minting duplicates.
type TicketGenerator struct {
	store    TicketStore
	renderer qr.Renderer
	bus      EventPublisher
	logger   zerolog.Logger

	baseURL string
	qrOpts  qr.RenderOptions
}

func NewTicketGenerator(
	store TicketStore,
	renderer qr.Renderer,
	bus EventPublisher,
	logger zerolog.Logger,
	baseURL string,
	qrOpts qr.RenderOptions,
) *TicketGenerator {
	return &TicketGenerator{
		store:    store,
		renderer: renderer,
		bus:      bus,
		logger:   logger,
		baseURL:  baseURL,
		qrOpts:   qrOpts,
	}
}

// GenerateTicketsForOrder mints tickets for every seat unit of the
// order, in line-item order. Units that already exist in the store
// (webhook redelivery, concurrent generation) are adopted as-is. The
// returned error covers order-level faults only; per-unit problems are
// reported in the result so the caller can retry the order.
func (g *TicketGenerator) GenerateTicketsForOrder(ctx context.Context, order entities.Order) (GenerationResult, error) {
	existing, err := g.store.GetByOrderNumber(ctx, order.OrderNumber)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("lookup existing tickets for order %d: %w", order.OrderNumber, err)
	}
	adoptable := bucketByTitle(existing)

	var result GenerationResult
	minted := 0

	for _, item := range order.LineItems {
		if isFeeLineItem(item.Title) {
			g.logger.Debug().
				Int64("order_number", order.OrderNumber).
				Str("line_item", item.Title).
				Msg("skipping fee line item")
			continue
		}

		title := ticketid.CleanTitle(item.Title)
		price := entities.Money{Amount: item.Price, Currency: order.Currency}
		if err := price.Validate(); err != nil {
			for i := 1; i <= item.Quantity; i++ {
				result.Failures = append(result.Failures, UnitFailure{LineItemTitle: item.Title, UnitIndex: i, Err: err})
			}
			continue
		}

		for i := 1; i <= item.Quantity; i++ {
			if ticket, ok := adoptable.pop(title); ok {
				result.Tickets = append(result.Tickets, ticket)
				continue
			}

			ticket, err := g.mintUnit(ctx, order, item, title, price, i)
			if err != nil {
				result.Failures = append(result.Failures, UnitFailure{LineItemTitle: item.Title, UnitIndex: i, Err: err})
				continue
			}
			result.Tickets = append(result.Tickets, *ticket)
			minted++
		}
	}

	observability.TicketsGenerated(minted)
	g.logger.Info().
		Int64("order_number", order.OrderNumber).
		Int("minted", minted).
		Int("adopted", len(result.Tickets)-minted).
		Int("failed", len(result.Failures)).
		Msg("generated tickets for order")

	if minted > 0 && g.bus != nil {
		if err := g.publishGenerated(ctx, order, result.Tickets); err != nil {
			return result, fmt.Errorf("publish tickets generated for order %d: %w", order.OrderNumber, err)
		}
	}
	return result, nil
}

func (g *TicketGenerator) mintUnit(
	ctx context.Context,
	order entities.Order,
	item entities.LineItem,
	title string,
	price entities.Money,
	unitIndex int,
) (*entities.Ticket, error) {
	tid := ticketid.Generate(order.OrderNumber, item.Title, unitIndex)

	payload := qr.EncodePayload(g.baseURL, tid)
	if _, err := g.renderer.Render(payload, g.qrOpts); err != nil {
		return nil, err
	}

	ticket := &entities.Ticket{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TicketID:      tid,
		CustomerEmail: order.Customer.Email,
		TicketTitle:   title,
		Quantity:      1,
		Price:         price,
		Status:        entities.TicketStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	err := g.store.Create(ctx, ticket)
	if errors.Is(err, entities.ErrDuplicateTicketID) {
		// Lost a race with another generation attempt for the same
		// order; the winner's ticket is the ticket.
		return g.store.GetByTicketID(ctx, tid)
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (g *TicketGenerator) publishGenerated(ctx context.Context, order entities.Order, tickets []entities.Ticket) error {
	refs := make([]entities.TicketRef, 0, len(tickets))
	for _, t := range tickets {
		refs = append(refs, entities.TicketRef{
			TicketID:    t.TicketID,
			TicketTitle: t.TicketTitle,
			Price:       t.Price,
		})
	}

	return g.bus.Publish(ctx, entities.TicketsGenerated_v1{
		Header: entities.NewEventHeaderWithIdempotencyKey(
			idempotency.GetKey(ctx) + "-tickets-generated",
		),
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.Customer.Email,
		Tickets:       refs,
	})
}

func isFeeLineItem(title string) bool {
	lowered := strings.ToLower(title)
	for _, marker := range feeMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// titleBuckets holds an order's existing tickets grouped by display
// title, preserving creation order within each group.
type titleBuckets map[string][]entities.Ticket

func bucketByTitle(tickets []entities.Ticket) titleBuckets {
	buckets := make(titleBuckets)
	for _, t := range tickets {
		buckets[t.TicketTitle] = append(buckets[t.TicketTitle], t)
	}
	return buckets
}

func (b titleBuckets) pop(title string) (entities.Ticket, bool) {
	queue := b[title]
	if len(queue) == 0 {
		return entities.Ticket{}, false
	}
	b[title] = queue[1:]
	return queue[0], true
}
