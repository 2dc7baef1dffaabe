package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/application/services"
	"ticketgate/internal/entities"
	"ticketgate/internal/infrastructure/clients"
	"ticketgate/internal/interfaces/events"
)

type fakeGenerator struct {
	orders []entities.Order
	result services.GenerationResult
	err    error
}

func (g *fakeGenerator) GenerateTicketsForOrder(_ context.Context, order entities.Order) (services.GenerationResult, error) {
	g.orders = append(g.orders, order)
	return g.result, g.err
}

type fakeEmailSender struct {
	sent []clients.TicketsEmail
	err  error
}

func (s *fakeEmailSender) SendTicketsEmail(_ context.Context, email clients.TicketsEmail) error {
	s.sent = append(s.sent, email)
	return s.err
}

func TestGenerateTicketsHandler_RebuildsOrderFromEvent(t *testing.T) {
	generator := &fakeGenerator{}
	handler := events.GenerateTicketsHandler(generator)

	event := &entities.OrderPaid_v1{
		Header:        entities.NewEventHeader(),
		OrderID:       987,
		OrderNumber:   1042,
		CustomerEmail: "buyer@example.com",
		Currency:      "EUR",
		LineItems: []entities.LineItem{
			{Title: "MR NJP Events 🎫", Quantity: 2, Price: "35.00"},
		},
	}

	err := handler.Handle(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, generator.orders, 1)
	order := generator.orders[0]
	assert.Equal(t, int64(987), order.ID)
	assert.Equal(t, int64(1042), order.OrderNumber)
	assert.Equal(t, "buyer@example.com", order.Customer.Email)
	assert.True(t, order.IsPaid())
	assert.Equal(t, event.LineItems, order.LineItems)
}

func TestGenerateTicketsHandler_NacksIncompleteGeneration(t *testing.T) {
	generator := &fakeGenerator{
		result: services.GenerationResult{
			Tickets: []entities.Ticket{{TicketID: "1042_mrnjpeven_1_abc_def0"}},
			Failures: []services.UnitFailure{
				{LineItemTitle: "MR NJP Events", UnitIndex: 2, Err: errors.New("render failed")},
			},
		},
	}
	handler := events.GenerateTicketsHandler(generator)

	err := handler.Handle(context.Background(), &entities.OrderPaid_v1{
		Header:      entities.NewEventHeader(),
		OrderNumber: 1042,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 units failed")
}

func TestGenerateTicketsHandler_PropagatesOrderLevelError(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("store down")}
	handler := events.GenerateTicketsHandler(generator)

	err := handler.Handle(context.Background(), &entities.OrderPaid_v1{
		Header:      entities.NewEventHeader(),
		OrderNumber: 7,
	})
	assert.ErrorContains(t, err, "store down")
}

func TestSendTicketsEmailHandler_MapsTicketsToEmail(t *testing.T) {
	sender := &fakeEmailSender{}
	handler := events.SendTicketsEmailHandler(sender, "https://tickets.example.com/")

	err := handler.Handle(context.Background(), &entities.TicketsGenerated_v1{
		Header:        entities.NewEventHeader(),
		OrderNumber:   1042,
		CustomerEmail: "buyer@example.com",
		Tickets: []entities.TicketRef{
			{
				TicketID:    "1042_mrnjpeven_1_abc_def0",
				TicketTitle: "MR NJP Events",
				Price:       entities.Money{Amount: "35.00", Currency: "EUR"},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	email := sender.sent[0]
	assert.Equal(t, "buyer@example.com", email.To)
	assert.Equal(t, int64(1042), email.OrderNumber)
	require.Len(t, email.Tickets, 1)
	assert.Equal(t, "35.00 EUR", email.Tickets[0].Price)
	assert.Equal(t,
		"https://tickets.example.com/api/qr/1042_mrnjpeven_1_abc_def0",
		email.Tickets[0].QRImageURL)
}
