package clients_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/infrastructure/clients"
)

func TestEmailClient_SendTicketsEmail(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := clients.NewEmailClient(srv.URL, "re_test_key", "tickets@example.com", time.Second)

	err := client.SendTicketsEmail(context.Background(), clients.TicketsEmail{
		To:          "buyer@example.com",
		OrderNumber: 1042,
		Tickets: []clients.EmailTicket{
			{
				TicketID:    "1042_mrnjpeven_1_abc_def0",
				TicketTitle: "MR NJP Events",
				Price:       "35.00 EUR",
				QRImageURL:  "https://tickets.example.com/api/qr/1042_mrnjpeven_1_abc_def0",
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/emails", gotPath)
	assert.Equal(t, "Bearer re_test_key", gotAuth)
	assert.Equal(t, "tickets@example.com", gotBody["from"])
	assert.Equal(t, []any{"buyer@example.com"}, gotBody["to"])
	assert.Equal(t, "Your tickets for order #1042", gotBody["subject"])

	html, _ := gotBody["html"].(string)
	assert.Contains(t, html, "1042_mrnjpeven_1_abc_def0")
	assert.Contains(t, html, "https://tickets.example.com/api/qr/1042_mrnjpeven_1_abc_def0")
}

func TestEmailClient_SendTicketsEmail_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := clients.NewEmailClient(srv.URL, "re_test_key", "tickets@example.com", time.Second)

	err := client.SendTicketsEmail(context.Background(), clients.TicketsEmail{
		To:          "buyer@example.com",
		OrderNumber: 1,
	})
	assert.ErrorContains(t, err, "unexpected status code")
}
