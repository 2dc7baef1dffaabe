// Package clients holds the outbound collaborators of the ticket
// pipeline. Each one is a narrow HTTP client; the pipeline never
// depends on their internals.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type EmailTicket struct {
	TicketID    string
	TicketTitle string
	Price       string
	QRImageURL  string
}

type TicketsEmail struct {
	To          string
	OrderNumber int64
	Tickets     []EmailTicket
}

// EmailClient delivers tickets through a Resend-compatible HTTP API.
type EmailClient struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	from       string
}

func NewEmailClient(apiURL, apiKey, from string, timeout time.Duration) *EmailClient {
	return &EmailClient{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		from:       from,
	}
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *EmailClient) SendTicketsEmail(ctx context.Context, email TicketsEmail) error {
	body, err := json.Marshal(sendEmailRequest{
		From:    c.from,
		To:      []string{email.To},
		Subject: fmt.Sprintf("Your tickets for order #%d", email.OrderNumber),
		HTML:    renderTicketsHTML(email),
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send tickets email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send tickets email: unexpected status code: %s", resp.Status)
	}
	return nil
}

func renderTicketsHTML(email TicketsEmail) string {
	var b strings.Builder
	b.WriteString("<h1>Your tickets</h1>")
	b.WriteString("<p>Order #" + strconv.FormatInt(email.OrderNumber, 10) + "</p>")
	for _, ticket := range email.Tickets {
		b.WriteString("<div>")
		b.WriteString("<h2>" + ticket.TicketTitle + "</h2>")
		b.WriteString("<p>" + ticket.Price + "</p>")
		b.WriteString(`<img src="` + ticket.QRImageURL + `" alt="` + ticket.TicketID + `" width="300" height="300">`)
		b.WriteString("<p>" + ticket.TicketID + "</p>")
		b.WriteString("</div>")
	}
	return b.String()
}
