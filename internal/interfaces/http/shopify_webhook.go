package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"ticketgate/internal/entities"
	"ticketgate/internal/observability"
)

// ShopifyWebhookHandler ingests "order paid" deliveries. Its only
// obligations are signature verification and publishing OrderPaid_v1
// with a delivery-stable idempotency key; the generation pipeline
// downstream absorbs redeliveries.
func (s *Server) ShopifyWebhookHandler(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if s.webhookSecret != "" {
		signature := c.Request().Header.Get("X-Shopify-Hmac-Sha256")
		if !verifyShopifySignature(body, signature, s.webhookSecret) {
			observability.WebhookReceived("unverified")
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "webhook verification failed"})
		}
	}

	var order entities.Order
	if err := json.Unmarshal(body, &order); err != nil {
		observability.WebhookReceived("malformed")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed order payload"})
	}
	if order.OrderNumber == 0 {
		observability.WebhookReceived("malformed")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "missing order_number"})
	}

	if !order.IsPaid() {
		observability.WebhookReceived("ignored")
		s.logger.Info().
			Int64("order_id", order.ID).
			Str("financial_status", order.FinancialStatus).
			Msg("ignoring unpaid order")
		return c.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "order not paid, ignored",
		})
	}

	// Keyed by order id, not delivery id: Shopify may redeliver the
	// same paid order under a fresh delivery id.
	event := entities.OrderPaid_v1{
		Header: entities.NewEventHeaderWithIdempotencyKey(
			"order-paid-" + strconv.FormatInt(order.ID, 10),
		),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.Customer.Email,
		Currency:      order.Currency,
		LineItems:     order.LineItems,
	}

	if err := s.publisher.Publish(c.Request().Context(), event); err != nil {
		observability.WebhookReceived("failed")
		// Non-200 makes Shopify retry the delivery; generation is
		// idempotent so that is safe.
		return err
	}

	observability.WebhookReceived("accepted")
	s.logger.Info().
		Int64("order_number", order.OrderNumber).
		Str("customer_email", order.Customer.Email).
		Msg("paid order accepted")
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func verifyShopifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
