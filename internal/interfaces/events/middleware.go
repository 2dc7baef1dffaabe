package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ticketgate/internal/observability"
)

// CorrelationIDMiddleware threads a correlation id through the message
// context so every log line of one delivery can be tied together.
func CorrelationIDMiddleware(logger zerolog.Logger) message.HandlerMiddleware {
	return func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			correlationID := msg.Metadata.Get("correlation_id")
			if correlationID == "" {
				correlationID = uuid.NewString()
				msg.Metadata.Set("correlation_id", correlationID)
			}

			msgLogger := logger.With().
				Str("correlation_id", correlationID).
				Str("message_uuid", msg.UUID).
				Logger()

			ctx := observability.ContextWithCorrelationID(msg.Context(), correlationID)
			msg.SetContext(msgLogger.WithContext(ctx))

			return next(msg)
		}
	}
}

func LoggingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := zerolog.Ctx(msg.Context())
		logger.Info().
			Str("payload", string(msg.Payload)).
			Msg("handling a message")

		messages, err := next(msg)
		if err != nil {
			logger.Error().
				Err(err).
				Msg("message handling error")
		}
		return messages, err
	}
}
