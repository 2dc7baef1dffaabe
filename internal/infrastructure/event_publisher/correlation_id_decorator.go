package event_publisher

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"ticketgate/internal/observability"
)

// CorrelationPublisherDecorator stamps outgoing messages with the
// correlation id of the context they were published from, so a webhook
// delivery and the emails it triggers share one id in the logs.
type CorrelationPublisherDecorator struct {
	message.Publisher
}

func (c CorrelationPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.Metadata.Get("correlation_id") == "" {
			msg.Metadata.Set("correlation_id", observability.CorrelationID(msg.Context()))
		}
	}
	return c.Publisher.Publish(topic, messages...)
}
