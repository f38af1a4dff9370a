package worker

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"eventpipe/pkg/event"
)

// MiddlewareFromWatermill adapts a Watermill handler middleware (retry,
// throttle, circuit breaker) so it can wrap an event-handle handler.
func MiddlewareFromWatermill(m message.HandlerMiddleware) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, h *event.Handle) error {
			msg := message.NewMessage(watermill.NewUUID(), h.Document().Raw())
			if metadata := Metadata(h); metadata != nil {
				msg.Metadata = message.Metadata{}
				for key, value := range metadata {
					msg.Metadata[key] = value
				}
			}
			wrapped := m(func(_ *message.Message) ([]*message.Message, error) {
				return nil, next(ctx, h)
			})
			_, err := wrapped(msg)
			return err
		}
	}
}
