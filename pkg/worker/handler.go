package worker

import (
	"context"

	"eventpipe/pkg/event"
)

// Handler processes one event handle.
type Handler func(ctx context.Context, h *event.Handle) error

// Middleware wraps a handler to add functionality.
type Middleware func(Handler) Handler
