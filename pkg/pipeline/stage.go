package pipeline

import (
	"context"
	"fmt"
	"log"

	"eventpipe/internal"
	"eventpipe/pkg/event"
)

// Stage is one step of the event pipeline. Stages receive the shared handle,
// read or enrich its document, and never hold on to it past Process.
type Stage interface {
	Name() string
	Process(ctx context.Context, h *event.Handle) error
}

// Chain runs stages in order against one handle, stopping at the first error.
type Chain struct {
	stages []Stage
	logger *log.Logger
}

func NewChain(logger *log.Logger, stages ...Stage) *Chain {
	if logger == nil {
		logger = internal.NewLogger("pipeline")
	}
	return &Chain{stages: stages, logger: logger}
}

// Run pushes the handle through every stage. The first failing stage aborts
// the run; later stages never see the handle.
func (c *Chain) Run(ctx context.Context, h *event.Handle) error {
	if h == nil {
		return event.ErrNilDocument
	}
	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stage.Process(ctx, h); err != nil {
			c.logger.Printf("stage %s failed: %v", stage.Name(), err)
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
	}
	return nil
}
