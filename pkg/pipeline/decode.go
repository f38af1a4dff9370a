package pipeline

import (
	"context"
	"fmt"

	"eventpipe/internal"
	"eventpipe/pkg/event"
)

// Decoder enriches a document in place during the decoding stage. Decoders
// are registered per source name; the event's "eventpipe.source" field picks
// which one runs.
type Decoder func(ctx context.Context, doc *event.Document) error

// DecodeStage is the pipeline's decoding stage. It runs the source's decoder
// once and marks the handle decoded; a handle that already passed decoding is
// forwarded untouched.
type DecodeStage struct {
	decoders map[string]Decoder
	fallback Decoder
}

func NewDecodeStage() *DecodeStage {
	return &DecodeStage{decoders: make(map[string]Decoder)}
}

// Register binds a decoder to a source name. An empty source sets the
// fallback decoder used when no source-specific one matches.
func (s *DecodeStage) Register(source string, dec Decoder) {
	if dec == nil {
		return
	}
	if source == "" {
		s.fallback = dec
		return
	}
	s.decoders[source] = dec
}

func (s *DecodeStage) Name() string { return "decode" }

func (s *DecodeStage) Process(ctx context.Context, h *event.Handle) error {
	if h.IsDecoded() {
		return nil
	}

	doc := h.Document()
	source := documentSource(doc)

	dec := s.decoders[source]
	if dec == nil {
		dec = s.fallback
	}
	if dec != nil {
		if err := dec(ctx, doc); err != nil {
			internal.IncDecodeError(source)
			return fmt.Errorf("decode source %q: %w", source, err)
		}
	}

	h.SetDecoded()
	return nil
}

func documentSource(doc *event.Document) string {
	value, ok := doc.Lookup("eventpipe.source")
	if !ok {
		return ""
	}
	source, _ := value.(string)
	return source
}
