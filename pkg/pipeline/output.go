package pipeline

import (
	"context"
	"errors"
	"log"

	"eventpipe/internal"
	"eventpipe/pkg/event"
	"eventpipe/pkg/storage"
)

// OutputStage publishes one alert per rule match and optionally records it in
// the alert store. Store failures are logged but do not fail the event; the
// alert already left on the wire.
type OutputStage struct {
	publisher internal.Publisher
	store     storage.AlertStore
	logger    *log.Logger
}

func NewOutputStage(publisher internal.Publisher, store storage.AlertStore, logger *log.Logger) *OutputStage {
	if logger == nil {
		logger = internal.NewLogger("output")
	}
	return &OutputStage{publisher: publisher, store: store, logger: logger}
}

func (s *OutputStage) Name() string { return "output" }

func (s *OutputStage) Process(ctx context.Context, h *event.Handle) error {
	if !h.IsDecoded() {
		return errors.New("output: event not decoded")
	}

	doc := h.Document()
	matches := recordedMatches(doc)
	if len(matches) == 0 {
		return nil
	}

	source := documentSource(doc)
	payload := doc.Raw()

	var err error
	for _, match := range matches {
		env := internal.Envelope{
			Source:  source,
			Rule:    match.Rule,
			Topic:   match.Topic,
			Payload: payload,
		}
		if publishErr := s.publisher.PublishForDrivers(ctx, match.Topic, env, match.Drivers); publishErr != nil {
			err = errors.Join(err, publishErr)
		}
		if s.store != nil {
			record := storage.AlertRecord{
				Source:      source,
				Rule:        match.Rule,
				Topic:       match.Topic,
				PayloadJSON: string(payload),
			}
			if storeErr := s.store.Insert(ctx, record); storeErr != nil {
				internal.IncStoreError(match.Topic)
				s.logger.Printf("store alert: %v", storeErr)
			}
		}
	}
	return err
}

func recordedMatches(doc *event.Document) []internal.RuleMatch {
	value, ok := doc.Lookup("eventpipe.matches")
	if !ok {
		return nil
	}
	entries, ok := value.([]interface{})
	if !ok {
		return nil
	}

	matches := make([]internal.RuleMatch, 0, len(entries))
	for _, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		match := internal.RuleMatch{}
		match.Rule, _ = fields["rule"].(string)
		match.Topic, _ = fields["topic"].(string)
		if match.Topic == "" {
			continue
		}
		if drivers, ok := fields["drivers"].([]interface{}); ok {
			for _, driver := range drivers {
				if name, ok := driver.(string); ok {
					match.Drivers = append(match.Drivers, name)
				}
			}
		}
		matches = append(matches, match)
	}
	return matches
}
