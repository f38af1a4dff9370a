package pipeline

import (
	"context"
	"errors"

	"eventpipe/internal"
	"eventpipe/pkg/event"
)

// AnalyzeStage evaluates the rule engine over a decoded document and records
// the matches in the document under "eventpipe.matches" for the output stage.
type AnalyzeStage struct {
	engine *internal.RuleEngine
}

func NewAnalyzeStage(engine *internal.RuleEngine) *AnalyzeStage {
	return &AnalyzeStage{engine: engine}
}

func (s *AnalyzeStage) Name() string { return "analyze" }

func (s *AnalyzeStage) Process(ctx context.Context, h *event.Handle) error {
	if !h.IsDecoded() {
		return errors.New("analyze: event not decoded")
	}

	matches := s.engine.Evaluate(h.Document())
	if len(matches) == 0 {
		return nil
	}

	recorded := make([]interface{}, 0, len(matches))
	for _, match := range matches {
		internal.IncRuleMatch(match.Topic)
		entry := map[string]interface{}{
			"rule":  match.Rule,
			"topic": match.Topic,
		}
		if len(match.Drivers) > 0 {
			drivers := make([]interface{}, 0, len(match.Drivers))
			for _, driver := range match.Drivers {
				drivers = append(drivers, driver)
			}
			entry["drivers"] = drivers
		}
		recorded = append(recorded, entry)
	}
	h.Document().Set("eventpipe.matches", recorded)
	return nil
}
