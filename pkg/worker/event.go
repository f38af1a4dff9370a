package worker

import "eventpipe/pkg/event"

// Metadata returns the broker metadata the codec stamped into the document,
// or nil when the event did not come through a broker.
func Metadata(h *event.Handle) map[string]string {
	value, ok := h.Document().Lookup("eventpipe.metadata")
	if !ok {
		return nil
	}
	fields, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(fields))
	for key, item := range fields {
		if text, ok := item.(string); ok {
			out[key] = text
		}
	}
	return out
}

// Topic returns the topic the event was received on, if any.
func Topic(h *event.Handle) string {
	value, ok := h.Document().Lookup("eventpipe.topic")
	if !ok {
		return ""
	}
	topic, _ := value.(string)
	return topic
}

// Type returns the event type stamped by the codec, if any.
func Type(h *event.Handle) string {
	value, ok := h.Document().Lookup("eventpipe.type")
	if !ok {
		return ""
	}
	eventType, _ := value.(string)
	return eventType
}
