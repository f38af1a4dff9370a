package worker

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"eventpipe/pkg/event"
)

// Codec turns messages from a message broker into event handles.
type Codec interface {
	// Decode wraps a Watermill message's payload in a fresh, undecoded handle.
	Decode(topic string, msg *message.Message) (*event.Handle, error)
}

// DefaultCodec parses the message payload as a JSON document and stamps the
// broker context under the document's "eventpipe" namespace: the topic, the
// message metadata, and the source and type when the metadata carries them.
type DefaultCodec struct{}

func (DefaultCodec) Decode(topic string, msg *message.Message) (*event.Handle, error) {
	doc, err := event.ParseDocument(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("worker: decode message: %w", err)
	}

	// The intake gateway and the publishers wrap events in an envelope of
	// source, topic and payload. When the message looks like one, unwrap it
	// and carry the envelope fields into the inner document.
	if inner, env, ok := unwrapEnvelope(doc); ok {
		doc = inner
		doc.Set("eventpipe.source", env.source)
		if env.rule != "" {
			doc.Set("eventpipe.rule", env.rule)
		}
	}

	doc.Set("eventpipe.topic", topic)

	if len(msg.Metadata) > 0 {
		metadata := make(map[string]interface{}, len(msg.Metadata))
		for key, value := range msg.Metadata {
			metadata[key] = value
		}
		doc.Set("eventpipe.metadata", metadata)
	}

	if source := msg.Metadata.Get("source"); source != "" {
		if _, ok := doc.Lookup("eventpipe.source"); !ok {
			doc.Set("eventpipe.source", source)
		}
	}
	if eventType := msg.Metadata.Get("type"); eventType != "" {
		doc.Set("eventpipe.type", eventType)
	}

	return event.NewHandle(doc)
}

type envelopeFields struct {
	source string
	rule   string
}

// unwrapEnvelope recognizes documents of the shape {"source": ..., "topic": ...,
// "payload": {...}} and returns the payload as its own document.
func unwrapEnvelope(doc *event.Document) (*event.Document, envelopeFields, bool) {
	var env envelopeFields

	rawSource, ok := doc.Lookup("source")
	if !ok {
		return nil, env, false
	}
	source, ok := rawSource.(string)
	if !ok || source == "" {
		return nil, env, false
	}
	if _, ok := doc.Lookup("topic"); !ok {
		return nil, env, false
	}
	rawPayload, ok := doc.Lookup("payload")
	if !ok {
		return nil, env, false
	}
	payload, ok := rawPayload.(map[string]interface{})
	if !ok {
		return nil, env, false
	}

	env.source = source
	if rule, ok := doc.Lookup("rule"); ok {
		if s, ok := rule.(string); ok {
			env.rule = s
		}
	}
	return event.NewDocument(payload), env, true
}
