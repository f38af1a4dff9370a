package internal

import "encoding/json"

// Envelope is the wire unit the publishers carry: a raw event on its way into
// the pipeline, or an alert on its way out. Rule is set only for alerts.
type Envelope struct {
	Source  string          `json:"source"`
	Rule    string          `json:"rule,omitempty"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}
