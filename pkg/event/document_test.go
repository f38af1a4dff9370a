package event

import "testing"

// TestParseDocumentRejectsInvalid tests that malformed or non-object payloads are rejected.
func TestParseDocumentRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: ""},
		{name: "truncated", payload: `{"id":`},
		{name: "array root", payload: `[1, 2]`},
		{name: "scalar root", payload: `42`},
	}

	for _, tc := range cases {
		if _, err := ParseDocument([]byte(tc.payload)); err == nil {
			t.Fatalf("expected error for %s payload", tc.name)
		}
	}
}

// TestDocumentLookupPaths tests dotted and indexed path resolution.
func TestDocumentLookupPaths(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"source":{"ip":"10.0.0.1"},"tags":[{"name":"auth"},{"name":"ssh"}]}`))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}

	value, ok := doc.Lookup("source.ip")
	if !ok || value != "10.0.0.1" {
		t.Fatalf("expected source.ip lookup, got %v ok=%v", value, ok)
	}

	value, ok = doc.Lookup("tags[1].name")
	if !ok || value != "ssh" {
		t.Fatalf("expected tags[1].name lookup, got %v ok=%v", value, ok)
	}

	if _, ok := doc.Lookup("missing.field"); ok {
		t.Fatalf("expected missing path to report not found")
	}
	if _, ok := doc.Lookup("tags[9].name"); ok {
		t.Fatalf("expected out-of-range index to report not found")
	}
}

// TestDocumentLookupJSONPath tests that $. expressions go through the jsonpath engine.
func TestDocumentLookupJSONPath(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"alerts":[{"level":3},{"level":7}]}`))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}

	value, ok := doc.Lookup("$.alerts[1].level")
	if !ok {
		t.Fatalf("expected jsonpath lookup to succeed")
	}
	if number, _ := value.(float64); number != 7 {
		t.Fatalf("expected level 7, got %v", value)
	}
}

// TestDocumentSetCreatesNested tests that Set builds intermediate objects and refreshes Raw.
func TestDocumentSetCreatesNested(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"id": 1}`))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}

	doc.Set("eventpipe.source", "syslog")

	value, ok := doc.Lookup("eventpipe.source")
	if !ok || value != "syslog" {
		t.Fatalf("expected nested set to be readable, got %v ok=%v", value, ok)
	}

	raw := doc.Raw()
	if len(raw) == 0 {
		t.Fatalf("expected raw to re-marshal after Set")
	}
	reparsed, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("reparse raw: %v", err)
	}
	if value, ok := reparsed.Lookup("eventpipe.source"); !ok || value != "syslog" {
		t.Fatalf("expected re-marshalled raw to include the new field")
	}
}

// TestDocumentSetEmptyPath tests that an empty path is a no-op, like Lookup.
func TestDocumentSetEmptyPath(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"id": 1}`))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}

	doc.Set("", "value")

	if _, ok := doc.Fields()[""]; ok {
		t.Fatalf("expected empty path to leave the field tree untouched")
	}
	if len(doc.Fields()) != 1 {
		t.Fatalf("expected only the original field, got %v", doc.Fields())
	}
}
