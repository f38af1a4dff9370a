package event

import (
	"errors"
	"testing"
)

// TestNewHandleWrapsDocument tests that a handle returns the same document it was built from.
func TestNewHandleWrapsDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"id": 1}`))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}

	handle, err := NewHandle(doc)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}
	if handle.Document() != doc {
		t.Fatalf("expected handle to return the same document pointer")
	}
}

// TestNewHandleNilDocument tests that constructing a handle without a document fails fast.
func TestNewHandleNilDocument(t *testing.T) {
	handle, err := NewHandle(nil)
	if !errors.Is(err, ErrNilDocument) {
		t.Fatalf("expected ErrNilDocument, got %v", err)
	}
	if handle != nil {
		t.Fatalf("expected nil handle on construction failure")
	}
}

// TestHandleStartsUndecoded tests that a fresh handle reports undecoded.
func TestHandleStartsUndecoded(t *testing.T) {
	handle := mustHandle(t, `{"id": 1}`)
	if handle.IsDecoded() {
		t.Fatalf("expected fresh handle to be undecoded")
	}
}

// TestSetDecodedIsIdempotent tests that marking decoded sticks and repeating it changes nothing.
func TestSetDecodedIsIdempotent(t *testing.T) {
	handle := mustHandle(t, `{"id": 1}`)

	handle.SetDecoded()
	if !handle.IsDecoded() {
		t.Fatalf("expected handle to be decoded after SetDecoded")
	}

	handle.SetDecoded()
	handle.SetDecoded()
	if !handle.IsDecoded() {
		t.Fatalf("expected handle to stay decoded after repeated SetDecoded")
	}
}

// TestHandleDocumentSurvivesDecoding tests that decoding state does not touch the document.
func TestHandleDocumentSurvivesDecoding(t *testing.T) {
	handle := mustHandle(t, `{"id": 1}`)

	handle.SetDecoded()

	value, ok := handle.Document().Lookup("id")
	if !ok {
		t.Fatalf("expected id field to survive")
	}
	if number, _ := value.(float64); number != 1 {
		t.Fatalf("expected id 1, got %v", value)
	}
}

// TestTwoHandlesIndependentFlags tests that handles sharing a document keep independent flags.
func TestTwoHandlesIndependentFlags(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"id": 1}`))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}

	first, err := NewHandle(doc)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}
	second, err := NewHandle(doc)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}

	first.SetDecoded()
	if !first.IsDecoded() {
		t.Fatalf("expected first handle decoded")
	}
	if second.IsDecoded() {
		t.Fatalf("expected second handle to stay undecoded")
	}
}

func mustHandle(t *testing.T, payload string) *Handle {
	t.Helper()
	doc, err := ParseDocument([]byte(payload))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	handle, err := NewHandle(doc)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}
	return handle
}
