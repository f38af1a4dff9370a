package event

import "errors"

// ErrNilDocument is returned when a handle is constructed without a document.
var ErrNilDocument = errors.New("event: handle requires a document")

// Handle carries one document through the pipeline. Stages share the same
// handle by pointer; the document is released by the garbage collector once
// the last holder drops it.
//
// The decoded flag is per handle. Two handles wrapping the same document track
// their progress independently. Handle carries no locking: the worker confines
// each handle to a single goroutine at a time, so readers and the one writer
// never overlap.
type Handle struct {
	doc     *Document
	decoded bool
}

// NewHandle wraps a document in a fresh, undecoded handle. A nil document is
// rejected up front so an invalid handle can never reach the pipeline.
func NewHandle(doc *Document) (*Handle, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	return &Handle{doc: doc}, nil
}

// Document returns the wrapped document. Same pointer as passed at
// construction; the handle never replaces or mutates it.
func (h *Handle) Document() *Document {
	return h.doc
}

// IsDecoded reports whether the event has passed the decoding stage.
func (h *Handle) IsDecoded() bool {
	return h.decoded
}

// SetDecoded marks the decoding stage as complete. One-way and idempotent;
// there is no way back to undecoded.
func (h *Handle) SetDecoded() {
	h.decoded = true
}
