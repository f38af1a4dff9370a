package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/bytedance/sonic"
)

// Document is one structured event payload: the raw bytes as received plus the
// decoded field tree. A single Document is shared by pointer between the intake
// side, the handle, and every pipeline stage; nobody copies it.
type Document struct {
	raw    []byte
	fields map[string]interface{}
}

// ParseDocument decodes a raw JSON payload into a Document. The payload must
// be a JSON object; arrays and scalars are rejected because the pipeline
// addresses events by field path.
func ParseDocument(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return nil, errors.New("event: empty payload")
	}
	var decoded interface{}
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("event: parse payload: %w", err)
	}
	fields, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, errors.New("event: payload root is not an object")
	}
	return &Document{
		raw:    append([]byte(nil), raw...),
		fields: fields,
	}, nil
}

// NewDocument wraps an already-decoded field tree. The raw form is
// re-marshalled lazily on demand.
func NewDocument(fields map[string]interface{}) *Document {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return &Document{fields: fields}
}

// Raw returns the payload bytes the document was parsed from. For documents
// built from a field tree it marshals the current fields.
func (d *Document) Raw() []byte {
	if d.raw != nil {
		return d.raw
	}
	encoded, err := sonic.Marshal(d.fields)
	if err != nil {
		return nil
	}
	return encoded
}

// Fields returns the decoded field tree. The map is the document's own state;
// stages that enrich the event mutate it through Set.
func (d *Document) Fields() map[string]interface{} {
	return d.fields
}

// Lookup resolves a dot/index path such as "source.ip" or "items[0].id"
// against the field tree. JSONPath expressions prefixed with "$." are resolved
// through the jsonpath engine.
func (d *Document) Lookup(path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	if strings.HasPrefix(path, "$.") || path == "$" {
		value, err := jsonpath.Get(path, map[string]interface{}(d.fields))
		if err != nil {
			return nil, false
		}
		return value, true
	}
	return lookupSteps(d.fields, splitPath(path))
}

// Set assigns a top-level field. Nested keys can be addressed with a dotted
// path; intermediate objects are created as needed.
func (d *Document) Set(path string, value interface{}) {
	if path == "" {
		return
	}
	steps := strings.Split(path, ".")
	node := d.fields
	for i, step := range steps {
		if i == len(steps)-1 {
			node[step] = value
			break
		}
		child, ok := node[step].(map[string]interface{})
		if !ok {
			child = make(map[string]interface{})
			node[step] = child
		}
		node = child
	}
	// Raw no longer reflects the tree; rebuild on next request.
	d.raw = nil
}

// MarshalJSON serializes the current field tree.
func (d *Document) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(d.fields)
}

type pathStep struct {
	key   string
	index int
	isKey bool
}

func splitPath(path string) []pathStep {
	steps := make([]pathStep, 0, 4)
	for _, part := range strings.Split(path, ".") {
		for {
			open := strings.IndexByte(part, '[')
			if open < 0 {
				if part != "" {
					steps = append(steps, pathStep{key: part, isKey: true})
				}
				break
			}
			if open > 0 {
				steps = append(steps, pathStep{key: part[:open], isKey: true})
			}
			closing := strings.IndexByte(part, ']')
			if closing < open {
				return nil
			}
			index, err := strconv.Atoi(part[open+1 : closing])
			if err != nil {
				return nil
			}
			steps = append(steps, pathStep{index: index})
			part = part[closing+1:]
		}
	}
	return steps
}

func lookupSteps(root interface{}, steps []pathStep) (interface{}, bool) {
	if steps == nil {
		return nil, false
	}
	node := root
	for _, step := range steps {
		if step.isKey {
			object, ok := node.(map[string]interface{})
			if !ok {
				return nil, false
			}
			child, ok := object[step.key]
			if !ok {
				return nil, false
			}
			node = child
			continue
		}
		list, ok := node.([]interface{})
		if !ok || step.index < 0 || step.index >= len(list) {
			return nil, false
		}
		node = list[step.index]
	}
	return node, true
}
