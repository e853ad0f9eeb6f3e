// Package jsonmerge adds and removes a fixed set of keys inside shared JSON
// configuration documents such as .vscode/settings.json, leaving every
// other key, and the order of existing keys, as the user wrote them.
package jsonmerge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNotObject is returned when a document or fragment is valid JSON but
// its top level (or a fragment entry) is not an object.
var ErrNotObject = errors.New("not a JSON object")

// Object is an insertion-ordered JSON object whose values are kept as raw
// JSON so untouched values round-trip byte for byte (modulo whitespace).
type Object = orderedmap.OrderedMap[string, json.RawMessage]

func newObject() *Object {
	return orderedmap.New[string, json.RawMessage]()
}

// Document is a parsed destination configuration file.
type Document struct {
	root *Object
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{root: newObject()}
}

// ParseDocument parses data as a JSON object, preserving key order.
func ParseDocument(data []byte) (*Document, error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, err
	}
	return &Document{root: obj}, nil
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	return d.root.Len()
}

// Keys returns the top-level keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, d.root.Len())
	for pair := d.root.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get returns the raw value stored under key.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	return d.root.Get(key)
}

// Object returns the value under key as an ordered object. ok is false when
// the key is absent or holds a non-object value.
func (d *Document) Object(key string) (obj *Object, ok bool) {
	raw, present := d.root.Get(key)
	if !present {
		return nil, false
	}
	obj, err := parseObject(raw)
	if err != nil {
		return nil, false
	}
	return obj, true
}

// SetObject stores obj under key. An existing key keeps its position; a new
// key is appended.
func (d *Document) SetObject(key string, obj *Object) error {
	raw, err := encodeObject(obj)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	d.root.Set(key, raw)
	return nil
}

// Delete removes key from the document.
func (d *Document) Delete(key string) {
	d.root.Delete(key)
}

// Encode renders the document canonically: two-space indentation, no HTML
// escaping, keys in document order and a single trailing newline.
func (d *Document) Encode() ([]byte, error) {
	compact, err := encodeObject(d.root)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func parseObject(data []byte) (*Object, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, errors.New("invalid JSON")
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	obj := newObject()
	if err := json.Unmarshal(trimmed, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// encodeObject writes obj compactly. The ordered map's own marshaller
// escapes HTML, which would rewrite user values such as "<" needlessly.
func encodeObject(obj *Object) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := marshalNoEscape(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, pair.Value); err != nil {
			return nil, fmt.Errorf("value of %q: %w", pair.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// valuesEqual compares two raw JSON values structurally, so formatting and
// key order inside objects do not matter.
func valuesEqual(a, b json.RawMessage) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
