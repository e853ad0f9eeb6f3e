package jsonmerge

import (
	"fmt"

	"github.com/aymerick/raymond"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Fragment is the set of keys an installer owns inside a shared document:
// top-level key to an ordered object of sub-key to value.
type Fragment struct {
	entries *orderedmap.OrderedMap[string, *Object]
}

// ParseFragment parses data as a fragment. Every top-level value must be an
// object.
func ParseFragment(data []byte) (*Fragment, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("invalid fragment: %w", err)
	}
	f := &Fragment{entries: orderedmap.New[string, *Object]()}
	for _, key := range doc.Keys() {
		obj, ok := doc.Object(key)
		if !ok {
			return nil, fmt.Errorf("invalid fragment: %w: value of %q", ErrNotObject, key)
		}
		f.entries.Set(key, obj)
	}
	return f, nil
}

// RenderFragment expands a handlebars fragment template with vars and parses
// the result. Templates should use triple-stash ({{{libraryPath}}}) so
// paths are inserted unescaped.
func RenderFragment(tpl []byte, vars map[string]string) (*Fragment, error) {
	out, err := raymond.Render(string(tpl), vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render fragment: %w", err)
	}
	return ParseFragment([]byte(out))
}

// Keys returns the fragment's top-level keys in order.
func (f *Fragment) Keys() []string {
	keys := make([]string, 0, f.entries.Len())
	for pair := f.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Entries returns the sub-key object for key.
func (f *Fragment) Entries(key string) (*Object, bool) {
	return f.entries.Get(key)
}

// Size returns the total number of (key, sub-key) pairs.
func (f *Fragment) Size() int {
	n := 0
	for pair := f.entries.Oldest(); pair != nil; pair = pair.Next() {
		n += pair.Value.Len()
	}
	return n
}

// Coverage counts how many of the fragment's (key, sub-key) pairs doc holds
// with an equal value.
func (f *Fragment) Coverage(doc *Document) (matched, total int) {
	for pair := f.entries.Oldest(); pair != nil; pair = pair.Next() {
		total += pair.Value.Len()
		cur, ok := doc.Object(pair.Key)
		if !ok {
			continue
		}
		for sub := pair.Value.Oldest(); sub != nil; sub = sub.Next() {
			if v, present := cur.Get(sub.Key); present && valuesEqual(v, sub.Value) {
				matched++
			}
		}
	}
	return matched, total
}
