package document

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies what a field path resolved to.
type Kind int

const (
	KindMissing Kind = iota
	KindScalar
	KindStructured
)

// Value is the raw result of a field lookup.
type Value struct {
	Kind Kind
	Raw  any
}

// View is a read-only, path-addressable view over a document payload.
type View struct {
	data map[string]any
}

// NewView wraps a document payload.
func NewView(data map[string]any) View {
	return View{data: data}
}

// Get walks a dotted path. Map keys and slice indexes are both accepted as
// path segments; any missing segment yields KindMissing.
func (v View) Get(path string) Value {
	if path == "" {
		return Value{Kind: KindMissing}
	}

	var cur any = v.data
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return Value{Kind: KindMissing}
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return Value{Kind: KindMissing}
			}
			cur = node[i]
		default:
			return Value{Kind: KindMissing}
		}
	}

	switch cur.(type) {
	case nil:
		return Value{Kind: KindMissing}
	case map[string]any, []any:
		return Value{Kind: KindStructured, Raw: cur}
	}
	return Value{Kind: KindScalar, Raw: cur}
}

// Resolve returns the comparable scalar at path. Missing fields resolve to
// nil, structured content is flattened to plain text and HTML tags are
// stripped from strings, so callers never see structured values.
func (v View) Resolve(path string) any {
	val := v.Get(path)
	switch val.Kind {
	case KindMissing:
		return nil
	case KindStructured:
		return FlattenRichText(val.Raw)
	}
	if s, ok := val.Raw.(string); ok {
		return StripTags(s)
	}
	return val.Raw
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes anything that looks like an HTML tag.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}
