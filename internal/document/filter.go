package document

import "fmt"

// FilterOp is the comparison a leaf filter applies.
type FilterOp string

const (
	OpEquals FilterOp = "equals"
	OpIn     FilterOp = "in"
)

// Filter selects documents by field. A leaf compares Field with Value
// (OpEquals) or any of Values (OpIn); And/Or compose child filters. The zero
// Filter matches every document. Field "id" addresses the document id, any
// other field is a dotted path into the payload.
type Filter struct {
	Field  string
	Op     FilterOp
	Value  any
	Values []any
	And    []Filter
	Or     []Filter
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEquals, Value: v}
}

// In matches documents whose field equals any of vs.
func In(field string, vs ...any) Filter {
	return Filter{Field: field, Op: OpIn, Values: vs}
}

// And matches documents matching all of fs.
func And(fs ...Filter) Filter {
	return Filter{And: fs}
}

// Or matches documents matching any of fs.
func Or(fs ...Filter) Filter {
	return Filter{Or: fs}
}

// IsZero reports whether f has no constraints.
func (f Filter) IsZero() bool {
	return f.Field == "" && len(f.And) == 0 && len(f.Or) == 0
}

// Match evaluates f against doc.
func (f Filter) Match(doc *Document) bool {
	for _, sub := range f.And {
		if !sub.Match(doc) {
			return false
		}
	}
	if len(f.Or) > 0 {
		matched := false
		for _, sub := range f.Or {
			if sub.Match(doc) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.Field == "" {
		return true
	}

	got, ok := fieldText(doc, f.Field)
	if !ok {
		return false
	}
	switch f.Op {
	case OpIn:
		for _, v := range f.Values {
			if got == ScalarText(v) {
				return true
			}
		}
		return false
	default:
		return got == ScalarText(f.Value)
	}
}

func fieldText(doc *Document, field string) (string, bool) {
	if field == "id" {
		return doc.ID, true
	}
	val := NewView(doc.Data).Get(field)
	if val.Kind != KindScalar {
		return "", false
	}
	return ScalarText(val.Raw), true
}

// ScalarText renders a scalar the way filters compare it: numbers without
// trailing zeros, booleans as true/false.
func ScalarText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
