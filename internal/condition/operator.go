// Package condition evaluates step conditions against resolved document values.
package condition

import "errors"

// Operator is a condition operator tag in "family:op" form.
type Operator string

const (
	TextLengthEquals              Operator = "text:length:equals"
	TextLengthGreaterThanEqualsTo Operator = "text:length:greaterThanEqualsTo"
	TextLengthLessThanEqualsTo    Operator = "text:length:lessThanEqualsTo"
	TextLengthGreaterThan         Operator = "text:length:greaterThan"
	TextLengthLessThan            Operator = "text:length:lessThan"
	TextStartsWith                Operator = "text:startsWith"
	TextEndsWith                  Operator = "text:endsWith"
	TextContains                  Operator = "text:contains"

	NumberEquals              Operator = "number:equals"
	NumberGreaterThanEqualsTo Operator = "number:greaterThanEqualsTo"
	NumberLessThanEqualsTo    Operator = "number:lessThanEqualsTo"
	NumberGreaterThan         Operator = "number:greaterThan"
	NumberLessThan            Operator = "number:lessThan"

	CheckboxEquals Operator = "checkBox:equals"

	DateEquals              Operator = "date:equals"
	DateGreaterThanEqualsTo Operator = "date:greaterThanEqualsTo"
	DateLessThanEqualsTo    Operator = "date:lessThanEqualsTo"
	DateGreaterThan         Operator = "date:greaterThan"
	DateLessThan            Operator = "date:lessThan"
)

// checkboxEqualsLower is accepted as an alias of CheckboxEquals.
const checkboxEqualsLower Operator = "checkbox:equals"

var (
	// ErrUnsupportedOperator is returned for unknown operator tags. Callers
	// treat it as condition-not-met.
	ErrUnsupportedOperator = errors.New("condition: unsupported operator")
	// ErrInvalidDate is returned when a date operand cannot be parsed.
	ErrInvalidDate = errors.New("condition: invalid date")
	// ErrInvalidDesired is returned when the desired value does not fit the operator.
	ErrInvalidDesired = errors.New("condition: invalid desired value")
)

// operators lists every supported operator tag.
var operators = []Operator{
	TextLengthEquals, TextLengthGreaterThanEqualsTo, TextLengthLessThanEqualsTo,
	TextLengthGreaterThan, TextLengthLessThan,
	TextStartsWith, TextEndsWith, TextContains,
	NumberEquals, NumberGreaterThanEqualsTo, NumberLessThanEqualsTo,
	NumberGreaterThan, NumberLessThan,
	CheckboxEquals,
	DateEquals, DateGreaterThanEqualsTo, DateLessThanEqualsTo,
	DateGreaterThan, DateLessThan,
}

// Supported reports whether op is a known operator tag.
func Supported(op Operator) bool {
	if op == checkboxEqualsLower {
		return true
	}
	for _, known := range operators {
		if known == op {
			return true
		}
	}
	return false
}
