package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Evaluate reports whether value satisfies op against desired.
//
// value is a resolved scalar: nil (missing), string, bool, a numeric type,
// json.Number or time.Time. Missing values behave as the empty string.
// Unknown operators return ErrUnsupportedOperator; unparsable dates return
// ErrInvalidDate. Evaluate has no side effects.
func Evaluate(value any, op Operator, desired string) (bool, error) {
	switch op {
	case TextLengthEquals, TextLengthGreaterThanEqualsTo, TextLengthLessThanEqualsTo,
		TextLengthGreaterThan, TextLengthLessThan:
		want, err := strconv.Atoi(strings.TrimSpace(desired))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not an integer length", ErrInvalidDesired, desired)
		}
		return compareInts(op, utf8.RuneCountInString(textOf(value)), want), nil

	case TextStartsWith:
		return strings.HasPrefix(strings.ToLower(textOf(value)), strings.ToLower(desired)), nil
	case TextEndsWith:
		return strings.HasSuffix(strings.ToLower(textOf(value)), strings.ToLower(desired)), nil
	case TextContains:
		return strings.Contains(strings.ToLower(textOf(value)), strings.ToLower(desired)), nil

	case NumberEquals, NumberGreaterThanEqualsTo, NumberLessThanEqualsTo,
		NumberGreaterThan, NumberLessThan:
		return compareFloats(op, numberOf(value), parseNumber(desired)), nil

	case CheckboxEquals, checkboxEqualsLower:
		var want bool
		switch {
		case strings.EqualFold(strings.TrimSpace(desired), "true"):
			want = true
		case strings.EqualFold(strings.TrimSpace(desired), "false"):
			want = false
		default:
			return false, fmt.Errorf("%w: %q is not true or false", ErrInvalidDesired, desired)
		}
		return truthy(value) == want, nil

	case DateEquals, DateGreaterThanEqualsTo, DateLessThanEqualsTo,
		DateGreaterThan, DateLessThan:
		got, err := timeOf(value)
		if err != nil {
			return false, err
		}
		want, err := parseTime(desired)
		if err != nil {
			return false, err
		}
		return compareTimes(op, got, want), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
}

func compareInts(op Operator, got, want int) bool {
	switch op {
	case TextLengthEquals:
		return got == want
	case TextLengthGreaterThanEqualsTo:
		return got >= want
	case TextLengthLessThanEqualsTo:
		return got <= want
	case TextLengthGreaterThan:
		return got > want
	case TextLengthLessThan:
		return got < want
	}
	return false
}

// compareFloats relies on IEEE semantics: any comparison with NaN is false.
func compareFloats(op Operator, got, want float64) bool {
	switch op {
	case NumberEquals:
		return got == want
	case NumberGreaterThanEqualsTo:
		return got >= want
	case NumberLessThanEqualsTo:
		return got <= want
	case NumberGreaterThan:
		return got > want
	case NumberLessThan:
		return got < want
	}
	return false
}

func compareTimes(op Operator, got, want time.Time) bool {
	switch op {
	case DateEquals:
		return got.Equal(want)
	case DateGreaterThanEqualsTo:
		return !got.Before(want)
	case DateLessThanEqualsTo:
		return !got.After(want)
	case DateGreaterThan:
		return got.After(want)
	case DateLessThan:
		return got.Before(want)
	}
	return false
}

func textOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(value)
}

// numberOf coerces value to a float. Anything without a numeric reading,
// including booleans and the empty string, is NaN.
func numberOf(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		return parseNumber(v)
	}
	return math.NaN()
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v))); err == nil {
			return b
		}
		return v != ""
	}
	f := numberOf(value)
	return !math.IsNaN(f) && f != 0
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func timeOf(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseTime(v)
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing value", ErrInvalidDate)
	}
	ms := numberOf(value)
	if math.IsNaN(ms) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, value)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
