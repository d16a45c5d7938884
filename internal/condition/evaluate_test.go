package condition

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		op      Operator
		desired string
		want    bool
	}{
		// text length boundaries around desired = 5
		{"length equals exact", "Hello", TextLengthEquals, "5", true},
		{"length equals one above", "Hello!", TextLengthEquals, "5", false},
		{"length equals one below", "Hell", TextLengthEquals, "5", false},
		{"length gte exact", "Hello", TextLengthGreaterThanEqualsTo, "5", true},
		{"length gte one above", "Hello!", TextLengthGreaterThanEqualsTo, "5", true},
		{"length gte one below", "Hell", TextLengthGreaterThanEqualsTo, "5", false},
		{"length lte exact", "Hello", TextLengthLessThanEqualsTo, "5", true},
		{"length lte one above", "Hello!", TextLengthLessThanEqualsTo, "5", false},
		{"length lte one below", "Hell", TextLengthLessThanEqualsTo, "5", true},
		{"length gt exact", "Hello", TextLengthGreaterThan, "5", false},
		{"length gt one above", "Hello!", TextLengthGreaterThan, "5", true},
		{"length lt exact", "Hello", TextLengthLessThan, "5", false},
		{"length lt one below", "Hell", TextLengthLessThan, "5", true},
		{"length counts runes", "héllo", TextLengthEquals, "5", true},
		{"length of missing is zero", nil, TextLengthEquals, "0", true},
		{"length of number text", 12345.0, TextLengthEquals, "5", true},
		{"length desired with spaces", "Hi", TextLengthEquals, " 2 ", true},

		{"startsWith case-insensitive", "Hello World", TextStartsWith, "hello", true},
		{"startsWith miss", "Hello World", TextStartsWith, "world", false},
		{"endsWith case-insensitive", "Hello World", TextEndsWith, "WORLD", true},
		{"endsWith miss", "Hello World", TextEndsWith, "hello", false},
		{"contains case-insensitive", "Hello World", TextContains, "O wO", true},
		{"contains miss", "Hello World", TextContains, "xyz", false},
		{"contains on missing", nil, TextContains, "a", false},

		{"number equals", 10.0, NumberEquals, "10", true},
		{"number equals string value", "10.5", NumberEquals, "10.5", true},
		{"number equals int", 3, NumberEquals, "3", true},
		{"number equals json number", json.Number("42"), NumberEquals, "42", true},
		{"number gte boundary", 10.0, NumberGreaterThanEqualsTo, "10", true},
		{"number gte below", 9.99, NumberGreaterThanEqualsTo, "10", false},
		{"number lte boundary", 10.0, NumberLessThanEqualsTo, "10", true},
		{"number gt boundary", 10.0, NumberGreaterThan, "10", false},
		{"number gt above", 10.01, NumberGreaterThan, "10", true},
		{"number lt boundary", 10.0, NumberLessThan, "10", false},
		{"number lt below", -1.0, NumberLessThan, "10", true},
		{"NaN value equals", "abc", NumberEquals, "0", false},
		{"NaN value lt", "abc", NumberLessThan, "10", false},
		{"NaN value gt", "abc", NumberGreaterThan, "-10", false},
		{"missing value is NaN", nil, NumberLessThanEqualsTo, "10", false},
		{"empty string is NaN", "", NumberEquals, "0", false},
		{"bool is NaN", true, NumberEquals, "1", false},
		{"NaN desired", 5.0, NumberEquals, "five", false},

		{"checkbox true", true, CheckboxEquals, "true", true},
		{"checkbox true upper desired", true, CheckboxEquals, "TRUE", true},
		{"checkbox false", false, CheckboxEquals, "false", true},
		{"checkbox mismatch", false, CheckboxEquals, "true", false},
		{"checkbox missing is false", nil, CheckboxEquals, "false", true},
		{"checkbox string value", "false", CheckboxEquals, "false", true},
		{"checkbox lowercase alias", true, Operator("checkbox:equals"), "True", true},

		{"date equals", "2024-05-01", DateEquals, "2024-05-01T00:00:00Z", true},
		{"date equals differs", "2024-05-02", DateEquals, "2024-05-01", false},
		{"date gte same", "2024-05-01T10:00:00Z", DateGreaterThanEqualsTo, "2024-05-01T10:00:00Z", true},
		{"date gte before", "2024-04-30", DateGreaterThanEqualsTo, "2024-05-01", false},
		{"date lte same", "2024-05-01", DateLessThanEqualsTo, "2024-05-01", true},
		{"date gt after", "2024-05-02", DateGreaterThan, "2024-05-01", true},
		{"date gt same", "2024-05-01", DateGreaterThan, "2024-05-01", false},
		{"date lt before", "2024-04-30", DateLessThan, "2024-05-01", true},
		{"date time value", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), DateEquals, "2024-05-01", true},
		{"date epoch millis", float64(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).UnixMilli()), DateEquals, "2024-05-01", true},
		{"date with offset", "2024-05-01T02:00:00+02:00", DateEquals, "2024-05-01T00:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.value, tt.op, tt.desired)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		op      Operator
		desired string
		wantErr error
	}{
		{"unknown operator", "x", Operator("text:matches"), "x", ErrUnsupportedOperator},
		{"empty operator", "x", Operator(""), "x", ErrUnsupportedOperator},
		{"bad value date", "not a date", DateEquals, "2024-05-01", ErrInvalidDate},
		{"bad desired date", "2024-05-01", DateLessThan, "someday", ErrInvalidDate},
		{"missing date", nil, DateGreaterThan, "2024-05-01", ErrInvalidDate},
		{"non integer length", "abc", TextLengthEquals, "three", ErrInvalidDesired},
		{"checkbox desired", true, CheckboxEquals, "yes", ErrInvalidDesired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.value, tt.op, tt.desired)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, got)
		})
	}
}

func TestSupported(t *testing.T) {
	for _, op := range operators {
		assert.True(t, Supported(op), op)
	}
	assert.True(t, Supported("checkbox:equals"))
	assert.False(t, Supported("text:regex"))
}
