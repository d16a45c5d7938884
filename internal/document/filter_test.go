package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Match(t *testing.T) {
	doc := &Document{
		ID:         "doc-1",
		Collection: "posts",
		Data: map[string]any{
			"title":  "Hello",
			"status": "draft",
			"views":  7.0,
			"author": map[string]any{"id": "u-1"},
		},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"zero matches all", Filter{}, true},
		{"id equals", Eq("id", "doc-1"), true},
		{"field equals", Eq("title", "Hello"), true},
		{"field differs", Eq("title", "Bye"), false},
		{"number compares as text", Eq("views", 7), true},
		{"nested path", Eq("author.id", "u-1"), true},
		{"missing field", Eq("nope", "x"), false},
		{"in hit", In("status", "draft", "published"), true},
		{"in miss", In("status", "archived"), false},
		{"and", And(Eq("title", "Hello"), Eq("status", "draft")), true},
		{"and one false", And(Eq("title", "Hello"), Eq("status", "published")), false},
		{"or", Or(Eq("title", "Bye"), Eq("status", "draft")), true},
		{"or none", Or(Eq("title", "Bye"), Eq("status", "published")), false},
		{"nested composition", And(Eq("id", "doc-1"), Or(Eq("views", 1), In("views", 6, 7))), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(doc))
		})
	}
}
