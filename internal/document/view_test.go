package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lexical(blocks ...map[string]any) map[string]any {
	children := make([]any, 0, len(blocks))
	for _, b := range blocks {
		children = append(children, b)
	}
	return map[string]any{
		"root": map[string]any{"type": "root", "children": children},
	}
}

func paragraph(texts ...string) map[string]any {
	children := make([]any, 0, len(texts))
	for _, t := range texts {
		children = append(children, map[string]any{"type": "text", "text": t})
	}
	return map[string]any{"type": "paragraph", "children": children}
}

func TestView_Get(t *testing.T) {
	data := map[string]any{
		"title": "Hello",
		"meta": map[string]any{
			"author": map[string]any{"name": "Ada"},
			"tags":   []any{"a", "b"},
		},
		"count": 3.0,
		"empty": nil,
	}
	v := NewView(data)

	assert.Equal(t, Value{Kind: KindScalar, Raw: "Hello"}, v.Get("title"))
	assert.Equal(t, Value{Kind: KindScalar, Raw: "Ada"}, v.Get("meta.author.name"))
	assert.Equal(t, Value{Kind: KindScalar, Raw: "b"}, v.Get("meta.tags.1"))
	assert.Equal(t, KindStructured, v.Get("meta.author").Kind)
	assert.Equal(t, KindMissing, v.Get("meta.missing.deeper").Kind)
	assert.Equal(t, KindMissing, v.Get("title.length").Kind)
	assert.Equal(t, KindMissing, v.Get("meta.tags.5").Kind)
	assert.Equal(t, KindMissing, v.Get("empty").Kind)
	assert.Equal(t, KindMissing, v.Get("").Kind)
}

func TestView_Resolve(t *testing.T) {
	data := map[string]any{
		"title":   "<p>Hello <b>World</b></p>",
		"count":   3.0,
		"content": lexical(paragraph("Hello ", "there"), map[string]any{"type": "heading", "children": []any{map[string]any{"type": "text", "text": "Next"}}}),
		"blocks":  []any{map[string]any{"text": "one"}, "two", map[string]any{"children": []any{map[string]any{"text": "three"}}}},
		"nested":  map[string]any{"plain": true},
	}
	v := NewView(data)

	assert.Equal(t, "Hello World", v.Resolve("title"))
	assert.Equal(t, 3.0, v.Resolve("count"))
	assert.Equal(t, "Hello there Next ", v.Resolve("content"))
	assert.Equal(t, "one two three", v.Resolve("blocks"))
	assert.Equal(t, "", v.Resolve("nested"))
	assert.Nil(t, v.Resolve("absent.path"))
}

func TestFlattenRichText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string with html", "<h1>Title</h1>", "Title"},
		{"single paragraph", lexical(paragraph("Hi")), "Hi "},
		{"two paragraphs", lexical(paragraph("A"), paragraph("B")), "A B "},
		{"non block container", map[string]any{"root": map[string]any{"type": "root", "children": []any{
			map[string]any{"type": "list", "children": []any{map[string]any{"type": "text", "text": "x"}}},
		}}}, "x"},
		{"bare node", paragraph("solo"), "solo "},
		{"array", []any{"a", "b"}, "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenRichText(tt.in))
		})
	}
}
