package document

import "strings"

// FlattenRichText converts structured rich text into plain text.
//
// A map with a "root" node is walked depth first, concatenating "text" leaf
// nodes in document order and appending a space after every paragraph or
// heading block. Slices are flattened item by item and joined with spaces.
// Any other structure carries no text.
func FlattenRichText(v any) string {
	switch node := v.(type) {
	case string:
		return StripTags(node)
	case map[string]any:
		if root, ok := node["root"].(map[string]any); ok {
			return flattenNode(root)
		}
		if _, ok := node["type"]; ok {
			return flattenNode(node)
		}
		if text, ok := node["text"].(string); ok {
			return text
		}
		if children, ok := node["children"]; ok {
			return FlattenRichText(children)
		}
	case []any:
		parts := make([]string, 0, len(node))
		for _, item := range node {
			if m, ok := item.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					parts = append(parts, text)
					continue
				}
			}
			parts = append(parts, FlattenRichText(item))
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	return ""
}

func flattenNode(node map[string]any) string {
	kind, _ := node["type"].(string)
	if kind == "text" {
		text, _ := node["text"].(string)
		return text
	}

	var b strings.Builder
	if children, ok := node["children"].([]any); ok {
		for _, child := range children {
			if m, ok := child.(map[string]any); ok {
				b.WriteString(flattenNode(m))
			}
		}
	}
	if kind == "paragraph" || kind == "heading" {
		b.WriteByte(' ')
	}
	return b.String()
}
