package record

import (
	"regexp"
	"strings"
)

// markerPattern matches a reference marker embedded in rich text,
// e.g. <a class="salsah-link" href="IRI:book_1:IRI">.
var markerPattern = regexp.MustCompile(`IRI:([^\s"'<>]+?):IRI`)

// Marker returns the embedded reference marker for a record id.
func Marker(id string) string {
	return "IRI:" + id + ":IRI"
}

// TextRefs returns the distinct record ids referenced by markers in text,
// in order of first appearance.
func TextRefs(text string) []string {
	if !strings.Contains(text, "IRI:") {
		return nil
	}
	var ids []string
	seen := make(map[string]bool)
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// RewriteRefs replaces every marker in text with the value returned by
// resolve. Markers that resolve cannot handle are left in place and their
// ids are returned, deduplicated, in order of first appearance.
func RewriteRefs(text string, resolve func(id string) (string, bool)) (string, []string) {
	var missing []string
	seen := make(map[string]bool)
	out := markerPattern.ReplaceAllStringFunc(text, func(m string) string {
		id := markerPattern.FindStringSubmatch(m)[1]
		if v, ok := resolve(id); ok {
			return v
		}
		if !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
		return m
	})
	return out, missing
}
