// Package parser derives the read-only fields of a note from its content:
// the title and the ids of the notes it links to.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultTitle is used when content has no "# " heading line.
const DefaultTitle = "Untitled"

// linkRe matches [[12]], [[12|alias]] and [text](12).
var linkRe = regexp.MustCompile(`\[\[(\d+)(?:\|[^\]]+)?\]\]|\[[^\]]*\]\((\d+)\)`)

// Title returns the text following "# " on the first line whose trimmed form
// starts with "# ", scanning top to bottom. Without such a line it returns
// DefaultTitle.
func Title(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "# "); ok {
			return rest
		}
	}
	return DefaultTitle
}

// Links returns the deduplicated note ids referenced from content, in order
// of first appearance.
func Links(content string) []int64 {
	matches := linkRe.FindAllStringSubmatch(content, -1)
	seen := make(map[int64]struct{}, len(matches))
	var out []int64
	for _, m := range matches {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
