package main

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncateLines caps each line of s to max display cells, appending an
// ellipsis to anything cut. Inline base64 payloads produce lines far wider
// than any terminal; truncation keeps the preview readable without touching
// the underlying data.
func truncateLines(s string, max int) string {
	if max <= 0 {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if runewidth.StringWidth(line) > max {
			lines[i] = runewidth.Truncate(line, max, "…")
		}
	}

	return strings.Join(lines, "\n")
}
