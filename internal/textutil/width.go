package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// ExpandTabs replaces each tab with spaces up to the next multiple of
// tabWidth, counting wide runes as two columns.
func ExpandTabs(text string, tabWidth int) string {
	if tabWidth <= 0 || !strings.ContainsRune(text, '\t') {
		return text
	}

	var b strings.Builder
	column := 0
	for _, r := range text {
		if r != '\t' {
			b.WriteRune(r)
			column += max(runewidth.RuneWidth(r), 1)
			continue
		}
		spaces := tabWidth - column%tabWidth
		b.WriteString(strings.Repeat(" ", spaces))
		column += spaces
	}
	return b.String()
}

// DisplayWidth reports how many terminal columns text occupies.
func DisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// Truncate shortens text to at most width columns, ending it with an
// ellipsis when something was cut.
func Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	return runewidth.Truncate(text, width, ellipsis)
}

// Fit truncates or pads text so it occupies exactly width columns.
func Fit(text string, width int) string {
	return runewidth.FillRight(Truncate(text, width), width)
}
