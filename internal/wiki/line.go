package wiki

import (
	"strings"

	"github.com/kk-code-lab/wikiconv/internal/textutil"
)

const (
	maxHeadingLevel = 5
	minRuleDashes   = 4
	maxRuleDashes   = 10
)

type lineKind int

const (
	lineBlank lineKind = iota
	lineText
	lineComment
	lineHeading
	lineRule
	lineTableRow
	linePreOpen
	lineListItem
)

type lineInfo struct {
	kind   lineKind
	indent int
	// text is the line without its indentation. For headings it holds the
	// trimmed heading text, for comments the whole line.
	text   string
	level  int
	cells  []string
	marker listMarker
}

type listMarker struct {
	kind    ListKind
	number  NumberType
	term    string
	content string
}

func classifyLine(raw string, tabWidth int) lineInfo {
	if strings.TrimSpace(raw) == "" {
		return lineInfo{kind: lineBlank}
	}

	indent, rest := splitIndent(raw, tabWidth)
	if indent == 0 {
		if strings.HasPrefix(rest, "#") {
			return lineInfo{kind: lineComment, text: rest}
		}
		if level, text, ok := parseHeadingLine(rest); ok {
			return lineInfo{kind: lineHeading, level: level, text: text}
		}
		if size, ok := parseRuleLine(rest); ok {
			return lineInfo{kind: lineRule, level: size}
		}
		if cells, ok := parseTableRow(rest); ok {
			return lineInfo{kind: lineTableRow, cells: cells}
		}
	}

	if isPreOpen(rest) {
		return lineInfo{kind: linePreOpen, indent: indent, text: rest}
	}

	if indent > 0 {
		if marker, ok := parseListMarker(rest); ok {
			return lineInfo{kind: lineListItem, indent: indent, text: rest, marker: marker}
		}
	}

	return lineInfo{kind: lineText, indent: indent, text: rest}
}

// splitIndent returns the indentation width of raw, with tabs expanded, and
// the remainder of the line.
func splitIndent(raw string, tabWidth int) (int, string) {
	end := 0
	hasTab := false
	for end < len(raw) && (raw[end] == ' ' || raw[end] == '\t') {
		if raw[end] == '\t' {
			hasTab = true
		}
		end++
	}
	if !hasTab {
		return end, raw[end:]
	}
	expanded := textutil.ExpandTabs(raw[:end], tabWidth)
	return len(expanded), raw[end:]
}

func isPreOpen(rest string) bool {
	return strings.TrimRight(rest, " \t") == "{{{"
}

func parseHeadingLine(s string) (int, string, bool) {
	s = strings.TrimRight(s, " \t")
	n := countLeadingByte(s, '=')
	if n == 0 || n > maxHeadingLevel || len(s) < 2*n+3 {
		return 0, "", false
	}
	if !strings.HasSuffix(s, strings.Repeat("=", n)) {
		return 0, "", false
	}
	inner := s[n : len(s)-n]
	if inner[0] != ' ' || inner[len(inner)-1] != ' ' {
		return 0, "", false
	}
	text := strings.TrimSpace(inner)
	if text == "" {
		return 0, "", false
	}
	return n, text, true
}

func parseRuleLine(s string) (int, bool) {
	s = strings.TrimRight(s, " \t")
	n := countLeadingByte(s, '-')
	if n != len(s) || n < minRuleDashes || n > maxRuleDashes {
		return 0, false
	}
	return n - minRuleDashes, true
}

func parseTableRow(s string) ([]string, bool) {
	s = strings.TrimRight(s, " \t")
	if len(s) < 4 || !strings.HasPrefix(s, "||") || !strings.HasSuffix(s, "||") {
		return nil, false
	}
	return splitCells(s[2 : len(s)-2]), true
}

// splitCells splits a row body on "||", leaving inline monospace spans
// intact.
func splitCells(body string) []string {
	var cells []string
	start := 0
	for i := 0; i < len(body); {
		if strings.HasPrefix(body[i:], "{{{") {
			if end := strings.Index(body[i+3:], "}}}"); end >= 0 {
				i += 3 + end + 3
				continue
			}
		}
		if strings.HasPrefix(body[i:], "||") {
			cells = append(cells, body[start:i])
			i += 2
			start = i
			continue
		}
		i++
	}
	return append(cells, body[start:])
}

func parseListMarker(rest string) (listMarker, bool) {
	if content, ok := cutMarker(rest, "*"); ok {
		return listMarker{kind: Bullet, content: content}, true
	}

	if digits := countLeadingDigits(rest); digits > 0 {
		if content, ok := cutMarker(rest[digits:], "."); ok {
			return listMarker{kind: Numbered, number: '1', content: content}, true
		}
	}
	if len(rest) >= 2 {
		switch rest[0] {
		case 'a', 'A', 'i', 'I':
			if content, ok := cutMarker(rest[1:], "."); ok {
				return listMarker{kind: Numbered, number: NumberType(rest[0]), content: content}, true
			}
		}
	}

	if idx := strings.Index(rest, ":: "); idx > 0 && strings.TrimSpace(rest[:idx]) != "" {
		return listMarker{kind: Definition, term: rest[:idx], content: rest[idx+3:]}, true
	}
	if term, ok := strings.CutSuffix(rest, "::"); ok && strings.TrimSpace(term) != "" && !strings.Contains(term, ":: ") {
		return listMarker{kind: Definition, term: term}, true
	}

	return listMarker{}, false
}

// cutMarker accepts marker followed by a space or the end of the line.
func cutMarker(s, marker string) (string, bool) {
	if !strings.HasPrefix(s, marker) {
		return "", false
	}
	after := s[len(marker):]
	if after == "" {
		return "", true
	}
	if after[0] != ' ' {
		return "", false
	}
	return after[1:], true
}

func countLeadingByte(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

func countLeadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// splitLines breaks text into physical lines. A final newline does not
// produce an extra empty line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
