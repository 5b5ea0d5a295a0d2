package wiki

import "strings"

// StyleMarkup holds the wiki delimiters of an inline style.
type StyleMarkup struct {
	Open  string
	Close string
}

var styleMarkup = [...]StyleMarkup{
	Emphasis:  {Open: "''", Close: "''"},
	Strong:    {Open: "'''", Close: "'''"},
	Big:       {Open: "~+", Close: "+~"},
	Small:     {Open: "~-", Close: "-~"},
	Strike:    {Open: "--(", Close: ")--"},
	Sub:       {Open: ",,", Close: ",,"},
	Sup:       {Open: "^", Close: "^"},
	Underline: {Open: "__", Close: "__"},
	Monospace: {Open: "{{{", Close: "}}}"},
}

// MarkupOf returns the wiki delimiters for s.
func MarkupOf(s Style) StyleMarkup {
	return styleMarkup[s]
}

// FormatWiki renders doc as wiki text without a trailing newline. For any
// document produced by Parse, parsing the result yields the same document.
func FormatWiki(doc *Document, cfg Config) string {
	w := wikiWriter{cfg: cfg}
	for i, blk := range doc.Blocks {
		if i > 0 {
			for n := blankLinesBetween(doc.Blocks[i-1], blk); n > 0; n-- {
				w.add("")
			}
		}
		w.block(blk, "", 0)
	}
	return strings.Join(w.lines, "\n")
}

// blankLinesBetween returns how many blank lines must separate two
// top-level blocks so that they parse back as distinct blocks.
func blankLinesBetween(prev, next Block) int {
	if KindOf(prev) == BlockComment || KindOf(next) == BlockComment {
		return 0
	}
	if pl, ok := prev.(List); ok {
		if nl, ok := next.(List); ok && pl.Kind == nl.Kind && pl.Number == nl.Number {
			return 2
		}
	}
	if KindOf(prev) == BlockTable && KindOf(next) == BlockTable {
		return 2
	}
	return 1
}

type wikiWriter struct {
	cfg   Config
	lines []string
}

func (w *wikiWriter) add(line string) {
	w.lines = append(w.lines, line)
}

// block writes blk. indent is the marker indentation of the enclosing list
// item and depth the depth a nested list would get.
func (w *wikiWriter) block(blk Block, indent string, depth int) {
	switch b := blk.(type) {
	case Heading:
		marks := strings.Repeat("=", b.Level)
		w.add(marks + " " + w.inline(b.Text) + " " + marks)
	case Paragraph:
		w.text(indent, indent, w.inline(b.Text))
	case List:
		w.list(b, depth)
	case Preformatted:
		w.pre(indent+"{{{", b.Lines)
	case Table:
		w.table(b)
	case Rule:
		w.add(strings.Repeat("-", minRuleDashes+b.Size))
	case Comment:
		w.add(b.Text)
	}
}

// text writes a possibly multi-line span; the first line gets first as its
// prefix and the continuation lines get indent.
func (w *wikiWriter) text(first, indent, span string) {
	for i, line := range strings.Split(span, "\n") {
		if i == 0 {
			w.add(first + line)
			continue
		}
		w.add(indent + line)
	}
}

func (w *wikiWriter) pre(open string, lines []string) {
	w.add(open)
	if len(lines) == 0 {
		w.add("}}}")
		return
	}
	last := len(lines) - 1
	for _, line := range lines[:last] {
		w.add(line)
	}
	w.add(lines[last] + "}}}")
}

func (w *wikiWriter) list(l List, depth int) {
	indent := strings.Repeat(" ", depth+1)
	for _, item := range l.Items {
		head := indent
		switch l.Kind {
		case Bullet:
			head += "*"
		case Numbered:
			head += string(rune(l.Number)) + "."
		case Definition:
			head += w.inline(item.Term) + "::"
		}
		w.item(head, indent, depth, item.Body)
	}
}

func (w *wikiWriter) item(head, indent string, depth int, body []Block) {
	if len(body) == 0 {
		w.add(head)
		return
	}
	switch b := body[0].(type) {
	case Paragraph:
		w.text(head+" ", indent, w.inline(b.Text))
		body = body[1:]
	case Preformatted:
		w.pre(head+" {{{", b.Lines)
		body = body[1:]
	default:
		w.add(head)
	}
	for _, blk := range body {
		if KindOf(blk) == BlockParagraph {
			w.add("")
		}
		w.block(blk, indent, depth+1)
	}
}

func (w *wikiWriter) table(t Table) {
	for _, row := range t.Rows {
		if len(row.Cells) == 0 {
			w.add("||||")
			continue
		}
		var sb strings.Builder
		for _, cell := range row.Cells {
			sb.WriteString(strings.Repeat("||", max(cell.Span, 1)))
			text := w.inline(cell.Text)
			if text == "" {
				text = " "
			}
			sb.WriteString(text)
		}
		sb.WriteString("||")
		w.add(sb.String())
	}
}

func (w *wikiWriter) inline(run InlineRun) string {
	var sb strings.Builder
	literal := false
	for _, ev := range run {
		switch ev.Kind {
		case InlineText:
			if literal {
				sb.WriteString(ev.Text)
			} else {
				sb.WriteString(w.escape(ev.Text))
			}
		case InlineOpen:
			literal = literal || ev.Style == Monospace
			sb.WriteString(styleMarkup[ev.Style].Open)
		case InlineClose:
			if ev.Style == Monospace {
				literal = false
			}
			sb.WriteString(styleMarkup[ev.Style].Close)
		case InlineLink:
			sb.WriteString(linkMarkup(ev.Link))
		case InlineLineBreak:
			sb.WriteString(lineBreakMarkup)
		}
	}
	return sb.String()
}

func linkMarkup(l Link) string {
	switch l.Kind {
	case LinkFree:
		if l.Label == "" || l.Label == l.Target {
			return "[[" + l.Target + "]]"
		}
		return "[[" + l.Target + "|" + l.Label + "]]"
	default:
		return l.Target
	}
}

// escape prefixes words that would parse as WikiWords with "!".
func (w *wikiWriter) escape(s string) string {
	if !w.cfg.BangEscape {
		return s
	}
	runes := []rune(s)
	var sb strings.Builder
	for i := 0; i < len(runes); {
		if wordBoundaryBefore(runes, i) {
			if n := wikiWordAt(runes, i); n > 0 {
				sb.WriteByte('!')
				sb.WriteString(string(runes[i : i+n]))
				i += n
				continue
			}
		}
		sb.WriteRune(runes[i])
		i++
	}
	return sb.String()
}
