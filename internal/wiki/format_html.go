package wiki

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Template constants shared with the reverse converter. Changing one of
// these changes the canonical subset on both sides.
const (
	CenteredCellStyle = "text-align: center;"
	LinkClassWikiWord = "wikiword"
	LinkClassURL      = "url"
	RuleClassPrefix   = "hr"
	MaxRuleSize       = maxRuleDashes - minRuleDashes
)

var styleTags = [...]string{
	Emphasis:  "em",
	Strong:    "strong",
	Big:       "big",
	Small:     "small",
	Strike:    "strike",
	Sub:       "sub",
	Sup:       "sup",
	Underline: "u",
	Monospace: "tt",
}

// StyleTag returns the HTML element used for s.
func StyleTag(s Style) string {
	return styleTags[s]
}

// StyleForTag is the inverse of StyleTag.
func StyleForTag(tag string) (Style, bool) {
	for s, t := range styleTags {
		if t == tag {
			return Style(s), true
		}
	}
	return 0, false
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Comment data cannot hold "-->". Escaping every ">" and the "&" of the
// escape keeps the comment closed at the end of the template.
var (
	commentEscaper   = strings.NewReplacer("&", "&amp;", ">", "&gt;")
	commentUnescaper = strings.NewReplacer("&gt;", ">", "&amp;", "&")
)

// EscapeComment prepares wiki comment text for an HTML comment.
func EscapeComment(s string) string { return commentEscaper.Replace(s) }

// UnescapeComment reverses EscapeComment.
func UnescapeComment(s string) string { return commentUnescaper.Replace(s) }

// FormatHTML renders doc in canonical form.
func FormatHTML(doc *Document, cfg Config) string {
	r := htmlRenderer{cfg: cfg}
	r.blocks(doc.Blocks)
	return r.b.String()
}

// WriteHTML renders doc in canonical form to w.
func WriteHTML(w io.Writer, doc *Document, cfg Config) error {
	_, err := io.WriteString(w, FormatHTML(doc, cfg))
	return err
}

type htmlRenderer struct {
	cfg Config
	b   strings.Builder
}

func (r *htmlRenderer) blocks(blocks []Block) {
	for _, blk := range blocks {
		r.block(blk)
	}
}

func (r *htmlRenderer) block(blk Block) {
	switch b := blk.(type) {
	case Heading:
		tag := "h" + strconv.Itoa(b.Level+1)
		r.b.WriteString("<" + tag + ">")
		r.inline(b.Text)
		r.b.WriteString("</" + tag + ">\n")
	case Paragraph:
		r.b.WriteString("<p>")
		r.inline(b.Text)
		r.b.WriteString(" </p>\n")
	case List:
		r.list(b)
	case Preformatted:
		r.b.WriteString("<pre>\n")
		r.b.WriteString(textEscaper.Replace(strings.Join(b.Lines, "\n")))
		r.b.WriteString("</pre>\n")
	case Table:
		r.table(b)
	case Rule:
		if b.Size == 0 {
			r.b.WriteString("<hr/>\n")
		} else {
			r.b.WriteString(`<hr class="` + RuleClassPrefix + strconv.Itoa(b.Size) + `"/>` + "\n")
		}
	case Comment:
		r.b.WriteString("<!--" + EscapeComment(b.Text) + "-->\n")
	}
}

func (r *htmlRenderer) list(l List) {
	switch l.Kind {
	case Bullet:
		r.b.WriteString("<ul>\n")
	case Numbered:
		r.b.WriteString(`<ol type="` + string(rune(l.Number)) + `">` + "\n")
	case Definition:
		r.b.WriteString("<dl>\n")
	}
	for _, item := range l.Items {
		if l.Kind == Definition {
			r.b.WriteString("<dt>")
			r.inline(item.Term)
			r.b.WriteString("</dt>\n<dd>")
			r.itemBody(item.Body)
			r.b.WriteString("</dd>\n")
			continue
		}
		r.b.WriteString("<li>")
		r.itemBody(item.Body)
		r.b.WriteString("</li>\n")
	}
	switch l.Kind {
	case Bullet:
		r.b.WriteString("</ul>\n")
	case Numbered:
		r.b.WriteString("</ol>\n")
	case Definition:
		r.b.WriteString("</dl>\n")
	}
}

// itemBody keeps a leading paragraph on the item's opening line; any other
// first block starts on a new line.
func (r *htmlRenderer) itemBody(body []Block) {
	if len(body) > 0 {
		if _, ok := body[0].(Paragraph); ok {
			r.block(body[0])
			r.blocks(body[1:])
			return
		}
	}
	r.b.WriteString("\n")
	r.blocks(body)
}

func (r *htmlRenderer) table(t Table) {
	r.b.WriteString("<div>\n<table>\n")
	for _, row := range t.Rows {
		r.b.WriteString("<tr>\n")
		for _, cell := range row.Cells {
			if cell.Span > 1 {
				r.b.WriteString(`<td colspan="` + strconv.Itoa(cell.Span) + `" style="` + CenteredCellStyle + `">` + "\n")
			} else {
				r.b.WriteString("<td>\n")
			}
			r.b.WriteString("<p>")
			r.inline(cell.Text)
			r.b.WriteString("</p>\n</td>\n")
		}
		r.b.WriteString("</tr>\n")
	}
	r.b.WriteString("</table>\n</div>\n")
}

func (r *htmlRenderer) inline(run InlineRun) {
	for _, ev := range run {
		switch ev.Kind {
		case InlineText:
			r.b.WriteString(textEscaper.Replace(ev.Text))
		case InlineOpen:
			r.b.WriteString("<" + StyleTag(ev.Style) + ">")
		case InlineClose:
			r.b.WriteString("</" + StyleTag(ev.Style) + ">")
		case InlineLink:
			r.link(ev.Link)
		case InlineLineBreak:
			r.b.WriteString("<br/>")
		}
	}
}

func (r *htmlRenderer) link(l Link) {
	switch l.Kind {
	case LinkWikiWord:
		r.b.WriteString(`<a class="` + LinkClassWikiWord + `" href="` + html.EscapeString(r.cfg.PageURLPrefix+l.Target) + `">`)
	case LinkURL:
		r.b.WriteString(`<a class="` + LinkClassURL + `" href="` + html.EscapeString(l.Target) + `">`)
	default:
		r.b.WriteString(`<a href="` + html.EscapeString(r.cfg.PageURLPrefix+l.Target) + `">`)
	}
	r.b.WriteString(textEscaper.Replace(l.Label))
	r.b.WriteString("</a>")
}
