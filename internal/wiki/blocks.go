package wiki

import (
	"fmt"
	"strings"
)

// Parse builds a Document from wiki text. It only fails when cfg.Nesting is
// NestingStrict and the text contains malformed list nesting.
func Parse(text string, cfg Config) (*Document, error) {
	b := newBuilder(cfg)
	for _, line := range splitLines(text) {
		b.feed(line)
		if b.err != nil {
			return nil, b.err
		}
	}
	b.finish()
	return &Document{Blocks: b.blocks, Issues: b.issues}, nil
}

// ToHTML parses text and renders it in canonical form.
func ToHTML(text string, cfg Config) (string, error) {
	doc, err := Parse(text, cfg)
	if err != nil {
		return "", err
	}
	return FormatHTML(doc, cfg), nil
}

type openList struct {
	list  List
	depth int
	cur   *openItem
}

type openItem struct {
	item ListItem
}

type openParagraph struct {
	depth int
	lines []string
}

type openPre struct {
	depth int
	lines []string
}

type builder struct {
	cfg      Config
	blocks   []Block
	lists    []*openList
	para     *openParagraph
	pre      *openPre
	table    *Table
	blankRun int
	lineNo   int
	issues   []Issue
	err      error
}

func newBuilder(cfg Config) *builder {
	if cfg.TabWidth <= 0 {
		cfg.TabWidth = DefaultTabWidth
	}
	return &builder{cfg: cfg}
}

func (b *builder) feed(raw string) {
	b.lineNo++
	if b.pre != nil {
		b.feedPre(raw)
		return
	}

	info := classifyLine(raw, b.cfg.TabWidth)
	if info.kind == lineBlank {
		b.blankRun++
		b.closeParagraph()
		if b.blankRun >= 2 {
			b.closeAll()
		}
		return
	}
	b.blankRun = 0

	if info.kind != lineTableRow {
		b.closeTable()
	}

	switch info.kind {
	case lineComment:
		b.closeAll()
		b.blocks = append(b.blocks, Comment{Text: info.text})
	case lineHeading:
		b.closeAll()
		b.blocks = append(b.blocks, Heading{Level: info.level, Text: parseInline(info.text, b.cfg)})
	case lineRule:
		b.closeAll()
		b.blocks = append(b.blocks, Rule{Size: info.level})
	case lineTableRow:
		b.closeParagraph()
		b.closeListsFrom(0)
		if b.table == nil {
			b.table = &Table{}
		}
		b.table.Rows = append(b.table.Rows, b.buildRow(info.cells))
	case linePreOpen:
		if info.indent == 0 {
			b.closeAll()
			b.pre = &openPre{depth: -1}
			return
		}
		b.indented(info)
	case lineListItem:
		b.listItem(info)
	case lineText:
		if info.indent == 0 {
			b.closeListsFrom(0)
			b.addParagraphLine(-1, info.text)
			return
		}
		b.indented(info)
	}
}

func (b *builder) feedPre(raw string) {
	trimmed := strings.TrimLeft(raw, " \t")
	if strings.HasPrefix(trimmed, "}}}") {
		b.pre.lines = append(b.pre.lines, raw[:len(raw)-len(trimmed)])
		b.closePre()
		return
	}
	b.pre.lines = append(b.pre.lines, raw)
}

// indented handles non-item lines with leading indentation: they belong to
// the open item whose marker sits at the same indentation.
func (b *builder) indented(info lineInfo) {
	depth := info.indent - 1
	if depth >= len(b.lists) {
		b.malformed(info, depth)
		return
	}
	b.closeListsFrom(depth + 1)
	if info.kind == linePreOpen {
		b.closeParagraph()
		b.pre = &openPre{depth: depth}
		return
	}
	b.addParagraphLine(depth, info.text)
}

func (b *builder) listItem(info lineInfo) {
	depth := info.indent - 1
	if depth > len(b.lists) {
		b.malformed(info, depth)
		return
	}
	b.closeParagraph()
	b.closeListsFrom(depth + 1)

	m := info.marker
	if depth < len(b.lists) {
		l := b.lists[depth]
		if l.list.Kind == m.kind && l.list.Number == m.number {
			l.finishItem()
		} else {
			b.closeListsFrom(depth)
			b.openList(depth, m)
		}
	} else {
		b.openList(depth, m)
	}

	l := b.lists[depth]
	l.cur = &openItem{item: ListItem{Kind: m.kind, Depth: depth}}
	if m.kind == Definition {
		l.cur.item.Term = parseInline(m.term, b.cfg)
	}

	switch {
	case isPreOpen(m.content):
		b.pre = &openPre{depth: depth}
	case m.content != "":
		b.para = &openParagraph{depth: depth, lines: []string{m.content}}
	}
}

func (b *builder) openList(depth int, m listMarker) {
	b.lists = append(b.lists, &openList{
		list:  List{Kind: m.kind, Number: m.number},
		depth: depth,
	})
}

func (b *builder) malformed(info lineInfo, depth int) {
	maxDepth := len(b.lists)
	if info.kind != lineListItem {
		maxDepth--
	}
	switch b.cfg.Nesting {
	case NestingStrict:
		b.err = &NestingError{Line: b.lineNo, Depth: depth, MaxDepth: maxDepth}
	case NestingDrop:
		b.issues = append(b.issues, Issue{
			Line:   b.lineNo,
			Reason: fmt.Sprintf("depth %d exceeds %d, list dropped", depth, maxDepth),
		})
		if b.para != nil && b.para.depth >= 0 {
			b.para = nil
		}
		b.lists = nil
	default:
		b.issues = append(b.issues, Issue{
			Line:   b.lineNo,
			Reason: fmt.Sprintf("depth %d exceeds %d, restarted at top level", depth, maxDepth),
		})
		b.closeAll()
		switch info.kind {
		case lineListItem:
			info.indent = 1
			b.listItem(info)
		case linePreOpen:
			b.pre = &openPre{depth: -1}
		default:
			b.addParagraphLine(-1, strings.TrimLeft(info.text, " \t"))
		}
	}
}

func (b *builder) addParagraphLine(depth int, text string) {
	if b.para != nil && b.para.depth == depth {
		b.para.lines = append(b.para.lines, text)
		return
	}
	b.closeParagraph()
	b.para = &openParagraph{depth: depth, lines: []string{text}}
}

func (b *builder) buildRow(segments []string) Row {
	var row Row
	span := 1
	for _, seg := range segments {
		if seg == "" {
			span++
			continue
		}
		row.Cells = append(row.Cells, Cell{
			Span:     span,
			Centered: span > 1,
			Text:     parseInline(seg, b.cfg),
		})
		span = 1
	}
	return row
}

// appendBlock adds blk to the body of the open item at depth, or to the
// document when depth is negative.
func (b *builder) appendBlock(depth int, blk Block) {
	if depth < 0 || depth >= len(b.lists) {
		b.blocks = append(b.blocks, blk)
		return
	}
	it := b.lists[depth].cur
	it.item.Body = append(it.item.Body, blk)
}

func (b *builder) closeParagraph() {
	if b.para == nil {
		return
	}
	p := b.para
	b.para = nil
	b.appendBlock(p.depth, Paragraph{Text: parseInline(strings.Join(p.lines, "\n"), b.cfg)})
}

func (b *builder) closePre() {
	if b.pre == nil {
		return
	}
	p := b.pre
	b.pre = nil
	b.appendBlock(p.depth, Preformatted{Lines: p.lines})
}

func (b *builder) closeTable() {
	if b.table == nil {
		return
	}
	b.blocks = append(b.blocks, *b.table)
	b.table = nil
}

// closeListsFrom closes every open list at depth >= level, innermost first.
func (b *builder) closeListsFrom(level int) {
	for len(b.lists) > level {
		last := b.lists[len(b.lists)-1]
		if b.para != nil && b.para.depth >= last.depth {
			b.closeParagraph()
		}
		last.finishItem()
		b.lists = b.lists[:len(b.lists)-1]
		b.appendBlock(last.depth-1, last.list)
	}
}

func (b *builder) closeAll() {
	b.closeParagraph()
	b.closeListsFrom(0)
	b.closeTable()
}

func (b *builder) finish() {
	if b.pre != nil {
		b.pre.lines = append(b.pre.lines, "")
		b.closePre()
	}
	b.closeAll()
}

func (l *openList) finishItem() {
	if l.cur == nil {
		return
	}
	l.list.Items = append(l.list.Items, l.cur.item)
	l.cur = nil
}
