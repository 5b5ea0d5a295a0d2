package htmlconv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kk-code-lab/wikiconv/internal/wiki"
)

// ToWiki converts an HTML page in the convertible subset back to wiki
// text. The input is parsed, normalized and converted; any construct
// outside the subset yields a *ConvertError.
func ToWiki(htmlText string, cfg wiki.Config) (string, error) {
	root, err := ParseString(htmlText)
	if err != nil {
		return "", err
	}
	tree := Normalize(root)
	doc, err := ConvertTree(tree, cfg)
	if err != nil {
		return "", err
	}
	text := wiki.FormatWiki(doc, cfg)
	if err := checkStable(tree, doc, text, cfg); err != nil {
		return "", err
	}
	return text, nil
}

// checkStable renders text again and converts the result back. A document
// that does not come back unchanged cannot be expressed as wiki text, so
// the conversion fails instead of altering the content.
func checkStable(root *Node, doc *wiki.Document, text string, cfg wiki.Config) error {
	fail := func(reason string) error {
		at, err := contentRoot(root)
		if err != nil {
			at = root
		}
		return newConvertError(at, reason)
	}
	page, err := wiki.ToHTML(text, cfg)
	if err != nil {
		return fail("content does not render back from wiki text: " + err.Error())
	}
	again, err := ParseString(page)
	if err != nil {
		return fail("content does not render back from wiki text: " + err.Error())
	}
	back, err := ConvertTree(Normalize(again), cfg)
	if err != nil {
		return fail("content does not convert back from wiki text: " + err.Error())
	}
	for i := 0; i < len(doc.Blocks) || i < len(back.Blocks); i++ {
		if i >= len(doc.Blocks) || i >= len(back.Blocks) || blockHTML(doc.Blocks[i], cfg) != blockHTML(back.Blocks[i], cfg) {
			return fail(fmt.Sprintf("block %d changes when written as wiki text", i+1))
		}
	}
	return nil
}

func blockHTML(b wiki.Block, cfg wiki.Config) string {
	return wiki.FormatHTML(&wiki.Document{Blocks: []wiki.Block{b}}, cfg)
}

// RoundTrip renders text to canonical HTML and converts it back. For text
// in canonical form the result equals the input.
func RoundTrip(text string, cfg wiki.Config) (string, error) {
	page, err := wiki.ToHTML(text, cfg)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	back, err := ToWiki(page, cfg)
	if err != nil {
		return "", fmt.Errorf("convert back: %w", err)
	}
	return back, nil
}

// ConvertTree builds a document from a normalized tree. An <html><body>
// wrapper around the content is accepted.
func ConvertTree(n *Node, cfg wiki.Config) (*wiki.Document, error) {
	c := converter{cfg: cfg}
	body, err := contentRoot(n)
	if err != nil {
		return nil, err
	}
	blocks, err := c.blocks(body)
	if err != nil {
		return nil, err
	}
	return &wiki.Document{Blocks: blocks}, nil
}

func contentRoot(n *Node) (*Node, error) {
	for {
		elems := elementChildren(n)
		if len(elems) != 1 || len(elems) != len(n.Children) {
			break
		}
		switch elems[0].Tag {
		case "html":
			n = elems[0]
			continue
		case "body":
			n = elems[0]
		}
		break
	}
	if n.Tag == "html" {
		var body *Node
		for _, c := range n.Children {
			switch {
			case c.Type == ElementNode && c.Tag == "head":
			case c.Type == ElementNode && c.Tag == "body" && body == nil:
				body = c
			default:
				return nil, newConvertError(c, "unexpected content in <html>")
			}
		}
		if body == nil {
			return nil, newConvertError(n, "missing <body>")
		}
		n = body
	}
	return n, nil
}

type converter struct {
	cfg wiki.Config
}

// blocks converts the children of a top-level container.
func (c *converter) blocks(parent *Node) ([]wiki.Block, error) {
	var out []wiki.Block
	var pending []*Node
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		run, err := c.inline(pending)
		pending = nil
		if err != nil {
			return err
		}
		out = append(out, wiki.Paragraph{Text: run})
		return nil
	}

	for _, n := range parent.Children {
		if isPhrasing(n) {
			pending = append(pending, n)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		blk, ok, err := c.block(n, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, blk)
			continue
		}

		switch n.Tag {
		case "h2", "h3", "h4", "h5", "h6":
			if err := noAttrs(n); err != nil {
				return nil, err
			}
			level := int(n.Tag[1]-'0') - 1
			run, err := c.inline(n.Children)
			if err != nil {
				return nil, err
			}
			out = append(out, wiki.Heading{Level: level, Text: run})
		case "hr":
			rule, err := ruleOf(n)
			if err != nil {
				return nil, err
			}
			out = append(out, rule)
		case "div", "table":
			table, err := c.table(n)
			if err != nil {
				return nil, err
			}
			out = append(out, table)
		default:
			if n.Type == CommentNode {
				cm, err := commentOf(n)
				if err != nil {
					return nil, err
				}
				out = append(out, cm)
				continue
			}
			return nil, newConvertError(n, "element not allowed at top level")
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// block converts the block kinds allowed both at top level and inside list
// items. ok is false when n is none of them.
func (c *converter) block(n *Node, depth int) (wiki.Block, bool, error) {
	if n.Type != ElementNode {
		return nil, false, nil
	}
	switch n.Tag {
	case "p":
		if err := noAttrs(n); err != nil {
			return nil, true, err
		}
		run, err := c.inline(n.Children)
		if err != nil {
			return nil, true, err
		}
		return wiki.Paragraph{Text: run}, true, nil
	case "pre":
		pre, err := preOf(n)
		return pre, true, err
	case "ul", "ol", "dl":
		list, err := c.list(n, depth)
		return list, true, err
	}
	return nil, false, nil
}

func (c *converter) list(n *Node, depth int) (wiki.List, error) {
	list := wiki.List{}
	switch n.Tag {
	case "ul":
		list.Kind = wiki.Bullet
		if err := noAttrs(n); err != nil {
			return list, err
		}
	case "ol":
		list.Kind = wiki.Numbered
		num, err := numberType(n)
		if err != nil {
			return list, err
		}
		list.Number = num
	case "dl":
		list.Kind = wiki.Definition
		if err := noAttrs(n); err != nil {
			return list, err
		}
		return c.definitions(n, depth)
	}

	for _, child := range n.Children {
		switch {
		case child.Type == ElementNode && child.Tag == "li":
			if err := noAttrs(child); err != nil {
				return list, err
			}
			body, err := c.itemBody(child, depth)
			if err != nil {
				return list, err
			}
			list.Items = append(list.Items, wiki.ListItem{Kind: list.Kind, Depth: depth, Body: body})
		case child.Type == ElementNode && (child.Tag == "ul" || child.Tag == "ol"):
			// Browsers put nested lists next to the item they belong to.
			nested, err := c.list(child, depth+1)
			if err != nil {
				return list, err
			}
			if len(list.Items) == 0 {
				list.Items = append(list.Items, wiki.ListItem{Kind: list.Kind, Depth: depth})
			}
			last := &list.Items[len(list.Items)-1]
			last.Body = append(last.Body, nested)
		default:
			return list, newConvertError(child, "unexpected content in list")
		}
	}
	return list, nil
}

func (c *converter) definitions(n *Node, depth int) (wiki.List, error) {
	list := wiki.List{Kind: wiki.Definition}
	hasBody := false
	for _, child := range n.Children {
		if child.Type != ElementNode {
			return list, newConvertError(child, "unexpected content in definition list")
		}
		if err := noAttrs(child); err != nil {
			return list, err
		}
		switch child.Tag {
		case "dt":
			term, err := c.inline(child.Children)
			if err != nil {
				return list, err
			}
			list.Items = append(list.Items, wiki.ListItem{Kind: wiki.Definition, Depth: depth, Term: term})
			hasBody = false
		case "dd":
			if len(list.Items) == 0 || hasBody {
				return list, newConvertError(child, "definition without a term")
			}
			body, err := c.itemBody(child, depth)
			if err != nil {
				return list, err
			}
			list.Items[len(list.Items)-1].Body = body
			hasBody = true
		default:
			return list, newConvertError(child, "unexpected element in definition list")
		}
	}
	return list, nil
}

// itemBody converts the content of an li or dd. Loose inline content acts
// as a paragraph.
func (c *converter) itemBody(n *Node, depth int) ([]wiki.Block, error) {
	var body []wiki.Block
	var pending []*Node
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		run, err := c.inline(pending)
		pending = nil
		if err != nil {
			return err
		}
		body = append(body, wiki.Paragraph{Text: run})
		return nil
	}

	for _, child := range n.Children {
		if isPhrasing(child) {
			pending = append(pending, child)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		blk, ok, err := c.block(child, depth+1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newConvertError(child, "element not allowed in list item")
		}
		body = append(body, blk)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *converter) table(n *Node) (wiki.Table, error) {
	var table wiki.Table
	if err := noAttrs(n); err != nil {
		return table, err
	}
	if n.Tag == "div" {
		elems := elementChildren(n)
		if len(elems) != 1 || len(n.Children) != 1 || elems[0].Tag != "table" {
			return table, newConvertError(n, "div must wrap a single table")
		}
		n = elems[0]
		if err := noAttrs(n); err != nil {
			return table, err
		}
	}

	rows := n.Children
	if len(rows) == 1 && rows[0].Type == ElementNode && rows[0].Tag == "tbody" {
		if err := noAttrs(rows[0]); err != nil {
			return table, err
		}
		rows = rows[0].Children
	}
	for _, tr := range rows {
		if tr.Type != ElementNode || tr.Tag != "tr" {
			return table, newConvertError(tr, "expected table row")
		}
		if err := noAttrs(tr); err != nil {
			return table, err
		}
		var row wiki.Row
		for _, td := range tr.Children {
			cell, err := c.cell(td)
			if err != nil {
				return table, err
			}
			row.Cells = append(row.Cells, cell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func (c *converter) cell(td *Node) (wiki.Cell, error) {
	cell := wiki.Cell{Span: 1}
	if td.Type != ElementNode || td.Tag != "td" {
		return cell, newConvertError(td, "expected table cell")
	}
	for _, a := range td.Attrs {
		switch a.Key {
		case "colspan":
			span, err := strconv.Atoi(a.Val)
			if err != nil || span < 1 {
				return cell, newConvertError(td, fmt.Sprintf("invalid colspan %q", a.Val))
			}
			cell.Span = span
		case "style":
			if a.Val != wiki.CenteredCellStyle {
				return cell, newConvertError(td, fmt.Sprintf("unsupported cell style %q", a.Val))
			}
		default:
			return cell, newConvertError(td, fmt.Sprintf("attribute %q not allowed", a.Key))
		}
	}
	if _, styled := td.Attr("style"); styled && cell.Span < 2 {
		return cell, newConvertError(td, "centered cell without colspan")
	}
	cell.Centered = cell.Span > 1

	content := td.Children
	if len(content) == 1 && content[0].Type == ElementNode && content[0].Tag == "p" {
		if err := noAttrs(content[0]); err != nil {
			return cell, err
		}
		content = content[0].Children
	}
	for _, n := range content {
		if !isPhrasing(n) {
			return cell, newConvertError(n, "cell content must be a single paragraph")
		}
	}
	run, err := c.inline(content)
	if err != nil {
		return cell, err
	}
	cell.Text = run
	return cell, nil
}

func (c *converter) inline(nodes []*Node) (wiki.InlineRun, error) {
	var run wiki.InlineRun
	if err := c.appendInline(&run, nodes); err != nil {
		return nil, err
	}
	run = run.Compact()
	if len(nodes) > 0 {
		if err := checkQuotes(nodes[0].Parent, run); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// checkQuotes rejects apostrophes that would join the quote markup of
// emphasis or strong text once written back as wiki text.
func checkQuotes(owner *Node, run wiki.InlineRun) error {
	quote := func(k int) bool {
		if k < 0 || k >= len(run) {
			return false
		}
		ev := run[k]
		return (ev.Kind == wiki.InlineOpen || ev.Kind == wiki.InlineClose) &&
			(ev.Style == wiki.Emphasis || ev.Style == wiki.Strong)
	}
	literal := false
	for k, ev := range run {
		switch ev.Kind {
		case wiki.InlineOpen:
			literal = literal || ev.Style == wiki.Monospace
		case wiki.InlineClose:
			literal = literal && ev.Style != wiki.Monospace
		case wiki.InlineText:
			if literal {
				continue
			}
			if strings.Contains(ev.Text, "''") {
				return newConvertError(owner, "text contains a run of apostrophes")
			}
			if (strings.HasPrefix(ev.Text, "'") && quote(k-1)) || (strings.HasSuffix(ev.Text, "'") && quote(k+1)) {
				return newConvertError(owner, "apostrophe next to emphasis markup")
			}
		}
	}
	return nil
}

func (c *converter) appendInline(run *wiki.InlineRun, nodes []*Node) error {
	for _, n := range nodes {
		switch n.Type {
		case TextNode:
			*run = append(*run, wiki.Inline{Kind: wiki.InlineText, Text: n.Data})
			continue
		case CommentNode:
			return newConvertError(n, "comment inside inline content")
		}

		switch n.Tag {
		case "br":
			if err := noAttrs(n); err != nil {
				return err
			}
			*run = append(*run, wiki.Inline{Kind: wiki.InlineLineBreak})
		case "a":
			link, err := c.link(n)
			if err != nil {
				return err
			}
			*run = append(*run, wiki.Inline{Kind: wiki.InlineLink, Link: link})
		case "tt":
			if err := noAttrs(n); err != nil {
				return err
			}
			text, err := textOnly(n)
			if err != nil {
				return err
			}
			if strings.Contains(text, "}}}") {
				return newConvertError(n, "monospace text contains a closing fence")
			}
			*run = append(*run,
				wiki.Inline{Kind: wiki.InlineOpen, Style: wiki.Monospace},
				wiki.Inline{Kind: wiki.InlineText, Text: text},
				wiki.Inline{Kind: wiki.InlineClose, Style: wiki.Monospace},
			)
		default:
			style, ok := wiki.StyleForTag(n.Tag)
			if !ok || (style == wiki.Underline && !c.cfg.Underline) {
				return newConvertError(n, "element not allowed in inline content")
			}
			if err := noAttrs(n); err != nil {
				return err
			}
			*run = append(*run, wiki.Inline{Kind: wiki.InlineOpen, Style: style})
			if err := c.appendInline(run, n.Children); err != nil {
				return err
			}
			*run = append(*run, wiki.Inline{Kind: wiki.InlineClose, Style: style})
		}
	}
	return nil
}

func (c *converter) link(n *Node) (wiki.Link, error) {
	var href, class string
	hasHref := false
	for _, a := range n.Attrs {
		switch a.Key {
		case "href":
			href, hasHref = a.Val, true
		case "class":
			class = a.Val
		default:
			return wiki.Link{}, newConvertError(n, fmt.Sprintf("attribute %q not allowed", a.Key))
		}
	}
	if !hasHref {
		return wiki.Link{}, newConvertError(n, "link without href")
	}
	label, err := textOnly(n)
	if err != nil {
		return wiki.Link{}, err
	}

	switch class {
	case wiki.LinkClassURL:
		if label != href {
			return wiki.Link{}, newConvertError(n, "url link label differs from its target")
		}
		return wiki.Link{Kind: wiki.LinkURL, Target: href, Label: label}, nil
	case wiki.LinkClassWikiWord:
		target, ok := strings.CutPrefix(href, c.cfg.PageURLPrefix)
		if !ok || target != label {
			return wiki.Link{}, newConvertError(n, "wikiword link does not match its target")
		}
		return wiki.Link{Kind: wiki.LinkWikiWord, Target: target, Label: label}, nil
	case "":
		target, ok := strings.CutPrefix(href, c.cfg.PageURLPrefix)
		if !ok || target == "" || strings.ContainsAny(target, "|\n") || strings.Contains(target, "]]") {
			return wiki.Link{}, newConvertError(n, "link target is not a page")
		}
		return wiki.Link{Kind: wiki.LinkFree, Target: target, Label: label}, nil
	}
	return wiki.Link{}, newConvertError(n, fmt.Sprintf("unsupported link class %q", class))
}

func preOf(n *Node) (wiki.Preformatted, error) {
	if err := noAttrs(n); err != nil {
		return wiki.Preformatted{}, err
	}
	text, err := textOnly(n)
	if err != nil {
		return wiki.Preformatted{}, err
	}
	text = strings.TrimPrefix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		fence := strings.HasPrefix(strings.TrimLeft(line, " \t"), "}}}")
		if i == len(lines)-1 {
			if strings.TrimLeft(line, " \t") != "" {
				return wiki.Preformatted{}, newConvertError(n, "preformatted text must end with a line break")
			}
			continue
		}
		if fence {
			return wiki.Preformatted{}, newConvertError(n, "preformatted line starts with a closing fence")
		}
	}
	return wiki.Preformatted{Lines: lines}, nil
}

func ruleOf(n *Node) (wiki.Rule, error) {
	for _, a := range n.Attrs {
		if a.Key != "class" {
			return wiki.Rule{}, newConvertError(n, fmt.Sprintf("attribute %q not allowed", a.Key))
		}
		size, err := strconv.Atoi(strings.TrimPrefix(a.Val, wiki.RuleClassPrefix))
		if err != nil || !strings.HasPrefix(a.Val, wiki.RuleClassPrefix) || size < 1 || size > wiki.MaxRuleSize {
			return wiki.Rule{}, newConvertError(n, fmt.Sprintf("unsupported rule class %q", a.Val))
		}
		return wiki.Rule{Size: size}, nil
	}
	return wiki.Rule{}, nil
}

// commentOf accepts wiki comments, which are one line starting with "#".
func commentOf(n *Node) (wiki.Comment, error) {
	text := wiki.UnescapeComment(n.Data)
	if !strings.HasPrefix(text, "#") || strings.ContainsAny(text, "\r\n") {
		return wiki.Comment{}, newConvertError(n, "comment outside the canonical subset")
	}
	return wiki.Comment{Text: text}, nil
}

func numberType(n *Node) (wiki.NumberType, error) {
	num := wiki.NumberType('1')
	for _, a := range n.Attrs {
		if a.Key != "type" {
			return 0, newConvertError(n, fmt.Sprintf("attribute %q not allowed", a.Key))
		}
		switch a.Val {
		case "1", "a", "A", "i", "I":
			num = wiki.NumberType(a.Val[0])
		default:
			return 0, newConvertError(n, fmt.Sprintf("unsupported list type %q", a.Val))
		}
	}
	return num, nil
}

func noAttrs(n *Node) error {
	if len(n.Attrs) > 0 {
		return newConvertError(n, fmt.Sprintf("attribute %q not allowed", n.Attrs[0].Key))
	}
	return nil
}

func textOnly(n *Node) (string, error) {
	var b strings.Builder
	for _, c := range n.Children {
		if c.Type != TextNode {
			return "", newConvertError(c, "only text is allowed here")
		}
		b.WriteString(c.Data)
	}
	return b.String(), nil
}

func isPhrasing(n *Node) bool {
	return n.Type == TextNode || (n.Type == ElementNode && phrasing[n.Tag])
}

func elementChildren(n *Node) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}
