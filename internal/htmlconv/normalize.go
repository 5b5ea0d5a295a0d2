package htmlconv

import "strings"

// inlineContainers hold phrasing content, so whitespace between their
// children is significant.
var inlineContainers = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"dt": true, "a": true,
	"em": true, "strong": true, "big": true, "small": true, "strike": true,
	"sub": true, "sup": true, "u": true, "tt": true,
}

// phrasing lists the elements that may appear inside inline content.
var phrasing = map[string]bool{
	"a": true, "br": true,
	"em": true, "strong": true, "big": true, "small": true, "strike": true,
	"sub": true, "sup": true, "u": true, "tt": true,
}

// neverEmpty elements carry no meaning without content and are removed
// when they end up empty.
var neverEmpty = map[string]bool{
	"p":  true,
	"em": true, "strong": true, "big": true, "small": true, "strike": true,
	"sub": true, "sup": true, "u": true, "tt": true,
}

// Normalize applies StripBreak and then StripWhitespace. Applying it again
// to its result changes nothing.
func Normalize(n *Node) *Node {
	StripBreak(n)
	StripWhitespace(n)
	return n
}

// StripBreak removes whitespace-only text containing a line break from
// block containers. Preformatted and inline content is left alone.
func StripBreak(n *Node) {
	if n.Tag == "pre" {
		return
	}
	if !holdsInline(n) {
		n.filterChildren(func(c *Node) bool {
			return !(c.Type == TextNode && isBlank(c.Data) && strings.ContainsRune(c.Data, '\n'))
		})
	}
	for _, c := range n.Children {
		if c.Type == ElementNode {
			StripBreak(c)
		}
	}
}

// StripWhitespace removes insignificant whitespace bottom-up: empty
// paragraphs and styles disappear, adjacent text merges, and a paragraph
// outside a table cell loses the single trailing space of its last text.
func StripWhitespace(n *Node) {
	for _, c := range n.Children {
		if c.Type == ElementNode {
			StripWhitespace(c)
		}
	}
	if n.Tag == "pre" {
		return
	}

	n.filterChildren(func(c *Node) bool {
		if c.Type == ElementNode {
			return !(neverEmpty[c.Tag] && len(c.Children) == 0)
		}
		return c.Type != TextNode || c.Data != ""
	})
	n.mergeText()

	if n.Tag == "p" && !n.trimmed && !n.insideCell() {
		n.trimmed = true
		if last := n.lastChild(); last != nil && last.Type == TextNode {
			last.Data = strings.TrimSuffix(last.Data, " ")
		}
	}

	inline := holdsInline(n)
	sole := len(n.Children) == 1
	n.filterChildren(func(c *Node) bool {
		if c.Type != TextNode {
			return true
		}
		if c.Data == "" {
			return false
		}
		return !isBlank(c.Data) || (inline && !sole)
	})
}

// holdsInline reports whether whitespace inside n separates words. List
// items and definitions count when they carry text or phrasing elements
// directly, as browsers produce.
func holdsInline(n *Node) bool {
	if n.Type != ElementNode {
		return false
	}
	if inlineContainers[n.Tag] {
		return true
	}
	if n.Tag != "li" && n.Tag != "dd" && n.Tag != "td" {
		return false
	}
	for _, c := range n.Children {
		if c.Type == TextNode && !isBlank(c.Data) {
			return true
		}
		if c.Type == ElementNode && phrasing[c.Tag] {
			return true
		}
	}
	return false
}

func (n *Node) insideCell() bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Tag == "td" || p.Tag == "th" {
			return true
		}
	}
	return false
}

func (n *Node) lastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

func (n *Node) filterChildren(keep func(*Node) bool) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if keep(c) {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
}

func (n *Node) mergeText() {
	if len(n.Children) < 2 {
		return
	}
	merged := n.Children[:1]
	for _, c := range n.Children[1:] {
		prev := merged[len(merged)-1]
		if c.Type == TextNode && prev.Type == TextNode {
			prev.Data += c.Data
			continue
		}
		merged = append(merged, c)
	}
	for i := len(merged); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = merged
}

// isBlank reports whether s holds only whitespace, counting no-break
// spaces as whitespace.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
