package htmlconv

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
)

// Node is an element, text or comment of a strictly nested HTML tree.
// Unlike the html5 parser this tree keeps the input's structure as written:
// nothing is inserted, moved or closed implicitly.
type Node struct {
	Type     NodeType
	Tag      string
	Attrs    []html.Attribute
	Data     string
	Parent   *Node
	Children []*Node

	// trimmed is set once StripWhitespace has removed the trailing space of
	// a paragraph.
	trimmed bool
}

var voidTags = map[atom.Atom]bool{
	atom.Br: true,
	atom.Hr: true,
}

var errUnexpectedEnd = errors.New("end tag without matching start tag")

// Parse reads an HTML fragment into a tree. Every non-void element must be
// closed explicitly and in order; violations are reported as *ConvertError.
// Character references are decoded, doctypes and processing instructions
// are skipped.
func Parse(r io.Reader) (*Node, error) {
	z := html.NewTokenizer(r)
	root := &Node{Type: DocumentNode}
	cur := root

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read html: %w", err)
			}
			if cur != root {
				return nil, newConvertError(cur, "unclosed element")
			}
			return root, nil

		case html.TextToken:
			cur.appendChild(&Node{Type: TextNode, Data: string(z.Text())})

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			n := &Node{Type: ElementNode, Tag: tok.Data, Attrs: tok.Attr}
			cur.appendChild(n)
			if tt == html.StartTagToken && !voidTags[tok.DataAtom] {
				cur = n
			}

		case html.EndTagToken:
			tok := z.Token()
			if voidTags[tok.DataAtom] {
				continue
			}
			if cur == root {
				return nil, &ConvertError{Path: "/", Fragment: "</" + tok.Data + ">", Reason: errUnexpectedEnd.Error()}
			}
			if cur.Tag != tok.Data {
				return nil, newConvertError(cur, fmt.Sprintf("closed by </%s>", tok.Data))
			}
			cur = cur.Parent

		case html.CommentToken:
			data := string(z.Text())
			if strings.HasPrefix(data, "?") {
				continue
			}
			cur.appendChild(&Node{Type: CommentNode, Data: data})

		case html.DoctypeToken:
		}
	}
}

// ParseString is Parse for an in-memory document.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

func (n *Node) appendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// Path locates n for error messages, e.g. "/ul/li[2]/p".
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil && cur.Type != DocumentNode; cur = cur.Parent {
		parts = append(parts, cur.step())
	}
	if len(parts) == 0 {
		return "/"
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

func (n *Node) step() string {
	name := n.Tag
	switch n.Type {
	case TextNode:
		name = "text()"
	case CommentNode:
		name = "comment()"
	}
	if n.Parent == nil {
		return name
	}
	idx, total := 0, 0
	for _, sib := range n.Parent.Children {
		if sib.Type != n.Type || sib.Tag != n.Tag {
			continue
		}
		total++
		if sib == n {
			idx = total
		}
	}
	if total > 1 {
		return name + "[" + strconv.Itoa(idx) + "]"
	}
	return name
}

// Render serializes the tree compactly. Elements without children are
// written in self-closing form.
func Render(n *Node) string {
	var b strings.Builder
	render(&b, n)
	return b.String()
}

func render(b *strings.Builder, n *Node) {
	switch n.Type {
	case DocumentNode:
		for _, c := range n.Children {
			render(b, c)
		}
	case TextNode:
		b.WriteString(html.EscapeString(n.Data))
	case CommentNode:
		b.WriteString("<!--" + n.Data + "-->")
	case ElementNode:
		b.WriteString("<" + n.Tag)
		for _, a := range n.Attrs {
			b.WriteString(" " + a.Key + `="` + html.EscapeString(a.Val) + `"`)
		}
		if len(n.Children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteString(">")
		for _, c := range n.Children {
			render(b, c)
		}
		b.WriteString("</" + n.Tag + ">")
	}
}
