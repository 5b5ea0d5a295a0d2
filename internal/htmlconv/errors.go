package htmlconv

import (
	"fmt"

	"github.com/kk-code-lab/wikiconv/internal/textutil"
)

// fragmentWidth bounds the terminal width of ConvertError.Fragment.
const fragmentWidth = 60

// ConvertError reports HTML that falls outside the convertible subset.
type ConvertError struct {
	// Path locates the offending node, e.g. "/ul/li[2]/span".
	Path string
	// Fragment is a shortened serialization of the offending node.
	Fragment string
	Reason   string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Reason, e.Fragment)
}

func newConvertError(n *Node, reason string) *ConvertError {
	return &ConvertError{
		Path:     n.Path(),
		Fragment: describe(n),
		Reason:   reason,
	}
}

func describe(n *Node) string {
	var s string
	switch n.Type {
	case ElementNode:
		// Only the start tag: the children are reported on their own.
		shallow := &Node{Type: ElementNode, Tag: n.Tag, Attrs: n.Attrs}
		s = Render(shallow)
		if len(n.Children) > 0 {
			s = s[:len(s)-2] + ">"
		}
	default:
		s = Render(n)
	}
	return textutil.Truncate(textutil.Visible(s), fragmentWidth)
}
