package preview

import (
	"fmt"
	"strings"

	"github.com/kk-code-lab/wikiconv/internal/htmlconv"
	"github.com/kk-code-lab/wikiconv/internal/textutil"
	"github.com/kk-code-lab/wikiconv/internal/wiki"
)

// Document holds the three renderings shown by the viewer.
type Document struct {
	Name      string
	Wiki      []string
	HTML      []string
	RoundTrip []string
	// Status summarizes the round trip for the status line.
	Status string
	// Stable reports whether the round trip reproduced the input exactly.
	Stable bool
}

// Build converts text and prepares the panes. Conversion failures are shown
// in the document instead of being returned, except for a failed parse.
func Build(name, text string, cfg wiki.Config) (*Document, error) {
	html, err := wiki.ToHTML(text, cfg)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Name: name,
		Wiki: displayLines(text, cfg.TabWidth),
		HTML: displayLines(strings.TrimSuffix(html, "\n"), cfg.TabWidth),
	}

	want := strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	back, err := htmlconv.ToWiki(html, cfg)
	switch {
	case err != nil:
		doc.RoundTrip = displayLines(err.Error(), cfg.TabWidth)
		doc.Status = "round trip failed"
	case back == want:
		doc.RoundTrip = displayLines(back, cfg.TabWidth)
		doc.Status = "round trip stable"
		doc.Stable = true
	default:
		doc.RoundTrip = displayLines(back, cfg.TabWidth)
		doc.Status = fmt.Sprintf("round trip differs at line %d", firstDifference(want, back))
	}
	return doc, nil
}

func displayLines(text string, tabWidth int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = textutil.Visible(textutil.ExpandTabs(line, tabWidth))
	}
	return lines
}

// firstDifference returns the 1-based line number where a and b diverge.
func firstDifference(a, b string) int {
	al := strings.Split(a, "\n")
	bl := strings.Split(b, "\n")
	for i := 0; i < len(al) && i < len(bl); i++ {
		if al[i] != bl[i] {
			return i + 1
		}
	}
	if len(al) < len(bl) {
		return len(al) + 1
	}
	return len(bl) + 1
}
