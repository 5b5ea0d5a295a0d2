package htmlconv

import (
	"testing"
)

func mustParse(t *testing.T, input string) *Node {
	t.Helper()
	root, err := ParseString(input)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return root
}

func TestStripWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty element", "\n<t/>\n", "<t/>"},
		{"indented child", "\n<t>\n  <z/>\n</t>\n", "<t><z/></t>"},
		{"indented child with text", "\n<t>\n  <z>test</z>\n</t>\n", "<t><z>test</z></t>"},
		{"no-break space paragraph", "<p>&nbsp;</p>", ""},
		{"trailing space", "<p>test </p>", "<p>test</p>"},
		{"only one space is trimmed", "<p>test  </p>", "<p>test </p>"},
		{"cell paragraph keeps its space", "<table><tr><td><p>x </p></td></tr></table>", "<table><tr><td><p>x </p></td></tr></table>"},
		{"blank cell paragraph", "<td><p> </p></td>", "<td/>"},
		{"space between styles", "<p><em>a</em> <em>b</em> </p>", "<p><em>a</em> <em>b</em></p>"},
		{"empty style", "<p>a<em></em>b</p>", "<p>ab</p>"},
		{"pre untouched", "<pre>\n  x \n</pre>", "<pre>\n  x \n</pre>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.input)
			StripWhitespace(root)
			if got := Render(root); got != tt.want {
				t.Fatalf("StripWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripBreak(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"list layout", "<ul>\n<li><p>a </p>\n</li>\n</ul>\n", "<ul><li><p>a </p></li></ul>"},
		{"pre untouched", "<pre>\n x\n</pre>", "<pre>\n x\n</pre>"},
		{"inline content untouched", "<p><em>a</em>\n<em>b</em></p>", "<p><em>a</em>\n<em>b</em></p>"},
		{"spaces without a break stay", "<div> <p>a</p></div>", "<div> <p>a</p></div>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := mustParse(t, tt.input)
			StripBreak(root)
			if got := Render(root); got != tt.want {
				t.Fatalf("StripBreak(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"<ul>\n<li><p>test </p>\n<ul>\n<li><p>test </p>\n</li>\n</ul>\n</li>\n</ul>\n",
		"<p>a  </p>\n<p> <em></em> </p>",
		"<h2> <em></em></h2>",
		"<ul><li>x <em>y</em>\n</li></ul>",
		"<div>\n<table>\n<tr>\n<td>\n<p> </p>\n</td>\n</tr>\n</table>\n</div>\n",
		"<pre>\n  </pre>",
	}
	for _, input := range inputs {
		root := Normalize(mustParse(t, input))
		first := Render(root)
		if second := Render(Normalize(root)); second != first {
			t.Fatalf("Normalize not idempotent for %q:\nfirst:  %q\nsecond: %q", input, first, second)
		}
	}
}
