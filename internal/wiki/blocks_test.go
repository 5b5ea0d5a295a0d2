package wiki

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func text(s string) InlineRun { return InlineRun{textEvent(s)} }

func para(s string) Paragraph { return Paragraph{Text: text(s)} }

func mustParse(t *testing.T, input string, cfg Config) *Document {
	t.Helper()
	doc, err := Parse(input, cfg)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return doc
}

func TestParseEmpty(t *testing.T) {
	doc := mustParse(t, "", DefaultConfig())
	if len(doc.Blocks) != 0 || len(doc.Issues) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestParseBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Block
	}{
		{
			name:  "paragraph lines join",
			input: "one\ntwo",
			want:  []Block{para("one\ntwo")},
		},
		{
			name:  "blank line splits paragraphs",
			input: "one\n\ntwo",
			want:  []Block{para("one"), para("two")},
		},
		{
			name:  "heading rule comment",
			input: "= T =\n-----\n#c",
			want:  []Block{Heading{Level: 1, Text: text("T")}, Rule{Size: 1}, Comment{Text: "#c"}},
		},
		{
			name:  "heading ends paragraph",
			input: "text\n== H ==",
			want:  []Block{para("text"), Heading{Level: 2, Text: text("H")}},
		},
		{
			name:  "nested bullets",
			input: " * a\n  * b\n * c",
			want: []Block{List{Kind: Bullet, Items: []ListItem{
				{Kind: Bullet, Depth: 0, Body: []Block{
					para("a"),
					List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Depth: 1, Body: []Block{para("b")}}}},
				}},
				{Kind: Bullet, Depth: 0, Body: []Block{para("c")}},
			}}},
		},
		{
			name:  "different kinds are siblings",
			input: " * a\n 1. b",
			want: []Block{
				List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Body: []Block{para("a")}}}},
				List{Kind: Numbered, Number: '1', Items: []ListItem{{Kind: Numbered, Body: []Block{para("b")}}}},
			},
		},
		{
			name:  "number types are siblings",
			input: " 1. a\n a. b",
			want: []Block{
				List{Kind: Numbered, Number: '1', Items: []ListItem{{Kind: Numbered, Body: []Block{para("a")}}}},
				List{Kind: Numbered, Number: 'a', Items: []ListItem{{Kind: Numbered, Body: []Block{para("b")}}}},
			},
		},
		{
			name:  "definition",
			input: " term:: def\n empty::",
			want: []Block{List{Kind: Definition, Items: []ListItem{
				{Kind: Definition, Term: text("term"), Body: []Block{para("def")}},
				{Kind: Definition, Term: text("empty")},
			}}},
		},
		{
			name:  "one blank line keeps the list open",
			input: " * a\n\n * b",
			want: []Block{List{Kind: Bullet, Items: []ListItem{
				{Kind: Bullet, Body: []Block{para("a")}},
				{Kind: Bullet, Body: []Block{para("b")}},
			}}},
		},
		{
			name:  "two blank lines close the list",
			input: " * a\n\n\n * b",
			want: []Block{
				List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Body: []Block{para("a")}}}},
				List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Body: []Block{para("b")}}}},
			},
		},
		{
			name:  "indented text continues the item",
			input: " * a\n b\n\n c",
			want: []Block{List{Kind: Bullet, Items: []ListItem{
				{Kind: Bullet, Body: []Block{para("a\nb"), para("c")}},
			}}},
		},
		{
			name:  "indented text closes deeper lists",
			input: " * a\n  * b\n c",
			want: []Block{List{Kind: Bullet, Items: []ListItem{
				{Kind: Bullet, Body: []Block{
					para("a"),
					List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Depth: 1, Body: []Block{para("b")}}}},
					para("c"),
				}},
			}}},
		},
		{
			name:  "text at column zero closes lists",
			input: " * a\n\ntext",
			want: []Block{
				List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Body: []Block{para("a")}}}},
				para("text"),
			},
		},
		{
			name:  "table with colspan",
			input: "||||wide||x||\n||a||||b||",
			want: []Block{Table{Rows: []Row{
				{Cells: []Cell{{Span: 2, Centered: true, Text: text("wide")}, {Span: 1, Text: text("x")}}},
				{Cells: []Cell{{Span: 1, Text: text("a")}, {Span: 2, Centered: true, Text: text("b")}}},
			}}},
		},
		{
			name:  "blank line keeps the table open",
			input: "||a||\n\n||b||",
			want: []Block{Table{Rows: []Row{
				{Cells: []Cell{{Span: 1, Text: text("a")}}},
				{Cells: []Cell{{Span: 1, Text: text("b")}}},
			}}},
		},
		{
			name:  "empty row",
			input: "||||",
			want:  []Block{Table{Rows: []Row{{}}}},
		},
		{
			name:  "pre is literal",
			input: "{{{\n * ''x''\n\n= y =\n}}}",
			want:  []Block{Preformatted{Lines: []string{" * ''x''", "", "= y =", ""}}},
		},
		{
			name:  "pre closing indent becomes content",
			input: "{{{\n  }}}",
			want:  []Block{Preformatted{Lines: []string{"  "}}},
		},
		{
			name:  "unterminated pre",
			input: "{{{\nx",
			want:  []Block{Preformatted{Lines: []string{"x", ""}}},
		},
		{
			name:  "pre as item content",
			input: " * {{{\n   test\n   }}}",
			want: []Block{List{Kind: Bullet, Items: []ListItem{
				{Kind: Bullet, Body: []Block{Preformatted{Lines: []string{"   test", "   "}}}},
			}}},
		},
		{
			name:  "indented pre after item text",
			input: " * test\n {{{\ntest\n}}}",
			want: []Block{List{Kind: Bullet, Items: []ListItem{
				{Kind: Bullet, Body: []Block{para("test"), Preformatted{Lines: []string{"test", ""}}}},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.input, DefaultConfig())
			if diff := cmp.Diff(tt.want, doc.Blocks); diff != "" {
				t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
			}
			if len(doc.Issues) != 0 {
				t.Fatalf("expected no issues, got %+v", doc.Issues)
			}
		})
	}
}

func TestParseMalformedNesting(t *testing.T) {
	const input = " * a\n   * b"

	t.Run("resync", func(t *testing.T) {
		doc := mustParse(t, input, DefaultConfig())
		want := []Block{
			List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Body: []Block{para("a")}}}},
			List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Body: []Block{para("b")}}}},
		}
		if diff := cmp.Diff(want, doc.Blocks); diff != "" {
			t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
		}
		if len(doc.Issues) != 1 || doc.Issues[0].Line != 2 {
			t.Fatalf("expected one issue on line 2, got %+v", doc.Issues)
		}
	})

	t.Run("drop", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Nesting = NestingDrop
		doc := mustParse(t, input, cfg)
		if len(doc.Blocks) != 0 {
			t.Fatalf("expected an empty document, got %+v", doc.Blocks)
		}
		if len(doc.Issues) != 1 {
			t.Fatalf("expected one issue, got %+v", doc.Issues)
		}
	})

	t.Run("strict", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Nesting = NestingStrict
		_, err := Parse(input, cfg)
		var nestErr *NestingError
		if !errors.As(err, &nestErr) {
			t.Fatalf("expected *NestingError, got %v", err)
		}
		if nestErr.Line != 2 || nestErr.Depth != 2 || nestErr.MaxDepth != 1 {
			t.Fatalf("unexpected error fields: %+v", nestErr)
		}
	})
}

func TestParseTextIndentedPastList(t *testing.T) {
	const input = " * a\n  * b\n   test\n"
	list := List{Kind: Bullet, Items: []ListItem{
		{Kind: Bullet, Body: []Block{
			para("a"),
			List{Kind: Bullet, Items: []ListItem{{Kind: Bullet, Depth: 1, Body: []Block{para("b")}}}},
		}},
	}}

	t.Run("resync", func(t *testing.T) {
		doc := mustParse(t, input, DefaultConfig())
		want := []Block{list, para("test")}
		if diff := cmp.Diff(want, doc.Blocks); diff != "" {
			t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
		}
		if len(doc.Issues) != 1 || doc.Issues[0].Line != 3 {
			t.Fatalf("expected one issue on line 3, got %+v", doc.Issues)
		}
		if got := FormatHTML(doc, DefaultConfig()); !strings.HasSuffix(got, "<p>test </p>\n") {
			t.Fatalf("expected the text as a top-level paragraph, got %q", got)
		}
	})

	t.Run("drop", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Nesting = NestingDrop
		got, err := ToHTML(input, cfg)
		if err != nil {
			t.Fatalf("ToHTML failed: %v", err)
		}
		if got != "" {
			t.Fatalf("expected empty output, got %q", got)
		}
	})

	t.Run("strict", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Nesting = NestingStrict
		_, err := Parse(input, cfg)
		var nestErr *NestingError
		if !errors.As(err, &nestErr) || nestErr.Line != 3 {
			t.Fatalf("expected *NestingError on line 3, got %v", err)
		}
	})
}

func TestParseIndentedTextWithoutList(t *testing.T) {
	doc := mustParse(t, "intro\n  indented", DefaultConfig())
	want := []Block{para("intro"), para("indented")}
	if diff := cmp.Diff(want, doc.Blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
	if len(doc.Issues) != 1 {
		t.Fatalf("expected the orphan indentation to be reported, got %+v", doc.Issues)
	}

	cfg := DefaultConfig()
	cfg.Nesting = NestingStrict
	if _, err := Parse(" orphan", cfg); err == nil {
		t.Fatalf("expected strict policy to reject indented text without a list")
	}
}

func TestParseNestingPolicy(t *testing.T) {
	for _, p := range []NestingPolicy{NestingResync, NestingDrop, NestingStrict} {
		got, err := ParseNestingPolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("ParseNestingPolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseNestingPolicy("lenient"); err == nil {
		t.Fatalf("expected unknown policy to fail")
	}
}
