package wiki

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func inlineHTML(span string, cfg Config) string {
	r := htmlRenderer{cfg: cfg}
	r.inline(parseInline(span, cfg))
	return r.b.String()
}

func TestParseInlineQuotes(t *testing.T) {
	tests := []struct {
		name string
		span string
		want string
	}{
		{"emphasis", "''test''", "<em>test</em>"},
		{"strong", "'''test'''", "<strong>test</strong>"},
		{"both", "'''''test'''''", "<em><strong>test</strong></em>"},
		{"strong inside emphasis closed by five", "''test'''test'''''", "<em>test<strong>test</strong></em>"},
		{"emphasis inside strong closed by five", "'''test''test'''''", "<strong>test<em>test</em></strong>"},
		{"strong inside emphasis", "''test'''test'''test''", "<em>test<strong>test</strong>test</em>"},
		{"emphasis inside strong", "'''test''test''test'''", "<strong>test<em>test</em>test</strong>"},
		{"five switches emphasis to strong", "''test'''''test'''", "<em>test</em><strong>test</strong>"},
		{"five switches strong to emphasis", "'''test'''''test''", "<strong>test</strong><em>test</em>"},
		{"five then two puts emphasis inside", "'''''test''test'''", "<strong><em>test</em>test</strong>"},
		{"five then three puts strong inside", "'''''test'''test''", "<em><strong>test</strong>test</em>"},
		{"whitespace before strong", "''test '''test'''''", "<em>test <strong>test</strong></em>"},
		{"four is strong and a quote", "''''x''''", "<strong>'x</strong>'"},
		{"apostrophe", "it's", "it's"},
		{"unclosed emphasis", "''open", "<em>open</em>"},
		{"lone five run", "'''''", ""},
		{"crossed styles reopen", "''a'''b''c'''", "<em>a<strong>b</strong></em><strong>c</strong>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inlineHTML(tt.span, DefaultConfig()); got != tt.want {
				t.Fatalf("parseInline(%q) = %q, want %q", tt.span, got, tt.want)
			}
		})
	}
}

func TestParseInlineMarkup(t *testing.T) {
	tests := []struct {
		name string
		span string
		want string
	}{
		{"big", "~+test+~", "<big>test</big>"},
		{"small", "~-test-~", "<small>test</small>"},
		{"strike", "--(test)--", "<strike>test</strike>"},
		{"sub", ",,test,,", "<sub>test</sub>"},
		{"sup", "^test^", "<sup>test</sup>"},
		{"unmatched sup", "a ^ b", "a ^ b"},
		{"monospace", "{{{test}}}", "<tt>test</tt>"},
		{"monospace is literal", "{{{''x'' ^y^}}}", "<tt>''x'' ^y^</tt>"},
		{"unclosed monospace", "{{{open", "{{{open"},
		{"underline dropped", "__test__", "test"},
		{"smiley removed", "a :-) b", "a  b"},
		{"smiley needs a boundary", "x:-)", "x:-)"},
		{"smiley at line start", ":) hello", "hello"},
		{"smiley on its own line", "one\n:)\ntwo", "one\ntwo"},
		{"smiley ends the span", "one\n:)", "one"},
		{"underline dropped at line start", "__ x", "x"},
		{"empty monospace at line start", "{{{}}} x", "x"},
		{"line break", "a<<BR>>b", "a<br/>b"},
		{"escaping", "a < b & c", "a &lt; b &amp; c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inlineHTML(tt.span, DefaultConfig()); got != tt.want {
				t.Fatalf("parseInline(%q) = %q, want %q", tt.span, got, tt.want)
			}
		})
	}
}

func TestParseInlineUnderlineEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Underline = true
	if got := inlineHTML("__test__", cfg); got != "<u>test</u>" {
		t.Fatalf("expected underline element, got %q", got)
	}
}

func TestParseInlineLinks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PageURLPrefix = "/wiki/"

	tests := []struct {
		name string
		span string
		want string
	}{
		{"wikiword", "WikiWord", `<a class="wikiword" href="/wiki/WikiWord">WikiWord</a>`},
		{"wikiword with digits", "WikiWords2", `<a class="wikiword" href="/wiki/WikiWords2">WikiWords2</a>`},
		{"single hump", "Wiki", "Wiki"},
		{"glued to a word", "aWikiWord", "aWikiWord"},
		{"bang escape", "!WikiWord", "WikiWord"},
		{"free link", "[[Front Page]]", `<a href="/wiki/Front Page">Front Page</a>`},
		{"free link with label", "[[Page|the label]]", `<a href="/wiki/Page">the label</a>`},
		{"url", "see http://example.com/x.", `see <a class="url" href="http://example.com/x">http://example.com/x</a>.`},
		{"mailto", "mailto:me@example.com", `<a class="url" href="mailto:me@example.com">mailto:me@example.com</a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inlineHTML(tt.span, cfg); got != tt.want {
				t.Fatalf("parseInline(%q) = %q, want %q", tt.span, got, tt.want)
			}
		})
	}
}

func TestParseInlineBangEscapeDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BangEscape = false
	want := `!<a class="wikiword" href="WikiWord">WikiWord</a>`
	if got := inlineHTML("!WikiWord", cfg); got != want {
		t.Fatalf("expected bang to stay literal, got %q", got)
	}
}

func TestParseInlineEvents(t *testing.T) {
	got := parseInline("a ''b'' c", DefaultConfig())
	want := InlineRun{
		textEvent("a "),
		openEvent(Emphasis),
		textEvent("b"),
		closeEvent(Emphasis),
		textEvent(" c"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInlineBalanced(t *testing.T) {
	spans := []string{
		"''a'''b''c'''",
		"'''''x''y",
		"~+a ''b+~ c''",
		"^a ,,b^ c,,",
		"''''''''",
	}
	for _, span := range spans {
		var stack []Style
		for i, ev := range parseInline(span, DefaultConfig()) {
			switch ev.Kind {
			case InlineOpen:
				stack = append(stack, ev.Style)
			case InlineClose:
				if len(stack) == 0 || stack[len(stack)-1] != ev.Style {
					t.Fatalf("%q: event %d closes %s out of order", span, i, ev.Style)
				}
				stack = stack[:len(stack)-1]
			}
		}
		if len(stack) != 0 {
			t.Fatalf("%q: styles left open: %v", span, stack)
		}
	}
}

func TestParseInlineLongSpans(t *testing.T) {
	for _, unit := range []string{"Ab ", "--( ", "~+ ", "[[x ", "{{{ "} {
		span := strings.Repeat(unit, 40000)
		start := time.Now()
		got := inlineHTML(span, DefaultConfig())
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Fatalf("parsing %q x 40000 took %v", unit, elapsed)
		}
		if want := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(span); got != want {
			t.Fatalf("expected %q x 40000 to stay literal, got %d bytes", unit, len(got))
		}
	}
}
