package textutil

import "testing"

func TestExpandTabs(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"no tabs", "abc", 8, "abc"},
		{"leading tab", "\tx", 8, "        x"},
		{"tab after text", "ab\tc", 4, "ab  c"},
		{"two tabs", "\t\t", 2, "    "},
		{"wide rune counts twice", "日\tx", 4, "日  x"},
		{"disabled", "\tx", 0, "\tx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandTabs(tt.text, tt.width); got != tt.want {
				t.Fatalf("ExpandTabs(%q, %d)=%q want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"plain", 5},
		{"日本", 4},
		{"a日b", 4},
	}
	for _, tt := range tests {
		if got := DisplayWidth(tt.text); got != tt.want {
			t.Fatalf("DisplayWidth(%q)=%d want %d", tt.text, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected text to fit, got %q", got)
	}
	got := Truncate("<p>a long fragment</p>", 8)
	if DisplayWidth(got) > 8 {
		t.Fatalf("expected at most 8 columns, got %q (%d)", got, DisplayWidth(got))
	}
	if got != "<p>a lo…" {
		t.Fatalf("expected ellipsis at the cut, got %q", got)
	}
	if got := Truncate("日本語", 4); DisplayWidth(got) > 4 {
		t.Fatalf("wide runes must not overflow, got %q", got)
	}
	if got := Truncate("x", 0); got != "" {
		t.Fatalf("expected empty string for zero width, got %q", got)
	}
}

func TestFit(t *testing.T) {
	if got := Fit("ab", 4); got != "ab  " {
		t.Fatalf("expected padding, got %q", got)
	}
	if got := Fit("abcdef", 4); DisplayWidth(got) != 4 {
		t.Fatalf("expected exactly 4 columns, got %q", got)
	}
}
