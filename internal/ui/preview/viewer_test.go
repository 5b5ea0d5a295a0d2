package preview

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/wikiconv/internal/wiki"
)

func newSimulation(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	scr := tcell.NewSimulationScreen("")
	if err := scr.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	t.Cleanup(scr.Fini)
	scr.SetSize(w, h)
	return scr
}

func rowText(scr tcell.SimulationScreen, y int) string {
	cells, w, _ := scr.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		cell := cells[y*w+x]
		if len(cell.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteString(string(cell.Runes))
	}
	return b.String()
}

func mustBuild(t *testing.T, text string) *Document {
	t.Helper()
	doc, err := Build("FrontPage", text, wiki.DefaultConfig())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return doc
}

func TestBuildStableRoundTrip(t *testing.T) {
	doc := mustBuild(t, "= T =\n\n * item\n")
	if !doc.Stable || doc.Status != "round trip stable" {
		t.Fatalf("expected stable round trip, got %q", doc.Status)
	}
	if doc.HTML[0] != "<h2>T</h2>" {
		t.Fatalf("unexpected html pane %q", doc.HTML)
	}
}

func TestBuildReportsDifference(t *testing.T) {
	doc := mustBuild(t, "a\n\n\n\nb")
	if doc.Stable {
		t.Fatalf("expected extra blank lines to change on round trip")
	}
	if doc.Status != "round trip differs at line 3" {
		t.Fatalf("unexpected status %q", doc.Status)
	}
}

func TestBuildExpandsTabsAndControls(t *testing.T) {
	cfg := wiki.DefaultConfig()
	cfg.TabWidth = 4
	doc, err := Build("P", "{{{\na\tb\n}}}", cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if doc.Wiki[1] != "a   b" {
		t.Fatalf("expected tab expansion, got %q", doc.Wiki[1])
	}
}

func TestViewerDrawsBothPanes(t *testing.T) {
	scr := newSimulation(t, 60, 6)
	v := NewViewer(scr, mustBuild(t, "= T ="))
	v.Draw()

	if got := rowText(scr, 0); !strings.HasPrefix(got, "FrontPage  [wiki | html]") {
		t.Fatalf("unexpected header %q", got)
	}
	row := rowText(scr, 1)
	if !strings.HasPrefix(row, "= T =") || !strings.Contains(row, "│<h2>T</h2>") {
		t.Fatalf("unexpected body row %q", row)
	}
	if got := rowText(scr, 5); !strings.HasPrefix(got, "round trip stable") {
		t.Fatalf("unexpected status row %q", got)
	}
}

func TestViewerTabTogglesRoundTrip(t *testing.T) {
	scr := newSimulation(t, 60, 6)
	v := NewViewer(scr, mustBuild(t, " * x"))

	if !v.HandleEvent(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone)) {
		t.Fatalf("Tab should not quit")
	}
	if v.Mode() != ModeRoundTrip {
		t.Fatalf("expected round trip mode, got %v", v.Mode())
	}
	v.Draw()
	if row := rowText(scr, 1); !strings.Contains(row, "│ * x") {
		t.Fatalf("expected round trip text in right pane, got %q", row)
	}

	v.HandleEvent(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone))
	if v.Mode() != ModeHTML {
		t.Fatalf("expected html mode after second Tab")
	}
}

func TestViewerScrollIsClamped(t *testing.T) {
	scr := newSimulation(t, 40, 5)
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "line"
	}
	v := NewViewer(scr, mustBuild(t, strings.Join(lines, "\n")))

	v.HandleEvent(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	if v.Scroll() != 0 {
		t.Fatalf("expected scroll to stay at 0, got %d", v.Scroll())
	}
	v.HandleEvent(tcell.NewEventKey(tcell.KeyEnd, 0, tcell.ModNone))
	if v.Scroll() != 7 {
		t.Fatalf("expected scroll to stop at 7, got %d", v.Scroll())
	}
	v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone))
	if v.Scroll() != 6 {
		t.Fatalf("expected scroll 6 after k, got %d", v.Scroll())
	}
}

func TestViewerQuitKeys(t *testing.T) {
	scr := newSimulation(t, 40, 5)
	v := NewViewer(scr, mustBuild(t, "x"))
	if v.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Fatalf("expected q to quit")
	}
	if v.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Fatalf("expected Escape to quit")
	}
}
