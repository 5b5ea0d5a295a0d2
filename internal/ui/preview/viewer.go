// Package preview is a two-pane terminal viewer showing wiki text next to
// its canonical HTML or its round-trip conversion.
package preview

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/kk-code-lab/wikiconv/internal/textutil"
)

// Mode selects what the right pane shows.
type Mode int

const (
	ModeHTML Mode = iota
	ModeRoundTrip
)

func (m Mode) String() string {
	if m == ModeRoundTrip {
		return "round trip"
	}
	return "html"
}

const (
	separatorWidth = 1
	helpText       = "Tab toggle  ↑/↓ PgUp/PgDn scroll  q quit"
)

// Theme defines the viewer colors.
type Theme struct {
	HeaderBg   tcell.Color
	HeaderFg   tcell.Color
	Separator  tcell.Color
	StableFg   tcell.Color
	UnstableFg tcell.Color
	GutterFg   tcell.Color
}

// DefaultTheme returns the default color scheme.
func DefaultTheme() Theme {
	return Theme{
		HeaderBg:   tcell.Color33,
		HeaderFg:   tcell.ColorWhite,
		Separator:  tcell.ColorLightSlateGray,
		StableFg:   tcell.ColorGreen,
		UnstableFg: tcell.ColorRed,
		GutterFg:   tcell.ColorLightSlateGray,
	}
}

// Viewer draws a Document and reacts to key events.
type Viewer struct {
	screen tcell.Screen
	doc    *Document
	theme  Theme
	mode   Mode
	scroll int
}

// NewViewer creates a viewer drawing on screen.
func NewViewer(screen tcell.Screen, doc *Document) *Viewer {
	return &Viewer{screen: screen, doc: doc, theme: DefaultTheme()}
}

// Mode returns the current right pane mode.
func (v *Viewer) Mode() Mode { return v.mode }

// Scroll returns the index of the first visible line.
func (v *Viewer) Scroll() int { return v.scroll }

// Run opens the terminal, shows doc, and returns when the user quits.
func Run(doc *Document) error {
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	NewViewer(screen, doc).Loop()
	return nil
}

// Loop polls events until the user quits or the screen is finalized.
func (v *Viewer) Loop() {
	v.Draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		if !v.HandleEvent(ev) {
			return
		}
		v.Draw()
	}
}

// HandleEvent applies one event. It returns false when the viewer should
// close.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventResize:
		v.screen.Sync()
		v.clampScroll()
	}
	return true
}

func (v *Viewer) handleKey(ev *tcell.EventKey) bool {
	_, h := v.screen.Size()
	page := max(bodyHeight(h)-1, 1)

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyTab, tcell.KeyBacktab:
		if v.mode == ModeHTML {
			v.mode = ModeRoundTrip
		} else {
			v.mode = ModeHTML
		}
	case tcell.KeyUp:
		v.scroll--
	case tcell.KeyDown:
		v.scroll++
	case tcell.KeyPgUp:
		v.scroll -= page
	case tcell.KeyPgDn:
		v.scroll += page
	case tcell.KeyHome:
		v.scroll = 0
	case tcell.KeyEnd:
		v.scroll = v.lineCount()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return false
		case 'k':
			v.scroll--
		case 'j':
			v.scroll++
		case ' ':
			v.scroll += page
		}
	}
	v.clampScroll()
	return true
}

func (v *Viewer) rightPane() []string {
	if v.mode == ModeRoundTrip {
		return v.doc.RoundTrip
	}
	return v.doc.HTML
}

func (v *Viewer) lineCount() int {
	return max(len(v.doc.Wiki), len(v.rightPane()))
}

func (v *Viewer) clampScroll() {
	_, h := v.screen.Size()
	limit := max(v.lineCount()-bodyHeight(h), 0)
	v.scroll = min(max(v.scroll, 0), limit)
}

// bodyHeight is the number of rows between the header and the status line.
func bodyHeight(h int) int {
	return max(h-2, 0)
}

// Draw renders the whole screen.
func (v *Viewer) Draw() {
	v.screen.Clear()
	w, h := v.screen.Size()
	if w <= 0 || h <= 0 {
		return
	}

	header := tcell.StyleDefault.Background(v.theme.HeaderBg).Foreground(v.theme.HeaderFg)
	title := v.doc.Name + "  [wiki | " + v.mode.String() + "]"
	v.drawText(0, 0, w, textutil.Fit(textutil.Visible(title), w), header.Bold(true))

	leftWidth := (w - separatorWidth) / 2
	rightStart := leftWidth + separatorWidth
	rightWidth := w - rightStart
	sepStyle := tcell.StyleDefault.Foreground(v.theme.Separator)
	right := v.rightPane()
	for row := 0; row < bodyHeight(h); row++ {
		y := row + 1
		idx := v.scroll + row
		if idx < len(v.doc.Wiki) {
			v.drawText(0, y, leftWidth, v.doc.Wiki[idx], tcell.StyleDefault)
		}
		if separatorWidth > 0 && leftWidth < w {
			v.screen.SetContent(leftWidth, y, '│', nil, sepStyle)
		}
		if idx < len(right) && rightWidth > 0 {
			v.drawText(rightStart, y, rightWidth, right[idx], tcell.StyleDefault)
		}
	}

	if h > 1 {
		v.drawStatus(h-1, w)
	}
	v.screen.Show()
}

func (v *Viewer) drawStatus(y, w int) {
	statusStyle := tcell.StyleDefault.Foreground(v.theme.UnstableFg)
	if v.doc.Stable {
		statusStyle = tcell.StyleDefault.Foreground(v.theme.StableFg)
	}
	endX := v.drawText(0, y, w, v.doc.Status, statusStyle)
	help := helpText
	helpWidth := runewidth.StringWidth(help)
	if start := w - helpWidth; start > endX+1 {
		v.drawText(start, y, helpWidth, help, tcell.StyleDefault.Foreground(v.theme.GutterFg))
	}
}

// drawText writes text clipped to maxWidth cells and returns the next x.
func (v *Viewer) drawText(startX, y, maxWidth int, text string, style tcell.Style) int {
	if textutil.DisplayWidth(text) > maxWidth {
		text = textutil.Truncate(text, maxWidth)
	}
	x := startX
	runes := []rune(text)
	for i := 0; i < len(runes); {
		mainc := runes[i]
		i++
		var combc []rune
		for i < len(runes) && runewidth.RuneWidth(runes[i]) == 0 {
			combc = append(combc, runes[i])
			i++
		}
		v.screen.SetContent(x, y, mainc, combc, style)
		x += max(runewidth.RuneWidth(mainc), 0)
	}
	return x
}
