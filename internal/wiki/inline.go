package wiki

import (
	"sort"
	"strings"
	"unicode"
)

type pairToken struct {
	open  string
	close string
	style Style
}

// pairTokens are matched left to right; an opener only counts when its
// closer appears later in the span.
var pairTokens = []pairToken{
	{open: "~+", close: "+~", style: Big},
	{open: "~-", close: "-~", style: Small},
	{open: "--(", close: ")--", style: Strike},
	{open: ",,", close: ",,", style: Sub},
	{open: "^", close: "^", style: Sup},
}

var (
	urlSchemes = []string{"http://", "https://", "ftp://", "mailto:"}
	smileys    = sortedByLength([]string{
		":-)", ":)", ";-)", ";)", ":-(", ":(", ":-D", ":D", ":-?", ":-O", ":o",
		"B-)", "X-(", "<:(", "/!\\", "(!)", "{i}", "{X}", "{OK}", "{*}", "{o}",
		"(./)", "<!>", "{1}", "{2}", "{3}", ":-))", ":))", "|)", "|-)", ">:>",
	})
)

const (
	lineBreakMarkup = "<<BR>>"
	urlStopChars    = " \t\n\"'<>[]|"
	urlTrimChars    = ".,;:!?)"
)

func sortedByLength(list []string) []string {
	sort.SliceStable(list, func(i, j int) bool { return len(list[i]) > len(list[j]) })
	return list
}

type inlineParser struct {
	cfg    Config
	runes  []rune
	events InlineRun
	buf    []rune
	stack  []Style
	// lineStart is the index of the first rune of the current line that
	// has not been consumed by markup producing no output.
	lineStart int
	closers   map[string]closerPos
}

// closerPos caches the first occurrence of a closer at or after from; at is
// -1 when there is none.
type closerPos struct {
	from int
	at   int
}

func parseInline(span string, cfg Config) InlineRun {
	p := &inlineParser{cfg: cfg, runes: []rune(span), closers: make(map[string]closerPos)}
	p.run()
	return compactRun(p.events)
}

func (p *inlineParser) run() {
	runes := p.runes
	i := 0
	for i < len(runes) {
		if n := p.step(i); n > 0 {
			i += n
			continue
		}
		p.buf = append(p.buf, runes[i])
		if runes[i] == '\n' {
			p.lineStart = i + 1
		}
		i++
	}
	p.flush()
	for len(p.stack) > 0 {
		p.events = append(p.events, closeEvent(p.stack[len(p.stack)-1]))
		p.stack = p.stack[:len(p.stack)-1]
	}
}

// step tries every markup rule at position i and returns the number of
// runes consumed, or zero when runes[i] is literal text.
func (p *inlineParser) step(i int) int {
	runes := p.runes
	r := runes[i]

	if r == '\'' {
		n := countRepeat(runes[i:], '\'')
		p.quoteRun(n, i+n)
		return n
	}

	if hasPrefixAt(runes, i, "{{{") {
		if end := p.closerAfter(i+3, "}}}"); end >= 0 {
			if end == i+3 {
				return p.dropped(i, 6)
			}
			p.flush()
			p.events = append(p.events, openEvent(Monospace), textEvent(string(runes[i+3:end])), closeEvent(Monospace))
			return end + 3 - i
		}
		p.buf = append(p.buf, runes[i:i+3]...)
		return 3
	}

	if hasPrefixAt(runes, i, lineBreakMarkup) {
		p.flush()
		p.events = append(p.events, lineBreakEvent())
		return len(lineBreakMarkup)
	}

	if hasPrefixAt(runes, i, "[[") {
		if n := p.freeLink(i); n > 0 {
			return n
		}
	}

	if hasPrefixAt(runes, i, "__") {
		if p.cfg.Underline {
			if n := p.pair(i, pairToken{open: "__", close: "__", style: Underline}); n > 0 {
				return n
			}
			return 0
		}
		return p.dropped(i, 2)
	}

	for _, tok := range pairTokens {
		if n := p.pair(i, tok); n > 0 {
			return n
		}
	}

	if !wordBoundaryBefore(runes, i) {
		return 0
	}

	if n := p.smiley(i); n > 0 {
		return n
	}

	if n := p.url(i); n > 0 {
		return n
	}

	if r == '!' && p.cfg.BangEscape {
		if n := wikiWordAt(runes, i+1); n > 0 {
			p.buf = append(p.buf, runes[i+1:i+1+n]...)
			return n + 1
		}
	}

	if n := wikiWordAt(runes, i); n > 0 {
		word := string(runes[i : i+n])
		p.flush()
		p.events = append(p.events, linkEvent(Link{Kind: LinkWikiWord, Target: word, Label: word}))
		return n
	}

	return 0
}

func (p *inlineParser) quoteRun(n int, after int) {
	if n == 5 {
		p.fiveQuotes(after)
		return
	}
	for k := 0; k < n/3; k++ {
		p.toggle(Strong)
	}
	switch n % 3 {
	case 2:
		p.toggle(Emphasis)
	case 1:
		p.buf = append(p.buf, '\'')
	}
}

func (p *inlineParser) fiveQuotes(after int) {
	emOpen := p.indexOf(Emphasis) >= 0
	strongOpen := p.indexOf(Strong) >= 0
	switch {
	case emOpen && strongOpen:
		if p.indexOf(Emphasis) > p.indexOf(Strong) {
			p.closeStyle(Emphasis)
			p.closeStyle(Strong)
		} else {
			p.closeStyle(Strong)
			p.closeStyle(Emphasis)
		}
	case emOpen:
		p.closeStyle(Emphasis)
		p.openStyle(Strong)
	case strongOpen:
		p.closeStyle(Strong)
		p.openStyle(Emphasis)
	default:
		if p.firstQuoteCloser(after) == Emphasis {
			p.openStyle(Strong)
			p.openStyle(Emphasis)
		} else {
			p.openStyle(Emphasis)
			p.openStyle(Strong)
		}
	}
}

// firstQuoteCloser scans the rest of the span for the next quote run and
// reports which style it would close first. Strong is returned when the run
// is ambiguous or missing, which keeps emphasis outermost.
func (p *inlineParser) firstQuoteCloser(from int) Style {
	runes := p.runes
	for i := from; i < len(runes); {
		if hasPrefixAt(runes, i, "{{{") {
			if end := p.closerAfter(i+3, "}}}"); end >= 0 {
				i = end + 3
				continue
			}
		}
		if runes[i] != '\'' {
			i++
			continue
		}
		n := countRepeat(runes[i:], '\'')
		switch {
		case n == 1:
			i++
			continue
		case n == 2:
			return Emphasis
		default:
			return Strong
		}
	}
	return Strong
}

func (p *inlineParser) pair(i int, tok pairToken) int {
	runes := p.runes
	if p.indexOf(tok.style) >= 0 && hasPrefixAt(runes, i, tok.close) {
		p.closeStyle(tok.style)
		return len([]rune(tok.close))
	}
	if p.indexOf(tok.style) < 0 && hasPrefixAt(runes, i, tok.open) {
		openLen := len([]rune(tok.open))
		if p.closerAfter(i+openLen, tok.close) >= 0 {
			p.openStyle(tok.style)
			return openLen
		}
	}
	return 0
}

func (p *inlineParser) freeLink(i int) int {
	runes := p.runes
	end := p.closerAfter(i+2, "]]")
	if end < 0 {
		return 0
	}
	inner := string(runes[i+2 : end])
	target, label, hasLabel := strings.Cut(inner, "|")
	if strings.TrimSpace(target) == "" || strings.Contains(target, "\n") {
		return 0
	}
	if !hasLabel || label == "" {
		label = target
	}
	p.flush()
	p.events = append(p.events, linkEvent(Link{Kind: LinkFree, Target: target, Label: label}))
	return end + 2 - i
}

func (p *inlineParser) url(i int) int {
	runes := p.runes
	for _, scheme := range urlSchemes {
		if !hasPrefixAt(runes, i, scheme) {
			continue
		}
		end := i + len(scheme)
		for end < len(runes) && !strings.ContainsRune(urlStopChars, runes[end]) {
			end++
		}
		for end > i+len(scheme) && strings.ContainsRune(urlTrimChars, runes[end-1]) {
			end--
		}
		if end == i+len(scheme) {
			return 0
		}
		target := string(runes[i:end])
		p.flush()
		p.events = append(p.events, linkEvent(Link{Kind: LinkURL, Target: target, Label: target}))
		return end - i
	}
	return 0
}

func (p *inlineParser) smiley(i int) int {
	if i > 0 && !unicode.IsSpace(p.runes[i-1]) {
		return 0
	}
	for _, s := range smileys {
		if !hasPrefixAt(p.runes, i, s) {
			continue
		}
		n := len([]rune(s))
		if i+n < len(p.runes) && !unicode.IsSpace(p.runes[i+n]) {
			continue
		}
		return p.dropped(i, n)
	}
	return 0
}

// dropped consumes n runes of markup at i that produce no output. At the
// start of a line the blanks after it are consumed too, and a line left
// empty goes away together with its line break, so no line of the span
// starts with whitespace.
func (p *inlineParser) dropped(i, n int) int {
	if i != p.lineStart {
		return n
	}
	runes := p.runes
	j := i + n
	for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t') {
		j++
	}
	switch {
	case j < len(runes) && runes[j] == '\n':
		j++
	case j == len(runes):
		if k := len(p.buf); k > 0 && p.buf[k-1] == '\n' {
			p.buf = p.buf[:k-1]
		}
	}
	p.lineStart = j
	return j - i
}

// closerAfter returns the index of the first occurrence of needle at or
// after start. Lookups move forward through the span, so each closer is
// searched for at most once per occurrence.
func (p *inlineParser) closerAfter(start int, needle string) int {
	if c, ok := p.closers[needle]; ok && c.from <= start && (c.at < 0 || c.at >= start) {
		return c.at
	}
	at := indexAt(p.runes, start, needle)
	p.closers[needle] = closerPos{from: start, at: at}
	return at
}

func (p *inlineParser) toggle(s Style) {
	if p.indexOf(s) >= 0 {
		p.closeStyle(s)
		return
	}
	p.openStyle(s)
}

func (p *inlineParser) openStyle(s Style) {
	p.flush()
	p.events = append(p.events, openEvent(s))
	p.stack = append(p.stack, s)
}

// closeStyle closes s and keeps the run well nested by closing the styles
// opened after it first and reopening them afterwards.
func (p *inlineParser) closeStyle(s Style) {
	idx := p.indexOf(s)
	if idx < 0 {
		return
	}
	p.flush()
	above := append([]Style(nil), p.stack[idx+1:]...)
	for k := len(p.stack) - 1; k > idx; k-- {
		p.events = append(p.events, closeEvent(p.stack[k]))
	}
	p.events = append(p.events, closeEvent(s))
	p.stack = p.stack[:idx]
	for _, reopen := range above {
		p.events = append(p.events, openEvent(reopen))
		p.stack = append(p.stack, reopen)
	}
}

func (p *inlineParser) indexOf(s Style) int {
	for k := len(p.stack) - 1; k >= 0; k-- {
		if p.stack[k] == s {
			return k
		}
	}
	return -1
}

func (p *inlineParser) flush() {
	if len(p.buf) == 0 {
		return
	}
	p.events = append(p.events, textEvent(string(p.buf)))
	p.buf = p.buf[:0]
}

// compactRun merges adjacent text events and removes styles that enclose
// nothing.
func compactRun(events InlineRun) InlineRun {
	out := make(InlineRun, 0, len(events))
	for _, ev := range events {
		n := len(out)
		switch {
		case ev.Kind == InlineText && n > 0 && out[n-1].Kind == InlineText:
			out[n-1].Text += ev.Text
		case ev.Kind == InlineClose && n > 0 && out[n-1].Kind == InlineOpen && out[n-1].Style == ev.Style:
			out = out[:n-1]
		default:
			out = append(out, ev)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// wikiWordAt returns the length of the WikiWord starting at i, or zero.
func wikiWordAt(runes []rune, i int) int {
	j, humps := i, 0
	for j < len(runes) && unicode.IsUpper(runes[j]) {
		k := j + 1
		for k < len(runes) && (unicode.IsLower(runes[k]) || isASCIIDigit(runes[k])) {
			k++
		}
		if k == j+1 {
			break
		}
		j = k
		humps++
	}
	if humps < 2 {
		return 0
	}
	if j < len(runes) && isWordRune(runes[j]) {
		return 0
	}
	return j - i
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func wordBoundaryBefore(runes []rune, i int) bool {
	return i == 0 || !isWordRune(runes[i-1])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func countRepeat(runes []rune, target rune) int {
	n := 0
	for n < len(runes) && runes[n] == target {
		n++
	}
	return n
}

func hasPrefixAt(runes []rune, i int, prefix string) bool {
	for _, r := range prefix {
		if i >= len(runes) || runes[i] != r {
			return false
		}
		i++
	}
	return true
}

// indexAt returns the rune index of the first occurrence of needle at or
// after start.
func indexAt(runes []rune, start int, needle string) int {
	for i := start; i < len(runes); i++ {
		if hasPrefixAt(runes, i, needle) {
			return i
		}
	}
	return -1
}
