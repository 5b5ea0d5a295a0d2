package wiki

// Document is the parsed form of a page. It is never mutated after Parse
// returns.
type Document struct {
	Blocks []Block
	// Issues lists the recoveries the builder made on malformed input.
	Issues []Issue
}

// Issue describes a lenient recovery performed while building blocks.
type Issue struct {
	Line   int
	Reason string
}

type Block interface {
	blockKind() BlockKind
}

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
	BlockPreformatted
	BlockTable
	BlockRule
	BlockComment
)

// KindOf reports the variant of b.
func KindOf(b Block) BlockKind { return b.blockKind() }

type Heading struct {
	Level int
	Text  InlineRun
}

func (Heading) blockKind() BlockKind { return BlockHeading }

type Paragraph struct {
	Text InlineRun
}

func (Paragraph) blockKind() BlockKind { return BlockParagraph }

type ListKind int

const (
	Bullet ListKind = iota
	Numbered
	Definition
)

// NumberType is the marker character of a numbered list: '1', 'a', 'A',
// 'i' or 'I'. It is zero for other list kinds.
type NumberType byte

type List struct {
	Kind   ListKind
	Number NumberType
	Items  []ListItem
}

func (List) blockKind() BlockKind { return BlockList }

type ListItem struct {
	Kind  ListKind
	Depth int
	// Term is only set for definition items.
	Term InlineRun
	Body []Block
}

type Preformatted struct {
	// Lines are the raw lines between the fences. The last entry holds
	// whatever preceded the closing fence on its line.
	Lines []string
}

func (Preformatted) blockKind() BlockKind { return BlockPreformatted }

type Table struct {
	Rows []Row
}

func (Table) blockKind() BlockKind { return BlockTable }

type Row struct {
	Cells []Cell
}

type Cell struct {
	Span     int
	Centered bool
	Text     InlineRun
}

type Rule struct {
	// Size is the number of dashes beyond the minimum four.
	Size int
}

func (Rule) blockKind() BlockKind { return BlockRule }

type Comment struct {
	Text string
}

func (Comment) blockKind() BlockKind { return BlockComment }

type InlineRun []Inline

type InlineKind int

const (
	InlineText InlineKind = iota
	InlineOpen
	InlineClose
	InlineLink
	InlineLineBreak
)

type Style int

const (
	Emphasis Style = iota
	Strong
	Big
	Small
	Strike
	Sub
	Sup
	Underline
	Monospace
)

var styleNames = [...]string{
	Emphasis:  "emphasis",
	Strong:    "strong",
	Big:       "big",
	Small:     "small",
	Strike:    "strike",
	Sub:       "sub",
	Sup:       "sup",
	Underline: "underline",
	Monospace: "monospace",
}

func (s Style) String() string {
	if int(s) >= 0 && int(s) < len(styleNames) {
		return styleNames[s]
	}
	return "style?"
}

type LinkKind int

const (
	LinkFree LinkKind = iota
	LinkWikiWord
	LinkURL
)

type Link struct {
	Kind   LinkKind
	Target string
	Label  string
}

// Inline is one event of an inline run. Only the fields relevant to Kind
// are set.
type Inline struct {
	Kind  InlineKind
	Style Style
	Text  string
	Link  Link
}

func textEvent(s string) Inline { return Inline{Kind: InlineText, Text: s} }
func openEvent(s Style) Inline { return Inline{Kind: InlineOpen, Style: s} }
func closeEvent(s Style) Inline { return Inline{Kind: InlineClose, Style: s} }
func linkEvent(l Link) Inline { return Inline{Kind: InlineLink, Link: l} }
func lineBreakEvent() Inline { return Inline{Kind: InlineLineBreak} }

// Compact merges adjacent text events and drops styles that enclose
// nothing.
func (r InlineRun) Compact() InlineRun { return compactRun(r) }
