package wiki

import "fmt"

// NestingPolicy selects how the block builder reacts to a list line that
// jumps more than one level deeper than the innermost open list, or to
// indented text with no list item at the matching depth.
type NestingPolicy int

const (
	// NestingResync closes every open list and restarts the offending line
	// as a fresh top-level block.
	NestingResync NestingPolicy = iota
	// NestingDrop discards the open lists together with the offending line.
	NestingDrop
	// NestingStrict makes Parse fail with a *NestingError.
	NestingStrict
)

var nestingPolicyNames = map[NestingPolicy]string{
	NestingResync: "resync",
	NestingDrop:   "drop",
	NestingStrict: "strict",
}

func (p NestingPolicy) String() string {
	if name, ok := nestingPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("NestingPolicy(%d)", int(p))
}

// ParseNestingPolicy maps a policy name back to its value.
func ParseNestingPolicy(name string) (NestingPolicy, error) {
	for policy, n := range nestingPolicyNames {
		if n == name {
			return policy, nil
		}
	}
	return NestingResync, fmt.Errorf("unknown nesting policy %q", name)
}

// Config is the immutable set of options threaded through parsing,
// formatting and reverse conversion.
type Config struct {
	// BangEscape makes "!WikiWord" render as plain text instead of a link.
	BangEscape bool
	// Nesting controls recovery from malformed list nesting.
	Nesting NestingPolicy
	// Underline turns "__" into an underline style instead of dropping it.
	Underline bool
	// PageURLPrefix is prepended to wiki page targets in rendered links.
	PageURLPrefix string
	// TabWidth is used to expand tabs in line indentation.
	TabWidth int
}

const DefaultTabWidth = 8

// DefaultConfig escapes WikiWords with "!", resyncs malformed nesting and
// drops underline markup.
func DefaultConfig() Config {
	return Config{
		BangEscape: true,
		Nesting:    NestingResync,
		TabWidth:   DefaultTabWidth,
	}
}
