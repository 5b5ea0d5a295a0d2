package wiki

import "fmt"

// NestingError is returned by Parse under NestingStrict when a line nests
// deeper than the open list structure allows.
type NestingError struct {
	Line     int
	Depth    int
	MaxDepth int
}

func (e *NestingError) Error() string {
	return fmt.Sprintf("line %d: list depth %d exceeds maximum %d", e.Line, e.Depth, e.MaxDepth)
}
