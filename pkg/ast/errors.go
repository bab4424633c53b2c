package ast

import "fmt"

// ParseError reports a syntax error. Pos is the byte offset of the
// offending token in the file named by Path; Line and Col are 1-based, and
// Line is 0 when the parser could not locate the error.
type ParseError struct {
	Path    string
	Pos     Pos
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	if e.Path != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// LineCol converts a byte offset into 1-based line and column numbers.
func LineCol(src string, pos Pos) (line, col int) {
	line, col = 1, 1
	for i := 0; i < int(pos) && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Offset converts 1-based line and column numbers into a byte offset.
// Positions past the end of src clamp to len(src).
func Offset(src string, line, col int) Pos {
	l := 1
	i := 0
	for ; i < len(src) && l < line; i++ {
		if src[i] == '\n' {
			l++
		}
	}
	off := i + col - 1
	if off < 0 {
		off = 0
	}
	if off > len(src) {
		off = len(src)
	}
	return Pos(off)
}
