package scad

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokEOF TokenType = iota
	TokIllegal
	TokIdent
	TokNumber
	TokString
	TokPath  // <file> after include or use
	TokPunct // single character operator or delimiter
)

func (t TokenType) String() string {
	switch t {
	case TokEOF:
		return "end of file"
	case TokIllegal:
		return "illegal character"
	case TokIdent:
		return "identifier"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokPath:
		return "file path"
	case TokPunct:
		return "punctuation"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Token is a lexical token. Pos is the byte offset of its first character.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

func (t Token) String() string {
	switch t.Type {
	case TokEOF:
		return "end of file"
	case TokString:
		return fmt.Sprintf("string %q", t.Value)
	case TokPath:
		return fmt.Sprintf("<%s>", t.Value)
	default:
		return fmt.Sprintf("'%s'", t.Value)
	}
}

// is reports whether t is the punctuation character c.
func (t Token) is(c byte) bool {
	return t.Type == TokPunct && len(t.Value) == 1 && t.Value[0] == c
}

// isIdent reports whether t is the identifier name.
func (t Token) isIdent(name string) bool {
	return t.Type == TokIdent && t.Value == name
}
