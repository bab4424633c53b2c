package scad

import "strings"

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

// Lexer tokenizes document source. Offsets are bytes; the language is ASCII
// outside of strings and comments.
type Lexer struct {
	input string
	pos   int

	// wantPath is set after "include" or "use" so that <...> lexes as a path.
	wantPath bool
}

// NewLexer creates a lexer for input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) peek(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

// NextToken returns the next token. An unterminated comment or string is
// returned as TokIllegal at its start.
func (l *Lexer) NextToken() Token {
	if bad, ok := l.skipWhitespaceAndComments(); !ok {
		return Token{Type: TokIllegal, Value: "unterminated comment", Pos: bad}
	}
	start := l.pos
	if start >= len(l.input) {
		return Token{Type: TokEOF, Pos: start}
	}

	wantPath := l.wantPath
	l.wantPath = false

	ch := l.input[start]
	switch {
	case wantPath && ch == '<':
		end := strings.IndexByte(l.input[start+1:], '>')
		if end < 0 {
			l.pos = len(l.input)
			return Token{Type: TokIllegal, Value: "unterminated file path", Pos: start}
		}
		l.pos = start + 1 + end + 1
		return Token{Type: TokPath, Value: l.input[start+1 : start+1+end], Pos: start}

	case isLetter(ch):
		for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos])) {
			l.pos++
		}
		word := l.input[start:l.pos]
		if word == "include" || word == "use" {
			l.wantPath = true
		}
		return Token{Type: TokIdent, Value: word, Pos: start}

	case isDigit(ch) || (ch == '.' && isDigit(l.peek(1))):
		return l.readNumber()

	case ch == '"':
		return l.readString()

	case strings.IndexByte("(){}[],;=+-*/!#%<>", ch) >= 0:
		l.pos++
		return Token{Type: TokPunct, Value: string(ch), Pos: start}
	}

	l.pos++
	return Token{Type: TokIllegal, Value: string(ch), Pos: start}
}

// skipWhitespaceAndComments advances past blanks, // and /* */ comments.
// It reports false with the comment offset if a block comment never ends.
func (l *Lexer) skipWhitespaceAndComments() (int, bool) {
	for l.pos < len(l.input) {
		switch ch := l.input[l.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.pos++
		case ch == '/' && l.peek(1) == '/':
			if nl := strings.IndexByte(l.input[l.pos:], '\n'); nl >= 0 {
				l.pos += nl + 1
			} else {
				l.pos = len(l.input)
			}
		case ch == '/' && l.peek(1) == '*':
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				bad := l.pos
				l.pos = len(l.input)
				return bad, false
			}
			l.pos += 2 + end + 2
		default:
			return 0, true
		}
	}
	return 0, true
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	for isDigit(l.peek(0)) {
		l.pos++
	}
	if l.peek(0) == '.' {
		l.pos++
		for isDigit(l.peek(0)) {
			l.pos++
		}
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		off := 1
		if s := l.peek(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(l.peek(off)) {
			l.pos += off
			for isDigit(l.peek(0)) {
				l.pos++
			}
		}
	}
	return Token{Type: TokNumber, Value: l.input[start:l.pos], Pos: start}
}

func (l *Lexer) readString() Token {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch ch {
		case '"':
			l.pos++
			return Token{Type: TokString, Value: b.String(), Pos: start}
		case '\\':
			l.pos++
			switch esc := l.peek(0); esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(esc)
			}
			l.pos++
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
	return Token{Type: TokIllegal, Value: "unterminated string", Pos: start}
}

func isLetter(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Tokenize returns every token of input, ending with TokEOF or the first
// TokIllegal.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokEOF || tok.Type == TokIllegal {
			return toks
		}
	}
}
