// pkg/sql/lexer/lexer.go
package lexer

import (
	"iter"
	"strings"
	"unicode/utf8"

	"kuneiform/pkg/syntax"
)

// Lexer tokenizes SQL input
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char
	err     *syntax.Error
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Input returns the text being tokenized.
func (l *Lexer) Input() string {
	return l.input
}

// Err returns the lexical error behind the last ILLEGAL token, if any.
func (l *Lexer) Err() *syntax.Error {
	return l.err
}

// Tokens returns the remaining tokens as a lazy sequence ending with EOF or
// the first ILLEGAL token.
func (l *Lexer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			tok := l.NextToken()
			if !yield(tok) || tok.Type == EOF || tok.Type == ILLEGAL {
				return
			}
		}
	}
}

// Tokenize lexes all of input, stopping at the first lexical error.
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var toks []Token
	for tok := range l.Tokens() {
		if tok.Type == ILLEGAL {
			return toks, l.err
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

// readChar reads the next character
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	if l.err != nil {
		return Token{Type: ILLEGAL, Pos: l.err.Pos.Offset, End: l.err.Pos.Offset}
	}
	if !l.skipWhitespace() {
		return l.illegal(l.err.Pos.Offset)
	}

	var tok Token
	tok.Pos = l.pos

	switch l.ch {
	case '+':
		tok = l.newToken(PLUS, "+")
	case '-':
		tok = l.newToken(MINUS, "-")
	case '*':
		tok = l.newToken(STAR, "*")
	case '/':
		tok = l.newToken(SLASH, "/")
	case '%':
		tok = l.newToken(PERCENT, "%")
	case '=':
		tok = l.newToken(EQ, "=")
	case '!':
		if l.peekChar() != '=' {
			return l.unexpected()
		}
		l.readChar()
		tok = Token{Type: NEQ, Literal: "!=", Pos: tok.Pos}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: LTE, Literal: "<=", Pos: tok.Pos}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: NEQ, Literal: "<>", Pos: tok.Pos}
		} else {
			tok = l.newToken(LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: GTE, Literal: ">=", Pos: tok.Pos}
		} else {
			tok = l.newToken(GT, ">")
		}
	case ':':
		if l.peekChar() != ':' {
			return l.unexpected()
		}
		l.readChar()
		tok = Token{Type: TYPECAST, Literal: "::", Pos: tok.Pos}
	case ',':
		tok = l.newToken(COMMA, ",")
	case ';':
		tok = l.newToken(SEMICOLON, ";")
	case '(':
		tok = l.newToken(LPAREN, "(")
	case ')':
		tok = l.newToken(RPAREN, ")")
	case '.':
		if isDigit(l.peekChar()) {
			tok.Literal = l.readNumber()
			tok.Type = NUMBER
			tok.End = l.pos
			return tok
		}
		tok = l.newToken(DOT, ".")
	case '\'':
		lit, ok := l.readString('\'')
		if !ok {
			return l.illegal(tok.Pos)
		}
		tok.Literal = lit
		tok.Type = STRING
		tok.End = l.pos
		return tok
	case '"':
		lit, ok := l.readString('"')
		if !ok {
			return l.illegal(tok.Pos)
		}
		tok.Literal = lit
		tok.Type = IDENT
		tok.End = l.pos
		return tok
	case '$', '@':
		if c := l.peekChar(); !isLetter(c) && !isDigit(c) && c != '_' {
			return l.unexpected()
		}
		l.readChar()
		tok.Literal = l.input[tok.Pos:tok.Pos+1] + l.readIdentifier()
		tok.Type = PARAM
		tok.End = l.pos
		return tok
	case 0:
		tok.Type = EOF
		tok.Literal = ""
		tok.End = tok.Pos
		return tok
	default:
		if isLetter(l.ch) || l.ch == '_' {
			// Check for BLOB literal: x'...' or X'...'
			if (l.ch == 'x' || l.ch == 'X') && l.peekChar() == '\'' {
				l.readChar() // consume 'x'
				lit, ok := l.readString('\'')
				if !ok {
					return l.illegal(tok.Pos)
				}
				if !isHex(lit) {
					l.err = syntax.NewLexical(l.input, tok.Pos, syntax.ErrCodeInvalidLiteral, "invalid blob literal %q", lit)
					return l.illegal(tok.Pos)
				}
				tok.Literal = "0x" + lit
				tok.Type = BLOB
				tok.End = l.pos
				return tok
			}
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(strings.ToUpper(tok.Literal))
			tok.End = l.pos
			return tok
		} else if isDigit(l.ch) {
			if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
				tok.Literal = l.readBlob()
				tok.Type = BLOB
				tok.End = l.pos
				return tok
			}
			tok.Literal = l.readNumber()
			tok.Type = NUMBER
			tok.End = l.pos
			return tok
		}
		return l.unexpected()
	}

	l.readChar()
	tok.End = l.pos
	return tok
}

// newToken creates a new token and advances the lexer
func (l *Lexer) newToken(typ TokenType, literal string) Token {
	return Token{Type: typ, Literal: literal, Pos: l.pos}
}

// unexpected records an unexpected-character error at the current position.
func (l *Lexer) unexpected() Token {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	l.err = syntax.NewLexical(l.input, l.pos, syntax.ErrCodeUnexpectedChar, "unexpected character %q", r)
	return l.illegal(l.pos)
}

func (l *Lexer) illegal(pos int) Token {
	end := pos + 1
	if end > len(l.input) {
		end = len(l.input)
	}
	return Token{Type: ILLEGAL, Literal: l.input[pos:end], Pos: pos, End: end}
}

// skipWhitespace skips whitespace characters and comments. It returns false
// if a block comment is left open.
func (l *Lexer) skipWhitespace() bool {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case (l.ch == '-' || l.ch == '/') && l.peekChar() == l.ch:
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.pos
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == 0 {
					l.err = syntax.NewLexical(l.input, start, syntax.ErrCodeUnterminatedComment, "unterminated block comment")
					return false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
		default:
			return true
		}
	}
}

// readIdentifier reads an identifier
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a number (integer or decimal)
func (l *Lexer) readNumber() string {
	start := l.pos

	// Handle leading dot for decimals like .5
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return l.input[start:l.pos]
	}

	// Read integer part
	for isDigit(l.ch) {
		l.readChar()
	}

	// Check for decimal point
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		// Read fractional part
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// readBlob reads a 0x-prefixed hex literal
func (l *Lexer) readBlob() string {
	start := l.pos
	l.readChar() // 0
	l.readChar() // x
	for isHexDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readString reads a literal delimited by quote, where a doubled quote is an
// escaped quote. It returns false if the literal is not closed.
func (l *Lexer) readString(quote byte) (string, bool) {
	var result strings.Builder
	start := l.pos

	l.readChar() // skip opening quote

	for {
		if l.ch == 0 {
			code := syntax.ErrCodeUnterminatedString
			l.err = syntax.NewLexical(l.input, start, code, "unterminated %s", quoteName(quote))
			return "", false
		}
		if l.ch == quote {
			// Check for escaped quote ('')
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}

	l.readChar() // skip closing quote
	return result.String(), true
}

func quoteName(quote byte) string {
	if quote == '"' {
		return "quoted identifier"
	}
	return "string literal"
}

// isLetter returns true if ch is a letter
func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isDigit returns true if ch is a digit
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}
