// pkg/kuneiform/lexer.go
package kuneiform

import (
	"iter"
	"strings"
	"unicode/utf8"

	sqllexer "kuneiform/pkg/sql/lexer"
	"kuneiform/pkg/syntax"
)

// Mode is the lexer's tokenization mode
type Mode int

const (
	// ModeDefault tokenizes declarations.
	ModeDefault Mode = iota
	// ModeStatement is entered by an action or procedure header. The header
	// is tokenized as in default mode until its body's opening '{', where the
	// whole body becomes one STMT_BODY token and the lexer returns to
	// default mode.
	ModeStatement
)

// String returns the string representation of the mode
func (m Mode) String() string {
	if m == ModeStatement {
		return "statement"
	}
	return "default"
}

// Lexer tokenizes Kuneiform documents
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	mode    Mode
	prev    TokenType // last token returned, EOF before the first
	err     *syntax.Error
}

// NewLexer creates a new Lexer for the given input
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, prev: EOF}
	l.readChar()
	return l
}

// Mode returns the current tokenization mode.
func (l *Lexer) Mode() Mode {
	return l.mode
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

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) seek(offset int) {
	l.readPos = offset
	l.readChar()
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	tok := l.next()
	if (tok.Type == ACTION || tok.Type == PROCEDURE) && l.declarationStart() {
		l.mode = ModeStatement
	}
	l.prev = tok.Type
	return tok
}

// declarationStart reports whether the previous token can end a
// declaration, so that a header keyword here opens a new one. This keeps
// "action" usable as a column name and skips "foreign procedure".
func (l *Lexer) declarationStart() bool {
	switch l.prev {
	case EOF, SEMICOLON, RBRACE, RPAREN, RBRACKET, STMT_BODY, ANNOTATION:
		return true
	}
	return false
}

func (l *Lexer) next() Token {
	if l.err != nil {
		return Token{Type: ILLEGAL, Pos: l.err.Pos.Offset, End: l.err.Pos.Offset}
	}
	if !l.skipWhitespace() {
		return l.illegal(l.err.Pos.Offset)
	}

	tok := Token{Pos: l.pos}
	switch l.ch {
	case 0:
		tok.Type = EOF
		tok.End = l.pos
		return tok
	case '{':
		if l.mode == ModeStatement {
			return l.body()
		}
		tok.Type, tok.Literal = LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = RBRACE, "}"
	case '(':
		tok.Type, tok.Literal = LPAREN, "("
	case ')':
		tok.Type, tok.Literal = RPAREN, ")"
	case '[':
		tok.Type, tok.Literal = LBRACKET, "["
	case ']':
		tok.Type, tok.Literal = RBRACKET, "]"
	case ',':
		tok.Type, tok.Literal = COMMA, ","
	case ';':
		tok.Type, tok.Literal = SEMICOLON, ";"
	case ':':
		tok.Type, tok.Literal = COLON, ":"
	case '\'':
		return l.readString()
	case '@':
		return l.readAnnotation()
	case '$', '#':
		typ := VARIABLE
		if l.ch == '#' {
			typ = INDEX_NAME
		}
		if c := l.peekChar(); !isLetter(c) && c != '_' {
			return l.unexpected()
		}
		l.readChar()
		l.readIdentifier()
		return Token{Type: typ, Literal: l.input[tok.Pos:l.pos], Pos: tok.Pos, End: l.pos}
	case '-', '+':
		if !isDigit(l.peekChar()) {
			return l.unexpected()
		}
		l.readChar()
		return l.readNumber(tok.Pos)
	default:
		if isLetter(l.ch) || l.ch == '_' {
			word := l.readIdentifier()
			return Token{Type: LookupIdent(word), Literal: word, Pos: tok.Pos, End: l.pos}
		}
		if isDigit(l.ch) {
			if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
				l.readChar()
				l.readChar()
				for isHexDigit(l.ch) {
					l.readChar()
				}
				return Token{Type: BLOB, Literal: l.input[tok.Pos:l.pos], Pos: tok.Pos, End: l.pos}
			}
			return l.readNumber(tok.Pos)
		}
		return l.unexpected()
	}

	l.readChar()
	tok.End = l.pos
	return tok
}

// body scans the statement body whose '{' is the current character. The
// token's literal is the text between the braces, trimmed; its span covers
// the braces. Braces inside strings, quoted identifiers and comments are
// not counted.
func (l *Lexer) body() Token {
	open := l.pos
	closing, err := sqllexer.MatchBrace(l.input, open)
	if err != nil {
		l.err = err
		return l.illegal(open)
	}
	l.mode = ModeDefault
	l.seek(closing + 1)
	return Token{
		Type:    STMT_BODY,
		Literal: strings.TrimSpace(l.input[open+1 : closing]),
		Pos:     open,
		End:     closing + 1,
	}
}

// readAnnotation reads @name or @name(...) as raw text. Parentheses nest
// and strings in either quote style are skipped.
func (l *Lexer) readAnnotation() Token {
	start := l.pos
	if c := l.peekChar(); !isLetter(c) && c != '_' {
		return l.unexpected()
	}
	l.readChar()
	l.readIdentifier()
	if l.ch == '(' {
		depth := 0
		for {
			switch l.ch {
			case 0:
				if l.pos >= len(l.input) {
					l.err = syntax.NewLexical(l.input, start, syntax.ErrCodeUnterminatedString, "unterminated annotation")
					return l.illegal(start)
				}
			case '\'', '"':
				quote := l.ch
				l.readChar()
				for l.ch != quote {
					if l.pos >= len(l.input) {
						l.err = syntax.NewLexical(l.input, start, syntax.ErrCodeUnterminatedString, "unterminated string in annotation")
						return l.illegal(start)
					}
					l.readChar()
				}
			case '(':
				depth++
			case ')':
				depth--
			}
			l.readChar()
			if depth == 0 {
				break
			}
		}
	}
	return Token{Type: ANNOTATION, Literal: l.input[start:l.pos], Pos: start, End: l.pos}
}

func (l *Lexer) readString() Token {
	start := l.pos
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch {
		case l.ch == 0 && l.pos >= len(l.input):
			l.err = syntax.NewLexical(l.input, start, syntax.ErrCodeUnterminatedString, "unterminated string literal")
			return l.illegal(start)
		case l.ch == '\'' && l.peekChar() == '\'':
			sb.WriteByte('\'')
			l.readChar()
		case l.ch == '\'':
			l.readChar()
			return Token{Type: STRING, Literal: sb.String(), Pos: start, End: l.pos}
		default:
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
}

// readNumber reads an integer or decimal whose optional sign starts at
// start.
func (l *Lexer) readNumber(start int) Token {
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Type: NUMBER, Literal: l.input[start:l.pos], Pos: start, End: l.pos}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// skipWhitespace skips whitespace and //, -- and /* */ comments. It returns
// false if a block comment is left open.
func (l *Lexer) skipWhitespace() bool {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case (l.ch == '-' || l.ch == '/') && l.peekChar() == l.ch:
			for l.ch != '\n' && l.pos < len(l.input) {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.pos
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.pos >= len(l.input) {
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

func (l *Lexer) unexpected() Token {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	l.err = syntax.NewLexical(l.input, l.pos, syntax.ErrCodeUnexpectedChar, "unexpected character %q", r)
	return l.illegal(l.pos)
}

func (l *Lexer) illegal(pos int) Token {
	end := min(pos+1, len(l.input))
	return Token{Type: ILLEGAL, Literal: l.input[pos:end], Pos: pos, End: end}
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
