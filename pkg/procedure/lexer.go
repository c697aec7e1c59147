// pkg/procedure/lexer.go
package procedure

import (
	"iter"
	"strings"
	"unicode/utf8"

	sqllexer "kuneiform/pkg/sql/lexer"
	"kuneiform/pkg/syntax"
)

// Lexer tokenizes procedure bodies. Where a statement, a loop source or a
// return value may begin, a word opening a SQL statement makes the whole
// statement one SQL token.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	sqlPos  bool // SQL may start at the next token
	err     *syntax.Error
}

// NewLexer creates a new Lexer for the given input
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, sqlPos: true}
	l.readChar()
	return l
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
	switch tok.Type {
	case SEMICOLON, LBRACE, RBRACE, IN, RETURN:
		l.sqlPos = true
	default:
		l.sqlPos = false
	}
	return tok
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
	case '+':
		tok.Type, tok.Literal = PLUS, "+"
	case '-':
		tok.Type, tok.Literal = MINUS, "-"
	case '*':
		tok.Type, tok.Literal = STAR, "*"
	case '/':
		tok.Type, tok.Literal = SLASH, "/"
	case '%':
		tok.Type, tok.Literal = PERCENT, "%"
	case ',':
		tok.Type, tok.Literal = COMMA, ","
	case ';':
		tok.Type, tok.Literal = SEMICOLON, ";"
	case '(':
		tok.Type, tok.Literal = LPAREN, "("
	case ')':
		tok.Type, tok.Literal = RPAREN, ")"
	case '[':
		tok.Type, tok.Literal = LBRACKET, "["
	case ']':
		tok.Type, tok.Literal = RBRACKET, "]"
	case '{':
		tok.Type, tok.Literal = LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = RBRACE, "}"
	case '.':
		tok.Type, tok.Literal = DOT, "."
	case ':':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok.Type, tok.Literal = ASSIGN, ":="
		case ':':
			l.readChar()
			tok.Type, tok.Literal = CAST, "::"
		default:
			tok.Type, tok.Literal = COLON, ":"
		}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = EQEQ, "=="
		} else {
			tok.Type, tok.Literal = EQ, "="
		}
	case '!':
		if l.peekChar() != '=' {
			return l.unexpected()
		}
		l.readChar()
		tok.Type, tok.Literal = NEQ, "!="
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok.Type, tok.Literal = LTE, "<="
		case '>':
			l.readChar()
			tok.Type, tok.Literal = NEQ, "<>"
		default:
			tok.Type, tok.Literal = LT, "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = GTE, ">="
		} else {
			tok.Type, tok.Literal = GT, ">"
		}
	case '\'':
		return l.readString()
	case '$', '@':
		typ := VARIABLE
		if l.ch == '@' {
			typ = BLOCK_VAR
		}
		if c := l.peekChar(); !isLetter(c) && c != '_' {
			return l.unexpected()
		}
		l.readChar()
		l.readIdentifier()
		return Token{Type: typ, Literal: l.input[tok.Pos:l.pos], Pos: tok.Pos, End: l.pos}
	default:
		if isLetter(l.ch) || l.ch == '_' {
			word := l.readIdentifier()
			if word == "_" {
				return Token{Type: UNDERSCORE, Literal: word, Pos: tok.Pos, End: l.pos}
			}
			if l.sqlPos && sqlKeywords[strings.ToLower(word)] {
				return l.readSQL(tok.Pos)
			}
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
			return l.readNumber()
		}
		return l.unexpected()
	}

	l.readChar()
	tok.End = l.pos
	return tok
}

// readSQL captures a raw statement starting at start. It ends before the
// first ';', '{' or '}' outside parentheses, strings and comments.
func (l *Lexer) readSQL(start int) Token {
	end, err := sqllexer.ScanStatement(l.input, start)
	if err != nil {
		l.err = err
		return l.illegal(err.Pos.Offset)
	}
	text := strings.TrimRight(l.input[start:end], " \t\r\n")
	l.seek(end)
	return Token{Type: SQL, Literal: text, Pos: start, End: start + len(text)}
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

// readNumber reads an integer or a decimal with digits on both sides of
// the point. 1.x lexes as INT then DOT.
func (l *Lexer) readNumber() Token {
	start := l.pos
	typ := INT
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = DECIMAL
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: start, End: l.pos}
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
