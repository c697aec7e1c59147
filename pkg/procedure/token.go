// pkg/procedure/token.go
package procedure

import "strings"

// TokenType represents the type of a procedural-language token
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT      // array_append, int
	VARIABLE   // $name
	BLOCK_VAR  // @caller
	UNDERSCORE // _
	STRING     // 'text'
	INT        // 42
	DECIMAL    // 1.5
	BLOB       // 0x00ff
	SQL        // raw SQL statement

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	ASSIGN  // :=
	EQ      // =
	EQEQ    // ==
	NEQ     // != or <>
	LT      // <
	LTE     // <=
	GT      // >
	GTE     // >=
	COLON   // :
	CAST    // ::

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }
	DOT       // .

	keywordStart

	// Keywords
	FOR
	IN
	IF
	ELSEIF
	ELSE
	RETURN
	NEXT
	BREAK
	TRUE
	FALSE
	NULL

	keywordEnd
)

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset of the first character
	End     int // byte offset just past the last character
}

var tokenNames = map[TokenType]string{
	EOF:        "EOF",
	ILLEGAL:    "ILLEGAL",
	IDENT:      "IDENT",
	VARIABLE:   "VARIABLE",
	BLOCK_VAR:  "BLOCK_VAR",
	UNDERSCORE: "_",
	STRING:     "STRING",
	INT:        "INT",
	DECIMAL:    "DECIMAL",
	BLOB:       "BLOB",
	SQL:        "SQL",
	PLUS:       "+",
	MINUS:      "-",
	STAR:       "*",
	SLASH:      "/",
	PERCENT:    "%",
	ASSIGN:     ":=",
	EQ:         "=",
	EQEQ:       "==",
	NEQ:        "!=",
	LT:         "<",
	LTE:        "<=",
	GT:         ">",
	GTE:        ">=",
	COLON:      ":",
	CAST:       "::",
	COMMA:      ",",
	SEMICOLON:  ";",
	LPAREN:     "(",
	RPAREN:     ")",
	LBRACKET:   "[",
	RBRACKET:   "]",
	LBRACE:     "{",
	RBRACE:     "}",
	DOT:        ".",
	FOR:        "FOR",
	IN:         "IN",
	IF:         "IF",
	ELSEIF:     "ELSEIF",
	ELSE:       "ELSE",
	RETURN:     "RETURN",
	NEXT:       "NEXT",
	BREAK:      "BREAK",
	TRUE:       "TRUE",
	FALSE:      "FALSE",
	NULL:       "NULL",
}

var keywords = map[string]TokenType{
	"for":    FOR,
	"in":     IN,
	"if":     IF,
	"elseif": ELSEIF,
	"else":   ELSE,
	"return": RETURN,
	"next":   NEXT,
	"break":  BREAK,
	"true":   TRUE,
	"false":  FALSE,
	"null":   NULL,
}

// sqlKeywords start a raw SQL statement where one may appear
var sqlKeywords = map[string]bool{
	"select": true,
	"insert": true,
	"update": true,
	"delete": true,
	"with":   true,
}

// String returns the string representation of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// LookupIdent returns the keyword type for ident, matched case-insensitively,
// or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}
