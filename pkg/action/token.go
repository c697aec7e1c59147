// pkg/action/token.go
package action

import "strings"

// TokenType represents the type of an action-language token
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT     // create_user, ext
	VARIABLE  // $name
	BLOCK_VAR // @caller
	STRING    // 'text'
	NUMBER    // 42, 1.5
	BLOB      // 0x00ff
	SQL       // raw SQL pass-through statement

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // = or ==
	NEQ     // != or <>
	LT      // <
	LTE     // <=
	GT      // >
	GTE     // >=

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	DOT       // .

	keywordStart

	// Keywords
	NOT
	AND
	OR
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
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	IDENT:     "IDENT",
	VARIABLE:  "VARIABLE",
	BLOCK_VAR: "BLOCK_VAR",
	STRING:    "STRING",
	NUMBER:    "NUMBER",
	BLOB:      "BLOB",
	SQL:       "SQL",
	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	EQ:        "=",
	NEQ:       "!=",
	LT:        "<",
	LTE:       "<=",
	GT:        ">",
	GTE:       ">=",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	DOT:       ".",
	NOT:       "NOT",
	AND:       "AND",
	OR:        "OR",
	TRUE:      "TRUE",
	FALSE:     "FALSE",
	NULL:      "NULL",
}

var keywords = map[string]TokenType{
	"not":   NOT,
	"and":   AND,
	"or":    OR,
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,
}

// sqlKeywords start a pass-through SQL statement in statement position
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
