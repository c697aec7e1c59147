// pkg/kuneiform/token.go
package kuneiform

import "strings"

// TokenType represents the type of a Kuneiform token
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT      // users, int
	VARIABLE   // $id
	INDEX_NAME // #idx
	ANNOTATION // @description("...")
	STRING     // 'text'
	NUMBER     // 42, -1, 1.5
	BLOB       // 0x00ff
	STMT_BODY  // the text between an action or procedure body's braces

	// Delimiters
	LBRACE    // {
	RBRACE    // }
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :

	keywordStart

	// Keywords
	DATABASE
	USE
	AS
	TABLE
	INDEX
	UNIQUE
	PRIMARY
	KEY
	NOT
	NULL
	DEFAULT
	MIN
	MAX
	MINLEN
	MAXLEN
	FOREIGN
	REFERENCES
	ON
	UPDATE
	DELETE
	DO
	CASCADE
	SET
	NO
	ACTION
	RESTRICT
	PROCEDURE
	RETURNS
	PUBLIC
	PRIVATE
	VIEW
	OWNER
	TRUE
	FALSE

	// Underscore forms of two-word keywords
	FOREIGN_KEY
	ON_UPDATE
	ON_DELETE
	SET_NULL
	SET_DEFAULT
	NO_ACTION

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
	EOF:         "EOF",
	ILLEGAL:     "ILLEGAL",
	IDENT:       "IDENT",
	VARIABLE:    "VARIABLE",
	INDEX_NAME:  "INDEX_NAME",
	ANNOTATION:  "ANNOTATION",
	STRING:      "STRING",
	NUMBER:      "NUMBER",
	BLOB:        "BLOB",
	STMT_BODY:   "STMT_BODY",
	LBRACE:      "{",
	RBRACE:      "}",
	LPAREN:      "(",
	RPAREN:      ")",
	LBRACKET:    "[",
	RBRACKET:    "]",
	COMMA:       ",",
	SEMICOLON:   ";",
	COLON:       ":",
	DATABASE:    "DATABASE",
	USE:         "USE",
	AS:          "AS",
	TABLE:       "TABLE",
	INDEX:       "INDEX",
	UNIQUE:      "UNIQUE",
	PRIMARY:     "PRIMARY",
	KEY:         "KEY",
	NOT:         "NOT",
	NULL:        "NULL",
	DEFAULT:     "DEFAULT",
	MIN:         "MIN",
	MAX:         "MAX",
	MINLEN:      "MINLEN",
	MAXLEN:      "MAXLEN",
	FOREIGN:     "FOREIGN",
	REFERENCES:  "REFERENCES",
	ON:          "ON",
	UPDATE:      "UPDATE",
	DELETE:      "DELETE",
	DO:          "DO",
	CASCADE:     "CASCADE",
	SET:         "SET",
	NO:          "NO",
	ACTION:      "ACTION",
	RESTRICT:    "RESTRICT",
	PROCEDURE:   "PROCEDURE",
	RETURNS:     "RETURNS",
	PUBLIC:      "PUBLIC",
	PRIVATE:     "PRIVATE",
	VIEW:        "VIEW",
	OWNER:       "OWNER",
	TRUE:        "TRUE",
	FALSE:       "FALSE",
	FOREIGN_KEY: "FOREIGN_KEY",
	ON_UPDATE:   "ON_UPDATE",
	ON_DELETE:   "ON_DELETE",
	SET_NULL:    "SET_NULL",
	SET_DEFAULT: "SET_DEFAULT",
	NO_ACTION:   "NO_ACTION",
}

var keywords = map[string]TokenType{
	"database":    DATABASE,
	"use":         USE,
	"as":          AS,
	"table":       TABLE,
	"index":       INDEX,
	"unique":      UNIQUE,
	"primary":     PRIMARY,
	"key":         KEY,
	"not":         NOT,
	"null":        NULL,
	"default":     DEFAULT,
	"min":         MIN,
	"max":         MAX,
	"minlen":      MINLEN,
	"maxlen":      MAXLEN,
	"foreign":     FOREIGN,
	"references":  REFERENCES,
	"on":          ON,
	"update":      UPDATE,
	"delete":      DELETE,
	"do":          DO,
	"cascade":     CASCADE,
	"set":         SET,
	"no":          NO,
	"action":      ACTION,
	"restrict":    RESTRICT,
	"procedure":   PROCEDURE,
	"returns":     RETURNS,
	"public":      PUBLIC,
	"private":     PRIVATE,
	"view":        VIEW,
	"owner":       OWNER,
	"true":        TRUE,
	"false":       FALSE,
	"foreign_key": FOREIGN_KEY,
	"on_update":   ON_UPDATE,
	"on_delete":   ON_DELETE,
	"set_null":    SET_NULL,
	"set_default": SET_DEFAULT,
	"no_action":   NO_ACTION,
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
