// pkg/sql/lexer/token.go
package lexer

import "strings"

// TokenType represents the type of a lexical token
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // column_name, table_name, "quoted name"
	NUMBER // 123, 1.5
	STRING // 'hello'
	BLOB   // 0x00ff
	PARAM  // $id, @caller

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	PERCENT  // %
	EQ       // =
	NEQ      // != or <>
	LT       // <
	GT       // >
	LTE      // <=
	GTE      // >=
	TYPECAST // ::

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	DOT       // .

	keywordStart

	// Keywords
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	COLLATE
	CONFLICT
	DELETE
	DESC
	DISTINCT
	DO
	ELSE
	END
	ESCAPE
	EXCEPT
	EXISTS
	FALSE_KW
	FIRST
	FROM
	FULL
	GROUP
	HAVING
	IN
	INNER
	INSERT
	INTERSECT
	INTO
	IS
	ISNULL
	JOIN
	LAST
	LEFT
	LIKE
	LIMIT
	NOT
	NOTHING
	NOTNULL
	NULL_KW
	NULLS
	OFFSET
	ON
	OR
	ORDER
	OUTER
	REPLACE
	RETURNING
	RIGHT
	SELECT
	SET
	THEN
	TRUE_KW
	UNION
	UPDATE
	VALUES
	WHEN
	WHERE
	WITH

	keywordEnd
)

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string // unquoted text for strings and quoted identifiers
	Pos     int    // byte offset of the first character
	End     int    // byte offset just past the last character
}

var tokenNames = map[TokenType]string{
	EOF:       "EOF",
	ILLEGAL:   "ILLEGAL",
	IDENT:     "IDENT",
	NUMBER:    "NUMBER",
	STRING:    "STRING",
	BLOB:      "BLOB",
	PARAM:     "PARAM",
	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	EQ:        "=",
	NEQ:       "!=",
	LT:        "<",
	GT:        ">",
	LTE:       "<=",
	GTE:       ">=",
	TYPECAST:  "::",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	DOT:       ".",
}

// keywords maps SQL keywords to their token types
var keywords = map[string]TokenType{
	"ALL":       ALL,
	"AND":       AND,
	"AS":        AS,
	"ASC":       ASC,
	"BETWEEN":   BETWEEN,
	"BY":        BY,
	"CASE":      CASE,
	"COLLATE":   COLLATE,
	"CONFLICT":  CONFLICT,
	"DELETE":    DELETE,
	"DESC":      DESC,
	"DISTINCT":  DISTINCT,
	"DO":        DO,
	"ELSE":      ELSE,
	"END":       END,
	"ESCAPE":    ESCAPE,
	"EXCEPT":    EXCEPT,
	"EXISTS":    EXISTS,
	"FALSE":     FALSE_KW,
	"FIRST":     FIRST,
	"FROM":      FROM,
	"FULL":      FULL,
	"GROUP":     GROUP,
	"HAVING":    HAVING,
	"IN":        IN,
	"INNER":     INNER,
	"INSERT":    INSERT,
	"INTERSECT": INTERSECT,
	"INTO":      INTO,
	"IS":        IS,
	"ISNULL":    ISNULL,
	"JOIN":      JOIN,
	"LAST":      LAST,
	"LEFT":      LEFT,
	"LIKE":      LIKE,
	"LIMIT":     LIMIT,
	"NOT":       NOT,
	"NOTHING":   NOTHING,
	"NOTNULL":   NOTNULL,
	"NULL":      NULL_KW,
	"NULLS":     NULLS,
	"OFFSET":    OFFSET,
	"ON":        ON,
	"OR":        OR,
	"ORDER":     ORDER,
	"OUTER":     OUTER,
	"REPLACE":   REPLACE,
	"RETURNING": RETURNING,
	"RIGHT":     RIGHT,
	"SELECT":    SELECT,
	"SET":       SET,
	"THEN":      THEN,
	"TRUE":      TRUE_KW,
	"UNION":     UNION,
	"UPDATE":    UPDATE,
	"VALUES":    VALUES,
	"WHEN":      WHEN,
	"WHERE":     WHERE,
	"WITH":      WITH,
}

func init() {
	for word, typ := range keywords {
		tokenNames[typ] = word
	}
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

// LookupIdent checks if ident is a keyword, returns keyword token type or IDENT.
// ident must already be upper-cased.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsReserved reports whether name, in any letter case, is a SQL keyword.
func IsReserved(name string) bool {
	_, ok := keywords[strings.ToUpper(name)]
	return ok
}
