// pkg/action/ast.go
package action

import (
	"kuneiform/pkg/sql/parser"
	"kuneiform/pkg/syntax"
)

// Statement is the interface for all action statements
type Statement interface {
	statementNode()
}

// Expression is the interface for call argument expressions
type Expression interface {
	expressionNode()
}

// SQLStmt is a pass-through SQL statement. SQL holds the source text and
// Stmt its parsed form.
type SQLStmt struct {
	SQL  string
	Stmt parser.Statement
	Span syntax.Span
}

func (s *SQLStmt) statementNode() {}

// ActionCall represents [$r, ... =] name(args);
type ActionCall struct {
	Receivers []string
	Name      string
	Args      []Expression
	Span      syntax.Span
}

func (s *ActionCall) statementNode() {}

// ExtensionCall represents [$r, ... =] extension.method(args);
type ExtensionCall struct {
	Receivers []string
	Extension string
	Method    string
	Args      []Expression
	Span      syntax.Span
}

func (s *ExtensionCall) statementNode() {}

// LiteralKind distinguishes literal values
type LiteralKind int

const (
	LiteralText LiteralKind = iota
	LiteralNumeric
	LiteralBlob
	LiteralBoolean
	LiteralNull
)

// String returns the string representation of the literal kind
func (k LiteralKind) String() string {
	switch k {
	case LiteralText:
		return "TEXT"
	case LiteralNumeric:
		return "NUMERIC"
	case LiteralBlob:
		return "BLOB"
	case LiteralBoolean:
		return "BOOLEAN"
	case LiteralNull:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// Literal represents a literal value. Text values are unescaped; booleans
// and null are lower case.
type Literal struct {
	Kind  LiteralKind
	Value string
}

func (e *Literal) expressionNode() {}

// Variable represents a $name reference
type Variable struct {
	Name string // including $
}

func (e *Variable) expressionNode() {}

// BlockVariable represents an @name reference bound by the runtime
type BlockVariable struct {
	Name string // including @
}

func (e *BlockVariable) expressionNode() {}

// UnaryExpr represents +X, -X and NOT X
type UnaryExpr struct {
	Op    TokenType
	Right Expression
}

func (e *UnaryExpr) expressionNode() {}

// BinaryExpr represents arithmetic, comparison and logical operators
type BinaryExpr struct {
	Left  Expression
	Op    TokenType
	Right Expression
}

func (e *BinaryExpr) expressionNode() {}

// ParenExpr represents a parenthesized expression
type ParenExpr struct {
	Inner Expression
}

func (e *ParenExpr) expressionNode() {}

// CallExpr represents a nested scalar function call, name(args) or name(*)
type CallExpr struct {
	Name string
	Star bool
	Args []Expression
}

func (e *CallExpr) expressionNode() {}
