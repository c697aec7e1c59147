// pkg/procedure/ast.go
package procedure

import (
	"kuneiform/pkg/sql/parser"
	"kuneiform/pkg/syntax"
)

// Statement is the interface for all procedure statements
type Statement interface {
	statementNode()
}

// Expression is the interface for all procedure expressions
type Expression interface {
	expressionNode()
}

// LoopTarget is the source a FOR loop iterates over
type LoopTarget interface {
	loopTargetNode()
}

// Type is a scalar or array type reference such as int, text[] or
// decimal(10, 2).
type Type struct {
	Name     string
	Metadata []int
	IsArray  bool
}

// DeclareStmt represents $name type;
type DeclareStmt struct {
	Name string
	Type *Type
	Span syntax.Span
}

func (s *DeclareStmt) statementNode() {}

// AssignStmt represents $name := expr;
type AssignStmt struct {
	Name  string
	Value Expression
	Span  syntax.Span
}

func (s *AssignStmt) statementNode() {}

// DeclareAssignStmt represents $name type := expr;
type DeclareAssignStmt struct {
	Name  string
	Type  *Type
	Value Expression
	Span  syntax.Span
}

func (s *DeclareAssignStmt) statementNode() {}

// CallStmt represents [$r, ... :=] call; A receiver of "_" discards that
// result.
type CallStmt struct {
	Receivers []string
	Call      Expression // *CallExpr or *ForeignCallExpr
	Span      syntax.Span
}

func (s *CallStmt) statementNode() {}

// ForStmt represents FOR $var IN target { body }
type ForStmt struct {
	Variable string
	Target   LoopTarget
	Body     []Statement
	Span     syntax.Span
}

func (s *ForStmt) statementNode() {}

// IfBranch is one IF or ELSEIF condition with its block
type IfBranch struct {
	Cond Expression
	Body []Statement
}

// IfStmt represents IF ... { } ELSEIF ... { } ELSE { }
type IfStmt struct {
	Branches []*IfBranch
	Else     []Statement
	Span     syntax.Span
}

func (s *IfStmt) statementNode() {}

// SQLStmt is a raw SQL statement. SQL holds the source text and Stmt its
// parsed form.
type SQLStmt struct {
	SQL  string
	Stmt parser.Statement
	Span syntax.Span
}

func (s *SQLStmt) statementNode() {}

// ReturnStmt represents RETURN [exprs | sql]; At most one of Values and
// SQL is set.
type ReturnStmt struct {
	Values []Expression
	SQL    *SQLStmt
	Span   syntax.Span
}

func (s *ReturnStmt) statementNode() {}

// ReturnNextStmt represents RETURN NEXT exprs;
type ReturnNextStmt struct {
	Values []Expression
	Span   syntax.Span
}

func (s *ReturnNextStmt) statementNode() {}

// BreakStmt represents BREAK;
type BreakStmt struct {
	Span syntax.Span
}

func (s *BreakStmt) statementNode() {}

// RangeTarget iterates over the integers Start through End
type RangeTarget struct {
	Start Expression
	End   Expression
}

func (t *RangeTarget) loopTargetNode() {}

// CallTarget iterates over the rows a call returns
type CallTarget struct {
	Call Expression // *CallExpr or *ForeignCallExpr
}

func (t *CallTarget) loopTargetNode() {}

// VariableTarget iterates over an array variable
type VariableTarget struct {
	Variable *Variable
}

func (t *VariableTarget) loopTargetNode() {}

// SQLTarget iterates over the rows of a query
type SQLTarget struct {
	SQL  string
	Stmt parser.Statement
	Span syntax.Span
}

func (t *SQLTarget) loopTargetNode() {}

// LiteralKind distinguishes literal values
type LiteralKind int

const (
	LiteralText LiteralKind = iota
	LiteralInt
	LiteralDecimal
	LiteralBlob
	LiteralBoolean
	LiteralNull
)

// String returns the string representation of the literal kind
func (k LiteralKind) String() string {
	switch k {
	case LiteralText:
		return "TEXT"
	case LiteralInt:
		return "INT"
	case LiteralDecimal:
		return "DECIMAL"
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

// Literal represents a literal value with an optional cast
type Literal struct {
	Kind  LiteralKind
	Value string
	Cast  *Type
}

func (e *Literal) expressionNode() {}

// Variable represents $name or @name
type Variable struct {
	Name string // including the $ or @
	Cast *Type
}

func (e *Variable) expressionNode() {}

// CallExpr represents name(args)
type CallExpr struct {
	Name string
	Args []Expression
	Cast *Type
}

func (e *CallExpr) expressionNode() {}

// ForeignCallExpr represents name[dbid, procedure](args), a call into a
// procedure of another schema.
type ForeignCallExpr struct {
	Name      string
	DBID      Expression
	Procedure Expression
	Args      []Expression
	Cast      *Type
}

func (e *ForeignCallExpr) expressionNode() {}

// ArrayExpr represents [e, ...]
type ArrayExpr struct {
	Values []Expression
	Cast   *Type
}

func (e *ArrayExpr) expressionNode() {}

// IndexExpr represents target[index]
type IndexExpr struct {
	Target Expression
	Index  Expression
	Cast   *Type
}

func (e *IndexExpr) expressionNode() {}

// FieldExpr represents target.field
type FieldExpr struct {
	Target Expression
	Field  string
	Cast   *Type
}

func (e *FieldExpr) expressionNode() {}

// ParenExpr represents a parenthesized expression
type ParenExpr struct {
	Inner Expression
	Cast  *Type
}

func (e *ParenExpr) expressionNode() {}

// UnaryExpr represents -X
type UnaryExpr struct {
	Op    TokenType
	Right Expression
}

func (e *UnaryExpr) expressionNode() {}

// BinaryExpr represents arithmetic and comparison operators
type BinaryExpr struct {
	Left  Expression
	Op    TokenType
	Right Expression
}

func (e *BinaryExpr) expressionNode() {}
