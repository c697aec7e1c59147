// pkg/sql/parser/ast.go
package parser

import (
	"kuneiform/pkg/sql/lexer"
	"kuneiform/pkg/syntax"
)

// Statement is the interface for all SQL statements
type Statement interface {
	statementNode()
}

// Expression is the interface for all expressions
type Expression interface {
	expressionNode()
}

// WithClause represents a WITH clause introducing common table expressions
type WithClause struct {
	CTEs []*CTE
}

// CTE represents a single common table expression: name [(cols)] AS (select)
type CTE struct {
	Name    string
	Columns []string // optional column list
	Select  *SelectStmt
}

// CompoundOp joins two simple selects
type CompoundOp int

const (
	CompoundUnion CompoundOp = iota
	CompoundUnionAll
	CompoundIntersect
	CompoundExcept
)

// String returns the SQL keyword(s) for the compound operator
func (op CompoundOp) String() string {
	switch op {
	case CompoundUnion:
		return "UNION"
	case CompoundUnionAll:
		return "UNION ALL"
	case CompoundIntersect:
		return "INTERSECT"
	case CompoundExcept:
		return "EXCEPT"
	default:
		return "UNKNOWN"
	}
}

// SelectStmt represents a full SELECT statement, including compound members
type SelectStmt struct {
	With     *WithClause     // optional WITH clause for CTEs
	Selects  []*SimpleSelect // at least one
	Compound []CompoundOp    // Compound[i] joins Selects[i] and Selects[i+1]
	OrderBy  []OrderingTerm  // optional ORDER BY clause
	Limit    Expression      // optional LIMIT expression
	Offset   Expression      // optional OFFSET expression
	Span     syntax.Span
}

func (s *SelectStmt) statementNode() {}

// SimpleSelect is one SELECT core, without ordering or limits
type SimpleSelect struct {
	Distinct bool
	Columns  []ResultColumn
	From     *Relation    // nil if there is no FROM clause
	Where    Expression   // optional WHERE clause (nil if none)
	GroupBy  []Expression // optional GROUP BY clause
	Having   Expression   // optional HAVING clause (nil if none)
}

// ResultColumn is an item of a select list or RETURNING clause.
// Exactly one of Star (with optional Table) or Expr is set.
type ResultColumn struct {
	Star  bool
	Table string // table qualifier for table.*
	Expr  Expression
	Alias string
}

// OrderDirection is the sort direction of an ordering term
type OrderDirection int

const (
	OrderDefault OrderDirection = iota
	OrderAsc
	OrderDesc
)

// NullsOrder places NULLs first or last
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// OrderingTerm represents one ORDER BY item
type OrderingTerm struct {
	Expr      Expression
	Direction OrderDirection
	Nulls     NullsOrder
}

// TableReference represents a table source in FROM clause
type TableReference interface {
	tableRefNode()
}

// Table represents a single named table
type Table struct {
	Name  string
	Alias string
}

func (t *Table) tableRefNode() {}

// SubquerySource is a parenthesized select used as a table
type SubquerySource struct {
	Select *SelectStmt
	Alias  string
}

func (s *SubquerySource) tableRefNode() {}

// JoinType represents the type of join
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// String returns the SQL keyword(s) for the join type
func (j JoinType) String() string {
	switch j {
	case JoinInner:
		return "INNER JOIN"
	case JoinLeft:
		return "LEFT JOIN"
	case JoinRight:
		return "RIGHT JOIN"
	case JoinFull:
		return "FULL JOIN"
	default:
		return "JOIN"
	}
}

// Join attaches a table reference to the relation on a condition
type Join struct {
	Type   JoinType
	Source TableReference
	On     Expression
}

// Relation is the FROM clause: a source followed by zero or more joins
type Relation struct {
	Source TableReference
	Joins  []*Join
}

// InsertStmt represents an INSERT statement
type InsertStmt struct {
	With      *WithClause
	Table     string
	Alias     string
	Columns   []string       // optional column list (nil means all columns)
	Values    [][]Expression // rows of values
	Upsert    *Upsert        // optional ON CONFLICT clause
	Returning []ResultColumn // optional RETURNING clause
	Span      syntax.Span
}

func (s *InsertStmt) statementNode() {}

// ConflictTarget is the optional (cols) [WHERE e] part of ON CONFLICT
type ConflictTarget struct {
	Columns []string
	Where   Expression
}

// Upsert represents ON CONFLICT ... DO NOTHING | DO UPDATE SET ...
type Upsert struct {
	Target    *ConflictTarget // nil if no conflict target was given
	DoNothing bool
	Set       []UpdateSet // DO UPDATE assignments
	Where     Expression  // DO UPDATE ... WHERE
}

// UpdateSet represents col = expr or (col, ...) = expr
type UpdateSet struct {
	Columns []string
	Tuple   bool // columns were written in parentheses
	Value   Expression
}

// UpdateStmt represents an UPDATE statement
type UpdateStmt struct {
	With      *WithClause
	Table     string
	Alias     string
	Set       []UpdateSet
	From      *Relation
	Where     Expression
	Returning []ResultColumn
	Span      syntax.Span
}

func (s *UpdateStmt) statementNode() {}

// DeleteStmt represents a DELETE statement
type DeleteStmt struct {
	With      *WithClause
	Table     string
	Alias     string
	Where     Expression
	Returning []ResultColumn
	Span      syntax.Span
}

func (s *DeleteStmt) statementNode() {}

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

// Literal represents a literal value. Value holds the source text: the
// unescaped content for text, digits for numbers, 0x-prefixed hex for blobs,
// and lower-case true, false or null otherwise.
type Literal struct {
	Kind     LiteralKind
	Value    string
	TypeCast string
}

func (e *Literal) expressionNode() {}

// BindParameter represents $name or @name
type BindParameter struct {
	Name     string // including the sigil
	TypeCast string
}

func (e *BindParameter) expressionNode() {}

// ColumnRef represents [table.]column
type ColumnRef struct {
	Table    string
	Column   string
	TypeCast string
}

func (e *ColumnRef) expressionNode() {}

// UnaryExpr represents +X, -X and NOT X
type UnaryExpr struct {
	Op    lexer.TokenType
	Right Expression
}

func (e *UnaryExpr) expressionNode() {}

// BinaryExpr represents arithmetic, comparison and logical operators
type BinaryExpr struct {
	Left  Expression
	Op    lexer.TokenType
	Right Expression
}

func (e *BinaryExpr) expressionNode() {}

// ParenExpr represents a parenthesized expression
type ParenExpr struct {
	Inner    Expression
	TypeCast string
}

func (e *ParenExpr) expressionNode() {}

// ExprList represents (a, b, ...) with at least two elements
type ExprList struct {
	Exprs []Expression
}

func (e *ExprList) expressionNode() {}

// SubqueryExpr represents (select ...) and [NOT] EXISTS (select ...)
type SubqueryExpr struct {
	Exists bool
	Not    bool // only with Exists
	Select *SelectStmt
}

func (e *SubqueryExpr) expressionNode() {}

// WhenClause represents a WHEN ... THEN ... clause in CASE
type WhenClause struct {
	Condition Expression
	Then      Expression
}

// CaseExpr represents CASE [operand] WHEN ... THEN ... [ELSE ...] END
type CaseExpr struct {
	Operand Expression // nil for a searched CASE
	Whens   []*WhenClause
	Else    Expression
}

func (e *CaseExpr) expressionNode() {}

// FunctionCall represents name([DISTINCT] args) or name(*)
type FunctionCall struct {
	Name     string
	Distinct bool
	Star     bool
	Args     []Expression
	TypeCast string
}

func (e *FunctionCall) expressionNode() {}

// BetweenExpr represents expr [NOT] BETWEEN low AND high
type BetweenExpr struct {
	Expr Expression
	Not  bool
	Low  Expression
	High Expression
}

func (e *BetweenExpr) expressionNode() {}

// InExpr represents expr [NOT] IN (values...) or expr [NOT] IN (select)
type InExpr struct {
	Left     Expression
	Not      bool
	Values   []Expression // value list (nil if Subquery is set)
	Subquery *SelectStmt
}

func (e *InExpr) expressionNode() {}

// LikeExpr represents expr [NOT] LIKE pattern [ESCAPE escape]
type LikeExpr struct {
	Left    Expression
	Not     bool
	Pattern Expression
	Escape  Expression
}

func (e *LikeExpr) expressionNode() {}

// IsExpr represents expr IS [NOT] (DISTINCT FROM expr | TRUE | FALSE | NULL).
// For the literal forms Right is a *Literal.
type IsExpr struct {
	Left     Expression
	Not      bool
	Distinct bool
	Right    Expression
}

func (e *IsExpr) expressionNode() {}

// NullTestExpr represents the postfix expr ISNULL / expr NOTNULL
type NullTestExpr struct {
	Expr    Expression
	NotNull bool
}

func (e *NullTestExpr) expressionNode() {}

// CollateExpr represents expr COLLATE name
type CollateExpr struct {
	Expr      Expression
	Collation string
}

func (e *CollateExpr) expressionNode() {}
