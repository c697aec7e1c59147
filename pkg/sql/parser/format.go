// pkg/sql/parser/format.go
package parser

import (
	"strings"

	"kuneiform/pkg/sql/lexer"
)

// Format renders a statement as canonical SQL. Keywords are upper case and
// parentheses appear only where the tree holds a ParenExpr or where operator
// precedence requires them, so parsing the output yields an equivalent tree.
func Format(stmt Statement) string {
	var pr printer
	pr.statement(stmt)
	return pr.String()
}

// FormatStatements renders statements separated and terminated by ";".
func FormatStatements(stmts []Statement) string {
	parts := make([]string, len(stmts))
	for i, stmt := range stmts {
		parts[i] = Format(stmt)
	}
	return strings.Join(parts, ";\n") + ";"
}

// FormatExpr renders a single expression.
func FormatExpr(expr Expression) string {
	var pr printer
	pr.expr(expr)
	return pr.String()
}

// QuoteIdent returns name unchanged when it is a plain identifier and
// double-quoted otherwise.
func QuoteIdent(name string) string {
	if isPlainIdent(name) && !lexer.IsReserved(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString returns s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

type printer struct {
	strings.Builder
}

func (pr *printer) statement(stmt Statement) {
	switch s := stmt.(type) {
	case *SelectStmt:
		pr.selectStmt(s)
	case *InsertStmt:
		pr.with(s.With)
		pr.insert(s)
	case *UpdateStmt:
		pr.with(s.With)
		pr.update(s)
	case *DeleteStmt:
		pr.with(s.With)
		pr.delete(s)
	}
}

func (pr *printer) with(w *WithClause) {
	if w == nil {
		return
	}
	pr.WriteString("WITH ")
	for i, cte := range w.CTEs {
		if i > 0 {
			pr.WriteString(", ")
		}
		pr.WriteString(QuoteIdent(cte.Name))
		if len(cte.Columns) > 0 {
			pr.WriteString(" ")
			pr.identList(cte.Columns)
		}
		pr.WriteString(" AS (")
		pr.selectStmt(cte.Select)
		pr.WriteString(")")
	}
	pr.WriteString(" ")
}

func (pr *printer) selectStmt(s *SelectStmt) {
	pr.with(s.With)
	for i, core := range s.Selects {
		if i > 0 {
			pr.WriteString(" ")
			pr.WriteString(s.Compound[i-1].String())
			pr.WriteString(" ")
		}
		pr.simpleSelect(core)
	}

	if len(s.OrderBy) > 0 {
		pr.WriteString(" ORDER BY ")
		for i, term := range s.OrderBy {
			if i > 0 {
				pr.WriteString(", ")
			}
			pr.expr(term.Expr)
			switch term.Direction {
			case OrderAsc:
				pr.WriteString(" ASC")
			case OrderDesc:
				pr.WriteString(" DESC")
			}
			switch term.Nulls {
			case NullsFirst:
				pr.WriteString(" NULLS FIRST")
			case NullsLast:
				pr.WriteString(" NULLS LAST")
			}
		}
	}

	if s.Limit != nil {
		pr.WriteString(" LIMIT ")
		pr.expr(s.Limit)
		if s.Offset != nil {
			pr.WriteString(" OFFSET ")
			pr.expr(s.Offset)
		}
	}
}

func (pr *printer) simpleSelect(s *SimpleSelect) {
	pr.WriteString("SELECT ")
	if s.Distinct {
		pr.WriteString("DISTINCT ")
	}
	pr.resultColumns(s.Columns)

	if s.From != nil {
		pr.WriteString(" FROM ")
		pr.relation(s.From)
	}
	if s.Where != nil {
		pr.WriteString(" WHERE ")
		pr.expr(s.Where)
	}
	if len(s.GroupBy) > 0 {
		pr.WriteString(" GROUP BY ")
		pr.exprList(s.GroupBy)
		if s.Having != nil {
			pr.WriteString(" HAVING ")
			pr.expr(s.Having)
		}
	}
}

func (pr *printer) resultColumns(cols []ResultColumn) {
	for i, col := range cols {
		if i > 0 {
			pr.WriteString(", ")
		}
		switch {
		case col.Star && col.Table != "":
			pr.WriteString(QuoteIdent(col.Table))
			pr.WriteString(".*")
		case col.Star:
			pr.WriteString("*")
		default:
			pr.expr(col.Expr)
			pr.alias(col.Alias)
		}
	}
}

func (pr *printer) alias(alias string) {
	if alias != "" {
		pr.WriteString(" AS ")
		pr.WriteString(QuoteIdent(alias))
	}
}

func (pr *printer) relation(rel *Relation) {
	pr.tableRef(rel.Source)
	for _, join := range rel.Joins {
		pr.WriteString(" ")
		pr.WriteString(join.Type.String())
		pr.WriteString(" ")
		pr.tableRef(join.Source)
		pr.WriteString(" ON ")
		pr.expr(join.On)
	}
}

func (pr *printer) tableRef(ref TableReference) {
	switch t := ref.(type) {
	case *Table:
		pr.WriteString(QuoteIdent(t.Name))
		pr.alias(t.Alias)
	case *SubquerySource:
		pr.WriteString("(")
		pr.selectStmt(t.Select)
		pr.WriteString(")")
		pr.alias(t.Alias)
	}
}

func (pr *printer) insert(s *InsertStmt) {
	pr.WriteString("INSERT INTO ")
	pr.WriteString(QuoteIdent(s.Table))
	pr.alias(s.Alias)
	if len(s.Columns) > 0 {
		pr.WriteString(" ")
		pr.identList(s.Columns)
	}
	pr.WriteString(" VALUES ")
	for i, row := range s.Values {
		if i > 0 {
			pr.WriteString(", ")
		}
		pr.WriteString("(")
		pr.exprList(row)
		pr.WriteString(")")
	}

	if u := s.Upsert; u != nil {
		pr.WriteString(" ON CONFLICT")
		if u.Target != nil {
			pr.WriteString(" ")
			pr.identList(u.Target.Columns)
			if u.Target.Where != nil {
				pr.WriteString(" WHERE ")
				pr.expr(u.Target.Where)
			}
		}
		if u.DoNothing {
			pr.WriteString(" DO NOTHING")
		} else {
			pr.WriteString(" DO UPDATE SET ")
			pr.updateSets(u.Set)
			if u.Where != nil {
				pr.WriteString(" WHERE ")
				pr.expr(u.Where)
			}
		}
	}
	pr.returning(s.Returning)
}

func (pr *printer) update(s *UpdateStmt) {
	pr.WriteString("UPDATE ")
	pr.WriteString(QuoteIdent(s.Table))
	pr.alias(s.Alias)
	pr.WriteString(" SET ")
	pr.updateSets(s.Set)
	if s.From != nil {
		pr.WriteString(" FROM ")
		pr.relation(s.From)
	}
	if s.Where != nil {
		pr.WriteString(" WHERE ")
		pr.expr(s.Where)
	}
	pr.returning(s.Returning)
}

func (pr *printer) delete(s *DeleteStmt) {
	pr.WriteString("DELETE FROM ")
	pr.WriteString(QuoteIdent(s.Table))
	pr.alias(s.Alias)
	if s.Where != nil {
		pr.WriteString(" WHERE ")
		pr.expr(s.Where)
	}
	pr.returning(s.Returning)
}

func (pr *printer) updateSets(sets []UpdateSet) {
	for i, set := range sets {
		if i > 0 {
			pr.WriteString(", ")
		}
		if set.Tuple {
			pr.identList(set.Columns)
		} else {
			pr.WriteString(QuoteIdent(set.Columns[0]))
		}
		pr.WriteString(" = ")
		pr.expr(set.Value)
	}
}

func (pr *printer) returning(cols []ResultColumn) {
	if len(cols) > 0 {
		pr.WriteString(" RETURNING ")
		pr.resultColumns(cols)
	}
}

func (pr *printer) identList(names []string) {
	pr.WriteString("(")
	for i, name := range names {
		if i > 0 {
			pr.WriteString(", ")
		}
		pr.WriteString(QuoteIdent(name))
	}
	pr.WriteString(")")
}

func (pr *printer) exprList(exprs []Expression) {
	for i, e := range exprs {
		if i > 0 {
			pr.WriteString(", ")
		}
		pr.expr(e)
	}
}

const atomPrec = PREFIX + 1

// exprPrec returns the binding strength of the operator at the root of e.
func exprPrec(e Expression) int {
	switch e := e.(type) {
	case *BinaryExpr:
		return precedences[e.Op]
	case *UnaryExpr:
		if e.Op == lexer.NOT {
			return NOT_PREC
		}
		return PREFIX
	case *NullTestExpr:
		return NULLTEST_PREC
	case *IsExpr:
		return IS_PREC
	case *LikeExpr:
		return LIKE_PREC
	case *InExpr:
		return IN_PREC
	case *BetweenExpr:
		return BETWEEN_PREC
	case *CollateExpr:
		return COLLATE_PREC
	}
	return atomPrec
}

// weakTail reports whether the rightmost unparenthesized part of e is a
// prefix NOT that would absorb a following operator of precedence prec.
func weakTail(e Expression, prec int) bool {
	switch e := e.(type) {
	case *UnaryExpr:
		if e.Op == lexer.NOT {
			if negatable(e) {
				return false
			}
			if NOT_PREC < prec {
				return true
			}
			return tail(e.Right, NOT_PREC, prec)
		}
		return tail(e.Right, PREFIX, prec)
	case *BinaryExpr:
		return tail(e.Right, precedences[e.Op], prec)
	case *BetweenExpr:
		return tail(e.High, BETWEEN_PREC, prec)
	case *LikeExpr:
		if e.Escape != nil {
			return tail(e.Escape, LIKE_PREC, prec)
		}
		return tail(e.Pattern, LIKE_PREC, prec)
	case *IsExpr:
		if e.Distinct {
			return tail(e.Right, IS_PREC, prec)
		}
	}
	return false
}

// tail is weakTail for an operand rendered by right at precedence ctx.
func tail(e Expression, ctx, prec int) bool {
	if prefixNot(e, ctx) && NOT_PREC < prec {
		return true
	}
	return weakTail(e, prec)
}

// prefixNot reports whether right renders the negated BETWEEN, IN or LIKE
// e in its NOT-prefixed form, as in "a = NOT b LIKE c".
func prefixNot(e Expression, prec int) bool {
	switch e := e.(type) {
	case *BetweenExpr:
		return e.Not && headPrec(e) <= prec
	case *InExpr:
		return e.Not && headPrec(e) <= prec
	case *LikeExpr:
		return e.Not && headPrec(e) <= prec
	}
	return false
}

// postfix reports whether e ends in a closed suffix (ISNULL, NOTNULL,
// IS [NOT] NULL|TRUE|FALSE, IN (...), COLLATE name) and so never absorbs a
// following operator.
func postfix(e Expression) bool {
	switch e := e.(type) {
	case *NullTestExpr, *InExpr, *CollateExpr:
		return true
	case *IsExpr:
		return !e.Distinct
	}
	return false
}

func wrapLeft(e Expression, prec int) bool {
	if postfix(e) {
		return false
	}
	return exprPrec(e) < prec || weakTail(e, prec)
}

// headPrec returns the weakest operator on the unparenthesized left spine
// of e as rendered. A postfix operator there ends the operand early when
// it is re-read at a higher precedence.
func headPrec(e Expression) int {
	var (
		inner Expression
		prec  int
	)
	switch e := e.(type) {
	case *BinaryExpr:
		inner, prec = e.Left, precedences[e.Op]
	case *NullTestExpr:
		inner, prec = e.Expr, NULLTEST_PREC
	case *IsExpr:
		inner, prec = e.Left, IS_PREC
	case *LikeExpr:
		inner, prec = e.Left, LIKE_PREC
	case *InExpr:
		inner, prec = e.Left, IN_PREC
	case *BetweenExpr:
		inner, prec = e.Expr, BETWEEN_PREC
	case *CollateExpr:
		inner, prec = e.Expr, COLLATE_PREC
	default:
		return exprPrec(e)
	}
	if wrapLeft(inner, prec) {
		return prec
	}
	return min(prec, headPrec(inner))
}

// left renders an operand on the left of an operator of precedence prec.
func (pr *printer) left(e Expression, prec int) {
	if wrapLeft(e, prec) {
		pr.paren(e)
		return
	}
	pr.expr(e)
}

// right renders an operand that was parsed at precedence prec.
func (pr *printer) right(e Expression, prec int) {
	if u, ok := e.(*UnaryExpr); ok && !negatable(u) {
		pr.expr(e)
		return
	}
	if prefixNot(e, prec) {
		pr.WriteString("NOT ")
		pr.expr(positive(e))
		return
	}
	if headPrec(e) <= prec {
		pr.paren(e)
		return
	}
	pr.expr(e)
}

// positive returns a copy of a negated BETWEEN, IN or LIKE without its NOT.
func positive(e Expression) Expression {
	switch e := e.(type) {
	case *BetweenExpr:
		c := *e
		c.Not = false
		return &c
	case *InExpr:
		c := *e
		c.Not = false
		return &c
	case *LikeExpr:
		c := *e
		c.Not = false
		return &c
	}
	return e
}

// negatable reports whether u is NOT applied to an operator that would fold
// it into its own negated form when re-read.
func negatable(u *UnaryExpr) bool {
	if u.Op != lexer.NOT {
		return false
	}
	switch e := u.Right.(type) {
	case *BetweenExpr:
		return !e.Not
	case *InExpr:
		return !e.Not
	case *LikeExpr:
		return !e.Not
	}
	return false
}

func (pr *printer) paren(e Expression) {
	pr.WriteString("(")
	pr.expr(e)
	pr.WriteString(")")
}

func (pr *printer) not(not bool) {
	if not {
		pr.WriteString(" NOT")
	}
}

func (pr *printer) cast(typ string) {
	if typ != "" {
		pr.WriteString("::")
		pr.WriteString(QuoteIdent(typ))
	}
}

func (pr *printer) expr(e Expression) {
	switch e := e.(type) {
	case *Literal:
		switch e.Kind {
		case LiteralText:
			pr.WriteString(QuoteString(e.Value))
		case LiteralBoolean, LiteralNull:
			pr.WriteString(strings.ToUpper(e.Value))
		default:
			pr.WriteString(e.Value)
		}
		pr.cast(e.TypeCast)
	case *BindParameter:
		pr.WriteString(e.Name)
		pr.cast(e.TypeCast)
	case *ColumnRef:
		if e.Table != "" {
			pr.WriteString(QuoteIdent(e.Table))
			pr.WriteString(".")
		}
		pr.WriteString(QuoteIdent(e.Column))
		pr.cast(e.TypeCast)
	case *UnaryExpr:
		if e.Op == lexer.NOT {
			pr.WriteString("NOT ")
			if negatable(e) {
				pr.paren(e.Right)
				return
			}
			pr.right(e.Right, NOT_PREC)
			return
		}
		pr.WriteString(e.Op.String())
		if _, ok := e.Right.(*UnaryExpr); ok {
			pr.WriteString(" ")
		}
		pr.right(e.Right, PREFIX)
	case *BinaryExpr:
		prec := precedences[e.Op]
		pr.left(e.Left, prec)
		pr.WriteString(" ")
		pr.WriteString(e.Op.String())
		pr.WriteString(" ")
		pr.right(e.Right, prec)
	case *ParenExpr:
		pr.paren(e.Inner)
		pr.cast(e.TypeCast)
	case *ExprList:
		pr.WriteString("(")
		pr.exprList(e.Exprs)
		pr.WriteString(")")
	case *SubqueryExpr:
		if e.Exists {
			if e.Not {
				pr.WriteString("NOT ")
			}
			pr.WriteString("EXISTS ")
		}
		pr.WriteString("(")
		pr.selectStmt(e.Select)
		pr.WriteString(")")
	case *CaseExpr:
		pr.WriteString("CASE")
		if e.Operand != nil {
			pr.WriteString(" ")
			pr.expr(e.Operand)
		}
		for _, when := range e.Whens {
			pr.WriteString(" WHEN ")
			pr.expr(when.Condition)
			pr.WriteString(" THEN ")
			pr.expr(when.Then)
		}
		if e.Else != nil {
			pr.WriteString(" ELSE ")
			pr.expr(e.Else)
		}
		pr.WriteString(" END")
	case *FunctionCall:
		if strings.EqualFold(e.Name, "like") || strings.EqualFold(e.Name, "replace") {
			pr.WriteString(e.Name)
		} else {
			pr.WriteString(QuoteIdent(e.Name))
		}
		pr.WriteString("(")
		switch {
		case e.Star:
			pr.WriteString("*")
		case e.Distinct:
			pr.WriteString("DISTINCT ")
			pr.exprList(e.Args)
		default:
			pr.exprList(e.Args)
		}
		pr.WriteString(")")
		pr.cast(e.TypeCast)
	case *BetweenExpr:
		pr.left(e.Expr, BETWEEN_PREC)
		pr.not(e.Not)
		pr.WriteString(" BETWEEN ")
		pr.right(e.Low, BETWEEN_PREC)
		pr.WriteString(" AND ")
		pr.right(e.High, BETWEEN_PREC)
	case *InExpr:
		pr.left(e.Left, IN_PREC)
		pr.not(e.Not)
		pr.WriteString(" IN (")
		if e.Subquery != nil {
			pr.selectStmt(e.Subquery)
		} else {
			pr.exprList(e.Values)
		}
		pr.WriteString(")")
	case *LikeExpr:
		pr.left(e.Left, LIKE_PREC)
		pr.not(e.Not)
		pr.WriteString(" LIKE ")
		pr.right(e.Pattern, LIKE_PREC)
		if e.Escape != nil {
			pr.WriteString(" ESCAPE ")
			pr.right(e.Escape, LIKE_PREC)
		}
	case *IsExpr:
		pr.left(e.Left, IS_PREC)
		pr.WriteString(" IS")
		pr.not(e.Not)
		if e.Distinct {
			pr.WriteString(" DISTINCT FROM ")
			pr.right(e.Right, IS_PREC)
		} else {
			pr.WriteString(" ")
			pr.expr(e.Right)
		}
	case *NullTestExpr:
		pr.left(e.Expr, NULLTEST_PREC)
		if e.NotNull {
			pr.WriteString(" NOTNULL")
		} else {
			pr.WriteString(" ISNULL")
		}
	case *CollateExpr:
		pr.left(e.Expr, COLLATE_PREC)
		pr.WriteString(" COLLATE ")
		pr.WriteString(QuoteIdent(e.Collation))
	}
}
