// pkg/action/format.go
package action

import (
	"strings"
)

// Format renders statements one per line, each terminated by ';'. SQL
// pass-through statements are written as they appeared in the source.
func Format(stmts []Statement) string {
	var sb strings.Builder
	for i, stmt := range stmts {
		if i > 0 {
			sb.WriteString("\n")
		}
		formatStatement(&sb, stmt)
	}
	return sb.String()
}

func formatStatement(sb *strings.Builder, stmt Statement) {
	switch s := stmt.(type) {
	case *SQLStmt:
		sb.WriteString(s.SQL)
		if endsInLineComment(s.SQL) {
			sb.WriteString("\n")
		}
		sb.WriteString(";")
	case *ActionCall:
		receivers(sb, s.Receivers)
		sb.WriteString(s.Name)
		args(sb, s.Args)
		sb.WriteString(";")
	case *ExtensionCall:
		receivers(sb, s.Receivers)
		sb.WriteString(s.Extension)
		sb.WriteString(".")
		sb.WriteString(s.Method)
		args(sb, s.Args)
		sb.WriteString(";")
	}
}

// endsInLineComment reports whether a ';' appended to sql could fall inside
// a trailing line comment.
func endsInLineComment(sql string) bool {
	last := sql[strings.LastIndexByte(sql, '\n')+1:]
	return strings.Contains(last, "--") || strings.Contains(last, "//")
}

func receivers(sb *strings.Builder, names []string) {
	if len(names) == 0 {
		return
	}
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(" = ")
}

func args(sb *strings.Builder, exprs []Expression) {
	sb.WriteString("(")
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatExpr(sb, e)
	}
	sb.WriteString(")")
}

// FormatExpr renders a single argument expression.
func FormatExpr(e Expression) string {
	var sb strings.Builder
	formatExpr(&sb, e)
	return sb.String()
}

func exprPrec(e Expression) int {
	switch e := e.(type) {
	case *BinaryExpr:
		return precedences[e.Op]
	case *UnaryExpr:
		if e.Op == NOT {
			return NOT_PREC
		}
		return PREFIX
	}
	return PREFIX + 1
}

// weakTail reports whether e ends in an unparenthesized NOT that would
// absorb a following operator of precedence prec.
func weakTail(e Expression, prec int) bool {
	switch e := e.(type) {
	case *UnaryExpr:
		if e.Op == NOT && NOT_PREC < prec {
			return true
		}
		return weakTail(e.Right, prec)
	case *BinaryExpr:
		return weakTail(e.Right, prec)
	}
	return false
}

func operand(sb *strings.Builder, e Expression, wrap bool) {
	if wrap {
		sb.WriteString("(")
		formatExpr(sb, e)
		sb.WriteString(")")
		return
	}
	formatExpr(sb, e)
}

func formatExpr(sb *strings.Builder, e Expression) {
	switch e := e.(type) {
	case *Literal:
		switch e.Kind {
		case LiteralText:
			sb.WriteString("'" + strings.ReplaceAll(e.Value, "'", "''") + "'")
		default:
			sb.WriteString(e.Value)
		}
	case *Variable:
		sb.WriteString(e.Name)
	case *BlockVariable:
		sb.WriteString(e.Name)
	case *UnaryExpr:
		if e.Op == NOT {
			sb.WriteString("not ")
			_, unary := e.Right.(*UnaryExpr)
			operand(sb, e.Right, !unary && exprPrec(e.Right) <= NOT_PREC)
			return
		}
		sb.WriteString(e.Op.String())
		_, unary := e.Right.(*UnaryExpr)
		if unary {
			sb.WriteString(" ")
		}
		operand(sb, e.Right, !unary && exprPrec(e.Right) <= PREFIX)
	case *BinaryExpr:
		prec := precedences[e.Op]
		operand(sb, e.Left, exprPrec(e.Left) < prec || weakTail(e.Left, prec))
		sb.WriteString(" ")
		sb.WriteString(opText(e.Op))
		sb.WriteString(" ")
		_, unary := e.Right.(*UnaryExpr)
		operand(sb, e.Right, !unary && exprPrec(e.Right) <= prec)
	case *ParenExpr:
		operand(sb, e.Inner, true)
	case *CallExpr:
		sb.WriteString(e.Name)
		if e.Star {
			sb.WriteString("(*)")
			return
		}
		args(sb, e.Args)
	}
}

func opText(op TokenType) string {
	switch op {
	case AND:
		return "and"
	case OR:
		return "or"
	}
	return op.String()
}
