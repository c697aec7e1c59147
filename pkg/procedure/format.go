// pkg/procedure/format.go
package procedure

import (
	"strconv"
	"strings"
)

// Format renders statements one per line. Blocks are indented with a tab
// per level and SQL is written as it appeared in the source.
func Format(stmts []Statement) string {
	var sb strings.Builder
	block(&sb, stmts, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

func block(sb *strings.Builder, stmts []Statement, depth int) {
	for _, stmt := range stmts {
		sb.WriteString(strings.Repeat("\t", depth))
		formatStatement(sb, stmt, depth)
		sb.WriteString("\n")
	}
}

// body writes "{", the indented statements and the closing "}".
func body(sb *strings.Builder, stmts []Statement, depth int) {
	sb.WriteString("{\n")
	block(sb, stmts, depth+1)
	sb.WriteString(strings.Repeat("\t", depth))
	sb.WriteString("}")
}

func formatStatement(sb *strings.Builder, stmt Statement, depth int) {
	switch s := stmt.(type) {
	case *DeclareStmt:
		sb.WriteString(s.Name + " " + FormatType(s.Type) + ";")
	case *AssignStmt:
		sb.WriteString(s.Name + " := ")
		formatExpr(sb, s.Value)
		sb.WriteString(";")
	case *DeclareAssignStmt:
		sb.WriteString(s.Name + " " + FormatType(s.Type) + " := ")
		formatExpr(sb, s.Value)
		sb.WriteString(";")
	case *CallStmt:
		if len(s.Receivers) > 0 {
			sb.WriteString(strings.Join(s.Receivers, ", "))
			sb.WriteString(" := ")
		}
		formatExpr(sb, s.Call)
		sb.WriteString(";")
	case *ForStmt:
		sb.WriteString("for " + s.Variable + " in ")
		switch t := s.Target.(type) {
		case *RangeTarget:
			formatExpr(sb, t.Start)
			sb.WriteString(":")
			formatExpr(sb, t.End)
			sb.WriteString(" ")
		case *CallTarget:
			formatExpr(sb, t.Call)
			sb.WriteString(" ")
		case *VariableTarget:
			formatExpr(sb, t.Variable)
			sb.WriteString(" ")
		case *SQLTarget:
			rawSQL(sb, t.SQL)
		}
		body(sb, s.Body, depth)
	case *IfStmt:
		for i, br := range s.Branches {
			if i == 0 {
				sb.WriteString("if ")
			} else {
				sb.WriteString(" elseif ")
			}
			formatExpr(sb, br.Cond)
			sb.WriteString(" ")
			body(sb, br.Body, depth)
		}
		if len(s.Else) > 0 {
			sb.WriteString(" else ")
			body(sb, s.Else, depth)
		}
	case *SQLStmt:
		sb.WriteString(s.SQL)
		if endsInLineComment(s.SQL) {
			sb.WriteString("\n")
		}
		sb.WriteString(";")
	case *ReturnStmt:
		sb.WriteString("return")
		switch {
		case s.SQL != nil:
			sb.WriteString(" ")
			formatStatement(sb, s.SQL, depth)
			return
		case len(s.Values) > 0:
			sb.WriteString(" ")
			exprList(sb, s.Values)
		}
		sb.WriteString(";")
	case *ReturnNextStmt:
		sb.WriteString("return next ")
		exprList(sb, s.Values)
		sb.WriteString(";")
	case *BreakStmt:
		sb.WriteString("break;")
	}
}

// rawSQL writes a loop source query followed by the separator before '{'.
func rawSQL(sb *strings.Builder, sql string) {
	sb.WriteString(sql)
	if endsInLineComment(sql) {
		sb.WriteString("\n")
		return
	}
	sb.WriteString(" ")
}

// endsInLineComment reports whether text appended to sql could fall inside
// a trailing line comment.
func endsInLineComment(sql string) bool {
	last := sql[strings.LastIndexByte(sql, '\n')+1:]
	return strings.Contains(last, "--") || strings.Contains(last, "//")
}

// FormatType renders a type reference.
func FormatType(t *Type) string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(t.Name)
	if len(t.Metadata) > 0 {
		sb.WriteString("(")
		for i, n := range t.Metadata {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Itoa(n))
		}
		sb.WriteString(")")
	}
	if t.IsArray {
		sb.WriteString("[]")
	}
	return sb.String()
}

// FormatExpr renders a single expression.
func FormatExpr(e Expression) string {
	var sb strings.Builder
	formatExpr(&sb, e)
	return sb.String()
}

func exprList(sb *strings.Builder, exprs []Expression) {
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatExpr(sb, e)
	}
}

func exprPrec(e Expression) int {
	switch e := e.(type) {
	case *BinaryExpr:
		return precedences[e.Op]
	case *UnaryExpr:
		return PREFIX
	}
	return POSTFIX
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

func cast(sb *strings.Builder, t *Type) {
	if t != nil {
		sb.WriteString("::")
		sb.WriteString(FormatType(t))
	}
}

func formatExpr(sb *strings.Builder, e Expression) {
	switch e := e.(type) {
	case *Literal:
		if e.Kind == LiteralText {
			sb.WriteString("'" + strings.ReplaceAll(e.Value, "'", "''") + "'")
		} else {
			sb.WriteString(e.Value)
		}
		cast(sb, e.Cast)
	case *Variable:
		sb.WriteString(e.Name)
		cast(sb, e.Cast)
	case *CallExpr:
		sb.WriteString(e.Name + "(")
		exprList(sb, e.Args)
		sb.WriteString(")")
		cast(sb, e.Cast)
	case *ForeignCallExpr:
		sb.WriteString(e.Name + "[")
		formatExpr(sb, e.DBID)
		sb.WriteString(", ")
		formatExpr(sb, e.Procedure)
		sb.WriteString("](")
		exprList(sb, e.Args)
		sb.WriteString(")")
		cast(sb, e.Cast)
	case *ArrayExpr:
		sb.WriteString("[")
		exprList(sb, e.Values)
		sb.WriteString("]")
		cast(sb, e.Cast)
	case *IndexExpr:
		operand(sb, e.Target, exprPrec(e.Target) < POSTFIX)
		sb.WriteString("[")
		formatExpr(sb, e.Index)
		sb.WriteString("]")
		cast(sb, e.Cast)
	case *FieldExpr:
		operand(sb, e.Target, exprPrec(e.Target) < POSTFIX)
		sb.WriteString("." + e.Field)
		cast(sb, e.Cast)
	case *ParenExpr:
		operand(sb, e.Inner, true)
		cast(sb, e.Cast)
	case *UnaryExpr:
		sb.WriteString(e.Op.String())
		if _, unary := e.Right.(*UnaryExpr); unary {
			sb.WriteString(" ")
		}
		operand(sb, e.Right, exprPrec(e.Right) < PREFIX)
	case *BinaryExpr:
		prec := precedences[e.Op]
		operand(sb, e.Left, exprPrec(e.Left) < prec)
		sb.WriteString(" " + e.Op.String() + " ")
		_, unary := e.Right.(*UnaryExpr)
		operand(sb, e.Right, !unary && exprPrec(e.Right) <= prec)
	}
}
