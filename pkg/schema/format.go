// pkg/schema/format.go
package schema

import (
	"strconv"
	"strings"

	"kuneiform/pkg/action"
	"kuneiform/pkg/procedure"
)

// Format renders a schema in canonical Kuneiform: the database, then uses,
// tables, foreign procedures, actions and procedures, separated by blank
// lines. Captured bodies are written as captured, comments included. A
// body with statements but no text, as in a constructed schema, is
// rendered from its statements.
func Format(s *Schema) string {
	var sb strings.Builder
	sb.WriteString("database " + s.Name + ";\n")

	if len(s.Uses) > 0 {
		sb.WriteString("\n")
		for _, u := range s.Uses {
			formatUse(&sb, u)
		}
	}
	for _, t := range s.Tables {
		sb.WriteString("\n")
		formatTable(&sb, t)
	}
	if len(s.ForeignProcedures) > 0 {
		sb.WriteString("\n")
		for _, fp := range s.ForeignProcedures {
			formatForeignProcedure(&sb, fp)
		}
	}
	for _, a := range s.Actions {
		sb.WriteString("\n")
		formatAction(&sb, a)
	}
	for _, p := range s.Procedures {
		sb.WriteString("\n")
		formatProcedure(&sb, p)
	}
	return sb.String()
}

func formatUse(sb *strings.Builder, u *Use) {
	sb.WriteString("use " + u.Extension)
	if len(u.Config) > 0 {
		sb.WriteString(" {")
		for i, c := range u.Config {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("\n\t" + c.Key + ": " + FormatLiteral(c.Value))
		}
		sb.WriteString("\n}")
	}
	sb.WriteString(" as " + u.Alias + ";\n")
}

func formatTable(sb *strings.Builder, t *Table) {
	sb.WriteString("table " + t.Name + " {\n")

	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, formatColumn(c))
	}
	for _, idx := range t.Indexes {
		lines = append(lines, "#"+idx.Name+" "+strings.ToLower(idx.Type.String())+"("+strings.Join(idx.Columns, ", ")+")")
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, formatForeignKey(fk))
	}
	for i, line := range lines {
		sb.WriteString("\t" + line)
		if i < len(lines)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
}

func formatColumn(c *Column) string {
	var sb strings.Builder
	sb.WriteString(c.Name + " " + FormatType(c.Type))
	for _, con := range c.Constraints {
		sb.WriteString(" ")
		switch con.Type {
		case ConstraintPrimaryKey:
			sb.WriteString("primary key")
		case ConstraintUnique:
			sb.WriteString("unique")
		case ConstraintNotNull:
			sb.WriteString("not null")
		default:
			sb.WriteString(strings.ToLower(con.Type.String()))
			sb.WriteString("(" + FormatLiteral(con.Value) + ")")
		}
	}
	return sb.String()
}

func formatForeignKey(fk *ForeignKey) string {
	var sb strings.Builder
	sb.WriteString("foreign key (" + strings.Join(fk.Columns, ", ") + ")")
	sb.WriteString(" references " + fk.RefTable + " (" + strings.Join(fk.RefColumns, ", ") + ")")
	for _, a := range fk.Actions {
		sb.WriteString(" " + strings.ToLower(a.On.String()) + " " + strings.ToLower(a.Do.String()))
	}
	return sb.String()
}

func formatForeignProcedure(sb *strings.Builder, fp *ForeignProcedure) {
	sb.WriteString("foreign procedure " + fp.Name + "(")
	for i, t := range fp.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatType(t))
	}
	sb.WriteString(")")
	formatReturns(sb, fp.Returns)
	sb.WriteString("\n")
}

func formatAction(sb *strings.Builder, a *Action) {
	annotations(sb, a.Annotations)
	sb.WriteString("action " + a.Name + "(" + strings.Join(a.Params, ", ") + ")")
	modifiers(sb, a.Modifiers)

	if a.Body == "" && a.Statements != nil {
		indented(sb, action.Format(a.Statements))
		return
	}
	body(sb, a.Body)
}

func formatProcedure(sb *strings.Builder, p *Procedure) {
	annotations(sb, p.Annotations)
	sb.WriteString("procedure " + p.Name + "(")
	for i, param := range p.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(param.Name + " " + FormatType(param.Type))
	}
	sb.WriteString(")")
	modifiers(sb, p.Modifiers)
	formatReturns(sb, p.Returns)

	if p.Body == "" && p.Statements != nil {
		indented(sb, procedure.Format(p.Statements))
		return
	}
	body(sb, p.Body)
}

func annotations(sb *strings.Builder, list []string) {
	for _, a := range list {
		sb.WriteString(a + "\n")
	}
}

func modifiers(sb *strings.Builder, mods []Modifier) {
	for _, m := range mods {
		sb.WriteString(" " + m.String())
	}
}

func formatReturns(sb *strings.Builder, r *Returns) {
	if r == nil {
		return
	}
	sb.WriteString(" returns ")
	if r.IsTable {
		sb.WriteString("table")
	}
	sb.WriteString("(")
	for i, f := range r.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name + " " + FormatType(f.Type))
	}
	sb.WriteString(")")
}

// body writes a captured body unchanged so that a re-capture yields the
// same text. The first line lost its indentation when the body was trimmed
// and takes the indentation shared by the other lines.
func body(sb *strings.Builder, text string) {
	if text == "" {
		sb.WriteString(" {}\n")
		return
	}
	sb.WriteString(" {\n" + bodyIndent(text) + text + "\n}\n")
}

func bodyIndent(text string) string {
	indent, found := "", false
	for _, line := range strings.Split(text, "\n")[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found {
			indent, found = lead, true
			continue
		}
		n := 0
		for n < len(indent) && n < len(lead) && indent[n] == lead[n] {
			n++
		}
		indent = indent[:n]
	}
	if !found {
		return "\t"
	}
	return indent
}

// indented writes rendered statements one tab in.
func indented(sb *strings.Builder, text string) {
	if text == "" {
		sb.WriteString(" {}\n")
		return
	}
	sb.WriteString(" {\n")
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			sb.WriteString("\t" + line)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
}

// FormatType renders a data type.
func FormatType(t *DataType) string {
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

// FormatLiteral renders a literal as it would appear in source.
func FormatLiteral(l *Literal) string {
	if l == nil {
		return ""
	}
	if l.Kind == LiteralText {
		return "'" + strings.ReplaceAll(l.Value, "'", "''") + "'"
	}
	return l.Value
}
