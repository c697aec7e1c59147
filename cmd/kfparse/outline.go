// cmd/kfparse/outline.go
package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"kuneiform/pkg/schema"
)

// newCollator returns a loose collator for the BCP 47 tag, falling back to
// English for tags it cannot parse.
func newCollator(locale string) *collate.Collator {
	tag := language.Make(locale)
	if tag == language.Und {
		tag = language.English
	}
	return collate.New(tag, collate.Loose)
}

// outlineEntry is one named line of the outline
type outlineEntry struct {
	name string
	line string
}

func sortEntries(col *collate.Collator, entries []outlineEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return col.CompareString(entries[i].name, entries[j].name) < 0
	})
}

// writeOutline lists the declarations of s, each section sorted by name.
func writeOutline(w io.Writer, s *schema.Schema, locale string) {
	col := newCollator(locale)
	fmt.Fprintf(w, "database %s\n", s.Name)

	var tables []outlineEntry
	for _, t := range s.Tables {
		line := fmt.Sprintf("%s  %s", t.Name, plural(len(t.Columns), "column"))
		if n := len(t.Indexes); n > 0 {
			line += ", " + plural(n, "index")
		}
		if n := len(t.ForeignKeys); n > 0 {
			line += ", " + plural(n, "foreign key")
		}
		tables = append(tables, outlineEntry{t.Name, line})
	}
	section(w, col, "tables", tables)

	var actions []outlineEntry
	for _, a := range s.Actions {
		line := fmt.Sprintf("%s(%s)%s", a.Name, strings.Join(a.Params, ", "), modifiers(a.Modifiers))
		actions = append(actions, outlineEntry{a.Name, line})
	}
	section(w, col, "actions", actions)

	var procs []outlineEntry
	for _, p := range s.Procedures {
		params := make([]string, len(p.Params))
		for i, param := range p.Params {
			params[i] = param.Name + " " + schema.FormatType(param.Type)
		}
		line := fmt.Sprintf("%s(%s)%s%s", p.Name, strings.Join(params, ", "), modifiers(p.Modifiers), returns(p.Returns))
		procs = append(procs, outlineEntry{p.Name, line})
	}
	section(w, col, "procedures", procs)

	var foreign []outlineEntry
	for _, f := range s.ForeignProcedures {
		params := make([]string, len(f.Params))
		for i, t := range f.Params {
			params[i] = schema.FormatType(t)
		}
		line := fmt.Sprintf("%s(%s)%s", f.Name, strings.Join(params, ", "), returns(f.Returns))
		foreign = append(foreign, outlineEntry{f.Name, line})
	}
	section(w, col, "foreign procedures", foreign)
}

// writeTable describes one table: its columns, its primary key and the
// foreign keys of other tables that reference that key.
func writeTable(w io.Writer, s *schema.Schema, t *schema.Table) {
	fmt.Fprintf(w, "table %s\n", t.Name)
	for _, c := range t.Columns {
		fmt.Fprintf(w, "  %s %s\n", c.Name, schema.FormatType(c.Type))
	}
	pk := t.PrimaryKey()
	if len(pk) == 0 {
		return
	}
	keys := make([]string, len(pk))
	for i, name := range pk {
		keys[i] = name
		if c, _ := t.GetColumn(name); c != nil {
			keys[i] += " " + schema.FormatType(c.Type)
		}
	}
	fmt.Fprintf(w, "primary key (%s)\n", strings.Join(keys, ", "))
	for _, name := range pk {
		for _, ref := range s.GetForeignKeyReferences(t.Name, name) {
			line := fmt.Sprintf("  %s <- %s (%s)", name, ref.ReferencingTable, strings.Join(ref.ReferencingColumns, ", "))
			if ref.OnDelete != schema.FKActionNoAction {
				line += " on delete " + strings.ToLower(ref.OnDelete.String())
			}
			if ref.OnUpdate != schema.FKActionNoAction {
				line += " on update " + strings.ToLower(ref.OnUpdate.String())
			}
			fmt.Fprintln(w, line)
		}
	}
}

func section(w io.Writer, col *collate.Collator, title string, entries []outlineEntry) {
	if len(entries) == 0 {
		return
	}
	sortEntries(col, entries)
	fmt.Fprintf(w, "%s (%d)\n", title, len(entries))
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\n", e.line)
	}
}

func modifiers(mods []schema.Modifier) string {
	var sb strings.Builder
	for _, m := range mods {
		sb.WriteString(" ")
		sb.WriteString(m.String())
	}
	return sb.String()
}

func returns(r *schema.Returns) string {
	if r == nil {
		return ""
	}
	fields := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		fields[i] = f.Name + " " + schema.FormatType(f.Type)
	}
	kw := " returns "
	if r.IsTable {
		kw += "table"
	}
	return kw + "(" + strings.Join(fields, ", ") + ")"
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "x") {
		return fmt.Sprintf("%d %ses", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
