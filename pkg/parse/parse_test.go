// pkg/parse/parse_test.go
package parse

import (
	"errors"
	"strings"
	"testing"

	"kuneiform/pkg/action"
	"kuneiform/pkg/procedure"
	"kuneiform/pkg/syntax"
)

const sample = `
database mydb;

table users {
	id int primary key,
	username text not null unique
}

action create_user ($id, $username) public {
	insert into users (id, username) values ($id, $username);
}

procedure get_username ($id int) public view returns (name text) {
	return select username from users where id = $id;
}
`

func TestSchema_ParsesBodies(t *testing.T) {
	s, err := Schema(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Actions) != 1 || len(s.Procedures) != 1 {
		t.Fatalf("got %d actions and %d procedures", len(s.Actions), len(s.Procedures))
	}

	stmts := s.Actions[0].Statements
	if len(stmts) != 1 {
		t.Fatalf("action has %d statements, want 1", len(stmts))
	}
	if _, ok := stmts[0].(*action.SQLStmt); !ok {
		t.Errorf("action statement is %T, want *action.SQLStmt", stmts[0])
	}

	pstmts := s.Procedures[0].Statements
	if len(pstmts) != 1 {
		t.Fatalf("procedure has %d statements, want 1", len(pstmts))
	}
	ret, ok := pstmts[0].(*procedure.ReturnStmt)
	if !ok {
		t.Fatalf("procedure statement is %T, want *procedure.ReturnStmt", pstmts[0])
	}
	if ret.SQL == nil {
		t.Error("return should carry a SQL statement")
	}
}

func TestSchema_BodyErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		context string
		line    int
		column  int
	}{
		{
			name:    "sql in action",
			input:   "database db;\naction a() public {\n\tselect * from;\n}\n",
			context: "action a, SQL statement",
			line:    3,
			column:  11,
		},
		{
			name:    "procedure statement",
			input:   "database db;\nprocedure p() public {\n\t$x := ;\n}\n",
			context: "procedure p",
			line:    3,
			column:  8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Schema(tt.input)
			var synErr *syntax.Error
			if !errors.As(err, &synErr) {
				t.Fatalf("expected *syntax.Error, got %v", err)
			}
			if synErr.Context != tt.context {
				t.Errorf("context = %q, want %q", synErr.Context, tt.context)
			}
			if synErr.Pos.Line != tt.line || synErr.Pos.Column != tt.column {
				t.Errorf("position = %s, want line %d, column %d", synErr.Pos, tt.line, tt.column)
			}
			if !strings.Contains(err.Error(), "in "+tt.context) {
				t.Errorf("message %q lacks context", err.Error())
			}
		})
	}
}

func TestSchema_DeclarationError(t *testing.T) {
	_, err := Schema("database db;\ntable t {}")
	if !errors.Is(err, syntax.ErrSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	var synErr *syntax.Error
	errors.As(err, &synErr)
	if synErr.Context != "" {
		t.Errorf("declaration errors carry no context, got %q", synErr.Context)
	}
}

func TestParser_MaxDepth(t *testing.T) {
	p := New(Options{MaxDepth: 8})
	deep := "select " + strings.Repeat("(", 20) + "1" + strings.Repeat(")", 20) + ";"
	if _, err := p.SQL(deep); !errors.Is(err, syntax.ErrMaxDepth) {
		t.Errorf("expected ErrMaxDepth, got %v", err)
	}
	if _, err := SQL(deep); err != nil {
		t.Errorf("default depth should accept 20 levels: %v", err)
	}
}

func TestParser_Cache(t *testing.T) {
	p := New(Options{CacheSize: 16})

	first, err := p.Schema(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Schema(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("second parse should return the cached tree")
	}

	// Same text in another language is a separate entry
	if _, err := p.SQL("select 1;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Action("select 1;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Failures are not cached
	if _, err := p.SQL("select from;"); err == nil {
		t.Fatal("expected error")
	}

	stats := p.Cache().Stats()
	if stats.Hits != 1 {
		t.Errorf("hits = %d, want 1", stats.Hits)
	}
	if stats.Entries != 3 {
		t.Errorf("entries = %d, want 3", stats.Entries)
	}
}

func TestParser_NoCache(t *testing.T) {
	p := New(Options{})
	if p.Cache() != nil {
		t.Fatal("zero CacheSize should disable the cache")
	}
	a, _ := p.Schema(sample)
	b, _ := p.Schema(sample)
	if a == b {
		t.Error("uncached parses should return distinct trees")
	}
}

func TestParse_AllLanguages(t *testing.T) {
	tests := []struct {
		lang  Language
		input string
	}{
		{LangSQL, "SELECT a, b FROM t WHERE a > 1 ORDER BY b"},
		{LangAction, "$r = f($a, 1);\nselect * from t;"},
		{LangProcedure, "$x := 1;\nif $x > 0 {\n\treturn $x;\n}"},
		{LangSchema, sample},
	}

	p := New(Options{})
	for _, tt := range tests {
		t.Run(tt.lang.String(), func(t *testing.T) {
			tree, err := p.Parse(tt.lang, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out, err := Format(tree)
			if err != nil {
				t.Fatalf("format: %v", err)
			}

			again, err := p.Parse(tt.lang, out)
			if err != nil {
				t.Fatalf("reparse of %q: %v", out, err)
			}
			if syntax.Dump(again) != syntax.Dump(tree) {
				t.Errorf("trees differ after round trip\nfirst:\n%s\nsecond:\n%s", syntax.Dump(tree), syntax.Dump(again))
			}
			out2, _ := Format(again)
			if out2 != out {
				t.Errorf("format not stable:\n%s\n---\n%s", out, out2)
			}
		})
	}
}

func TestFormat_Unknown(t *testing.T) {
	if _, err := Format(42); err == nil {
		t.Error("expected error for unknown tree")
	}
}

func TestLookupLanguage(t *testing.T) {
	tests := []struct {
		name string
		want Language
		ok   bool
	}{
		{"sql", LangSQL, true},
		{"Action", LangAction, true},
		{"PROCEDURE", LangProcedure, true},
		{"schema", LangSchema, true},
		{"kf", 0, false},
	}
	for _, tt := range tests {
		got, err := LookupLanguage(tt.name)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("LookupLanguage(%q) = %v, %v", tt.name, got, err)
		}
	}
}

func TestLanguageForFile(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"db/schema.kf", LangSchema, true},
		{"q.SQL", LangSQL, true},
		{"b.action", LangAction, true},
		{"b.proc", LangProcedure, true},
		{"README", 0, false},
	}
	for _, tt := range tests {
		got, err := LanguageForFile(tt.path)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("LanguageForFile(%q) = %v, %v", tt.path, got, err)
		}
	}
}
