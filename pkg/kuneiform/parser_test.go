// pkg/kuneiform/parser_test.go
package kuneiform

import (
	"errors"
	"strings"
	"testing"

	"kuneiform/pkg/schema"
	"kuneiform/pkg/syntax"
)

func TestLexer_Tokens(t *testing.T) {
	input := "database db;\naction a($x) public { select '}'; }\ntable t { #i index(a), b int default(-1) }"
	expected := []struct {
		typ     TokenType
		literal string
	}{
		{DATABASE, "database"},
		{IDENT, "db"},
		{SEMICOLON, ";"},
		{ACTION, "action"},
		{IDENT, "a"},
		{LPAREN, "("},
		{VARIABLE, "$x"},
		{RPAREN, ")"},
		{PUBLIC, "public"},
		{STMT_BODY, "select '}';"},
		{TABLE, "table"},
		{IDENT, "t"},
		{LBRACE, "{"},
		{INDEX_NAME, "#i"},
		{INDEX, "index"},
		{LPAREN, "("},
		{IDENT, "a"},
		{RPAREN, ")"},
		{COMMA, ","},
		{IDENT, "b"},
		{IDENT, "int"},
		{DEFAULT, "default"},
		{LPAREN, "("},
		{NUMBER, "-1"},
		{RPAREN, ")"},
		{RBRACE, "}"},
		{EOF, ""},
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ || tok.Literal != want.literal {
			t.Fatalf("token %d = %s %q, want %s %q", i, tok.Type, tok.Literal, want.typ, want.literal)
		}
	}
}

func TestLexer_Modes(t *testing.T) {
	l := NewLexer("procedure p() public returns table(a int) { return 1; } table t {}")
	if l.Mode() != ModeDefault {
		t.Fatalf("initial mode = %s", l.Mode())
	}

	l.NextToken() // procedure
	if l.Mode() != ModeStatement {
		t.Fatalf("mode after header keyword = %s, want statement", l.Mode())
	}
	for tok := l.NextToken(); tok.Type != STMT_BODY; tok = l.NextToken() {
		if tok.Type == EOF || tok.Type == ILLEGAL {
			t.Fatalf("no body token, stopped at %s", tok.Type)
		}
		if l.Mode() != ModeStatement {
			t.Fatalf("mode inside header = %s at %q", l.Mode(), tok.Literal)
		}
	}
	if l.Mode() != ModeDefault {
		t.Fatalf("mode after body = %s, want default", l.Mode())
	}
	if tok := l.NextToken(); tok.Type != TABLE {
		t.Fatalf("token after body = %s", tok.Type)
	}
	l.NextToken()
	if tok := l.NextToken(); tok.Type != LBRACE {
		t.Fatalf("table brace lexed as %s", tok.Type)
	}

	// foreign procedure has no body and does not switch modes
	l = NewLexer("foreign procedure f() table t {}")
	for tok := range l.Tokens() {
		if tok.Type == STMT_BODY {
			t.Fatalf("unexpected body token %q", tok.Literal)
		}
	}
}

func TestLexer_BodyCapture(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"{ select '{'; }", "select '{';"},
		{"{\n\t-- } comment\n\tselect 1;\n}", "-- } comment\n\tselect 1;"},
		{"{ /* } */ select \"}\" from t; }", "/* } */ select \"}\" from t;"},
		{"{ // }\n}", "// }"},
		{"{ if $a { return 1; } }", "if $a { return 1; }"},
		{"{ select 'it''s }'; }", "select 'it''s }';"},
		{"{}", ""},
		{"{ \n\t }", ""},
	}

	for _, tt := range tests {
		input := "action a() public " + tt.body + " table"
		var bodies []string
		var last TokenType
		for tok := range NewLexer(input).Tokens() {
			if tok.Type == STMT_BODY {
				bodies = append(bodies, tok.Literal)
				if got := input[tok.Pos:tok.End]; got != tt.body {
					t.Errorf("%q: body span covers %q", tt.body, got)
				}
			}
			last = tok.Type
		}
		if len(bodies) != 1 || bodies[0] != tt.want {
			t.Errorf("%q: captured %q, want %q", tt.body, bodies, tt.want)
		}
		if last != EOF {
			t.Errorf("%q: stream ended with %s", tt.body, last)
		}
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		input  string
		code   syntax.ErrorCode
		offset int
	}{
		{"action a() public { select '}';", syntax.ErrCodeUnterminatedBody, 18},
		{"action a() public { select '1; }", syntax.ErrCodeUnterminatedString, 27},
		{"table t { a int % }", syntax.ErrCodeUnexpectedChar, 16},
		{"@a(\"x) action", syntax.ErrCodeUnterminatedString, 0},
		{"use x { a: 'b } as y;", syntax.ErrCodeUnterminatedString, 11},
		{"/* open", syntax.ErrCodeUnterminatedComment, 0},
	}

	for _, tt := range tests {
		l := NewLexer(tt.input)
		var last Token
		for tok := range l.Tokens() {
			last = tok
		}
		if last.Type != ILLEGAL {
			t.Errorf("%q: stream ended with %s, want ILLEGAL", tt.input, last.Type)
			continue
		}
		err := l.Err()
		if err == nil || err.Code != tt.code || err.Pos.Offset != tt.offset || err.Kind != syntax.KindLexical {
			t.Errorf("%q: got %v, want code %d at %d", tt.input, err, tt.code, tt.offset)
		}
	}
}

func TestParser_Simple(t *testing.T) {
	input := `
database mydb;

table users {
	id int primary key not null,
	username text not null unique minlen(5) maxlen(32)
}

action create_user ($id, $username) public {
	insert into users (id, username) values ($id, $username);
}

procedure get_username ($id int) public view RETURNS (name text) {
	return select username from users where id = $id; // this is a comment
}
`
	s, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "mydb" {
		t.Errorf("Name = %q", s.Name)
	}

	if len(s.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(s.Tables))
	}
	users := s.Tables[0]
	if users.Name != "users" || len(users.Columns) != 2 {
		t.Fatalf("users table = %+v", users)
	}
	id := users.Columns[0]
	if id.Type.Name != "int" || !id.HasConstraint(schema.ConstraintPrimaryKey) || !id.HasConstraint(schema.ConstraintNotNull) {
		t.Errorf("id column = %s", syntax.Dump(id))
	}
	username := users.Columns[1]
	wantCons := []schema.ConstraintType{
		schema.ConstraintNotNull, schema.ConstraintUnique, schema.ConstraintMinLength, schema.ConstraintMaxLength,
	}
	if len(username.Constraints) != len(wantCons) {
		t.Fatalf("username constraints = %s", syntax.Dump(username.Constraints))
	}
	for i, ct := range wantCons {
		if username.Constraints[i].Type != ct {
			t.Errorf("constraint %d = %s, want %s", i, username.Constraints[i].Type, ct)
		}
	}
	if v := username.GetConstraint(schema.ConstraintMaxLength).Value; v.Kind != schema.LiteralNumber || v.Value != "32" {
		t.Errorf("maxlen value = %+v", v)
	}

	if len(s.Actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(s.Actions))
	}
	act := s.Actions[0]
	if act.Name != "create_user" || strings.Join(act.Params, ",") != "$id,$username" {
		t.Errorf("action = %s", syntax.Dump(act))
	}
	if len(act.Modifiers) != 1 || act.Modifiers[0] != schema.ModifierPublic {
		t.Errorf("action modifiers = %v", act.Modifiers)
	}
	if act.Body != "insert into users (id, username) values ($id, $username);" {
		t.Errorf("action body = %q", act.Body)
	}
	if got := act.BodySpan.Text(input); got != act.Body {
		t.Errorf("action body span covers %q", got)
	}

	if len(s.Procedures) != 1 {
		t.Fatalf("got %d procedures, want 1", len(s.Procedures))
	}
	proc := s.Procedures[0]
	if proc.Name != "get_username" || len(proc.Params) != 1 || proc.Params[0].Name != "$id" || proc.Params[0].Type.Name != "int" {
		t.Errorf("procedure = %s", syntax.Dump(proc))
	}
	if len(proc.Modifiers) != 2 || proc.Modifiers[1] != schema.ModifierView {
		t.Errorf("procedure modifiers = %v", proc.Modifiers)
	}
	if proc.Returns == nil || proc.Returns.IsTable || len(proc.Returns.Fields) != 1 || proc.Returns.Fields[0].Name != "name" {
		t.Errorf("procedure returns = %s", syntax.Dump(proc.Returns))
	}
	if proc.Body != "return select username from users where id = $id; // this is a comment" {
		t.Errorf("procedure body = %q", proc.Body)
	}
	if got := proc.Span.Text(input); !strings.HasPrefix(got, "procedure get_username") || !strings.HasSuffix(got, "}") {
		t.Errorf("procedure span covers %q", got)
	}
}

func TestParser_ForeignKeys(t *testing.T) {
	input := `database mydb;

table users {
	id int primary,
	username text not null unique minlen(5) maxlen(32),
	age int max(100) min(18) default(18),
	bts blob default(0x00),
	flag bool default(TRUE),
	note text default('it''s'),
	gone text default(null),
	foreign key (id) references other_users (id) on delete cascade on update set null,
	foreign key (username) references other_users (username) on delete set default on update no action,
	foreign_key (age) references other_users (age) on_delete do restrict,
	foreign_key (bts, flag) references other_users (a, b) on_update do set_default on_delete no_action,
	#idx index(age),
	#uq unique(username, age),
	#pk primary(id)
}`
	s, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table := s.Tables[0]

	defaults := []struct {
		col  string
		kind schema.LiteralKind
		val  string
	}{
		{"age", schema.LiteralNumber, "18"},
		{"bts", schema.LiteralBlob, "0x00"},
		{"flag", schema.LiteralBoolean, "true"},
		{"note", schema.LiteralText, "it's"},
		{"gone", schema.LiteralNull, "null"},
	}
	for _, d := range defaults {
		col, _ := table.GetColumn(d.col)
		con := col.GetConstraint(schema.ConstraintDefault)
		if con == nil || con.Value.Kind != d.kind || con.Value.Value != d.val {
			t.Errorf("%s default = %+v, want %s %q", d.col, con, d.kind, d.val)
		}
	}

	fks := []struct {
		cols     string
		ref      string
		onDelete schema.ForeignKeyAction
		onUpdate schema.ForeignKeyAction
		actions  int
	}{
		{"id", "id", schema.FKActionCascade, schema.FKActionSetNull, 2},
		{"username", "username", schema.FKActionSetDefault, schema.FKActionNoAction, 2},
		{"age", "age", schema.FKActionRestrict, schema.FKActionNoAction, 1},
		{"bts,flag", "a,b", schema.FKActionNoAction, schema.FKActionSetDefault, 2},
	}
	if len(table.ForeignKeys) != len(fks) {
		t.Fatalf("got %d foreign keys, want %d", len(table.ForeignKeys), len(fks))
	}
	for i, want := range fks {
		fk := table.ForeignKeys[i]
		if strings.Join(fk.Columns, ",") != want.cols || strings.Join(fk.RefColumns, ",") != want.ref || fk.RefTable != "other_users" {
			t.Errorf("fk %d = %s", i, syntax.Dump(fk))
		}
		if len(fk.Actions) != want.actions || fk.Action(schema.FKOnDelete) != want.onDelete || fk.Action(schema.FKOnUpdate) != want.onUpdate {
			t.Errorf("fk %d actions = %s", i, syntax.Dump(fk.Actions))
		}
	}

	indexes := []struct {
		name string
		typ  schema.IndexType
		cols string
	}{
		{"idx", schema.IndexTypeBTree, "age"},
		{"uq", schema.IndexTypeUnique, "username,age"},
		{"pk", schema.IndexTypePrimary, "id"},
	}
	for i, want := range indexes {
		idx := table.Indexes[i]
		if idx.Name != want.name || idx.Type != want.typ || strings.Join(idx.Columns, ",") != want.cols {
			t.Errorf("index %d = %s", i, syntax.Dump(idx))
		}
	}
}

func TestParser_Returns(t *testing.T) {
	tests := []struct {
		input   string
		isTable bool
		fields  []string // name:type
	}{
		{"returns table(a int, b text[])", true, []string{"a:int", "b:text[]"}},
		{"RETURNS TABLE(id int)", true, []string{"id:int"}},
		{"returns (name text)", false, []string{"name:text"}},
		{"returns (int, text[])", false, []string{"col0:int", "col1:text[]"}},
		{"returns (amount decimal(10, 2))", false, []string{"amount:decimal(10, 2)"}},
		{"returns (decimal(10, 2))", false, []string{"col0:decimal(10, 2)"}},
	}

	for _, tt := range tests {
		s, err := Parse("database d; procedure p() public view " + tt.input + " { return 1; }")
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.input, err)
			continue
		}
		ret := s.Procedures[0].Returns
		if ret == nil || ret.IsTable != tt.isTable || len(ret.Fields) != len(tt.fields) {
			t.Errorf("%s: returns = %s", tt.input, syntax.Dump(ret))
			continue
		}
		for i, f := range ret.Fields {
			if got := f.Name + ":" + schema.FormatType(f.Type); got != tt.fields[i] {
				t.Errorf("%s: field %d = %s, want %s", tt.input, i, got, tt.fields[i])
			}
		}
	}

	// table(a int, b text[]): the second column is array-typed
	s, err := Parse("database d; procedure p() public returns table(a int, b text[]) {}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := s.Procedures[0].Returns.Fields
	if fields[0].Type.IsArray || !fields[1].Type.IsArray || fields[1].Type.Name != "text" {
		t.Errorf("table return = %s", syntax.Dump(fields))
	}
}

func TestParser_Use(t *testing.T) {
	s, err := Parse(`database mydb;

uSe myext AS db1;
use myext {
	a: 'b',
	c: 1,
	a: true
} aS db2;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Uses) != 2 {
		t.Fatalf("got %d uses, want 2", len(s.Uses))
	}
	if u := s.Uses[0]; u.Extension != "myext" || u.Alias != "db1" || len(u.Config) != 0 {
		t.Errorf("use 0 = %s", syntax.Dump(u))
	}

	u := s.Uses[1]
	want := []struct {
		key  string
		kind schema.LiteralKind
		val  string
	}{
		{"a", schema.LiteralText, "b"},
		{"c", schema.LiteralNumber, "1"},
		{"a", schema.LiteralBoolean, "true"},
	}
	if u.Alias != "db2" || len(u.Config) != len(want) {
		t.Fatalf("use 1 = %s", syntax.Dump(u))
	}
	for i, w := range want {
		c := u.Config[i]
		if c.Key != w.key || c.Value.Kind != w.kind || c.Value.Value != w.val {
			t.Errorf("config %d = %s: %+v", i, c.Key, c.Value)
		}
	}
}

func TestParser_Annotations(t *testing.T) {
	s, err := Parse(`database mydb;

@description("this is an annotation (with parens)")
@deprecated
procedure get_users() public view {}

@readonly('yes')
action a() private {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	proc := s.Procedures[0]
	want := []string{`@description("this is an annotation (with parens)")`, "@deprecated"}
	if strings.Join(proc.Annotations, "|") != strings.Join(want, "|") {
		t.Errorf("annotations = %q", proc.Annotations)
	}
	if proc.Body != "" || proc.Statements != nil {
		t.Errorf("empty body = %q", proc.Body)
	}
	if got := s.Actions[0].Annotations; len(got) != 1 || got[0] != "@readonly('yes')" {
		t.Errorf("action annotations = %q", got)
	}
}

func TestParser_ForeignProcedures(t *testing.T) {
	s, err := Parse(`database mydb;

foreign procedure get_users()
foreign procedure get_names(int, text) RETURNS (int, text)
foreign procedure get_rows($id int, $name text[]) returns table(id int, name text);
procedure after() public {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.ForeignProcedures) != 3 || len(s.Procedures) != 1 {
		t.Fatalf("got %d foreign and %d local procedures", len(s.ForeignProcedures), len(s.Procedures))
	}

	if fp := s.ForeignProcedures[0]; fp.Name != "get_users" || len(fp.Params) != 0 || fp.Returns != nil {
		t.Errorf("foreign 0 = %s", syntax.Dump(fp))
	}

	fp := s.ForeignProcedures[1]
	if len(fp.Params) != 2 || fp.Params[1].Name != "text" {
		t.Errorf("foreign 1 params = %s", syntax.Dump(fp.Params))
	}
	if fp.Returns == nil || fp.Returns.IsTable || fp.Returns.Fields[0].Name != "col0" || fp.Returns.Fields[1].Name != "col1" {
		t.Errorf("foreign 1 returns = %s", syntax.Dump(fp.Returns))
	}

	fp = s.ForeignProcedures[2]
	if len(fp.Params) != 2 || !fp.Params[1].IsArray {
		t.Errorf("foreign 2 params = %s", syntax.Dump(fp.Params))
	}
	if fp.Returns == nil || !fp.Returns.IsTable || fp.Returns.Fields[1].Name != "name" {
		t.Errorf("foreign 2 returns = %s", syntax.Dump(fp.Returns))
	}
}

func TestParser_KeywordNames(t *testing.T) {
	s, err := Parse(`database key;
table action {
	key int,
	action text,
	min int min(1),
	foreign int
}
action table($key) public {}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "key" || s.Tables[0].Name != "action" || s.Actions[0].Name != "table" {
		t.Errorf("names = %s", syntax.Dump(s))
	}
	var cols []string
	for _, c := range s.Tables[0].Columns {
		cols = append(cols, c.Name)
	}
	if strings.Join(cols, ",") != "key,action,min,foreign" {
		t.Errorf("columns = %v", cols)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		input  string
		kind   syntax.Kind
		offset int
		msg    string
	}{
		{"table t {}", syntax.KindSyntax, 0, "expected 'database' declaration"},
		{"database d", syntax.KindSyntax, 10, "expected ';' after database name"},
		{"database d; table t {}", syntax.KindSyntax, 21, "expected column definition"},
		{"database d; table t { a int, }", syntax.KindSyntax, 29, "expected column, index or foreign key definition"},
		{"database d; action a() { }", syntax.KindSyntax, 23, "expected access modifier"},
		{"database d; action a() public { select 1;", syntax.KindLexical, 30, "unterminated body"},
		{"database d; procedure p() public returns table(int) {}", syntax.KindSyntax, 50, "expected type after table column name"},
		{"database d; table t { a int, foreign key (a) references u (b) on delete explode }", syntax.KindSyntax, 72, "expected foreign key action"},
		{"database d; use x { a: 1 as y;", syntax.KindSyntax, 25, "expected ',' or '}' in extension config"},
		{"database d; table t { a int min(x) }", syntax.KindSyntax, 32, "expected 'NUMBER' in MIN constraint"},
		{"database d; table t { a decimal(1.5) }", syntax.KindSyntax, 32, "invalid type metadata"},
		{"database d; bogus;", syntax.KindSyntax, 12, "expected declaration"},
		{"database d; table t { a int % }", syntax.KindLexical, 28, "unexpected character"},
		{"database d; @a table t { a int }", syntax.KindSyntax, 15, "expected action or procedure after annotation"},
		{"database d; action a($x public {}", syntax.KindSyntax, 24, "expected ',' or ')' in parameter list"},
		{"database d; procedure p($x) public {}", syntax.KindSyntax, 26, "expected type name"},
		{"database d; action a() public", syntax.KindSyntax, 29, "expected action body"},
	}

	for _, tt := range tests {
		_, err := Parse(tt.input)
		var synErr *syntax.Error
		if !errors.As(err, &synErr) {
			t.Errorf("%q: expected *syntax.Error, got %v", tt.input, err)
			continue
		}
		if synErr.Kind != tt.kind || synErr.Pos.Offset != tt.offset || !strings.Contains(synErr.Msg, tt.msg) {
			t.Errorf("%q: got %s at %d (%q), want %s at %d containing %q",
				tt.input, synErr.Kind, synErr.Pos.Offset, synErr.Msg, tt.kind, tt.offset, tt.msg)
		}
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	inputs := []string{
		`database mydb;
table users {
	id int primary key not null,
	username text not null unique minlen(5) maxlen(32)
}
action create_user ($id, $username) public {
	insert into users (id, username) values ($id, $username);
}
procedure get_username ($id int) public view RETURNS (name text) {
	return select username from users where id = $id; // this is a comment
}`,
		`database mydb;
uSe myext AS db1;
use myext { a: 'it''s', c: -1.5, d: 0xff, e: FALSE, f: NULL } aS db2;
table posts {
	id int primary,
	price decimal(10, 2) default(0),
	tags text[],
	author_id int,
	foreign_key (author_id) references users (id) on_delete do cascade on update set null,
	#idx index(author_id),
	#uq unique(id, author_id)
}`,
		`database d;
foreign procedure f(int, text[]) returns (int)
foreign procedure g($a int) returns table(x int);
@description("x")
procedure p() public view owner returns table(a int, b text[]) {
	for $r in select * from t { return next $r.a; }
}
action empty() private {}`,
	}

	for _, input := range inputs {
		s1, err := Parse(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		f1 := schema.Format(s1)
		s2, err := Parse(f1)
		if err != nil {
			t.Fatalf("reparse %q: %v", f1, err)
		}
		if d1, d2 := syntax.Dump(s1), syntax.Dump(s2); d1 != d2 {
			t.Errorf("tree changed after round trip:\n%s\n---\n%s", d1, d2)
		}
		if f2 := schema.Format(s2); f2 != f1 {
			t.Errorf("render not stable:\n%s\n---\n%s", f1, f2)
		}
	}
}
