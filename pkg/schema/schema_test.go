// pkg/schema/schema_test.go
package schema

import (
	"errors"
	"sync"
	"testing"

	"kuneiform/pkg/action"
	"kuneiform/pkg/procedure"
)

func usersTable() *Table {
	return &Table{
		Name: "users",
		Columns: []*Column{
			{Name: "id", Type: &DataType{Name: "int"}, Constraints: []*Constraint{
				{Type: ConstraintPrimaryKey},
				{Type: ConstraintNotNull},
			}},
			{Name: "username", Type: &DataType{Name: "text"}, Constraints: []*Constraint{
				{Type: ConstraintUnique},
				{Type: ConstraintMinLength, Value: &Literal{Kind: LiteralNumber, Value: "5"}},
			}},
		},
	}
}

func TestTable_GetColumn(t *testing.T) {
	table := usersTable()

	col, idx := table.GetColumn("id")
	if col == nil || idx != 0 {
		t.Errorf("GetColumn('id'): got (%v, %d)", col, idx)
	}

	col, idx = table.GetColumn("username")
	if col == nil || idx != 1 {
		t.Errorf("GetColumn('username'): got (%v, %d)", col, idx)
	}

	// Identifiers are opaque: case is significant
	if col, idx = table.GetColumn("USERNAME"); col != nil || idx != -1 {
		t.Errorf("GetColumn('USERNAME'): got (%v, %d), want (nil, -1)", col, idx)
	}

	col, idx = table.GetColumn("unknown")
	if col != nil || idx != -1 {
		t.Errorf("GetColumn('unknown'): got (%v, %d), want (nil, -1)", col, idx)
	}
}

func TestColumn_Constraints(t *testing.T) {
	col, _ := usersTable().GetColumn("username")

	if !col.HasConstraint(ConstraintUnique) {
		t.Error("HasConstraint(UNIQUE): expected true")
	}
	if col.HasConstraint(ConstraintNotNull) {
		t.Error("HasConstraint(NOT NULL): expected false")
	}
	con := col.GetConstraint(ConstraintMinLength)
	if con == nil || con.Value.Value != "5" {
		t.Errorf("GetConstraint(MINLEN): got %+v", con)
	}
	if col.GetConstraint(ConstraintDefault) != nil {
		t.Error("GetConstraint(DEFAULT): expected nil")
	}
}

func TestTable_PrimaryKey(t *testing.T) {
	if got := usersTable().PrimaryKey(); len(got) != 1 || got[0] != "id" {
		t.Errorf("PrimaryKey (column): got %v", got)
	}

	indexed := &Table{
		Name: "pairs",
		Columns: []*Column{
			{Name: "a", Type: &DataType{Name: "int"}},
			{Name: "b", Type: &DataType{Name: "int"}},
		},
		Indexes: []*Index{
			{Name: "ab", Type: IndexTypeBTree, Columns: []string{"a"}},
			{Name: "pk", Type: IndexTypePrimary, Columns: []string{"a", "b"}},
		},
	}
	if got := indexed.PrimaryKey(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("PrimaryKey (index): got %v", got)
	}

	none := &Table{Name: "logs", Columns: []*Column{{Name: "msg", Type: &DataType{Name: "text"}}}}
	if got := none.PrimaryKey(); got != nil {
		t.Errorf("PrimaryKey (none): got %v, want nil", got)
	}
}

func TestSchema_GetTable(t *testing.T) {
	s := &Schema{Name: "db", Tables: []*Table{usersTable()}}

	table, err := s.GetTable("users")
	if err != nil || table.Name != "users" {
		t.Errorf("GetTable('users'): got (%v, %v)", table, err)
	}
	if _, err := s.GetTable("Users"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("GetTable('Users'): got %v, want ErrTableNotFound", err)
	}
	if _, err := s.GetTable("posts"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("GetTable('posts'): got %v, want ErrTableNotFound", err)
	}
}

func TestSchema_GetForeignKeyReferences(t *testing.T) {
	posts := &Table{
		Name:    "posts",
		Columns: []*Column{{Name: "author_id", Type: &DataType{Name: "int"}}},
		ForeignKeys: []*ForeignKey{{
			Columns:    []string{"author_id"},
			RefTable:   "users",
			RefColumns: []string{"id"},
			Actions:    []*ForeignKeyClause{{On: FKOnDelete, Do: FKActionCascade}},
		}},
	}
	s := &Schema{Name: "db", Tables: []*Table{usersTable(), posts}}

	if refs := s.GetForeignKeyReferences("USERS", "id"); len(refs) != 0 {
		t.Errorf("USERS references: got %d, want 0", len(refs))
	}

	refs := s.GetForeignKeyReferences("users", "id")
	if len(refs) != 1 {
		t.Fatalf("got %d references, want 1", len(refs))
	}
	ref := refs[0]
	if ref.ReferencingTable != "posts" || ref.ReferencingColumns[0] != "author_id" {
		t.Errorf("reference: got %+v", ref)
	}
	if ref.OnDelete != FKActionCascade {
		t.Errorf("OnDelete: got %v, want CASCADE", ref.OnDelete)
	}
	if ref.OnUpdate != FKActionNoAction {
		t.Errorf("OnUpdate: got %v, want NO ACTION", ref.OnUpdate)
	}

	if refs := s.GetForeignKeyReferences("users", "username"); len(refs) != 0 {
		t.Errorf("username references: got %d, want 0", len(refs))
	}
}

func TestEnum_String(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{ConstraintPrimaryKey.String(), "PRIMARY KEY"},
		{ConstraintNotNull.String(), "NOT NULL"},
		{ConstraintMinLength.String(), "MINLEN"},
		{ConstraintMaxLength.String(), "MAXLEN"},
		{FKActionNoAction.String(), "NO ACTION"},
		{FKActionSetDefault.String(), "SET DEFAULT"},
		{FKOnDelete.String(), "ON DELETE"},
		{FKOnUpdate.String(), "ON UPDATE"},
		{IndexTypeBTree.String(), "INDEX"},
		{IndexTypeUnique.String(), "UNIQUE"},
		{ModifierView.String(), "view"},
		{ModifierOwner.String(), "owner"},
		{LiteralBlob.String(), "BLOB"},
		{ConstraintType(99).String(), "UNKNOWN"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestLookupModifier(t *testing.T) {
	tests := []struct {
		word string
		want Modifier
		ok   bool
	}{
		{"public", ModifierPublic, true},
		{"PRIVATE", ModifierPrivate, true},
		{"View", ModifierView, true},
		{"owner", ModifierOwner, true},
		{"admin", 0, false},
	}

	for _, tt := range tests {
		got, ok := LookupModifier(tt.word)
		if ok != tt.ok || got != tt.want {
			t.Errorf("LookupModifier(%q): got (%v, %v), want (%v, %v)", tt.word, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCatalog_AddGetDrop(t *testing.T) {
	catalog := NewCatalog()

	if err := catalog.Add(&Schema{Name: "db1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := catalog.Add(&Schema{Name: "db1"}); !errors.Is(err, ErrSchemaExists) {
		t.Errorf("Add duplicate: got %v, want ErrSchemaExists", err)
	}
	if got := catalog.Get("db1"); got == nil || got.Name != "db1" {
		t.Errorf("Get: got %v", got)
	}

	if replaced := catalog.Put(&Schema{Name: "db1"}); !replaced {
		t.Error("Put existing: expected replaced")
	}
	if replaced := catalog.Put(&Schema{Name: "db0"}); replaced {
		t.Error("Put new: expected not replaced")
	}

	if names := catalog.List(); len(names) != 2 || names[0] != "db0" || names[1] != "db1" {
		t.Errorf("List: got %v", names)
	}

	if err := catalog.Drop("db1"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if err := catalog.Drop("db1"); !errors.Is(err, ErrSchemaNotFound) {
		t.Errorf("Drop missing: got %v, want ErrSchemaNotFound", err)
	}
	if catalog.Get("db1") != nil {
		t.Error("Get after Drop: expected nil")
	}
	if catalog.Len() != 1 {
		t.Errorf("Len: got %d, want 1", catalog.Len())
	}
}

func TestCatalog_Concurrent(t *testing.T) {
	catalog := NewCatalog()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			catalog.Put(&Schema{Name: name})
			catalog.Get(name)
			catalog.List()
		}(i)
	}
	wg.Wait()

	if catalog.Len() != 16 {
		t.Errorf("Len: got %d, want 16", catalog.Len())
	}
}

func TestFormat_Constructed(t *testing.T) {
	s := &Schema{
		Name: "mydb",
		Uses: []*Use{
			{Extension: "myext", Alias: "db1"},
			{Extension: "myext", Alias: "db2", Config: []*ConfigEntry{
				{Key: "a", Value: &Literal{Kind: LiteralText, Value: "it's"}},
				{Key: "c", Value: &Literal{Kind: LiteralNumber, Value: "1"}},
			}},
		},
		Tables: []*Table{
			usersTable(),
			{
				Name: "posts",
				Columns: []*Column{
					{Name: "id", Type: &DataType{Name: "int"}, Constraints: []*Constraint{{Type: ConstraintPrimaryKey}}},
					{Name: "body", Type: &DataType{Name: "text"}, Constraints: []*Constraint{
						{Type: ConstraintDefault, Value: &Literal{Kind: LiteralText, Value: ""}},
					}},
					{Name: "price", Type: &DataType{Name: "decimal", Metadata: []int{10, 2}}},
					{Name: "author_id", Type: &DataType{Name: "int"}},
				},
				Indexes: []*Index{{Name: "idx", Type: IndexTypeBTree, Columns: []string{"author_id"}}},
				ForeignKeys: []*ForeignKey{{
					Columns:    []string{"author_id"},
					RefTable:   "users",
					RefColumns: []string{"id"},
					Actions: []*ForeignKeyClause{
						{On: FKOnDelete, Do: FKActionCascade},
						{On: FKOnUpdate, Do: FKActionSetNull},
					},
				}},
			},
		},
		ForeignProcedures: []*ForeignProcedure{{
			Name:   "get_tags",
			Params: []*DataType{{Name: "int"}},
			Returns: &Returns{IsTable: true, Fields: []*Param{
				{Name: "col0", Type: &DataType{Name: "text", IsArray: true}},
			}},
		}},
		Actions: []*Action{
			{
				Annotations: []string{`@description("creates a user")`},
				Name:        "create_user",
				Params:      []string{"$id", "$username"},
				Modifiers:   []Modifier{ModifierPublic},
				Statements: []action.Statement{
					&action.SQLStmt{SQL: "INSERT INTO users VALUES ($id, $username)"},
				},
			},
			{Name: "noop", Modifiers: []Modifier{ModifierPrivate, ModifierView}},
		},
		Procedures: []*Procedure{{
			Name:      "get_username",
			Params:    []*Param{{Name: "$id", Type: &DataType{Name: "int"}}},
			Modifiers: []Modifier{ModifierPublic, ModifierView},
			Returns:   &Returns{Fields: []*Param{{Name: "name", Type: &DataType{Name: "text"}}}},
			Body:      "return 'x';",
			Statements: []procedure.Statement{
				&procedure.ReturnStmt{Values: []procedure.Expression{
					&procedure.Variable{Name: "$id"},
				}},
			},
		}},
	}

	want := `database mydb;

use myext as db1;
use myext {
	a: 'it''s',
	c: 1
} as db2;

table users {
	id int primary key not null,
	username text unique minlen(5)
}

table posts {
	id int primary key,
	body text default(''),
	price decimal(10, 2),
	author_id int,
	#idx index(author_id),
	foreign key (author_id) references users (id) on delete cascade on update set null
}

foreign procedure get_tags(int) returns table(col0 text[])

@description("creates a user")
action create_user($id, $username) public {
	INSERT INTO users VALUES ($id, $username);
}

action noop() private view {}

procedure get_username($id int) public view returns (name text) {
	return 'x';
}
`
	if got := Format(s); got != want {
		t.Errorf("Format:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormat_RawBody(t *testing.T) {
	s := &Schema{
		Name: "db",
		Actions: []*Action{{
			Name:      "a",
			Modifiers: []Modifier{ModifierOwner},
			Body:      "SELECT 1;\nSELECT 2;",
		}},
	}

	want := "database db;\n\naction a() owner {\nSELECT 1;\nSELECT 2;\n}\n"
	if got := Format(s); got != want {
		t.Errorf("Format:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatLiteral(t *testing.T) {
	tests := []struct {
		lit  *Literal
		want string
	}{
		{&Literal{Kind: LiteralText, Value: "a'b"}, "'a''b'"},
		{&Literal{Kind: LiteralNumber, Value: "-5"}, "-5"},
		{&Literal{Kind: LiteralBlob, Value: "0x00"}, "0x00"},
		{&Literal{Kind: LiteralBoolean, Value: "true"}, "true"},
		{&Literal{Kind: LiteralNull, Value: "null"}, "null"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := FormatLiteral(tt.lit); got != tt.want {
			t.Errorf("FormatLiteral(%+v): got %q, want %q", tt.lit, got, tt.want)
		}
	}
}

func TestSchema_Extend(t *testing.T) {
	base := &Schema{Name: "db", Tables: make([]*Table, 1, 4)}
	base.Tables[0] = usersTable()
	frag := &Schema{
		Name:    "db",
		Tables:  []*Table{{Name: "posts"}},
		Actions: []*Action{{Name: "a"}},
	}

	out := base.Extend(frag)
	if out.Name != "db" || len(out.Tables) != 2 || len(out.Actions) != 1 {
		t.Fatalf("Extend = %s", out.Name)
	}
	if out.Tables[1].Name != "posts" {
		t.Errorf("second table = %q", out.Tables[1].Name)
	}

	// The spare capacity in base must not be shared with the result
	base.Tables = append(base.Tables, &Table{Name: "other"})
	if out.Tables[1].Name != "posts" {
		t.Error("Extend shares storage with its receiver")
	}
	if len(frag.Tables) != 1 {
		t.Error("Extend modified its argument")
	}
}
