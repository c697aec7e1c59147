// cmd/kfparse/main_test.go
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the app with args and returns stdout, stderr and the error.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(stdin), &stdout, &stderr)
	err := app.Run(append([]string{"kfparse"}, args...))
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

const shopSchema = `database shop;

table items {
	id int primary key,
	name text not null
}

action add_item($id, $name) public {
	insert into items (id, name) values ($id, $name);
}
`

func TestParseCommands(t *testing.T) {
	tests := []struct {
		args  []string
		stdin string
		want  string
	}{
		{[]string{"sql"}, "select a from t where b = 1", "SELECT a FROM t WHERE b = 1;\n"},
		{[]string{"sql", "-"}, "delete from t;", "DELETE FROM t;\n"},
		{[]string{"action"}, "$r = f( $a );", "$r = f($a);\n"},
		{[]string{"procedure"}, "$x := 1;", "$x := 1;\n"},
		{[]string{"schema"}, "database db;", "database db;\n"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			stdout, stderr, err := run(t, tt.stdin, tt.args...)
			if err != nil {
				t.Fatalf("run failed: %v (%s)", err, stderr)
			}
			if stdout != tt.want {
				t.Errorf("stdout = %q, want %q", stdout, tt.want)
			}
		})
	}
}

func TestParseCommand_Tree(t *testing.T) {
	stdout, _, err := run(t, "$x := 1;", "procedure", "--tree")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.HasPrefix(stdout, "[\n") || !strings.Contains(stdout, "AssignStmt") {
		t.Errorf("tree output = %q", stdout)
	}
}

func TestParseCommand_Error(t *testing.T) {
	stdout, stderr, err := run(t, "select * from;", "sql")
	if err != errReported {
		t.Fatalf("err = %v, want errReported", err)
	}
	if stdout != "" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	if !strings.HasPrefix(stderr, "<stdin>: syntax error at line 1, column 10") {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.Contains(stderr, "^") {
		t.Errorf("stderr should mark the column: %q", stderr)
	}
}

func TestParseCommand_BodyError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.kf", "database db;\naction a() public {\n\tf(;\n}\n")
	_, stderr, err := run(t, "", "schema", path)
	if err != errReported {
		t.Fatalf("err = %v, want errReported", err)
	}
	if !strings.Contains(stderr, "in action a at line 3") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestParseCommand_MaxDepth(t *testing.T) {
	deep := "select " + strings.Repeat("(", 10) + "1" + strings.Repeat(")", 10)
	if _, _, err := run(t, deep, "--max-depth", "4", "sql"); err != errReported {
		t.Errorf("err = %v, want errReported", err)
	}
	if _, _, err := run(t, deep, "sql"); err != nil {
		t.Errorf("default depth should accept 10 levels: %v", err)
	}
	if _, _, err := run(t, "select 1", "--max-depth", "-1", "sql"); err == nil {
		t.Error("expected error for negative depth")
	}
}

func TestFmtCommand(t *testing.T) {
	dir := t.TempDir()
	query := writeFile(t, dir, "q.sql", "select a from t where b = 1")
	tidy := writeFile(t, dir, "tidy.sql", "SELECT 1;\n")

	// Without -w the result goes to stdout
	stdout, _, err := run(t, "", "fmt", query)
	if err != nil {
		t.Fatalf("fmt failed: %v", err)
	}
	if stdout != "SELECT a FROM t WHERE b = 1;\n" {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, err = run(t, "", "fmt", "-l", "-w", query, tidy)
	if err != nil {
		t.Fatalf("fmt -w failed: %v", err)
	}
	if stdout != query+"\n" {
		t.Errorf("-l should list only the changed file, got %q", stdout)
	}

	data, err := os.ReadFile(query)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "SELECT a FROM t WHERE b = 1;\n" {
		t.Errorf("rewritten file = %q", data)
	}
	info, err := os.Stat(query)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestFmtCommand_Schema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shop.kf", shopSchema)

	if _, _, err := run(t, "", "fmt", "-w", path); err != nil {
		t.Fatalf("fmt -w failed: %v", err)
	}
	first, _ := os.ReadFile(path)

	// Formatting is idempotent
	stdout, _, err := run(t, "", "fmt", "-l", path)
	if err != nil {
		t.Fatalf("fmt -l failed: %v", err)
	}
	if stdout != "" {
		t.Errorf("formatted file should be unchanged, got %q\n%s", stdout, first)
	}
}

func TestFmtCommand_BodyComments(t *testing.T) {
	src := `database shop;
table items { id int primary key }
action add_item($id) public {
    // keep the id unique
    insert into items (id) values ($id);
      /* nested
         block */
}
procedure one() public view returns (n int) {
  -- constant
  return 1;
}
`
	path := writeFile(t, t.TempDir(), "shop.kf", src)
	if _, stderr, err := run(t, "", "fmt", "-w", path); err != nil {
		t.Fatalf("fmt -w failed: %v (%s)", err, stderr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		" {\n    // keep the id unique\n    insert into items (id) values ($id);\n      /* nested\n         block */\n}\n",
		" {\n  -- constant\n  return 1;\n}\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rewritten file lost body text %q:\n%s", want, got)
		}
	}

	stdout, _, err := run(t, "", "fmt", "-l", path)
	if err != nil || stdout != "" {
		t.Errorf("second fmt changed the file: %q, %v", stdout, err)
	}
}

func TestFmtCommand_DroppedComments(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"top.kf":   "// shop schema\ndatabase shop;\ntable items { id int }\n",
		"table.kf": "database shop;\ntable items {\n\tid int /* key */\n}\n",
		"q.sql":    "select 1; -- one\n",
		"a.action": "select '--' from t; /* note */\n",
	}
	for name, src := range files {
		path := writeFile(t, dir, name, src)
		_, stderr, err := run(t, "", "fmt", "-w", path)
		if err != errReported {
			t.Errorf("%s: err = %v, want errReported", name, err)
		}
		if !strings.Contains(stderr, "comment would be dropped") {
			t.Errorf("%s: stderr = %q", name, stderr)
		}
		if data, _ := os.ReadFile(path); string(data) != src {
			t.Errorf("%s: refused file was rewritten to %q", name, data)
		}
	}
}

func TestFmtCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	unknown := writeFile(t, dir, "notes.txt", "select 1")
	bad := writeFile(t, dir, "bad.sql", "select from")

	if _, _, err := run(t, "", "fmt"); err == nil {
		t.Error("expected error without files")
	}
	if _, _, err := run(t, "", "fmt", unknown); err == nil {
		t.Error("expected error for unknown extension")
	}
	if _, _, err := run(t, "", "fmt", "--lang", "sql", unknown); err != nil {
		t.Errorf("--lang should override the extension: %v", err)
	}
	_, stderr, err := run(t, "", "fmt", "-w", bad)
	if err != errReported {
		t.Errorf("err = %v, want errReported", err)
	}
	if !strings.HasPrefix(stderr, bad+": ") {
		t.Errorf("stderr = %q", stderr)
	}
	if data, _ := os.ReadFile(bad); string(data) != "select from" {
		t.Error("failed parse must not rewrite the file")
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, src := range []string{"select 1;", "select * from t;", "insert into t values (1);"} {
		paths = append(paths, writeFile(t, dir, string(rune('a'+i))+".sql", src))
	}
	paths = append(paths, writeFile(t, dir, "shop.kf", shopSchema))

	stdout, stderr, err := run(t, "", append([]string{"check", "-j", "2"}, paths...)...)
	if err != nil {
		t.Fatalf("check failed: %v (%s)", err, stderr)
	}
	if !strings.Contains(stdout, "4 files ok") {
		t.Errorf("stdout = %q", stdout)
	}

	bad1 := writeFile(t, dir, "bad1.sql", "select * from;")
	bad2 := writeFile(t, dir, "bad2.kf", "table t {}")
	_, stderr, err = run(t, "", "check", paths[0], bad1, bad2)
	if err != errReported {
		t.Fatalf("err = %v, want errReported", err)
	}
	if !strings.Contains(stderr, "2 of 3 files failed") {
		t.Errorf("stderr = %q", stderr)
	}
	// Failures are reported in argument order
	i1, i2 := strings.Index(stderr, bad1+":"), strings.Index(stderr, bad2+":")
	if i1 < 0 || i2 < 0 || i1 > i2 {
		t.Errorf("failures out of order in %q", stderr)
	}
}

func TestCheckCommand_Errors(t *testing.T) {
	if _, _, err := run(t, "", "check"); err == nil {
		t.Error("expected error without files")
	}
	if _, _, err := run(t, "", "check", "-j", "0", "x.sql"); err == nil {
		t.Error("expected error for zero jobs")
	}
	if _, _, err := run(t, "", "check", filepath.Join(t.TempDir(), "missing.sql")); err == nil || err == errReported {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestOutlineCommand(t *testing.T) {
	src := `database shop;

table zeta { id int }
table Beta { id int, name text, #by_name index(name) }
table alpha { id int primary key }

action remove($id) private { delete from alpha where id = $id; }
action Add($id) public { insert into alpha (id) values ($id); }

procedure count_items() public view returns (n int) { return select count(*) from zeta; }

foreign procedure lookup(int) returns (text)
`
	stdout, stderr, err := run(t, src, "outline")
	if err != nil {
		t.Fatalf("outline failed: %v (%s)", err, stderr)
	}
	want := `database shop
tables (3)
  alpha  1 column
  Beta  2 columns, 1 index
  zeta  1 column
actions (2)
  Add($id) public
  remove($id) private
procedures (1)
  count_items() public view returns (n int)
foreign procedures (1)
  lookup(int) returns (col0 text)
`
	if stdout != want {
		t.Errorf("outline =\n%s\nwant\n%s", stdout, want)
	}
}

func TestOutlineCommand_Table(t *testing.T) {
	src := `database blog;

table users {
	id int primary key,
	name text
}

table posts {
	id int primary key,
	author_id int,
	foreign key (author_id) references users (id) on delete cascade
}

table pairs {
	a int,
	b text,
	#pk primary(a, b)
}
`
	stdout, stderr, err := run(t, src, "outline", "--table", "users")
	if err != nil {
		t.Fatalf("outline --table failed: %v (%s)", err, stderr)
	}
	want := `table users
  id int
  name text
primary key (id int)
  id <- posts (author_id) on delete cascade
`
	if stdout != want {
		t.Errorf("outline --table users =\n%s\nwant\n%s", stdout, want)
	}

	stdout, _, err = run(t, src, "outline", "-t", "pairs")
	if err != nil {
		t.Fatalf("outline -t pairs failed: %v", err)
	}
	if !strings.HasSuffix(stdout, "primary key (a int, b text)\n") {
		t.Errorf("outline -t pairs = %q", stdout)
	}

	if _, _, err := run(t, src, "outline", "--table", "Users"); err == nil || !strings.Contains(err.Error(), "table not found") {
		t.Errorf("expected table not found, got %v", err)
	}
}

func TestCollator(t *testing.T) {
	names := []outlineEntry{{name: "b"}, {name: "Ä"}, {name: "a"}, {name: "B"}}
	sortEntries(newCollator("de"), names)
	var got []string
	for _, e := range names {
		got = append(got, e.name)
	}
	// Loose collation ignores case and accents, and equal names keep their order
	if strings.Join(got, " ") != "Ä a b B" {
		t.Errorf("sorted = %v", got)
	}

	// Unknown tags fall back to English
	if newCollator("not a tag") == nil {
		t.Error("expected a collator")
	}
}

func TestReplCommand(t *testing.T) {
	stdout, stderr, err := run(t, "database db;\n.schemas\n.exit\n", "repl", "--mode", "schema")
	if err != nil {
		t.Fatalf("repl failed: %v", err)
	}
	if !strings.Contains(stdout, "kfparse version "+version) {
		t.Errorf("missing banner: %q", stdout)
	}
	if !strings.Contains(stdout, "db\n") || stderr != "" {
		t.Errorf("stdout = %q, stderr = %q", stdout, stderr)
	}

	if _, _, err := run(t, "", "repl", "--mode", "cobol"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestAppVersion(t *testing.T) {
	saved := version
	defer func() { version = saved }()

	version = "v1.2.3-rc.1"
	if got := appVersion().String(); got != "1.2.3-rc.1" {
		t.Errorf("appVersion() = %q", got)
	}
	version = "nightly"
	if got := appVersion().String(); got != "0.0.0" {
		t.Errorf("invalid version should fall back to 0.0.0, got %q", got)
	}
}
