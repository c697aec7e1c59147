// pkg/sql/parser/sqlite_compat_test.go
package parser

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// openSQLite returns an in-memory SQLite database with the tables the
// compatibility statements refer to.
func openSQLite(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		tb.Fatalf("Failed to open SQLite: %v", err)
	}
	tb.Cleanup(func() { db.Close() })
	// each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	for _, ddl := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INT, active INT)",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INT, body TEXT)",
		"CREATE TABLE t (id INTEGER PRIMARY KEY, a INT, b INT, c INT)",
		"CREATE TABLE u (id INTEGER PRIMARY KEY, a INT, b INT)",
	} {
		if _, err := db.Exec(ddl); err != nil {
			tb.Fatalf("CREATE TABLE failed: %v", err)
		}
	}
	return db
}

var sqliteInputs = []string{
	"select u.name as n, count(*) total from users u left join posts p on p.user_id = u.id where u.age > 18 group by u.name having count(*) > 1 order by n desc nulls last limit 10 offset 2",
	"select * from users where id in (1, 2, 3) and name not like 'x%' escape '!'",
	"select case when age > 1 then 'big' else 'small' end from users where not exists (select 1 from posts where posts.user_id = users.id)",
	"with x (a) as (select 1) select * from x union all select id from t",
	"insert into t (id, a) values (1, 2), (3, 4) on conflict (id) do update set a = excluded.a where t.a < 3 returning *",
	"update t set (a, b) = (1, 2), c = c + 1 from u where t.id = u.id returning a",
	"delete from t where a not between $lo and $hi and b is not null and c notnull",
	"select a collate nocase, x'00ff', -1, - -a from t where a is distinct from b",
	"select * from t inner join (select id as uid from u) s on s.uid = t.id where t.a = (select max(a) from u)",
}

// TestSQLite_AcceptsRenderedSQL checks that canonical renderings of plain
// SQL are accepted by SQLite's own parser.
func TestSQLite_AcceptsRenderedSQL(t *testing.T) {
	db := openSQLite(t)

	for _, input := range sqliteInputs {
		stmt, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		rendered := Format(stmt)

		prepared, err := db.Prepare(rendered)
		if err != nil {
			t.Errorf("SQLite rejected %q: %v", rendered, err)
			continue
		}
		prepared.Close()
	}
}

// BenchmarkParse measures parsing a mid-sized query
func BenchmarkParse(b *testing.B) {
	input := sqliteInputs[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(input); err != nil {
			b.Fatalf("Parse failed: %v", err)
		}
	}
}

// BenchmarkPrepare_SQLite measures SQLite preparing the same query
func BenchmarkPrepare_SQLite(b *testing.B) {
	db := openSQLite(b)
	input := sqliteInputs[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stmt, err := db.Prepare(input)
		if err != nil {
			b.Fatalf("Prepare failed: %v", err)
		}
		stmt.Close()
	}
}
