package sqlite

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CyberdineDevelopment/go-datakit/core/command"
	"github.com/CyberdineDevelopment/go-datakit/core/expr"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE "Users" (
		"Id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"Name" TEXT NOT NULL,
		"Email" TEXT
	)`)
	require.NoError(t, err)
	return db
}

// Translated statements run unmodified against a live database: insert with
// identity return, predicate queries, upsert conflict resolution, count and
// delete all round-trip through the real driver.
func TestTranslate_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	tr := NewTranslator(nil, usersDefinition(), nil)

	ins, err := command.NewInsert("primary", "Users", map[string]any{"Name": "Ada", "Email": "ada@example.com"})
	require.NoError(t, err)
	tc, err := tr.Translate(ins.ReturnIdentity())
	require.NoError(t, err)

	var id int64
	require.NoError(t, db.QueryRow(tc.Sql, tc.Values()...).Scan(&id))
	assert.Equal(t, int64(1), id)

	bulk, err := command.NewBulkInsert("primary", "Users", []map[string]any{
		{"Name": "Grace", "Email": "grace@example.com"},
		{"Name": "Edsger", "Email": nil},
	})
	require.NoError(t, err)
	tc, err = tr.Translate(bulk)
	require.NoError(t, err)
	_, err = db.Exec(tc.Sql, tc.Values()...)
	require.NoError(t, err)

	q, err := command.NewQuery("primary", "Users")
	require.NoError(t, err)
	q = q.Select("Name").
		Where(expr.Contains(expr.Field("Email"), expr.Value("example.com"))).
		OrderByField(expr.Field("Name"))
	tc, err = tr.Translate(q)
	require.NoError(t, err)

	rows, err := db.Query(tc.Sql, tc.Values()...)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"Ada", "Grace"}, names)

	up, err := command.NewUpsert("primary", "Users", map[string]any{"Id": id, "Name": "Ada Lovelace"})
	require.NoError(t, err)
	tc, err = tr.Translate(up)
	require.NoError(t, err)
	_, err = db.Exec(tc.Sql, tc.Values()...)
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRow(`SELECT "Name" FROM "Users" WHERE "Id" = ?`, id).Scan(&name))
	assert.Equal(t, "Ada Lovelace", name)

	cnt, err := command.NewCount("primary", "Users")
	require.NoError(t, err)
	tc, err = tr.Translate(cnt)
	require.NoError(t, err)
	var total int
	require.NoError(t, db.QueryRow(tc.Sql, tc.Values()...).Scan(&total))
	assert.Equal(t, 3, total)

	ex, err := command.NewExists("primary", "Users")
	require.NoError(t, err)
	ex = ex.Where(expr.StartsWith(expr.Field("Name"), expr.Value("Gra")))
	tc, err = tr.Translate(ex)
	require.NoError(t, err)
	var found bool
	require.NoError(t, db.QueryRow(tc.Sql, tc.Values()...).Scan(&found))
	assert.True(t, found)

	del, err := command.NewDelete("primary", "Users")
	require.NoError(t, err)
	del = del.Where(expr.Eq(expr.Field("Name"), expr.Value("Edsger")))
	tc, err = tr.Translate(del)
	require.NoError(t, err)
	res, err := db.Exec(tc.Sql, tc.Values()...)
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
}

func TestTranslate_RoundTripIgnoreDuplicates(t *testing.T) {
	db := openTestDB(t)
	tr := NewTranslator(nil, nil, nil)

	ins, err := command.NewInsert("primary", "Users", map[string]any{"Id": 1, "Name": "Ada"})
	require.NoError(t, err)
	tc, err := tr.Translate(ins)
	require.NoError(t, err)
	_, err = db.Exec(tc.Sql, tc.Values()...)
	require.NoError(t, err)

	// The same keyed row again, duplicate-tolerant: no error, no effect.
	dup, err := command.NewInsert("primary", "Users", map[string]any{"Id": 1, "Name": "Impostor"})
	require.NoError(t, err)
	tc, err = tr.Translate(dup.IgnoreDuplicates())
	require.NoError(t, err)
	res, err := db.Exec(tc.Sql, tc.Values()...)
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	var name string
	require.NoError(t, db.QueryRow(`SELECT "Name" FROM "Users" WHERE "Id" = 1`).Scan(&name))
	assert.Equal(t, "Ada", name)
}
