package etl

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/models"
)

type fakeQuerier struct {
	meta     []ColumnMeta
	rows     map[int64][][]interface{}
	queryErr error
	nextErr  error

	calls       [][]interface{}
	columnCalls int
	open        int
	closed      bool
}

func (q *fakeQuerier) Query(_ context.Context, _ string, _ int, args ...interface{}) (ResultSet, error) {
	q.calls = append(q.calls, args)
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	var key int64
	if len(args) > 0 {
		key = args[0].(int64)
	}
	q.open++
	return &fakeResultSet{q: q, rows: q.rows[key], err: q.nextErr}, nil
}

func (q *fakeQuerier) Close() error {
	q.closed = true
	return nil
}

type fakeResultSet struct {
	q    *fakeQuerier
	rows [][]interface{}
	pos  int
	err  error
}

func (r *fakeResultSet) Columns() ([]ColumnMeta, error) {
	r.q.columnCalls++
	return r.q.meta, nil
}

func (r *fakeResultSet) Next() bool {
	if r.err != nil || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeResultSet) Values() ([]interface{}, error) { return r.rows[r.pos-1], nil }
func (r *fakeResultSet) Err() error                     { return r.err }
func (r *fakeResultSet) Close() error {
	r.q.open--
	return nil
}

var idNameMeta = []ColumnMeta{{Name: "id", Code: TypeBigInt}, {Name: "name", Code: TypeVarchar}}

func TestStartReadRunsEveryBindGroupInOrder(t *testing.T) {
	q := &fakeQuerier{
		meta: idNameMeta,
		rows: map[int64][][]interface{}{
			1: {{int64(10), "a"}, {int64(11), "b"}},
			2: {},
			3: {{int64(30), "c"}},
		},
	}
	perf := NewPerfRecorder()
	reader := &ReaderTask{DBType: database.MySQL, Querier: q, Perf: perf, TaskID: 4}
	sender := &captureSender{}

	slice := ReadSlice{Query: "SELECT id, name FROM t WHERE g = ?", BindVars: `[[1, "x"], [2, "y"], [3, "z"]]`, BindValCnt: 1}
	require.NoError(t, reader.StartRead(context.Background(), slice, sender, &captureCollector{}))

	require.Equal(t, [][]interface{}{{int64(1)}, {int64(2)}, {int64(3)}}, q.calls)
	require.Equal(t, 1, q.columnCalls, "metadata is read from the first batch only")
	require.Equal(t, 0, q.open, "every cursor is closed")
	require.True(t, q.closed)
	require.Equal(t, 3, reader.Batches())

	var ids []int64
	for _, rec := range sender.recs {
		v, _ := rec.Column(0).AsLong()
		ids = append(ids, v)
	}
	require.Equal(t, []int64{10, 11, 30}, ids)

	comm := NewCommunication()
	reader.DoStat(comm)
	require.Equal(t, int64(3), comm.LongCounter(KeyReadSucceedRecords))
	require.Positive(t, comm.LongCounter(KeyReadSucceedBytes))
	require.GreaterOrEqual(t, perf.TaskPhase(0, 4, PhaseSQLQuery), time.Duration(0))
}

func TestStartReadWithoutBindsRunsOnce(t *testing.T) {
	q := &fakeQuerier{meta: idNameMeta, rows: map[int64][][]interface{}{0: {{int64(1), "a"}}}}
	reader := &ReaderTask{DBType: database.MySQL, Querier: q}
	sender := &captureSender{}

	require.NoError(t, reader.StartRead(context.Background(), ReadSlice{Query: "SELECT 1"}, sender, &captureCollector{}))
	require.Len(t, q.calls, 1)
	require.Empty(t, q.calls[0])
	require.Len(t, sender.recs, 1)
}

func TestStartReadRejectsBadBindsBeforeQuerying(t *testing.T) {
	for name, slice := range map[string]ReadSlice{
		"not json":       {Query: "q", BindVars: "[[1]", BindValCnt: 1},
		"short group":    {Query: "q", BindVars: "[[1, 2], [3]]", BindValCnt: 2},
		"missing count":  {Query: "q", BindVars: "[[1]]"},
		"bad encoding":   {Query: "q", MandatoryEncoding: "klingon"},
		"flat array":     {Query: "q", BindVars: "[1, 2]", BindValCnt: 1},
		"empty grouping": {Query: "q", BindVars: "[]", BindValCnt: 1},
	} {
		t.Run(name, func(t *testing.T) {
			q := &fakeQuerier{meta: idNameMeta}
			reader := &ReaderTask{DBType: database.MySQL, Querier: q}

			err := reader.StartRead(context.Background(), slice, &captureSender{}, &captureCollector{})
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			require.Empty(t, q.calls)
			require.True(t, q.closed)
		})
	}
}

func TestStartReadWrapsQueryFailures(t *testing.T) {
	q := &fakeQuerier{queryErr: errors.New("table missing")}
	reader := &ReaderTask{DBType: database.PostgreSQL, Principal: "etl", Querier: q}
	slice := ReadSlice{Query: "SELECT * FROM nope", Table: "nope"}

	err := reader.StartRead(context.Background(), slice, &captureSender{}, &captureCollector{})
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	require.Equal(t, "nope", qerr.Table)
	require.Equal(t, "etl", qerr.Principal)
	require.Contains(t, err.Error(), "table missing")
	require.True(t, IsDomainError(err))
}

func TestStartReadWrapsIterationFailures(t *testing.T) {
	q := &fakeQuerier{meta: idNameMeta, nextErr: errors.New("connection reset")}
	reader := &ReaderTask{DBType: database.MySQL, Querier: q}

	err := reader.StartRead(context.Background(), ReadSlice{Query: "q"}, &captureSender{}, &captureCollector{})
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	require.Equal(t, 0, q.open)
}

func TestStartReadStopsOnUnsupportedType(t *testing.T) {
	q := &fakeQuerier{
		meta: []ColumnMeta{{Name: "id", Code: TypeBigInt}, {Name: "shape", Code: TypeOther, TypeName: "INTERVAL"}},
		rows: map[int64][][]interface{}{0: {{int64(1), "1 day"}, {int64(2), "2 days"}}},
	}
	collector := &captureCollector{}
	sender := &captureSender{}
	reader := &ReaderTask{DBType: database.PostgreSQL, Querier: q}

	err := reader.StartRead(context.Background(), ReadSlice{Query: "q"}, sender, collector)
	var uerr *UnsupportedTypeError
	require.ErrorAs(t, err, &uerr)
	require.Empty(t, sender.recs)
	require.Len(t, collector.recs, 1)
}

func TestStartReadSkipsDirtyRows(t *testing.T) {
	q := &fakeQuerier{
		meta: idNameMeta,
		rows: map[int64][][]interface{}{0: {{int64(1), "a"}, {"x", "b"}, {int64(3), "c"}}},
	}
	collector := &captureCollector{}
	sender := &captureSender{}
	reader := &ReaderTask{DBType: database.MySQL, Querier: q}

	require.NoError(t, reader.StartRead(context.Background(), ReadSlice{Query: "q"}, sender, collector))
	require.Len(t, sender.recs, 2)
	require.Len(t, collector.recs, 1)
}

func TestStartReadPropagatesSendFailure(t *testing.T) {
	q := &fakeQuerier{meta: idNameMeta, rows: map[int64][][]interface{}{0: {{int64(1), "a"}}}}
	reader := &ReaderTask{DBType: database.MySQL, Querier: q}
	sender := &captureSender{err: context.Canceled}

	err := reader.StartRead(context.Background(), ReadSlice{Query: "q"}, sender, &captureCollector{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, q.open)
}

func openSQLite(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "source.db")
	db, err := database.ConnectSQL(context.Background(), database.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE users (id INTEGER, name TEXT, score DOUBLE, joined DATE, avatar BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users VALUES
		(1, 'alice', 1.5, '2024-01-02', x'01'),
		(2, 'bob', NULL, '2024-02-03', NULL),
		(3, 'carol', 3.25, '2024-03-04', x'0203')`)
	require.NoError(t, err)
	return db, dsn
}

func TestSQLiteReadWithSessionAndBinds(t *testing.T) {
	db, _ := openSQLite(t)
	ctx := context.Background()

	q, err := NewSQLQuerier(ctx, db, database.SQLite, []string{"PRAGMA case_sensitive_like = ON"})
	require.NoError(t, err)

	reader := &ReaderTask{DBType: database.SQLite, Querier: q}
	sender := &captureSender{}
	slice := ReadSlice{
		Query:      "SELECT id, name, score, joined, avatar FROM users WHERE id = ? OR id = ? ORDER BY id",
		BindVars:   `[[1, 3], [2, 2]]`,
		BindValCnt: 2,
	}
	require.NoError(t, reader.StartRead(ctx, slice, sender, &captureCollector{}))
	require.Len(t, sender.recs, 3)

	first := sender.recs[0]
	name, _ := first.Column(1).AsString()
	require.Equal(t, "alice", name)
	require.Equal(t, models.TypeDouble, first.Column(2).Type())
	require.Equal(t, models.TypeDate, first.Column(3).Type())
	require.Equal(t, models.DateOnly, first.Column(3).DateKind())
	require.Equal(t, models.TypeBytes, first.Column(4).Type())

	third := sender.recs[2]
	id, _ := third.Column(0).AsLong()
	require.Equal(t, int64(2), id)
	require.True(t, third.Column(2).IsNull())
	require.True(t, third.Column(4).IsNull())
}

func TestSQLiteBadSessionIsConfigError(t *testing.T) {
	db, _ := openSQLite(t)
	_, err := NewSQLQuerier(context.Background(), db, database.SQLite, []string{"THIS IS NOT SQL"})
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestBuildQuery(t *testing.T) {
	require.Equal(t, "SELECT * FROM `orders`", BuildQuery(database.MySQL, "orders", nil, ""))
	require.Equal(t, "SELECT * FROM `orders`", BuildQuery(database.MySQL, "orders", []string{"*"}, " "))
	require.Equal(t, `SELECT id,total FROM "public"."orders" WHERE (total > 10)`,
		BuildQuery(database.PostgreSQL, "public.orders", []string{"id", "total"}, "total > 10"))
}
