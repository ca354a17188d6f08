package etl

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BartekS5/rdbsync/internal/transform"
	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/models"
)

func sqliteJob(dsn string) *models.JobConfig {
	return &models.JobConfig{
		Reader: models.ReaderConfig{
			DBType:     "sqlite",
			Column:     []string{"id", "name"},
			Connection: []models.ConnectionConfig{{DSN: dsn, Table: []string{"users"}}},
		},
		Writer:  models.WriterConfig{Kind: "sql", Column: []string{"id", "name"}, Table: "people"},
		Setting: models.SettingConfig{BatchSize: 2},
	}
}

func openTarget(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.ConnectSQL(context.Background(), database.SQLite, filepath.Join(t.TempDir(), "target.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE people (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	return db
}

func TestPipelineRunsIntoSQLWriter(t *testing.T) {
	_, dsn := openSQLite(t)
	target := openTarget(t)

	job := sqliteJob(dsn)
	job.Transformer = []models.TransformerConfig{
		{Name: "dx_filter", Parameter: models.TransformerParameter{ColumnIndex: intPtr(0), Paras: []string{">", "2"}}},
		{Name: "dx_substr", Parameter: models.TransformerParameter{ColumnIndex: intPtr(1), Paras: []string{"0", "2"}}},
	}
	p := NewPipeline(job, transform.NewBuiltinRegistry(), func(context.Context) (Writer, error) {
		return NewSQLWriter(target, database.SQLite, "people", job.Writer.Column), nil
	})

	comm, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), comm.LongCounter(KeyReadSucceedRecords))
	require.Equal(t, int64(2), comm.LongCounter(KeyWriteSucceedRecords))
	require.Equal(t, int64(1), comm.LongCounter(KeyFiltered))
	require.Equal(t, int64(1), comm.LongCounter(FilterKey(0)))
	require.Equal(t, int64(2), comm.LongCounter(KeySucceeded))

	rows, err := target.Query(`SELECT id, name FROM people ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	var got []string
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		got = append(got, name)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"al", "bo"}, got)
}

func TestPipelineSplitsQueriesAcrossChannels(t *testing.T) {
	_, dsn := openSQLite(t)
	job := sqliteJob(dsn)
	job.Reader.Connection = []models.ConnectionConfig{{DSN: dsn, QuerySQL: []string{
		"SELECT id, name FROM users WHERE id <= 2",
		"SELECT id, name FROM users WHERE id > 2",
	}}}
	job.Setting.Speed.Channel = 2

	var mu sync.Mutex
	var writers []*StreamWriter
	p := NewPipeline(job, transform.NewBuiltinRegistry(), func(context.Context) (Writer, error) {
		w := NewStreamWriter(&bytes.Buffer{}, false)
		mu.Lock()
		writers = append(writers, w)
		mu.Unlock()
		return w, nil
	})

	tasks, err := p.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, []int{0, 1}, []int{tasks[0].ID, tasks[1].ID})

	comm, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, writers, 2)
	require.Equal(t, int64(3), writers[0].Written()+writers[1].Written())
	require.Equal(t, int64(3), comm.LongCounter(KeyWriteSucceedRecords))
}

func addDirtyRow(t *testing.T, dsn string) {
	t.Helper()
	db, err := database.ConnectSQL(context.Background(), database.SQLite, dsn)
	require.NoError(t, err)
	defer db.Close()
	// INTEGER affinity keeps non-numeric text as text
	_, err = db.Exec(`INSERT INTO users (id, name) VALUES ('abc', 'dave')`)
	require.NoError(t, err)
}

func TestPipelineToleratesDirtyRowsWithoutLimit(t *testing.T) {
	_, dsn := openSQLite(t)
	addDirtyRow(t, dsn)

	w := NewStreamWriter(&bytes.Buffer{}, false)
	p := NewPipeline(sqliteJob(dsn), transform.NewBuiltinRegistry(), func(context.Context) (Writer, error) { return w, nil })

	comm, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), w.Written())
	require.Equal(t, int64(1), comm.LongCounter(KeyReadFailedRecords))
}

func TestPipelineStopsAtErrorLimit(t *testing.T) {
	_, dsn := openSQLite(t)
	addDirtyRow(t, dsn)

	job := sqliteJob(dsn)
	limit := int64(0)
	job.Setting.ErrorLimit.Record = &limit
	p := NewPipeline(job, transform.NewBuiltinRegistry(), func(context.Context) (Writer, error) {
		return NewStreamWriter(&bytes.Buffer{}, false), nil
	})

	_, err := p.Run(context.Background())
	var lerr *ErrorLimitExceededError
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, int64(0), lerr.Limit)
}

func TestPipelineDryRunSkipsWriter(t *testing.T) {
	_, dsn := openSQLite(t)
	var buf bytes.Buffer
	w := NewStreamWriter(&buf, true)
	p := NewPipeline(sqliteJob(dsn), transform.NewBuiltinRegistry(), func(context.Context) (Writer, error) { return w, nil })
	p.DryRun = true

	comm, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, w.Written())
	require.Empty(t, buf.String())
	require.Equal(t, int64(3), comm.LongCounter(KeyWriteSucceedRecords))
}

func TestPipelineRejectsWriterColumnMismatch(t *testing.T) {
	_, dsn := openSQLite(t)
	job := sqliteJob(dsn)
	job.Writer.Column = []string{"id"}
	p := NewPipeline(job, transform.NewBuiltinRegistry(), func(context.Context) (Writer, error) {
		return NewStreamWriter(&bytes.Buffer{}, false), nil
	})

	_, err := p.Run(context.Background())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestPipelineFailsFastOnBadTransformer(t *testing.T) {
	job := sqliteJob("unused.db")
	job.Transformer = []models.TransformerConfig{{Name: "dx_nope"}}
	opened := false
	p := NewPipeline(job, transform.NewBuiltinRegistry(), nil)
	p.OpenSource = func(context.Context, database.Kind, string) (*sql.DB, error) {
		opened = true
		return nil, nil
	}

	_, err := p.Run(context.Background())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, CodeTransformerIllegalParameter, cerr.Code)
	require.False(t, opened)
}

func TestPipelineTasksNeedATableOrQuery(t *testing.T) {
	job := sqliteJob("x.db")
	job.Reader.Connection = []models.ConnectionConfig{{DSN: "x.db"}}
	_, err := NewPipeline(job, transform.NewBuiltinRegistry(), nil).Tasks()
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)

	job.Reader.DBType = "oracle"
	_, err = NewPipeline(job, transform.NewBuiltinRegistry(), nil).Tasks()
	require.ErrorAs(t, err, &cerr)
}

func TestPipelinePreCheck(t *testing.T) {
	_, dsn := openSQLite(t)
	job := sqliteJob(dsn)
	p := NewPipeline(job, transform.NewBuiltinRegistry(), nil)
	require.NoError(t, p.PreCheck(context.Background()))

	job.Reader.Connection[0].Table = []string{"users", "missing"}
	err := p.PreCheck(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "task-1")
}

func TestPipelinePreCheckRejectsMalformedBindVars(t *testing.T) {
	_, dsn := openSQLite(t)
	job := sqliteJob(dsn)
	job.Reader.Connection[0].Table = nil
	job.Reader.Connection[0].QuerySQL = []string{"SELECT id, name FROM users WHERE id = ?"}
	job.Reader.QuerySQLBindVars = "[[1]"
	job.Reader.BindValCnt = 1

	opened := false
	p := NewPipeline(job, transform.NewBuiltinRegistry(), nil)
	p.OpenSource = func(context.Context, database.Kind, string) (*sql.DB, error) {
		opened = true
		return nil, nil
	}

	err := p.PreCheck(context.Background())
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	require.Contains(t, err.Error(), "task-0")
	require.False(t, opened)
}
