package etl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/logger"
)

// ResultSet is a forward-only cursor over one query execution.
type ResultSet interface {
	Columns() ([]ColumnMeta, error)
	Next() bool
	Values() ([]interface{}, error)
	Err() error
	Close() error
}

// Querier runs the queries of one reader task. fetchSize is a hint.
type Querier interface {
	Query(ctx context.Context, query string, fetchSize int, args ...interface{}) (ResultSet, error)
	Close() error
}

// SQLQuerier runs every query of a task on one dedicated connection so that
// session statements stay in effect.
type SQLQuerier struct {
	conn *sql.Conn
	kind database.Kind
}

func NewSQLQuerier(ctx context.Context, db *sql.DB, kind database.Kind, session []string) (*SQLQuerier, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s connection: %w", kind, err)
	}
	for _, stmt := range session {
		logger.Infof("execute session sql: %s", stmt)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, &ConfigError{Code: CodeIllegalValue, Msg: fmt.Sprintf("session sql failed: %s", stmt), Err: err}
		}
	}
	return &SQLQuerier{conn: conn, kind: kind}, nil
}

func (q *SQLQuerier) Query(ctx context.Context, query string, fetchSize int, args ...interface{}) (ResultSet, error) {
	// database/sql streams rows already; drivers size their own buffers.
	logger.Debugf("query with fetchSize=%d: %s", fetchSize, query)
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlResultSet{rows: rows, kind: q.kind}, nil
}

func (q *SQLQuerier) Close() error {
	return q.conn.Close()
}

type sqlResultSet struct {
	rows *sql.Rows
	kind database.Kind
	n    int
}

func (r *sqlResultSet) Columns() ([]ColumnMeta, error) {
	types, err := r.rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	meta := make([]ColumnMeta, len(types))
	for i, ct := range types {
		meta[i] = ColumnMeta{
			Name:     ct.Name(),
			TypeName: ct.DatabaseTypeName(),
			Code:     ResolveTypeCode(r.kind, ct.DatabaseTypeName()),
		}
	}
	r.n = len(types)
	return meta, nil
}

func (r *sqlResultSet) Next() bool { return r.rows.Next() }

func (r *sqlResultSet) Values() ([]interface{}, error) {
	if r.n == 0 {
		cols, err := r.rows.Columns()
		if err != nil {
			return nil, err
		}
		r.n = len(cols)
	}
	vals := make([]interface{}, r.n)
	ptrs := make([]interface{}, r.n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

func (r *sqlResultSet) Err() error   { return r.rows.Err() }
func (r *sqlResultSet) Close() error { return r.rows.Close() }
