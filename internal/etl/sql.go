package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/models"
)

// SQLWriter inserts each batch into a table inside one transaction.
type SQLWriter struct {
	DB      *sql.DB
	Kind    database.Kind
	Table   string
	Columns []string

	insert string
}

func NewSQLWriter(db *sql.DB, kind database.Kind, table string, columns []string) *SQLWriter {
	w := &SQLWriter{DB: db, Kind: kind, Table: table, Columns: columns}
	w.insert = w.insertStatement()
	return w
}

func (w *SQLWriter) insertStatement() string {
	names := make([]string, len(w.Columns))
	placeholders := make([]string, len(w.Columns))
	for i, c := range w.Columns {
		names[i] = w.Kind.QuoteIdent(c)
		placeholders[i] = w.Kind.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		w.Kind.QuoteIdent(w.Table), strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

func (w *SQLWriter) WriteBatch(ctx context.Context, recs []*models.Record) (err error) {
	if len(recs) == 0 {
		return nil
	}

	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert into %s: %w", w.Table, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, w.insert)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", w.insert, err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(w.Columns))
	for _, rec := range recs {
		for i := range w.Columns {
			if args[i], err = SQLValue(rec.Column(i)); err != nil {
				return fmt.Errorf("column %s: %w", w.Columns[i], err)
			}
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", w.Table, err)
		}
	}
	return tx.Commit()
}

// Close is a no-op; the pool belongs to the job.
func (w *SQLWriter) Close(context.Context) error { return nil }
