package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/logger"
	"github.com/BartekS5/rdbsync/pkg/models"
)

// ReadSlice is the part of a table one reader task is responsible for.
type ReadSlice struct {
	Query             string
	Table             string
	BindVars          string
	BindValCnt        int
	FetchSize         int
	MandatoryEncoding string
}

// ReaderTask streams one slice from the source into a RecordSender.
type ReaderTask struct {
	DBType      database.Kind
	Principal   string
	BasicMsg    string
	TaskGroupID int
	TaskID      int
	Querier     Querier
	Perf        PerfTrace

	records int64
	bytes   int64
	batches int
}

// BuildQuery assembles the select used when no querySql is configured.
func BuildQuery(kind database.Kind, table string, columns []string, where string) string {
	cols := "*"
	if len(columns) > 0 && !(len(columns) == 1 && columns[0] == "*") {
		cols = strings.Join(columns, ",")
	}
	q := fmt.Sprintf("SELECT %s FROM %s", cols, kind.QuoteIdent(table))
	if w := strings.TrimSpace(where); w != "" {
		q += " WHERE (" + w + ")"
	}
	return q
}

// StartRead runs the slice's query once per bind group, or once when there
// are none, delivering every converted row in cursor order. Column metadata
// is taken from the first batch only. The querier is closed on return.
func (t *ReaderTask) StartRead(ctx context.Context, slice ReadSlice, sender RecordSender, collector DirtyCollector) error {
	defer t.Querier.Close()

	builder, err := NewRecordBuilder(slice.MandatoryEncoding, collector)
	if err != nil {
		return err
	}
	groups, err := ParseBindVars(slice.BindVars, slice.BindValCnt)
	if err != nil {
		return err
	}

	logger.Infof("Begin to read record by Sql: [%s] %s.", slice.Query, t.BasicMsg)

	batches := len(groups)
	if batches == 0 {
		batches = 1
	}
	var meta []ColumnMeta
	for i := 0; i < batches; i++ {
		var args []interface{}
		if groups != nil {
			args = groups[i]
		}
		if err := t.readBatch(ctx, slice, args, &meta, builder, sender); err != nil {
			return err
		}
		t.batches++
	}

	logger.Infof("Finished read record by Sql: [%s] %s.", slice.Query, t.BasicMsg)
	return nil
}

func (t *ReaderTask) readBatch(ctx context.Context, slice ReadSlice, args []interface{}, meta *[]ColumnMeta, builder *RecordBuilder, sender RecordSender) error {
	start := time.Now()
	rs, err := t.Querier.Query(ctx, slice.Query, slice.FetchSize, args...)
	if err != nil {
		return t.queryError(slice, err)
	}
	defer rs.Close()
	t.addPhase(PhaseSQLQuery, time.Since(start))

	if *meta == nil {
		m, err := rs.Columns()
		if err != nil {
			return t.queryError(slice, err)
		}
		*meta = m
	}

	var nextUsed time.Duration
	last := time.Now()
	for rs.Next() {
		nextUsed += time.Since(last)

		values, err := rs.Values()
		if err != nil {
			return t.queryError(slice, err)
		}
		if len(values) != len(*meta) {
			return t.queryError(slice, fmt.Errorf("row has %d columns, metadata has %d", len(values), len(*meta)))
		}
		rec, err := builder.BuildRecord(sender, values, *meta)
		if err != nil {
			return err
		}
		if rec != nil {
			if err := t.send(ctx, sender, rec); err != nil {
				return err
			}
		}
		last = time.Now()
	}
	if err := rs.Err(); err != nil {
		return t.queryError(slice, err)
	}
	t.addPhase(PhaseResultNextAll, nextUsed)
	return nil
}

func (t *ReaderTask) send(ctx context.Context, sender RecordSender, rec *models.Record) error {
	if err := sender.SendToWriter(ctx, rec); err != nil {
		return err
	}
	t.records++
	t.bytes += int64(rec.ByteSize())
	return nil
}

func (t *ReaderTask) queryError(slice ReadSlice, err error) error {
	return &QueryError{
		DBType:    string(t.DBType),
		Query:     slice.Query,
		Table:     slice.Table,
		Principal: t.Principal,
		Err:       err,
	}
}

func (t *ReaderTask) addPhase(p Phase, d time.Duration) {
	if t.Perf != nil {
		t.Perf.AddPhase(t.TaskGroupID, t.TaskID, p, d)
	}
}

// Batches is the number of query executions completed.
func (t *ReaderTask) Batches() int { return t.batches }

// DoStat exports the reader's counters.
func (t *ReaderTask) DoStat(sink CounterSink) {
	sink.SetLongCounter(KeyReadSucceedRecords, t.records)
	sink.SetLongCounter(KeyReadSucceedBytes, t.bytes)
}
