package etl

import (
	"context"
	"time"

	"github.com/BartekS5/rdbsync/pkg/models"
)

// RecordSender is the reader's side of a channel. SendToWriter may block
// until the writer catches up.
type RecordSender interface {
	CreateRecord() *models.Record
	SendToWriter(ctx context.Context, rec *models.Record) error
}

// RecordReceiver is the writer's side of a channel. GetFromReader returns
// io.EOF once the reader has finished and the channel is drained.
type RecordReceiver interface {
	GetFromReader(ctx context.Context) (*models.Record, error)
}

// DirtyCollector receives records that could not be converted or
// transformed. It never fails.
type DirtyCollector interface {
	CollectDirtyRecord(rec *models.Record, cause error)
}

// CounterSink accepts named counters.
type CounterSink interface {
	SetLongCounter(key string, value int64)
}

// Phase names a timed part of reading.
type Phase string

const (
	PhaseSQLQuery      Phase = "SQL_QUERY"
	PhaseResultNextAll Phase = "RESULT_NEXT_ALL"
)

// PerfTrace records how long each phase of a task took.
type PerfTrace interface {
	AddPhase(taskGroupID, taskID int, phase Phase, d time.Duration)
}

// Writer persists batches of records. A returned error aborts the task.
type Writer interface {
	WriteBatch(ctx context.Context, recs []*models.Record) error
	Close(ctx context.Context) error
}
