package etl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/rdbsync/internal/transform"
	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/logger"
	"github.com/BartekS5/rdbsync/pkg/models"
)

const defaultBatchSize = 100

// WriterFactory creates the writer for one task.
type WriterFactory func(ctx context.Context) (Writer, error)

// Task is one reader slice plus its place in the job.
type Task struct {
	GroupID int
	ID      int
	DSN     string
	Slice   ReadSlice
}

// Pipeline runs a job: it splits the reader config into tasks and runs each
// task's reader, transformer chain and writer concurrently.
type Pipeline struct {
	Job       *models.JobConfig
	Registry  *transform.Registry
	NewWriter WriterFactory
	BatchSize int
	DryRun    bool
	RunID     string

	// OpenSource opens a source pool; database.ConnectSQL when nil.
	OpenSource func(ctx context.Context, kind database.Kind, dsn string) (*sql.DB, error)

	Perf *PerfRecorder
}

func NewPipeline(job *models.JobConfig, registry *transform.Registry, newWriter WriterFactory) *Pipeline {
	batch := job.Setting.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Pipeline{
		Job:        job,
		Registry:   registry,
		NewWriter:  newWriter,
		BatchSize:  batch,
		RunID:      uuid.NewString(),
		OpenSource: database.ConnectSQL,
		Perf:       NewPerfRecorder(),
	}
}

// Tasks expands the reader connections into one task per querySql, or per
// table when no querySql is given.
func (p *Pipeline) Tasks() ([]Task, error) {
	r := p.Job.Reader
	kind, err := database.ParseKind(r.DBType)
	if err != nil {
		return nil, &ConfigError{Code: CodeIllegalValue, Msg: "reader.dbType", Err: err}
	}

	var tasks []Task
	for _, conn := range r.Connection {
		base := ReadSlice{
			BindVars:          r.QuerySQLBindVars,
			BindValCnt:        r.BindValCnt,
			FetchSize:         r.FetchSize,
			MandatoryEncoding: r.MandatoryEncoding,
		}
		if len(conn.QuerySQL) > 0 {
			for _, q := range conn.QuerySQL {
				s := base
				s.Query = q
				tasks = append(tasks, Task{ID: len(tasks), DSN: conn.DSN, Slice: s})
			}
			continue
		}
		for _, table := range conn.Table {
			s := base
			s.Table = table
			s.Query = BuildQuery(kind, table, r.Column, r.Where)
			tasks = append(tasks, Task{ID: len(tasks), DSN: conn.DSN, Slice: s})
		}
	}
	if len(tasks) == 0 {
		return nil, &ConfigError{Code: CodeRequiredValue, Msg: "reader has no table or querySql"}
	}
	return tasks, nil
}

// PreCheck verifies every source connection can run its queries.
func (p *Pipeline) PreCheck(ctx context.Context) error {
	tasks, err := p.Tasks()
	if err != nil {
		return err
	}
	kind, _ := database.ParseKind(p.Job.Reader.DBType)

	endpoints := make([]Endpoint, 0, len(tasks))
	for _, t := range tasks {
		t := t
		endpoints = append(endpoints, Endpoint{
			Name: fmt.Sprintf("task-%d %s", t.ID, database.Describe(kind, t.DSN)),
			Check: func(ctx context.Context) error {
				groups, err := ParseBindVars(t.Slice.BindVars, t.Slice.BindValCnt)
				if err != nil {
					return err
				}
				db, err := p.OpenSource(ctx, kind, t.DSN)
				if err != nil {
					return err
				}
				defer db.Close()
				q := fmt.Sprintf("SELECT * FROM (%s) pre_check WHERE 1 = 2", t.Slice.Query)
				if len(groups) > 0 {
					rows, err := db.QueryContext(ctx, q, groups[0]...)
					if err != nil {
						return err
					}
					return rows.Close()
				}
				rows, err := db.QueryContext(ctx, q)
				if err != nil {
					return err
				}
				return rows.Close()
			},
		})
	}
	return PreCheck(ctx, endpoints)
}

// Run executes every task and returns the merged counters.
func (p *Pipeline) Run(ctx context.Context) (*Communication, error) {
	tasks, err := p.Tasks()
	if err != nil {
		return nil, err
	}
	kind, _ := database.ParseKind(p.Job.Reader.DBType)

	// fail fast on bad transformer config before opening anything
	if _, err := p.buildExecutions(); err != nil {
		return nil, err
	}

	logger.Infof("Starting job %s. Tasks: %d, Batch Size: %d, DryRun: %v", p.RunID, len(tasks), p.BatchSize, p.DryRun)
	startTime := time.Now()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	comm := NewCommunication()
	collector := NewDirtyRecordCollector(p.Job.Setting.ErrorLimit.Record, comm, cancel)

	pools := make(map[string]*sql.DB)
	defer func() {
		for _, db := range pools {
			db.Close()
		}
	}()
	for _, t := range tasks {
		if _, ok := pools[t.DSN]; ok {
			continue
		}
		db, err := p.OpenSource(ctx, kind, t.DSN)
		if err != nil {
			return comm, err
		}
		pools[t.DSN] = db
	}

	channels := p.Job.Setting.Speed.Channel
	if channels <= 0 {
		channels = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(channels)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			taskComm, err := p.runTask(gctx, kind, pools[t.DSN], t, collector)
			comm.Merge(taskComm)
			if err != nil {
				return fmt.Errorf("task %d-%d: %w", t.GroupID, t.ID, err)
			}
			return nil
		})
	}
	err = g.Wait()

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		err = cause
	}
	if err == nil {
		err = collector.Err()
	}

	duration := time.Since(startTime)
	read := comm.LongCounter(KeyReadSucceedRecords)
	rate := 0.0
	if duration.Seconds() > 0 {
		rate = float64(read) / duration.Seconds()
	}
	logger.Infof("Job %s done in %s. Read: %d, Written: %d, Dirty: %d, Filtered: %d. Rate: %.2f records/sec. %s",
		p.RunID, duration.Round(time.Millisecond), read, comm.LongCounter(KeyWriteSucceedRecords),
		collector.Count(), comm.LongCounter(KeyFiltered), rate, p.Perf.Summary())
	if err != nil {
		logger.Errorf("Job %s failed: %v", p.RunID, err)
	}
	return comm, err
}

func (p *Pipeline) buildExecutions() ([]*transform.Execution, error) {
	execs, err := p.Registry.Build(p.Job.Transformer)
	if err != nil {
		return nil, &ConfigError{Code: CodeTransformerIllegalParameter, Msg: "transformer", Err: err}
	}
	return execs, nil
}

func (p *Pipeline) runTask(ctx context.Context, kind database.Kind, db *sql.DB, t Task, collector DirtyCollector) (*Communication, error) {
	comm := NewCommunication()

	execs, err := p.buildExecutions()
	if err != nil {
		return comm, err
	}
	exchanger := NewTransformerExchanger(execs, collector)
	buffer := NewBufferedExchanger(exchanger, p.BatchSize)

	writer, err := p.NewWriter(ctx)
	if err != nil {
		return comm, err
	}
	defer writer.Close(context.Background())

	querier, err := NewSQLQuerier(ctx, db, kind, p.Job.Reader.Session)
	if err != nil {
		return comm, err
	}
	reader := &ReaderTask{
		DBType:      kind,
		Principal:   p.Job.Reader.Username,
		BasicMsg:    fmt.Sprintf("dsn:[%s]", database.Describe(kind, t.DSN)),
		TaskGroupID: t.GroupID,
		TaskID:      t.ID,
		Querier:     querier,
		Perf:        p.Perf,
	}

	var written int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer buffer.Terminate()
		return reader.StartRead(gctx, t.Slice, buffer, collector)
	})
	g.Go(func() error {
		n, err := p.drain(gctx, buffer, writer)
		written = n
		return err
	})
	err = g.Wait()

	exchanger.DoStat(comm)
	reader.DoStat(comm)
	comm.SetLongCounter(KeyWriteSucceedRecords, written)
	return comm, err
}

// drain feeds the writer in batches until the reader is done.
func (p *Pipeline) drain(ctx context.Context, recv RecordReceiver, w Writer) (int64, error) {
	validator := NewValidator(p.Job.Writer.Column)
	var written int64
	batch := make([]*models.Record, 0, p.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if p.DryRun {
			logger.Debugf("[DRY RUN] Would write %d records", len(batch))
		} else if err := w.WriteBatch(ctx, batch); err != nil {
			return err
		}
		written += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := recv.GetFromReader(ctx)
		if errors.Is(err, io.EOF) {
			return written, flush()
		}
		if err != nil {
			return written, err
		}
		if err := validator.ValidateRecord(rec); err != nil {
			return written, err
		}
		batch = append(batch, rec)
		if len(batch) >= p.BatchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
}
