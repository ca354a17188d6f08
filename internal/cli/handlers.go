package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BartekS5/rdbsync/internal/config"
	"github.com/BartekS5/rdbsync/internal/etl"
	"github.com/BartekS5/rdbsync/internal/metrics/prompush"
	"github.com/BartekS5/rdbsync/internal/transform"
	"github.com/BartekS5/rdbsync/pkg/database"
	"github.com/BartekS5/rdbsync/pkg/logger"
	"github.com/BartekS5/rdbsync/pkg/models"
)

func loadJob(cfg *config.Config, path string) (*models.JobConfig, error) {
	job, err := config.LoadJob(path)
	if err != nil {
		return nil, err
	}
	cfg.Apply(job)
	if err := config.Validate(job); err != nil {
		return nil, fmt.Errorf("invalid job file %s: %w", path, err)
	}
	return job, nil
}

func runJob(ctx context.Context, cfg *config.Config, opts *RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	job, err := loadJob(cfg, opts.JobFile)
	if err != nil {
		return err
	}
	if opts.BatchSize > 0 {
		job.Setting.BatchSize = opts.BatchSize
	}

	newWriter, closeSink, err := newWriterFactory(ctx, job, opts.DryRun, os.Stdout)
	if err != nil {
		return err
	}
	defer closeSink()

	pipeline := etl.NewPipeline(job, transform.NewBuiltinRegistry(), newWriter)
	pipeline.DryRun = opts.DryRun

	fmt.Printf("Starting sync %s from %s...\n", pipeline.RunID, job.Reader.DBType)
	comm, runErr := pipeline.Run(ctx)

	if cfg.PushgatewayURL != "" && comm != nil {
		pushMetrics(cfg.PushgatewayURL, pipeline, comm, runErr == nil)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Println("Sync finished successfully.")
	return nil
}

func runPreCheck(ctx context.Context, cfg *config.Config, jobFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	job, err := loadJob(cfg, jobFile)
	if err != nil {
		return err
	}
	pipeline := etl.NewPipeline(job, transform.NewBuiltinRegistry(), nil)
	if err := pipeline.PreCheck(ctx); err != nil {
		return err
	}
	fmt.Println("Pre-check passed.")
	return nil
}

func listTransformers(out io.Writer) error {
	for _, name := range transform.NewBuiltinRegistry().Names() {
		if _, err := fmt.Fprintln(out, name); err != nil {
			return err
		}
	}
	return nil
}

// newWriterFactory opens the job's sink once and hands each task its own
// writer on it. The returned func releases the sink.
func newWriterFactory(ctx context.Context, job *models.JobConfig, dryRun bool, stdout io.Writer) (etl.WriterFactory, func(), error) {
	w := job.Writer
	if dryRun || w.Kind == "" || w.Kind == "stream" {
		printRows := w.Print && !dryRun
		return func(context.Context) (etl.Writer, error) {
			return etl.NewStreamWriter(stdout, printRows), nil
		}, func() {}, nil
	}

	switch w.Kind {
	case "mongo":
		client, err := database.ConnectMongo(ctx, w.URI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warnf("mongo disconnect: %v", err)
			}
		}
		return func(context.Context) (etl.Writer, error) {
			return etl.NewMongoWriter(client, w.Database, w.Collection, w.Column, w.IDField), nil
		}, closeFn, nil

	case "sql":
		kind, err := database.ParseKind(w.DBType)
		if err != nil {
			return nil, nil, err
		}
		db, err := database.ConnectSQL(ctx, kind, w.DSN)
		if err != nil {
			return nil, nil, err
		}
		return func(context.Context) (etl.Writer, error) {
			return etl.NewSQLWriter(db, kind, w.Table, w.Column), nil
		}, func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported writer kind %q", w.Kind)
}

func pushMetrics(url string, p *etl.Pipeline, comm *etl.Communication, ok bool) {
	backend, err := prompush.NewBackend("rdbsync", p.RunID, url)
	if err != nil {
		logger.Warnf("metrics disabled: %v", err)
		return
	}
	backend.Publish(comm.Snapshot())
	for _, phase := range []etl.Phase{etl.PhaseSQLQuery, etl.PhaseResultNextAll} {
		backend.ObservePhase(string(phase), p.Perf.Total(phase))
	}
	if ok {
		backend.MarkSuccess(time.Now())
	}
	if err := backend.Flush(); err != nil {
		logger.Warnf("failed to push metrics to %s: %v", url, err)
		return
	}
	logger.Infof("Pushed metrics for run %s to %s", p.RunID, url)
}
