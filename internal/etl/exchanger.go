package etl

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/BartekS5/rdbsync/internal/transform"
	"github.com/BartekS5/rdbsync/pkg/models"
)

// Outcome is what became of a record passed through the chain.
type Outcome int

const (
	Delivered Outcome = iota
	Filtered
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Filtered:
		return "filtered"
	default:
		return "failed"
	}
}

// TransformerExchanger applies a task's transformer chain to one record at a
// time. It is owned by the task's goroutine.
type TransformerExchanger struct {
	executions []*transform.Execution
	swapper    *transform.Swapper
	collector  DirtyCollector
	stats      *TransformerStats
}

func NewTransformerExchanger(executions []*transform.Execution, collector DirtyCollector) *TransformerExchanger {
	return &TransformerExchanger{
		executions: executions,
		swapper:    transform.NewSwapper(nil),
		collector:  collector,
		stats:      newTransformerStats(len(executions)),
	}
}

// DoTransform runs rec through every step in order.
//
// A step returning no record filters it. A step failing stops the chain and
// the original record goes to the dirty collector. The error result is
// reserved for misconfiguration, which must abort the task.
func (x *TransformerExchanger) DoTransform(ctx context.Context, rec *models.Record) (*models.Record, Outcome, error) {
	if len(x.executions) == 0 {
		return rec, Delivered, nil
	}

	result := rec
	var used time.Duration
	var failure error

	for i, exec := range x.executions {
		start := time.Now()

		if err := exec.Validate(rec.ColumnNumber()); err != nil {
			return nil, Failed, &ConfigError{Code: CodeTransformerIllegalParameter, Msg: fmt.Sprintf("transformer[%d] %s", i, exec.Name), Err: err}
		}

		next, err := x.evaluate(ctx, exec, result)
		if err != nil {
			x.stats.Stages[i].Failed++
			failure = &TransformerError{Name: exec.Name, Index: i, Err: err}
			break
		}
		if next == nil {
			x.stats.Stages[i].Filtered++
			x.stats.Filtered++
			x.stats.UsedTime += used
			return nil, Filtered, nil
		}

		used += time.Since(start)
		result = next
	}

	x.stats.UsedTime += used

	if failure != nil {
		x.stats.Failed++
		x.collector.CollectDirtyRecord(rec, failure)
		return nil, Failed, nil
	}
	x.stats.Succeeded++
	return result, Delivered, nil
}

// evaluate runs one step inside its scope. A panicking evaluator counts as a
// failed step.
func (x *TransformerExchanger) evaluate(ctx context.Context, exec *transform.Execution, rec *models.Record) (out *models.Record, err error) {
	restore := x.swapper.Swap(exec.Scope)
	defer restore()
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return exec.Evaluator.Evaluate(ctx, rec, transform.NewEnv(x.swapper, exec.Values), exec.FinalParams())
}

// DoStat exports the current counters. Counters are not reset.
func (x *TransformerExchanger) DoStat(sink CounterSink) {
	x.stats.Export(sink)
}

// Stats returns a copy of the counters.
func (x *TransformerExchanger) Stats() TransformerStats {
	return x.stats.clone()
}

// Scope is the scope currently installed for this exchanger's steps.
func (x *TransformerExchanger) Scope() *transform.Scope {
	return x.swapper.Current()
}

// BufferedExchanger connects a reader to a writer through a bounded channel,
// running the transformer chain on the reader's side.
type BufferedExchanger struct {
	transformer *TransformerExchanger
	ch          chan *models.Record
	closeOnce   sync.Once
}

func NewBufferedExchanger(transformer *TransformerExchanger, capacity int) *BufferedExchanger {
	if capacity <= 0 {
		capacity = 1
	}
	return &BufferedExchanger{transformer: transformer, ch: make(chan *models.Record, capacity)}
}

func (b *BufferedExchanger) CreateRecord() *models.Record {
	return models.NewRecord()
}

// SendToWriter transforms rec and, if it survives, waits for room in the
// channel.
func (b *BufferedExchanger) SendToWriter(ctx context.Context, rec *models.Record) error {
	out, outcome, err := b.transformer.DoTransform(ctx, rec)
	if err != nil {
		return err
	}
	if outcome != Delivered {
		return nil
	}
	select {
	case b.ch <- out:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Terminate tells the writer no more records will come.
func (b *BufferedExchanger) Terminate() {
	b.closeOnce.Do(func() { close(b.ch) })
}

func (b *BufferedExchanger) GetFromReader(ctx context.Context) (*models.Record, error) {
	select {
	case rec, ok := <-b.ch:
		if !ok {
			return nil, io.EOF
		}
		return rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
