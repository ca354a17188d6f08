package transform

import (
	"fmt"
	"strconv"
)

type validationState uint8

const (
	unvalidated validationState = iota
	validated
)

// Execution is one configured step of a transformer chain. It is built once
// per task and owned by that task.
type Execution struct {
	Name        string
	Evaluator   Evaluator
	Params      []string
	ColumnIndex *int
	Scope       *Scope
	Values      map[string]string

	state       validationState
	finalParams []string
}

// Validated reports whether the column-index check has already run.
func (e *Execution) Validated() bool {
	return e.state == validated
}

// Validate checks the target column index against the width of the first
// record the step sees. It runs once; later calls return nil without
// looking at columns.
func (e *Execution) Validate(columns int) error {
	if e.state == validated {
		return nil
	}
	e.state = validated
	if e.ColumnIndex == nil {
		return nil
	}
	if idx := *e.ColumnIndex; idx < 0 || idx >= columns {
		return fmt.Errorf("%w: transformer(%s) columnIndex(%d) out of bound(%d)", ErrInvalidParameter, e.Name, idx, columns)
	}
	return nil
}

// FinalParams are the parameters handed to the evaluator: the column index,
// when set, followed by the configured paras.
func (e *Execution) FinalParams() []string {
	if e.finalParams != nil {
		return e.finalParams
	}
	out := make([]string, 0, len(e.Params)+1)
	if e.ColumnIndex != nil {
		out = append(out, strconv.Itoa(*e.ColumnIndex))
	}
	e.finalParams = append(out, e.Params...)
	return e.finalParams
}
