// Package transform holds the pluggable record evaluators that make up a
// transformer chain, the execution descriptors that configure them, and the
// registry that builds both from a job file.
package transform

import (
	"context"
	"errors"

	"github.com/BartekS5/rdbsync/pkg/models"
)

// ErrInvalidParameter marks a transformer configured with unusable parameters.
var ErrInvalidParameter = errors.New("illegal transformer parameter")

// Evaluator transforms one record.
//
// Returning (nil, nil) filters the record. Returning an error marks it dirty.
// The input record must not be modified; clone it before writing.
type Evaluator interface {
	Evaluate(ctx context.Context, rec *models.Record, env *Env, params []string) (*models.Record, error)
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(ctx context.Context, rec *models.Record, env *Env, params []string) (*models.Record, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, rec *models.Record, env *Env, params []string) (*models.Record, error) {
	return f(ctx, rec, env, params)
}

// Env is what an evaluator can see of its surroundings while it runs.
type Env struct {
	swapper *Swapper
	values  map[string]string
}

func NewEnv(swapper *Swapper, values map[string]string) *Env {
	return &Env{swapper: swapper, values: values}
}

// Scope is the scope active for the running step.
func (e *Env) Scope() *Scope {
	if e == nil || e.swapper == nil {
		return DefaultScope()
	}
	return e.swapper.Current()
}

// Value looks a key up in the step's context values, then in the scope.
func (e *Env) Value(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	if v, ok := e.values[key]; ok {
		return v, true
	}
	v, ok := e.Scope().Vars[key]
	return v, ok
}
