package transform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BartekS5/rdbsync/pkg/models"
)

// Factory builds the evaluator for one transformer config. It should reject
// malformed parameters so they surface before any record is read.
type Factory func(cfg models.TransformerConfig) (Evaluator, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewBuiltinRegistry returns a registry preloaded with the dx_* evaluators.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for name, f := range builtins {
		r.factories[name] = f
	}
	return r
}

func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("transformer %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// RegisterEvaluator registers an evaluator that needs no build-time checks.
func (r *Registry) RegisterEvaluator(name string, ev Evaluator) error {
	return r.Register(name, func(models.TransformerConfig) (Evaluator, error) { return ev, nil })
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build turns the configured transformer list into fresh executions. Call it
// once per task: executions carry per-task state.
func (r *Registry) Build(cfgs []models.TransformerConfig) ([]*Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execs := make([]*Execution, 0, len(cfgs))
	for i, cfg := range cfgs {
		f, ok := r.factories[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("%w: transformer[%d] %q is not registered", ErrInvalidParameter, i, cfg.Name)
		}
		ev, err := f(cfg)
		if err != nil {
			return nil, fmt.Errorf("transformer[%d] %s: %w", i, cfg.Name, err)
		}
		scope, err := NewScope(cfg.Parameter.Scope)
		if err != nil {
			return nil, fmt.Errorf("transformer[%d] %s: %w", i, cfg.Name, err)
		}
		execs = append(execs, &Execution{
			Name:        cfg.Name,
			Evaluator:   ev,
			Params:      append([]string(nil), cfg.Parameter.Paras...),
			ColumnIndex: copyIndex(cfg.Parameter.ColumnIndex),
			Scope:       scope,
			Values:      copyValues(cfg.Parameter.Values),
		})
	}
	return execs, nil
}

func copyIndex(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
