package transform

import (
	"fmt"
	"time"

	"github.com/BartekS5/rdbsync/pkg/models"
)

// Scope is an isolated evaluation context: a time zone and a set of
// variables visible only to the step that owns it.
type Scope struct {
	Name     string
	Location *time.Location
	Vars     map[string]string
}

func DefaultScope() *Scope {
	return &Scope{Name: "default", Location: time.Local}
}

// NewScope builds a scope from its configuration. A nil config yields nil.
func NewScope(cfg *models.ScopeConfig) (*Scope, error) {
	if cfg == nil {
		return nil, nil
	}
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: scope timezone %q: %v", ErrInvalidParameter, cfg.Timezone, err)
		}
	}
	name := cfg.Name
	if name == "" {
		name = loc.String()
	}
	return &Scope{Name: name, Location: loc, Vars: copyValues(cfg.Values)}, nil
}

// Swapper tracks the scope in effect for one task. It is owned by the
// task's goroutine and is not safe for concurrent use.
type Swapper struct {
	current *Scope
}

func NewSwapper(base *Scope) *Swapper {
	if base == nil {
		base = DefaultScope()
	}
	return &Swapper{current: base}
}

func (s *Swapper) Current() *Scope {
	return s.current
}

// Swap installs next and returns the func that puts the previous scope
// back. A nil next leaves the current scope in place.
func (s *Swapper) Swap(next *Scope) (restore func()) {
	if next == nil {
		return func() {}
	}
	prev := s.current
	s.current = next
	return func() { s.current = prev }
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
