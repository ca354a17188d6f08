package etl

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// PerfRecorder sums phase durations across tasks.
type PerfRecorder struct {
	mu     sync.Mutex
	totals map[Phase]time.Duration
	tasks  map[string]time.Duration
}

func NewPerfRecorder() *PerfRecorder {
	return &PerfRecorder{
		totals: make(map[Phase]time.Duration),
		tasks:  make(map[string]time.Duration),
	}
}

func (p *PerfRecorder) AddPhase(taskGroupID, taskID int, phase Phase, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totals[phase] += d
	p.tasks[fmt.Sprintf("%d-%d-%s", taskGroupID, taskID, phase)] += d
}

func (p *PerfRecorder) Total(phase Phase) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totals[phase]
}

func (p *PerfRecorder) TaskPhase(taskGroupID, taskID int, phase Phase) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasks[fmt.Sprintf("%d-%d-%s", taskGroupID, taskID, phase)]
}

// Summary renders the totals as "PHASE=duration" pairs.
func (p *PerfRecorder) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	parts := make([]string, 0, len(p.totals))
	for ph, d := range p.totals {
		parts = append(parts, fmt.Sprintf("%s=%s", ph, d.Round(time.Millisecond)))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
