package etl

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// Communication is a concurrency-safe set of named counters. Tasks export
// into their own Communication; the job merges them.
type Communication struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewCommunication() *Communication {
	return &Communication{counters: make(map[string]int64)}
}

func (c *Communication) SetLongCounter(key string, value int64) {
	c.mu.Lock()
	c.counters[key] = value
	c.mu.Unlock()
}

func (c *Communication) IncreaseCounter(key string, delta int64) {
	c.mu.Lock()
	c.counters[key] += delta
	c.mu.Unlock()
}

func (c *Communication) LongCounter(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key]
}

// Snapshot returns a copy of every counter.
func (c *Communication) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}

// Merge adds other's counters into c.
func (c *Communication) Merge(other *Communication) {
	snap := other.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snap {
		c.counters[k] += v
	}
}

// LogValue lets a Communication be logged as a group of sorted attributes.
func (c *Communication) LogValue() slog.Value {
	snap := c.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Int64(k, snap[k]))
	}
	return slog.GroupValue(attrs...)
}

func (c *Communication) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}
