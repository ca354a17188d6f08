package etl

import (
	"sync"

	"github.com/BartekS5/rdbsync/pkg/logger"
	"github.com/BartekS5/rdbsync/pkg/models"
)

const maxLoggedDirty = 100

// DirtyRecordCollector counts and logs dirty records for a whole job and
// enforces the job's error limit. It is shared by all tasks.
type DirtyRecordCollector struct {
	mu       sync.Mutex
	limit    *int64
	count    int64
	last     error
	tripped  bool
	comm     *Communication
	onExceed func(error)
}

// NewDirtyRecordCollector creates a collector. A nil limit tolerates any
// number of dirty records; onExceed is called once when the limit is passed.
func NewDirtyRecordCollector(limit *int64, comm *Communication, onExceed func(error)) *DirtyRecordCollector {
	return &DirtyRecordCollector{limit: limit, comm: comm, onExceed: onExceed}
}

func (c *DirtyRecordCollector) CollectDirtyRecord(rec *models.Record, cause error) {
	c.mu.Lock()
	c.count++
	c.last = cause
	n := c.count
	var exceeded error
	if c.limit != nil && n > *c.limit && !c.tripped {
		c.tripped = true
		exceeded = &ErrorLimitExceededError{Limit: *c.limit, Actual: n, Last: cause}
	}
	c.mu.Unlock()

	if c.comm != nil {
		c.comm.IncreaseCounter(KeyReadFailedRecords, 1)
	}
	if n <= maxLoggedDirty {
		logger.Warnf("dirty record: %s, cause: %v", rec, cause)
	} else if n == maxLoggedDirty+1 {
		logger.Warnf("more than %d dirty records, no longer logging them", maxLoggedDirty)
	}
	if exceeded != nil {
		logger.Errorf("%v", exceeded)
		if c.onExceed != nil {
			c.onExceed(exceeded)
		}
	}
}

func (c *DirtyRecordCollector) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Err reports the limit violation, if any.
func (c *DirtyRecordCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit != nil && c.count > *c.limit {
		return &ErrorLimitExceededError{Limit: *c.limit, Actual: c.count, Last: c.last}
	}
	return nil
}
