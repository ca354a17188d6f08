package etl

import (
	"context"
	"sync"

	"github.com/BartekS5/rdbsync/pkg/models"
)

type captureSender struct {
	recs []*models.Record
	err  error
}

func (s *captureSender) CreateRecord() *models.Record { return models.NewRecord() }

func (s *captureSender) SendToWriter(_ context.Context, rec *models.Record) error {
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

type captureCollector struct {
	mu     sync.Mutex
	recs   []*models.Record
	causes []error
}

func (c *captureCollector) CollectDirtyRecord(rec *models.Record, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, rec)
	c.causes = append(c.causes, cause)
}

func longRecord(vals ...int64) *models.Record {
	r := models.NewRecord()
	for _, v := range vals {
		r.AddColumn(models.NewLongColumn(v))
	}
	return r
}

func intPtr(i int) *int { return &i }
