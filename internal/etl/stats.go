package etl

import (
	"strconv"
	"time"
)

// Counter keys exported to a CounterSink.
const (
	KeySucceeded = "succeeded"
	KeyFailed    = "failed"
	KeyFiltered  = "filtered"
	KeyUsedTime  = "used-time"

	KeyReadSucceedRecords  = "readSucceedRecords"
	KeyReadSucceedBytes    = "readSucceedBytes"
	KeyReadFailedRecords   = "readFailedRecords"
	KeyWriteSucceedRecords = "writeSucceedRecords"

	filterKeyPrefix = "filterRecordsTransform_"
	failedKeyPrefix = "failedRecordsTransform_"
)

func FilterKey(i int) string { return filterKeyPrefix + strconv.Itoa(i) }
func FailedKey(i int) string { return failedKeyPrefix + strconv.Itoa(i) }

// StageCounters are the counts of one transformer step.
type StageCounters struct {
	Filtered int64
	Failed   int64
}

// TransformerStats belongs to a single exchanger and is not synchronized.
type TransformerStats struct {
	Succeeded int64
	Failed    int64
	Filtered  int64
	UsedTime  time.Duration
	Stages    []StageCounters
}

func newTransformerStats(stages int) *TransformerStats {
	return &TransformerStats{Stages: make([]StageCounters, stages)}
}

func (s *TransformerStats) clone() TransformerStats {
	out := *s
	out.Stages = append([]StageCounters(nil), s.Stages...)
	return out
}

// Export writes totals and every per-step counter, keyed by step position.
func (s *TransformerStats) Export(sink CounterSink) {
	sink.SetLongCounter(KeySucceeded, s.Succeeded)
	sink.SetLongCounter(KeyFailed, s.Failed)
	sink.SetLongCounter(KeyFiltered, s.Filtered)
	sink.SetLongCounter(KeyUsedTime, int64(s.UsedTime))
	for i, st := range s.Stages {
		sink.SetLongCounter(FilterKey(i), st.Filtered)
		sink.SetLongCounter(FailedKey(i), st.Failed)
	}
}
