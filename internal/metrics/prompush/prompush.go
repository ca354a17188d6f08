// Package prompush publishes a finished job's counters to a Prometheus
// Pushgateway.
//
// A batch job has no long-lived process to scrape, so the counters are
// copied into gauges once the job ends and pushed in a single request,
// grouped by run id.
package prompush

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	filterPrefix = "filterRecordsTransform_"
	failedPrefix = "failedRecordsTransform_"
	usedTimeKey  = "used-time"
)

// Backend holds the registry pushed for one job run.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string
	runID      string
	reg        *prometheus.Registry

	counters      *prometheus.GaugeVec // rdbsync_records{kind}
	stages        *prometheus.GaugeVec // rdbsync_transformer_stage_records{stage,outcome}
	transformTime prometheus.Gauge     // rdbsync_transformer_seconds
	phases        *prometheus.GaugeVec // rdbsync_phase_seconds{phase}
	lastSuccess   prometheus.Gauge     // rdbsync_last_success_timestamp_seconds
}

// NewBackend constructs a backend. jobName defaults to "rdbsync".
func NewBackend(jobName, runID, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "rdbsync"
	}

	reg := prometheus.NewRegistry()
	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		runID:      runID,
		reg:        reg,
		counters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rdbsync_records",
			Help: "Job counters by kind (readSucceedRecords, succeeded, filtered, ...).",
		}, []string{"kind"}),
		stages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rdbsync_transformer_stage_records",
			Help: "Records filtered or failed by each transformer stage.",
		}, []string{"stage", "outcome"}),
		transformTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdbsync_transformer_seconds",
			Help: "Time spent in successful transformer steps.",
		}),
		phases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rdbsync_phase_seconds",
			Help: "Reader time per phase, summed over tasks.",
		}, []string{"phase"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rdbsync_last_success_timestamp_seconds",
			Help: "Unix time the job last finished without error.",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"records":        b.counters,
		"stage records":  b.stages,
		"transform time": b.transformTime,
		"phases":         b.phases,
		"last success":   b.lastSuccess,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// Publish copies a counter snapshot into the gauges. Per-stage keys become
// stage/outcome labels; used-time is reported in seconds.
func (b *Backend) Publish(snapshot map[string]int64) {
	for key, v := range snapshot {
		switch {
		case strings.HasPrefix(key, filterPrefix):
			b.stages.WithLabelValues(strings.TrimPrefix(key, filterPrefix), "filtered").Set(float64(v))
		case strings.HasPrefix(key, failedPrefix):
			b.stages.WithLabelValues(strings.TrimPrefix(key, failedPrefix), "failed").Set(float64(v))
		case key == usedTimeKey:
			b.transformTime.Set(time.Duration(v).Seconds())
		default:
			b.counters.WithLabelValues(key).Set(float64(v))
		}
	}
}

// ObservePhase records the total time of one reader phase.
func (b *Backend) ObservePhase(phase string, d time.Duration) {
	b.phases.WithLabelValues(phase).Set(d.Seconds())
}

// MarkSuccess stamps the completion time of a successful run.
func (b *Backend) MarkSuccess(at time.Time) {
	b.lastSuccess.Set(float64(at.Unix()))
}

// Flush pushes the registry to the Pushgateway, replacing the previous push
// of the same run.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	if b.runID != "" {
		p = p.Grouping("run_id", b.runID)
	}
	return p.Push()
}
