package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	_, err := NewBackend("job", "run", "")
	require.Error(t, err)

	b, err := NewBackend("", "run", "http://pushgateway:9091")
	require.NoError(t, err)
	require.Equal(t, "rdbsync", b.jobName)
}

func TestPublishMapsCounterKeys(t *testing.T) {
	b, err := NewBackend("sync", "r1", "http://pushgateway:9091")
	require.NoError(t, err)

	b.Publish(map[string]int64{
		"readSucceedRecords":       100,
		"succeeded":                90,
		"filtered":                 7,
		"failed":                   3,
		"used-time":                int64(1500 * time.Millisecond),
		"filterRecordsTransform_0": 7,
		"failedRecordsTransform_0": 0,
		"failedRecordsTransform_1": 3,
		"filterRecordsTransform_1": 0,
		"readFailedRecords":        1,
		"writeSucceedRecords":      90,
		"readSucceedBytes":         4096,
	})
	b.ObservePhase("SQL_QUERY", 250*time.Millisecond)

	require.Equal(t, float64(100), testutil.ToFloat64(b.counters.WithLabelValues("readSucceedRecords")))
	require.Equal(t, float64(7), testutil.ToFloat64(b.counters.WithLabelValues("filtered")))
	require.Equal(t, float64(3), testutil.ToFloat64(b.stages.WithLabelValues("1", "failed")))
	require.Equal(t, float64(7), testutil.ToFloat64(b.stages.WithLabelValues("0", "filtered")))
	require.InDelta(t, 1.5, testutil.ToFloat64(b.transformTime), 1e-9)
	require.InDelta(t, 0.25, testutil.ToFloat64(b.phases.WithLabelValues("SQL_QUERY")), 1e-9)
	require.Equal(t, 7, testutil.CollectAndCount(b.counters))
}

func TestFlushPushesToGateway(t *testing.T) {
	var mu sync.Mutex
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("sync", "run-42", srv.URL)
	require.NoError(t, err)
	b.Publish(map[string]int64{"writeSucceedRecords": 5})
	b.MarkSuccess(time.Unix(1700000000, 0))
	require.NoError(t, b.Flush())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/metrics/job/sync/run_id/run-42", path)
	require.NotEmpty(t, body)
}

func TestFlushReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("sync", "", srv.URL)
	require.NoError(t, err)
	err = b.Flush()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "500"))
}
