package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

func TestNewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)
	require.NotNil(t, c)
	assert.Same(t, registry, c.Registry())

	assert.NotNil(t, NewCollector(nil).Registry())
}

func TestCollector_RecordFile(t *testing.T) {
	c := NewCollector(nil)

	c.RecordFile(StatusLoaded, 20*time.Millisecond)
	c.RecordFile(StatusLoaded, 30*time.Millisecond)
	c.RecordFile(StatusSkipped, 0)
	c.RecordFile(StatusFailed, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.filesLoaded.WithLabelValues(StatusLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.filesLoaded.WithLabelValues(StatusSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.filesLoaded.WithLabelValues(StatusFailed)))

	// Skipped files are not timed.
	assert.Equal(t, 1, testutil.CollectAndCount(c.loadDuration))
	families, err := c.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "mtx_load_duration_seconds" {
			assert.Equal(t, uint64(3), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
}

func TestCollector_RecordScan(t *testing.T) {
	c := NewCollector(nil)

	c.RecordScan(types.FieldReal, 100, 4, 2048)
	c.RecordScan(types.FieldReal, 50, 0, 0)
	c.RecordScan(types.FieldPattern, 7, 1, 64)

	assert.Equal(t, 150.0, testutil.ToFloat64(c.entriesParsed.WithLabelValues("real")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.entriesParsed.WithLabelValues("pattern")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.blocksParsed))
	assert.Equal(t, 2112.0, testutil.ToFloat64(c.bytesParsed))
}

func TestCollector_RecordParseError(t *testing.T) {
	c := NewCollector(nil)

	c.RecordParseError(types.NewParseError(types.KindGrammar, 1, "bad banner"))
	c.RecordParseError(fmt.Errorf("load: %w", types.NewParseError(types.KindCountMismatch, 9, "short")))
	c.RecordParseError(errors.New("disk on fire"))
	c.RecordParseError(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseErrors.WithLabelValues("grammar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseErrors.WithLabelValues("count_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseErrors.WithLabelValues("other")))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordFile(StatusLoaded, time.Second)
		c.RecordScan(types.FieldInteger, 1, 1, 1)
		c.RecordParseError(errors.New("x"))
	})
	assert.Nil(t, c.Registry())
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(nil)
	c.RecordFile(StatusLoaded, 5*time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mtx_files_loaded_total{status="loaded"} 1`)
	assert.Contains(t, string(body), "mtx_load_duration_seconds_bucket")
}
