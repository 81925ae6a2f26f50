package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RegionsProcessed.WithLabelValues("ok").Inc()
	m.RegionsProcessed.WithLabelValues("error").Add(2)
	m.SignalOnsets.Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegionsProcessed.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegionsProcessed.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SignalOnsets))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_batch_regions_processed_total")
	assert.Contains(t, names, "test_analysis_signal_onsets_total")
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RegionsProcessed.WithLabelValues("error"))
	RecordRegion(errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.RegionsProcessed.WithLabelValues("error")))

	beforeLines := testutil.ToFloat64(DefaultMetrics.LinesAnalyzed)
	beforeOnsets := testutil.ToFloat64(DefaultMetrics.SignalOnsets)
	RecordLineAnalyzed(4)
	assert.Equal(t, beforeLines+1, testutil.ToFloat64(DefaultMetrics.LinesAnalyzed))
	assert.Equal(t, beforeOnsets+4, testutil.ToFloat64(DefaultMetrics.SignalOnsets))

	beforeHits := testutil.ToFloat64(DefaultMetrics.CacheLookups.WithLabelValues("hit"))
	RecordCacheLookup(true)
	assert.Equal(t, beforeHits+1, testutil.ToFloat64(DefaultMetrics.CacheLookups.WithLabelValues("hit")))

	RecordBatch(time.Second, nil)
	assert.Greater(t, testutil.ToFloat64(DefaultMetrics.LastSuccessfulBatch), 0.0)
}

func TestHandler_ServesMetrics(t *testing.T) {
	RecordFREDRequest("ok", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sahm_fred_request_latency_seconds"))
}
