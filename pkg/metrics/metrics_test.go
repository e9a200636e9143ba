package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterCountsDeltas(t *testing.T) {
	before := testutil.ToFloat64(RecordsConverted.WithLabelValues(string(DirectionImport)))

	r := NewReporter(DirectionImport)
	r.Report(0, 0, "start")
	r.Report(0, 10000, "Importing...")
	r.Report(0, 20000, "Importing...")
	r.Report(25000, 25000, "done")

	after := testutil.ToFloat64(RecordsConverted.WithLabelValues(string(DirectionImport)))
	assert.Equal(t, 25000.0, after-before)
	assert.Equal(t, 25000.0, testutil.ToFloat64(ConversionProgress.WithLabelValues(string(DirectionImport))))

	// a second run starts again from zero
	r.Report(0, 0, "start")
	r.Report(5, 5, "done")
	assert.Equal(t, 25005.0, testutil.ToFloat64(RecordsConverted.WithLabelValues(string(DirectionImport)))-before)
}

func TestObserveConversion(t *testing.T) {
	okBefore := testutil.ToFloat64(Conversions.WithLabelValues(string(DirectionExport), StatusSuccess))
	failBefore := testutil.ToFloat64(Conversions.WithLabelValues(string(DirectionExport), StatusFailure))

	ObserveConversion(DirectionExport, nil, time.Second)
	ObserveConversion(DirectionExport, errors.New("boom"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(Conversions.WithLabelValues(string(DirectionExport), StatusSuccess))-okBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(Conversions.WithLabelValues(string(DirectionExport), StatusFailure))-failBefore)
}

func TestSampleMemory(t *testing.T) {
	rss, err := SampleMemory()
	require.NoError(t, err)
	assert.Greater(t, rss, uint64(0))
	assert.Equal(t, float64(rss), testutil.ToFloat64(ResidentMemory))
}

func TestHandlerExposesCollectors(t *testing.T) {
	NewReporter(DirectionExport).Report(1, 1, "done")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "trainbin_conversion_progress_records"))
}
