package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/slidecap/internal/models"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Poll()
	m.Poll()
	m.SlideCaptured()
	m.Skipped("face")
	m.Skipped("similar")
	m.Skipped("similar")
	m.EnrichmentDropped()
	m.Enriched(models.OutcomeRenamed)
	m.TitleGenerated("fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captured))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("face")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped.WithLabelValues("similar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enriched.WithLabelValues("renamed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.titleSources.WithLabelValues("fallback")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Poll()
		m.SlideCaptured()
		m.Skipped("face")
		m.EnrichmentDropped()
		m.Enriched(models.OutcomeFailed)
		m.TitleGenerated("remote")
		m.WatchQueue(func() int { return 0 })
	})
}

func TestHandlerExportsQueueDepth(t *testing.T) {
	m := New()
	depth := 3
	m.WatchQueue(func() int { return depth })
	m.SlideCaptured()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "slidecap_enrichment_queue_depth 3"), text)
	assert.Contains(t, text, "slidecap_slides_captured_total 1")
}
