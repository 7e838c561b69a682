// Package metrics exposes Prometheus counters for the capture loop and the
// enrichment worker. All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bdougie/slidecap/internal/models"
)

const (
	namespace = "slidecap"

	defaultReadHeaderTimeout = 10 * time.Second
)

// Metrics holds the collectors of one process
type Metrics struct {
	registry *prometheus.Registry

	polls        prometheus.Counter
	captured     prometheus.Counter
	skipped      *prometheus.CounterVec
	dropped      prometheus.Counter
	enriched     *prometheus.CounterVec
	titleSources *prometheus.CounterVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of frames captured from the display",
		}),
		captured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slides_captured_total",
			Help:      "Total number of slides saved",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_skipped_total",
			Help:      "Polls that did not produce a slide",
		}, []string{"reason"}), // reason: face, similar
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_dropped_total",
			Help:      "Slides not enriched because the queue was full",
		}),
		enriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_processed_total",
			Help:      "Slides processed by the enrichment worker",
		}, []string{"outcome"}),
		titleSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "titles_total",
			Help:      "Titles generated, by source",
		}, []string{"source"}),
	}

	m.registry.MustRegister(m.polls, m.captured, m.skipped, m.dropped, m.enriched, m.titleSources)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Poll counts a captured frame
func (m *Metrics) Poll() {
	if m == nil {
		return
	}
	m.polls.Inc()
}

// SlideCaptured counts a saved slide
func (m *Metrics) SlideCaptured() {
	if m == nil {
		return
	}
	m.captured.Inc()
}

// Skipped counts a poll skipped for reason
func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

// EnrichmentDropped counts a slide rejected by a full queue
func (m *Metrics) EnrichmentDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// Enriched counts a slide finished by the worker
func (m *Metrics) Enriched(outcome models.Outcome) {
	if m == nil {
		return
	}
	m.enriched.WithLabelValues(string(outcome)).Inc()
}

// TitleGenerated counts a title by the path that produced it
func (m *Metrics) TitleGenerated(source string) {
	if m == nil {
		return
	}
	m.titleSources.WithLabelValues(source).Inc()
}

// WatchQueue exports the queue depth as a gauge read on every scrape
func (m *Metrics) WatchQueue(depth func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "enrichment_queue_depth",
		Help:      "Slides waiting for enrichment",
	}, func() float64 { return float64(depth()) }))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
