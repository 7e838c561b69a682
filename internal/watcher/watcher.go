// Package watcher runs the capture loop: poll the display, skip frames
// dominated by faces, compare against the last accepted slide and hand new
// slides to storage and the enrichment queue.
package watcher

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bdougie/slidecap/internal/detector"
	"github.com/bdougie/slidecap/internal/metrics"
	"github.com/bdougie/slidecap/internal/models"
)

// Source produces frames
type Source interface {
	Capture() (image.Image, error)
}

// Gate reports whether people take up too much of a frame
type Gate interface {
	Check(img image.Image) (float64, bool)
}

// Comparer decides whether a frame is a new slide
type Comparer interface {
	Compare(ctx context.Context, current image.Image, baseline *detector.Baseline) detector.Decision
}

// Saver persists accepted slides
type Saver interface {
	Save(img image.Image) (string, error)
}

// Enqueuer hands slides to the enrichment worker without blocking
type Enqueuer interface {
	Enqueue(rec models.SlideRecord) bool
}

// Outcome is the result of one poll
type Outcome string

const (
	OutcomeFace     Outcome = "face"
	OutcomeSimilar  Outcome = "similar"
	OutcomeCaptured Outcome = "captured"
)

// Watcher owns the capture loop. The baseline is local to Run and threaded
// through Step.
type Watcher struct {
	source   Source
	gate     Gate
	comparer Comparer
	saver    Saver
	queue    Enqueuer
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	now func() time.Time
	seq uint64
}

// Options configures a Watcher
type Options struct {
	Interval time.Duration
	Metrics  *metrics.Metrics
}

// New creates a watcher
func New(source Source, gate Gate, comparer Comparer, saver Saver, queue Enqueuer, opts Options, logger *slog.Logger) *Watcher {
	return &Watcher{
		source:   source,
		gate:     gate,
		comparer: comparer,
		saver:    saver,
		queue:    queue,
		interval: opts.Interval,
		metrics:  opts.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled or a capture or save fails
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("starting slide capture", "interval", w.interval)

	var baseline *detector.Baseline
	for {
		next, _, err := w.Step(ctx, baseline)
		if err != nil {
			return err
		}
		baseline = next

		select {
		case <-ctx.Done():
			w.logger.Info("slide capture stopped", "slides", w.seq)
			return nil
		case <-time.After(w.interval):
		}
	}
}

// Step performs one poll against the last accepted slide and returns the
// baseline for the next poll.
func (w *Watcher) Step(ctx context.Context, last *detector.Baseline) (*detector.Baseline, Outcome, error) {
	frame, err := w.source.Capture()
	if err != nil {
		return last, "", fmt.Errorf("failed to capture frame: %w", err)
	}
	w.metrics.Poll()

	if score, present := w.gate.Check(frame); present {
		w.logger.Info("face detected, skipping", "score", score)
		w.metrics.Skipped(string(OutcomeFace))
		return last, OutcomeFace, nil
	}

	decision := w.comparer.Compare(ctx, frame, last)
	if !decision.Accept {
		w.logger.Debug("no significant change", "score", decision.Score)
		w.metrics.Skipped(string(OutcomeSimilar))
		return last, OutcomeSimilar, nil
	}
	w.logger.Info("new slide detected", "reason", decision.Reason, "score", decision.Score)

	capturedAt := w.now()
	path, err := w.saver.Save(frame)
	if err != nil {
		return last, "", fmt.Errorf("failed to save slide: %w", err)
	}
	w.seq++
	w.metrics.SlideCaptured()

	w.queue.Enqueue(models.SlideRecord{
		Path:       path,
		Frame:      frame,
		CapturedAt: capturedAt,
		Seq:        w.seq,
	})
	w.logger.Debug("slide queued", "slide", filepath.Base(path), "seq", w.seq)

	return detector.NewBaseline(frame, decision), OutcomeCaptured, nil
}
