package analyzer

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/bdougie/slidecap/internal/extractor"
	"github.com/bdougie/slidecap/internal/metrics"
	"github.com/bdougie/slidecap/internal/models"
	"github.com/bdougie/slidecap/internal/title"
)

// DefaultQueueSize is the number of slides that may wait for enrichment
const DefaultQueueSize = 100

// TextExtractor recovers text from a slide
type TextExtractor interface {
	Extract(ctx context.Context, img image.Image, name string) extractor.Result
}

// TitleSynthesizer turns slide text into a title
type TitleSynthesizer interface {
	Generate(ctx context.Context, text string) title.Result
}

// Store renames slides and records the outcome
type Store interface {
	Rename(path, title string) string
	AddResult(ctx context.Context, result models.SlideResult) error
}

// Processor enriches saved slides in the background. A single worker
// takes slides off a bounded queue in capture order.
type Processor struct {
	queue     chan models.SlideRecord
	extractor TextExtractor
	titles    TitleSynthesizer
	storage   Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
	debug     bool
}

// Options configures a Processor
type Options struct {
	QueueSize int
	// Debug passes slide names to the extractor so it keeps its stages
	Debug   bool
	Metrics *metrics.Metrics
}

// NewProcessor creates a processor; call Run to start the worker
func NewProcessor(ex TextExtractor, titles TitleSynthesizer, storage Store, opts Options, logger *slog.Logger) *Processor {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Processor{
		queue:     make(chan models.SlideRecord, opts.QueueSize),
		extractor: ex,
		titles:    titles,
		storage:   storage,
		metrics:   opts.Metrics,
		logger:    logger,
		debug:     opts.Debug,
	}
}

// Enqueue hands a slide to the worker without blocking. It reports false
// when the queue is full; the slide then stays unenriched.
func (p *Processor) Enqueue(rec models.SlideRecord) bool {
	select {
	case p.queue <- rec:
		return true
	default:
		p.logger.Warn("OCR queue is full, skipping OCR for this image", "slide", filepath.Base(rec.Path))
		p.metrics.EnrichmentDropped()
		return false
	}
}

// Len returns the number of slides waiting
func (p *Processor) Len() int {
	return len(p.queue)
}

// Cap returns the queue capacity
func (p *Processor) Cap() int {
	return cap(p.queue)
}

// Run processes slides until ctx is cancelled. Slides still queued at
// that point are left as they are.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("starting OCR worker")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("OCR worker stopped", "pending", len(p.queue))
			return nil
		case rec := <-p.queue:
			result := p.process(ctx, rec)
			p.metrics.Enriched(result.Outcome)
			if err := p.storage.AddResult(ctx, result); err != nil {
				p.logger.Error("failed to record result", "slide", filepath.Base(rec.Path), "error", err)
			}
		}
	}
}

// process runs extraction, titling and rename for one slide. Errors and
// panics end this slide only.
func (p *Processor) process(ctx context.Context, rec models.SlideRecord) (result models.SlideResult) {
	name := filepath.Base(rec.Path)
	result = models.SlideResult{
		Seq:        rec.Seq,
		Original:   rec.Path,
		Path:       rec.Path,
		CapturedAt: rec.CapturedAt,
		Outcome:    models.OutcomeFailed,
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("error processing slide", "slide", name, "error", fmt.Sprint(r))
			result.Outcome = models.OutcomeFailed
		}
	}()

	p.logger.Info("processing OCR", "slide", name)
	debugName := ""
	if p.debug {
		debugName = rec.Path
	}
	text := p.extractor.Extract(ctx, rec.Frame, debugName)
	result.TextLength = len(text.Text)

	if text.Text == "" {
		if text.Status == extractor.StatusFailed {
			return result
		}
		p.logger.Warn("no text extracted", "slide", name)
		result.Outcome = models.OutcomeNoText
		return result
	}

	p.logger.Info("generating title", "slide", name, "chars", len(text.Text))
	t := p.titles.Generate(ctx, text.Text)
	result.Title = t.Title
	result.TitleSource = string(t.Source)
	p.metrics.TitleGenerated(string(t.Source))

	if t.Title == "" {
		result.Outcome = models.OutcomeUnrenamed
		return result
	}

	result.Path = p.storage.Rename(rec.Path, t.Title)
	if result.Path == rec.Path {
		result.Outcome = models.OutcomeUnrenamed
	} else {
		result.Outcome = models.OutcomeRenamed
	}
	return result
}
