package watcher

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdougie/slidecap/internal/analyzer"
	"github.com/bdougie/slidecap/internal/detector"
	"github.com/bdougie/slidecap/internal/extractor"
	"github.com/bdougie/slidecap/internal/presence"
	"github.com/bdougie/slidecap/internal/storage"
	"github.com/bdougie/slidecap/internal/title"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// slide is a frame tagged with the text a fake OCR engine will read from it
type slide struct {
	*image.RGBA
	text string
}

func newSlide(text string) slide {
	return slide{RGBA: image.NewRGBA(image.Rect(0, 0, 8, 8)), text: text}
}

type frames struct {
	queue []image.Image
	err   error
}

func (f *frames) Capture() (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	img := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return img, nil
}

type faces struct {
	boxes []presence.Box
}

func (f faces) Detect(image.Image) ([]presence.Box, error) {
	return f.boxes, nil
}

type ocr struct {
	calls int
}

func (o *ocr) Text(_ context.Context, img image.Image) string {
	o.calls++
	if s, ok := img.(slide); ok {
		return s.text
	}
	return ""
}

type countingComparer struct {
	Comparer
	calls int
}

func (c *countingComparer) Compare(ctx context.Context, current image.Image, baseline *detector.Baseline) detector.Decision {
	c.calls++
	return c.Comparer.Compare(ctx, current, baseline)
}

type failingSaver struct{}

func (failingSaver) Save(image.Image) (string, error) {
	return "", errors.New("disk full")
}

type fixture struct {
	watcher  *Watcher
	comparer *countingComparer
	ocr      *ocr
	queue    *analyzer.Processor
	dir      string
}

func newFixture(t *testing.T, src Source, boxes []presence.Box, queueSize int) *fixture {
	t.Helper()
	dir := t.TempDir()
	text := &ocr{}
	comparer := &countingComparer{Comparer: detector.New(detector.ModeText, 0.95, 0.8, text)}
	queue := analyzer.NewProcessor(
		extractor.NewExtractor(nil, nil, "", discard()),
		title.NewSynthesizer(nil, title.Options{MaxLength: 50}, discard()),
		storage.NewStorage(dir, discard()),
		analyzer.Options{QueueSize: queueSize},
		discard(),
	)
	w := New(
		src,
		presence.NewGate(faces{boxes: boxes}, 0.25, discard()),
		comparer,
		storage.NewStorage(dir, discard()),
		queue,
		Options{Interval: time.Millisecond},
		discard(),
	)
	return &fixture{watcher: w, comparer: comparer, ocr: text, queue: queue, dir: dir}
}

func files(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestFirstFrameIsSaved(t *testing.T) {
	f := newFixture(t, &frames{queue: []image.Image{newSlide("Welcome")}}, nil, 10)

	baseline, outcome, err := f.watcher.Step(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCaptured, outcome)
	require.NotNil(t, baseline)
	assert.Equal(t, 1, files(t, f.dir))
	assert.Equal(t, 1, f.queue.Len())
}

func TestFaceDominatedFrameIsSkipped(t *testing.T) {
	boxes := []presence.Box{{W: 0.5, H: 0.6}} // 0.30 of the frame
	f := newFixture(t, &frames{queue: []image.Image{newSlide("Welcome")}}, boxes, 10)

	baseline, outcome, err := f.watcher.Step(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFace, outcome)
	assert.Nil(t, baseline)
	assert.Zero(t, f.comparer.calls)
	assert.Zero(t, files(t, f.dir))
}

func TestSimilarTextIsSkipped(t *testing.T) {
	src := &frames{queue: []image.Image{newSlide("Agenda for today"), newSlide("Agenda for today")}}
	f := newFixture(t, src, nil, 10)
	ctx := context.Background()

	baseline, _, err := f.watcher.Step(ctx, nil)
	require.NoError(t, err)

	next, outcome, err := f.watcher.Step(ctx, baseline)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSimilar, outcome)
	assert.Same(t, baseline, next)
	assert.Equal(t, 1, f.queue.Len())
}

func TestChangedTextIsAccepted(t *testing.T) {
	src := &frames{queue: []image.Image{newSlide("Hello World"), newSlide("Hello Planet"), newSlide("Hello Planet")}}
	f := newFixture(t, src, nil, 10)
	ctx := context.Background()

	baseline, _, err := f.watcher.Step(ctx, nil)
	require.NoError(t, err)

	baseline, outcome, err := f.watcher.Step(ctx, baseline)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCaptured, outcome)

	// text of the accepted frame is reused as the next baseline
	calls := f.ocr.calls
	_, outcome, err = f.watcher.Step(ctx, baseline)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSimilar, outcome)
	assert.Equal(t, calls+1, f.ocr.calls)
}

// numberedSaver writes slides as slide-<n>.png so every save gets its own file
type numberedSaver struct {
	dir string
	n   int
}

func (s *numberedSaver) Save(image.Image) (string, error) {
	s.n++
	path := filepath.Join(s.dir, fmt.Sprintf("slide-%d.png", s.n))
	return path, os.WriteFile(path, []byte("png"), 0644)
}

// slideText reads the tag of a slide as its OCR text
type slideText struct{}

func (slideText) Extract(_ context.Context, img image.Image, _ string) extractor.Result {
	if s, ok := img.(slide); ok && s.text != "" {
		return extractor.Result{Text: s.text, Status: extractor.StatusOK}
	}
	return extractor.Result{Status: extractor.StatusEmpty}
}

func TestFullQueueStillSavesSlide(t *testing.T) {
	dir := t.TempDir()
	src := &frames{queue: []image.Image{newSlide("Quarterly Results Overview"), newSlide("Roadmap For Next Year")}}
	store := storage.NewStorage(dir, discard())
	queue := analyzer.NewProcessor(
		slideText{},
		title.NewSynthesizer(nil, title.Options{MaxLength: 50}, discard()),
		store,
		analyzer.Options{QueueSize: 1},
		discard(),
	)
	w := New(
		src,
		presence.NewGate(faces{}, 0.25, discard()),
		detector.New(detector.ModeText, 0.95, 0.8, &ocr{}),
		&numberedSaver{dir: dir},
		queue,
		Options{Interval: time.Millisecond},
		discard(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	baseline, _, err := w.Step(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, queue.Len())

	_, outcome, err := w.Step(ctx, baseline)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCaptured, outcome)
	assert.Equal(t, 1, queue.Len())
	assert.FileExists(t, filepath.Join(dir, "slide-2.png"))

	go queue.Run(ctx)

	renamed := filepath.Join(dir, "slide-1_Quarterly_Results_Overview.png")
	require.Eventually(t, func() bool {
		_, err := os.Stat(renamed)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	assert.NoFileExists(t, filepath.Join(dir, "slide-1.png"))
	assert.FileExists(t, filepath.Join(dir, "slide-2.png"))
	assert.Equal(t, 2, files(t, dir))
}

func TestCaptureFailureIsFatal(t *testing.T) {
	f := newFixture(t, &frames{err: errors.New("no display")}, nil, 10)

	err := f.watcher.Run(context.Background())
	assert.ErrorContains(t, err, "no display")
}

func TestSaveFailureIsFatal(t *testing.T) {
	f := newFixture(t, &frames{queue: []image.Image{newSlide("Welcome")}}, nil, 10)
	f.watcher.saver = failingSaver{}

	_, _, err := f.watcher.Step(context.Background(), nil)
	assert.ErrorContains(t, err, "disk full")
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, &frames{queue: []image.Image{newSlide("Welcome")}}, nil, 10)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- f.watcher.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, files(t, f.dir))
}
