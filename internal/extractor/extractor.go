package extractor

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// minTextLength is the shortest preprocessed OCR result that is trusted
// before retrying on the raw frame.
const minTextLength = 10

// PageMode selects how the OCR engine segments the page
type PageMode int

const (
	// PageModeAutoOSD is automatic segmentation with orientation detection (psm 1)
	PageModeAutoOSD PageMode = 1
	// PageModeAuto is fully automatic segmentation, the engine default (psm 3)
	PageModeAuto PageMode = 3
)

// Stages holds the intermediate rasters of preprocessing
type Stages struct {
	Gray      image.Image
	Thresh    image.Image
	Processed image.Image
}

// Preprocessor turns a frame into an OCR friendly binary image
type Preprocessor interface {
	Preprocess(img image.Image) (Stages, error)
}

// Engine recognizes text in a raster
type Engine interface {
	Recognize(ctx context.Context, img image.Image, mode PageMode) (string, error)
}

// Status tells the caller which path produced the text
type Status int

const (
	// StatusOK means the preprocessed image yielded enough text
	StatusOK Status = iota
	// StatusFallback means the raw frame retry produced the text
	StatusFallback
	// StatusEmpty means both attempts produced no text
	StatusEmpty
	// StatusFailed means extraction failed; Err holds the reason
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFallback:
		return "fallback"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of a text extraction
type Result struct {
	Text   string
	Status Status
	Err    error
}

// Extractor recovers text from slide frames
type Extractor struct {
	pre      Preprocessor
	engine   Engine
	debugDir string
	logger   *slog.Logger
}

// NewExtractor creates an extractor. When debugDir is not empty the
// intermediate rasters of every named extraction are written there.
func NewExtractor(pre Preprocessor, engine Engine, debugDir string, logger *slog.Logger) *Extractor {
	return &Extractor{
		pre:      pre,
		engine:   engine,
		debugDir: debugDir,
		logger:   logger,
	}
}

// Extract runs OCR on the preprocessed frame and falls back to the raw
// frame when too little text comes back. It never returns an error;
// failures are reported through Result.Status.
func (e *Extractor) Extract(ctx context.Context, img image.Image, name string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusFailed, Err: fmt.Errorf("ocr panic: %v", r)}
			e.logger.Error("OCR error", "slide", name, "error", res.Err)
		}
	}()

	stages, err := e.pre.Preprocess(img)
	if err != nil {
		e.logger.Error("OCR error", "slide", name, "error", err)
		return Result{Status: StatusFailed, Err: fmt.Errorf("preprocess: %w", err)}
	}

	if e.debugDir != "" && name != "" {
		e.saveStages(name, stages)
	}

	text, err := e.engine.Recognize(ctx, stages.Processed, PageModeAutoOSD)
	if err != nil {
		e.logger.Error("OCR error", "slide", name, "error", err)
		return Result{Status: StatusFailed, Err: fmt.Errorf("recognize processed: %w", err)}
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) >= minTextLength {
		return Result{Text: text, Status: StatusOK}
	}

	e.logger.Warn("initial OCR produced limited text, trying with original image", "slide", name, "chars", len(text))
	text, err = e.engine.Recognize(ctx, img, PageModeAuto)
	if err != nil {
		e.logger.Error("OCR error", "slide", name, "error", err)
		return Result{Status: StatusFailed, Err: fmt.Errorf("recognize original: %w", err)}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Status: StatusEmpty}
	}
	return Result{Text: text, Status: StatusFallback}
}

// Text is Extract without the status, for callers that only compare text
func (e *Extractor) Text(ctx context.Context, img image.Image) string {
	return e.Extract(ctx, img, "").Text
}

// saveStages writes the three intermediate rasters for offline inspection
func (e *Extractor) saveStages(name string, stages Stages) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for suffix, img := range map[string]image.Image{
		"gray":      stages.Gray,
		"thresh":    stages.Thresh,
		"processed": stages.Processed,
	} {
		path := filepath.Join(e.debugDir, fmt.Sprintf("%s_%s.png", stem, suffix))
		if err := writePNG(path, img); err != nil {
			e.logger.Warn("failed to save debug image", "path", path, "error", err)
		}
	}
}

func writePNG(path string, img image.Image) error {
	if img == nil {
		return fmt.Errorf("no image for %s", filepath.Base(path))
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
