package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bdougie/slidecap/internal/models"
)

const (
	batchSize = 10 // Number of results to batch write

	// timestampLayout names slides by capture second (YYMMDD-HHMMSS)
	timestampLayout = "060102-150405"

	// IndexFile lists the slides of all sessions written to a directory
	IndexFile = "slides.json"
)

// Storage defines how slides and their enrichment results are persisted
type Storage interface {
	// Save writes the frame as a new slide and returns its path
	Save(img image.Image) (string, error)

	// Rename appends the title to the slide's file name, returning the new path,
	// or the original path when renaming is not possible
	Rename(path, title string) string

	// AddResult adds a single enrichment result
	AddResult(ctx context.Context, result models.SlideResult) error

	// Flush ensures all pending results are saved
	Flush() error
}

// storageImpl keeps slides as PNG files in one directory
type storageImpl struct {
	results   []models.SlideResult
	mu        sync.Mutex
	outputDir string
	now       func() time.Time
	logger    *slog.Logger
}

// NewStorage creates a new filesystem storage
func NewStorage(outputDir string, logger *slog.Logger) *storageImpl {
	return &storageImpl{
		results:   []models.SlideResult{},
		outputDir: outputDir,
		now:       time.Now,
		logger:    logger,
	}
}

// Save encodes the frame as PNG at <output>/<YYMMDD-HHMMSS>.png. A second
// slide in the same second overwrites the first.
func (s *storageImpl) Save(img image.Image) (string, error) {
	path := filepath.Join(s.outputDir, s.now().Format(timestampLayout)+".png")

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create slide file: %w", err)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode slide %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write slide %s: %w", path, err)
	}

	if info, err := os.Stat(path); err == nil {
		s.logger.Info("slide captured", "slide", path, "size", humanize.Bytes(uint64(info.Size())))
	} else {
		s.logger.Info("slide captured", "slide", path)
	}
	return path, nil
}

// Rename is best effort: any failure is logged and the original path returned
func (s *storageImpl) Rename(path, title string) string {
	if title == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	newFilename := fmt.Sprintf("%s_%s%s", name, title, ext)
	newPath := filepath.Join(dir, newFilename)

	if err := os.Rename(path, newPath); err != nil {
		s.logger.Error("file rename error", "slide", filename, "error", err)
		return path
	}

	s.logger.Info("renamed", "from", filename, "to", newFilename)
	return newPath
}

// AddResult adds a result to the batch and flushes if the batch is full
func (s *storageImpl) AddResult(ctx context.Context, result models.SlideResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)

	// Write to disk when batch is full
	if len(s.results) >= batchSize {
		if err := s.flush(); err != nil {
			s.logger.Error("error flushing results", "error", err)
			return err
		}
	}
	return nil
}

// Flush writes all pending results to disk
func (s *storageImpl) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// Internal flush implementation
func (s *storageImpl) flush() error {
	if len(s.results) == 0 {
		return nil
	}

	indexPath := filepath.Join(s.outputDir, IndexFile)

	var existing []models.SlideResult
	if data, err := os.ReadFile(indexPath); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to unmarshal existing results: %w", err)
		}
	}

	all := append(existing, s.results...)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	// Replace the index in one rename
	tmp := indexPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := os.Rename(tmp, indexPath); err != nil {
		return fmt.Errorf("failed to replace results file: %w", err)
	}

	s.results = nil // Clear the batch
	return nil
}

// LoadResults reads the session index of an output directory
func LoadResults(outputDir string) ([]models.SlideResult, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, IndexFile))
	if err != nil {
		return nil, err
	}
	var results []models.SlideResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return results, nil
}
