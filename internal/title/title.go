package title

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Untitled is used when no usable title could be produced
	Untitled = "untitled"
	// promptChars bounds how much slide text is sent to the model
	promptChars = 1000
	// DefaultTimeout bounds a single generator call
	DefaultTimeout = 10 * time.Second
)

// ErrNoCredential is returned by generators that have no API key
var ErrNoCredential = errors.New("no API credential configured")

// Generator completes a prompt with a remote or local language model
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Source tells which path produced a title
type Source string

const (
	SourceNone     Source = "none"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceUntitled Source = "untitled"
)

// Result is the outcome of title synthesis. Err carries the reason the
// remote path was abandoned, if it was.
type Result struct {
	Title  string
	Source Source
	Err    error
}

// Options configures a Synthesizer
type Options struct {
	MaxLength int
	Timeout   time.Duration
	// RatePerMinute limits generator calls; zero means unlimited
	RatePerMinute float64
}

// Synthesizer turns slide text into a short file-name-safe title
type Synthesizer struct {
	generator Generator
	maxLength int
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewSynthesizer creates a title synthesizer. A nil generator always uses
// the local fallback.
func NewSynthesizer(generator Generator, opts Options, logger *slog.Logger) *Synthesizer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerMinute/60), 1)
	}
	return &Synthesizer{
		generator: generator,
		maxLength: opts.MaxLength,
		timeout:   opts.Timeout,
		limiter:   limiter,
		logger:    logger,
	}
}

// Generate produces a title for the text. Empty text has no title.
func (s *Synthesizer) Generate(ctx context.Context, text string) (res Result) {
	if text == "" {
		return Result{Source: SourceNone}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("title generation error", "error", r)
			res = Result{Title: Untitled, Source: SourceUntitled, Err: fmt.Errorf("title panic: %v", r)}
		}
	}()

	title, err := s.remote(ctx, text)
	if err == nil {
		return s.finish(title, SourceRemote, nil)
	}

	if errors.Is(err, ErrNoCredential) {
		s.logger.Warn("no API key found, using fallback title generation")
	} else {
		s.logger.Error("title generation error", "error", err)
	}
	return s.finish(Fallback(text, s.maxLength), SourceFallback, err)
}

func (s *Synthesizer) finish(title string, source Source, err error) Result {
	if title == "" {
		return Result{Title: Untitled, Source: SourceUntitled, Err: err}
	}
	return Result{Title: title, Source: source, Err: err}
}

func (s *Synthesizer) remote(ctx context.Context, text string) (string, error) {
	if s.generator == nil {
		return "", ErrNoCredential
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	content, err := s.generator.Complete(ctx, Prompt(text, s.maxLength))
	if err != nil {
		return "", err
	}

	title := Sanitize(content, s.maxLength)
	if title == "" {
		return "", fmt.Errorf("model returned no usable title: %q", content)
	}
	return title, nil
}

// Prompt builds the instruction sent to the model
func Prompt(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) > promptChars {
		text = string(runes[:promptChars])
	}
	return fmt.Sprintf(`Based on the following text from a lecture slide, generate a concise, descriptive title.
The title should be under %d characters, with words separated by underscores.
The title should capture the main topic or concept of the slide.

Text from slide:
%s

Return only the title with no additional text or explanation.`, maxLength, text)
}
