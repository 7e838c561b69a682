package detector

import (
	"context"
	"fmt"
	"image"

	"github.com/bdougie/slidecap/internal/similarity"
)

// Mode selects the signal used to decide whether the slide changed
type Mode string

const (
	// ModeText compares the words recognized on both frames
	ModeText Mode = "text"
	// ModeVisual compares pixel structure
	ModeVisual Mode = "visual"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeText, ModeVisual:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown detection mode %q (want %q or %q)", s, ModeText, ModeVisual)
}

// Reason explains a decision
type Reason string

const (
	ReasonFirst   Reason = "first"
	ReasonChanged Reason = "changed"
	ReasonSimilar Reason = "similar"
)

// Decision is the outcome of comparing a frame to the last accepted slide
type Decision struct {
	Accept bool
	Score  float64
	Reason Reason
	// Text of the current frame when it was recognized during comparison
	Text    string
	HasText bool
}

// TextSource recognizes the text of a frame
type TextSource interface {
	Text(ctx context.Context, img image.Image) string
}

// Baseline is the last accepted slide. Its text is recognized at most once.
type Baseline struct {
	Frame   image.Image
	text    string
	hasText bool
}

// NewBaseline creates a baseline for an accepted frame, seeding the text
// when the decision already recognized it.
func NewBaseline(frame image.Image, d Decision) *Baseline {
	return &Baseline{Frame: frame, text: d.Text, hasText: d.HasText}
}

func (b *Baseline) textFrom(ctx context.Context, src TextSource) string {
	if !b.hasText {
		b.text = src.Text(ctx, b.Frame)
		b.hasText = true
	}
	return b.text
}

// Detector decides whether a newly captured frame is a new slide
type Detector struct {
	mode          Mode
	ssimThreshold float64
	textThreshold float64
	text          TextSource
}

// New creates a change detector. text may be nil in visual mode.
func New(mode Mode, ssimThreshold, textThreshold float64, text TextSource) *Detector {
	return &Detector{
		mode:          mode,
		ssimThreshold: ssimThreshold,
		textThreshold: textThreshold,
		text:          text,
	}
}

// Compare decides whether current differs enough from the baseline.
// A nil baseline is always accepted.
func (d *Detector) Compare(ctx context.Context, current image.Image, baseline *Baseline) Decision {
	if baseline == nil {
		return Decision{Accept: true, Reason: ReasonFirst}
	}

	var decision Decision
	switch d.mode {
	case ModeVisual:
		score := similarity.Structural(current, baseline.Frame)
		decision = Decision{Score: score, Accept: score < d.ssimThreshold}
	default:
		prev := baseline.textFrom(ctx, d.text)
		cur := d.text.Text(ctx, current)
		score := similarity.Jaccard(cur, prev)
		decision = Decision{Score: score, Accept: score < d.textThreshold, Text: cur, HasText: true}
	}

	if decision.Accept {
		decision.Reason = ReasonChanged
	} else {
		decision.Reason = ReasonSimilar
	}
	return decision
}

// Mode returns the configured mode
func (d *Detector) Mode() Mode {
	return d.mode
}
