package models

import (
	"image"
	"time"
)

// SlideRecord is a persisted slide waiting for enrichment
type SlideRecord struct {
	Path       string
	Frame      image.Image
	CapturedAt time.Time
	Seq        uint64
}

// Outcome describes how enrichment of a slide ended
type Outcome string

const (
	OutcomeRenamed   Outcome = "renamed"
	OutcomeNoText    Outcome = "no_text"
	OutcomeUnrenamed Outcome = "unrenamed"
	OutcomeFailed    Outcome = "failed"
)

// SlideResult is one entry of the session index written next to the slides
type SlideResult struct {
	Seq         uint64    `json:"seq"`
	Original    string    `json:"original"`
	Path        string    `json:"path"`
	Title       string    `json:"title,omitempty"`
	TitleSource string    `json:"title_source,omitempty"`
	TextLength  int       `json:"text_length"`
	Outcome     Outcome   `json:"outcome"`
	CapturedAt  time.Time `json:"captured_at"`
}
