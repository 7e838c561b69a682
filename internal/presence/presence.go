package presence

import (
	"image"
	"log/slog"
)

// Box is a detected face region as fractions of the frame width and height
type Box struct {
	X, Y float64
	W, H float64
}

// Detector finds face regions in a frame
type Detector interface {
	Detect(img image.Image) ([]Box, error)
}

// Gate estimates how much of a frame is taken up by people and decides
// whether the frame should be skipped.
type Gate struct {
	detector  Detector
	threshold float64
	logger    *slog.Logger
}

// NewGate creates a presence gate around a long-lived detector
func NewGate(detector Detector, threshold float64, logger *slog.Logger) *Gate {
	return &Gate{
		detector:  detector,
		threshold: threshold,
		logger:    logger,
	}
}

// Score sums the relative area of every detected face. Overlapping
// detections are counted twice, so the score can exceed 1.
func (g *Gate) Score(img image.Image) float64 {
	boxes, err := g.detector.Detect(img)
	if err != nil {
		g.logger.Debug("face detection failed", "error", err)
		return 0
	}
	return Sum(boxes)
}

// Check returns the presence score and whether it is above the threshold
func (g *Gate) Check(img image.Image) (float64, bool) {
	score := g.Score(img)
	return score, score > g.threshold
}

// Threshold returns the configured presence threshold
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Sum adds up the areas of the boxes
func Sum(boxes []Box) float64 {
	total := 0.0
	for _, b := range boxes {
		total += b.W * b.H
	}
	return total
}
