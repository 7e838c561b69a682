// Package vision binds the OpenCV and Tesseract implementations of the
// preprocessing, face detection and OCR interfaces. It requires cgo.
package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/bdougie/slidecap/internal/extractor"
	"github.com/bdougie/slidecap/internal/presence"
)

const (
	thresholdBlockSize = 11
	thresholdC         = 2
	medianKernel       = 3
)

// Preprocessor binarizes frames for OCR: grayscale, adaptive Gaussian
// threshold, then a median blur to remove speckle.
type Preprocessor struct{}

// Preprocess returns every stage as an image
func (Preprocessor) Preprocess(img image.Image) (extractor.Stages, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return extractor.Stages{}, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	thresh := gocv.NewMat()
	defer thresh.Close()
	processed := gocv.NewMat()
	defer processed.Close()

	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	gocv.AdaptiveThreshold(gray, &thresh, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, thresholdBlockSize, thresholdC)
	gocv.MedianBlur(thresh, &processed, medianKernel)

	var stages extractor.Stages
	if stages.Gray, err = gray.ToImage(); err != nil {
		return stages, fmt.Errorf("gray stage: %w", err)
	}
	if stages.Thresh, err = thresh.ToImage(); err != nil {
		return stages, fmt.Errorf("threshold stage: %w", err)
	}
	if stages.Processed, err = processed.ToImage(); err != nil {
		return stages, fmt.Errorf("processed stage: %w", err)
	}
	return stages, nil
}

// FaceDetector finds frontal faces with a Haar cascade. It is not safe for
// concurrent use; the capture loop owns it.
type FaceDetector struct {
	classifier gocv.CascadeClassifier
}

// NewFaceDetector loads the cascade file once for the whole session
func NewFaceDetector(cascadePath string) (*FaceDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade %s", cascadePath)
	}
	return &FaceDetector{classifier: classifier}, nil
}

// Detect returns faces as fractions of the frame size
func (f *FaceDetector) Detect(img image.Image) ([]presence.Box, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty frame")
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	w, h := float64(b.Dx()), float64(b.Dy())
	rects := f.classifier.DetectMultiScale(gray)
	boxes := make([]presence.Box, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, presence.Box{
			X: float64(r.Min.X) / w,
			Y: float64(r.Min.Y) / h,
			W: float64(r.Dx()) / w,
			H: float64(r.Dy()) / h,
		})
	}
	return boxes, nil
}

// Close releases the classifier
func (f *FaceDetector) Close() error {
	return f.classifier.Close()
}
