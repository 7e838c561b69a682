package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/kbinani/screenshot"
	"golang.org/x/image/draw"
)

// Preview thumbnail size
const (
	PreviewWidth  = 480
	PreviewHeight = 270
)

// Screen captures one display
type Screen struct {
	Display int
}

// Capture grabs the full display as an RGBA frame
func (s Screen) Capture() (image.Image, error) {
	n := screenshot.NumActiveDisplays()
	if s.Display < 0 || s.Display >= n {
		return nil, fmt.Errorf("display %d out of range: %d active displays", s.Display, n)
	}

	bounds := screenshot.GetDisplayBounds(s.Display)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

// Display describes an active display
type Display struct {
	Index  int
	Bounds image.Rectangle
}

// Displays lists the active displays in capture index order
func Displays() []Display {
	n := screenshot.NumActiveDisplays()
	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		displays = append(displays, Display{Index: i, Bounds: screenshot.GetDisplayBounds(i)})
	}
	return displays
}

// Thumbnail scales img to the preview size
func Thumbnail(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, PreviewWidth, PreviewHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// WritePreviews captures every display and writes display_<n>.png
// thumbnails to dir, returning the written paths.
func WritePreviews(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}

	var paths []string
	for _, d := range Displays() {
		img, err := Screen{Display: d.Index}.Capture()
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("display_%d.png", d.Index))
		if err := writePNG(path, Thumbnail(img)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
