package similarity

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func stripes(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestStructuralMismatchedDimensions(t *testing.T) {
	sizes := [][4]int{
		{100, 100, 200, 200},
		{100, 100, 100, 101},
		{64, 32, 32, 64},
	}
	for _, s := range sizes {
		a := solid(s[0], s[1], color.Black)
		b := solid(s[2], s[3], color.Black)
		assert.Equal(t, 0.0, Structural(a, b), "sizes %v", s)
	}
}

func TestStructuralIdentical(t *testing.T) {
	img := stripes(40, 30)
	assert.InDelta(t, 1.0, Structural(img, img), 1e-9)

	flat := solid(20, 20, color.Black)
	assert.InDelta(t, 1.0, Structural(flat, flat), 1e-9)
}

func TestStructuralDifferent(t *testing.T) {
	black := solid(32, 32, color.Black)
	white := solid(32, 32, color.White)
	assert.Less(t, Structural(black, white), 0.01)

	score := Structural(stripes(32, 32), black)
	assert.Less(t, score, 0.95)
	assert.GreaterOrEqual(t, score, -1.0)
}

func TestStructuralSmallImage(t *testing.T) {
	a := solid(4, 4, color.Black)
	assert.InDelta(t, 1.0, Structural(a, a), 1e-9)
}

func TestGrayUsesLumaWeights(t *testing.T) {
	img := solid(2, 2, color.RGBA{R: 255, A: 255})
	g := Gray(img)
	assert.Equal(t, image.Rect(0, 0, 2, 2), g.Bounds())
	assert.InDelta(t, 76, int(g.GrayAt(0, 0).Y), 1)
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 1.0},
		{"whitespace only", "  \n\t", "", 1.0},
		{"first empty", "", "Hello", 0.0},
		{"second empty", "Hello", "", 0.0},
		{"identical", "Hello World", "Hello World", 1.0},
		{"case insensitive", "HELLO world", "hello WORLD", 1.0},
		{"partial overlap", "Hello World", "Hello Planet", 1.0 / 3.0},
		{"disjoint", "alpha beta", "gamma delta", 0.0},
		{"duplicates ignored", "a a a b", "a b", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-9)
		})
	}
}
