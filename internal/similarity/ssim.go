package similarity

import (
	"image"

	"golang.org/x/image/draw"
)

const (
	// ssimWindow is the side of the square sliding window
	ssimWindow = 7
	// dynamic range of 8-bit intensities
	dataRange = 255.0
)

var (
	c1 = (0.01 * dataRange) * (0.01 * dataRange)
	c2 = (0.03 * dataRange) * (0.03 * dataRange)
)

// Gray converts any raster to single-channel 8-bit intensity
// using the ITU-R 601 luma weights.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Structural returns the mean structural similarity of two frames after
// converting both to grayscale. Frames of different dimensions score 0.
func Structural(a, b image.Image) float64 {
	return SSIM(Gray(a), Gray(b))
}

// SSIM computes the mean structural similarity index of two grayscale
// rasters with a uniform 7x7 window and sample covariance. Only windows
// that lie fully inside the image contribute to the mean.
func SSIM(a, b *image.Gray) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0
	}

	w, h := ab.Dx(), ab.Dy()
	if w == 0 || h == 0 {
		return 1
	}

	win := ssimWindow
	if m := min(w, h); m < win {
		// shrink to the largest odd window that fits
		win = m
		if win%2 == 0 {
			win--
		}
	}

	sa := newIntegral(a, nil)
	sb := newIntegral(b, nil)
	saa := newIntegral(a, a)
	sbb := newIntegral(b, b)
	sab := newIntegral(a, b)

	n := float64(win * win)
	covNorm := 1.0
	if win > 1 {
		covNorm = n / (n - 1)
	}

	var total float64
	count := 0
	for y := 0; y+win <= h; y++ {
		for x := 0; x+win <= w; x++ {
			ux := float64(sa.sum(x, y, win)) / n
			uy := float64(sb.sum(x, y, win)) / n
			uxx := float64(saa.sum(x, y, win)) / n
			uyy := float64(sbb.sum(x, y, win)) / n
			uxy := float64(sab.sum(x, y, win)) / n

			vx := covNorm * (uxx - ux*ux)
			vy := covNorm * (uyy - uy*uy)
			vxy := covNorm * (uxy - ux*uy)

			num := (2*ux*uy + c1) * (2*vxy + c2)
			den := (ux*ux + uy*uy + c1) * (vx + vy + c2)
			total += num / den
			count++
		}
	}

	return total / float64(count)
}

// integral is a summed-area table over pixel values, or over the
// product of two rasters' pixels when a second raster is supplied.
type integral struct {
	stride int
	data   []int64
}

func newIntegral(a, b *image.Gray) *integral {
	r := a.Bounds()
	w, h := r.Dx(), r.Dy()
	t := &integral{stride: w + 1, data: make([]int64, (w+1)*(h+1))}

	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			v := int64(a.GrayAt(r.Min.X+x, r.Min.Y+y).Y)
			if b != nil {
				br := b.Bounds()
				v *= int64(b.GrayAt(br.Min.X+x, br.Min.Y+y).Y)
			}
			row += v
			t.data[(y+1)*t.stride+x+1] = t.data[y*t.stride+x+1] + row
		}
	}
	return t
}

// sum returns the total over the size x size square whose top-left is (x, y)
func (t *integral) sum(x, y, size int) int64 {
	x2, y2 := x+size, y+size
	return t.data[y2*t.stride+x2] - t.data[y*t.stride+x2] - t.data[y2*t.stride+x] + t.data[y*t.stride+x]
}
