package ocr

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"sort"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

const (
	claheClipLimit  = 2.0
	claheTiles      = 8
	upscaleMinSide  = 1000
	upscaleFactor   = 2
	histogramLevels = 256
)

// PreprocessFile runs the five-stage pipeline on src and writes a PNG to dst:
// grayscale, CLAHE, 3x3 median denoise, Otsu binarization, and a 2x upscale
// when either side is under 1000 pixels.
func PreprocessFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	processed := Preprocess(img)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(out, processed); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("encode %s: %w", dst, err)
	}
	return out.Close()
}

// Preprocess applies the in-memory pipeline and returns the processed image.
func Preprocess(img image.Image) *image.Gray {
	gray := Grayscale(img)
	gray = CLAHE(gray, claheClipLimit, claheTiles)
	gray = Median3(gray)
	gray = Binarize(gray, OtsuThreshold(gray))
	b := gray.Bounds()
	if b.Dx() < upscaleMinSide || b.Dy() < upscaleMinSide {
		gray = Upscale(gray, upscaleFactor)
	}
	return gray
}

// Grayscale converts img to an 8-bit luminance image anchored at the origin.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// CLAHE performs contrast-limited adaptive histogram equalization over a
// tiles x tiles grid, interpolating bilinearly between tile mappings.
func CLAHE(src *image.Gray, clipLimit float64, tiles int) *image.Gray {
	src = anchored(src)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return src
	}
	tx, ty := min(tiles, w), min(tiles, h)
	tileW := (w + tx - 1) / tx
	tileH := (h + ty - 1) / ty

	luts := make([][histogramLevels]uint8, tx*ty)
	for j := 0; j < ty; j++ {
		for i := 0; i < tx; i++ {
			x0, y0 := i*tileW, j*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[j*tx+i] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		gy := (float64(y)+0.5)/float64(tileH) - 0.5
		j0 := clampInt(int(math.Floor(gy)), 0, ty-1)
		j1 := clampInt(j0+1, 0, ty-1)
		fy := clampFloat(gy-float64(j0), 0, 1)
		for x := 0; x < w; x++ {
			gx := (float64(x)+0.5)/float64(tileW) - 0.5
			i0 := clampInt(int(math.Floor(gx)), 0, tx-1)
			i1 := clampInt(i0+1, 0, tx-1)
			fx := clampFloat(gx-float64(i0), 0, 1)

			v := src.Pix[y*src.Stride+x]
			top := (1-fx)*float64(luts[j0*tx+i0][v]) + fx*float64(luts[j0*tx+i1][v])
			bottom := (1-fx)*float64(luts[j1*tx+i0][v]) + fx*float64(luts[j1*tx+i1][v])
			dst.Pix[y*dst.Stride+x] = uint8(clampFloat((1-fy)*top+fy*bottom+0.5, 0, 255))
		}
	}
	return dst
}

func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [histogramLevels]uint8 {
	var hist [histogramLevels]int
	area := 0
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
			area++
		}
	}
	var lut [histogramLevels]uint8
	if area == 0 {
		for v := range lut {
			lut[v] = uint8(v)
		}
		return lut
	}

	limit := int(clipLimit * float64(area) / histogramLevels)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for v := range hist {
		if hist[v] > limit {
			excess += hist[v] - limit
			hist[v] = limit
		}
	}
	share, remainder := excess/histogramLevels, excess%histogramLevels
	for v := range hist {
		hist[v] += share
		if v < remainder {
			hist[v]++
		}
	}

	cdf := 0
	scale := 255.0 / float64(area)
	for v := range hist {
		cdf += hist[v]
		lut[v] = uint8(clampFloat(float64(cdf)*scale+0.5, 0, 255))
	}
	return lut
}

// Median3 replaces each pixel with the median of its 3x3 neighbourhood,
// replicating edge pixels.
func Median3(src *image.Gray) *image.Gray {
	src = anchored(src)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	var window [9]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := clampInt(y+dy, 0, h-1)
				for dx := -1; dx <= 1; dx++ {
					xx := clampInt(x+dx, 0, w-1)
					window[n] = int(src.Pix[yy*src.Stride+xx])
					n++
				}
			}
			sort.Ints(window[:])
			dst.Pix[y*dst.Stride+x] = uint8(window[4])
		}
	}
	return dst
}

// OtsuThreshold returns the level that maximizes between-class variance.
// Pixels above the level belong to the foreground class.
func OtsuThreshold(src *image.Gray) uint8 {
	src = anchored(src)
	var hist [histogramLevels]int
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for _, v := range row {
			hist[v]++
		}
	}
	total := w * h
	if total == 0 {
		return 0
	}
	var sumAll float64
	for v, count := range hist {
		sumAll += float64(v * count)
	}

	var sumBackground float64
	weightBackground := 0
	best := 0.0
	threshold := 0
	for t := 0; t < histogramLevels; t++ {
		weightBackground += hist[t]
		if weightBackground == 0 {
			continue
		}
		weightForeground := total - weightBackground
		if weightForeground == 0 {
			break
		}
		sumBackground += float64(t * hist[t])
		meanBackground := sumBackground / float64(weightBackground)
		meanForeground := (sumAll - sumBackground) / float64(weightForeground)
		diff := meanBackground - meanForeground
		between := float64(weightBackground) * float64(weightForeground) * diff * diff
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}

// Binarize maps pixels above threshold to white and the rest to black.
func Binarize(src *image.Gray, threshold uint8) *image.Gray {
	src = anchored(src)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.Pix[y*src.Stride+x] > threshold {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// Upscale enlarges src by factor using Catmull-Rom resampling.
func Upscale(src *image.Gray, factor int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// anchored returns src unchanged when it starts at the origin, otherwise a
// copy that does, so pixel offsets can be computed from the stride alone.
func anchored(src *image.Gray) *image.Gray {
	if src.Bounds().Min == (image.Point{}) {
		return src
	}
	return Grayscale(src)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
