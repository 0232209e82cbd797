package ocr

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestMedian3RemovesImpulseNoise(t *testing.T) {
	img := uniformGray(5, 5, 50)
	img.SetGray(2, 2, color.Gray{Y: 255})
	out := Median3(img)
	if got := out.GrayAt(2, 2).Y; got != 50 {
		t.Fatalf("expected impulse removed, got %d", got)
	}
}

func TestOtsuSeparatesBimodalImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(40)
			if x >= 5 {
				v = 200
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	threshold := OtsuThreshold(img)
	if threshold < 40 || threshold >= 200 {
		t.Fatalf("threshold %d does not separate modes", threshold)
	}
	bin := Binarize(img, threshold)
	if bin.GrayAt(0, 0).Y != 0 || bin.GrayAt(9, 9).Y != 255 {
		t.Fatalf("unexpected binarization: %d %d", bin.GrayAt(0, 0).Y, bin.GrayAt(9, 9).Y)
	}
}

func TestCLAHEKeepsUniformImageUniform(t *testing.T) {
	img := uniformGray(64, 48, 120)
	out := CLAHE(img, 2.0, 8)
	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	first := out.Pix[0]
	for i, v := range out.Pix {
		if v != first {
			t.Fatalf("pixel %d = %d, want uniform %d", i, v, first)
		}
	}
}

func TestCLAHEHandlesTinyImages(t *testing.T) {
	out := CLAHE(uniformGray(3, 2, 10), 2.0, 8)
	if out.Bounds().Dx() != 3 || out.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
}

func TestPreprocessUpscalesSmallImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: 90, A: 255})
		}
	}
	out := Preprocess(src)
	if out.Bounds().Dx() != 80 || out.Bounds().Dy() != 60 {
		t.Fatalf("expected 2x upscale, got %v", out.Bounds())
	}
}

func TestPreprocessFileWritesPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, uniformGray(20, 20, 200)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dst := filepath.Join(dir, "processed_scan.png")
	if err := PreprocessFile(src, dst); err != nil {
		t.Fatalf("PreprocessFile: %v", err)
	}
	in, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	img, err := png.Decode(in)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Fatalf("expected upscaled width 40, got %d", img.Bounds().Dx())
	}
}

func TestPreprocessFileRejectsCorruptImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := PreprocessFile(src, filepath.Join(dir, "out.png")); err == nil {
		t.Fatal("expected decode error")
	}
}
