package media

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// noisyImage simulates natural skin-like texture with random variation
func noisyImage(w, h int) *image.Gray {
	rng := rand.New(rand.NewSource(42))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(80 + rng.Intn(120))})
		}
	}
	return img
}

// stripedImage simulates screen moiré with a strict 2px vertical banding
func stripedImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(100)
			if (x/2)%2 == 0 {
				v = 160
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestCheckLivenessTinyRegion(t *testing.T) {
	ld := NewLivenessDetector()
	img := noisyImage(100, 100)
	score := ld.CheckLiveness(img, BoundingBox{X1: 0, Y1: 0, X2: 5, Y2: 5})
	if score != 0 {
		t.Errorf("CheckLiveness on tiny region = %f, want 0", score)
	}
}

func TestCheckLivenessScoreRange(t *testing.T) {
	ld := NewLivenessDetector()
	box := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}

	for _, img := range []image.Image{noisyImage(100, 100), stripedImage(100, 100), flatGrayImage(100, 100, 128)} {
		score := ld.CheckLiveness(img, box)
		if score < 0 || score > 1 {
			t.Errorf("CheckLiveness = %f, want in [0,1]", score)
		}
	}
}

func TestScreenInterferenceDetectsBanding(t *testing.T) {
	ld := NewLivenessDetector()
	region := image.Rect(0, 0, 100, 100)

	// strict 2px banding yields constant run lengths, the strongest
	// possible interference signal
	striped := ld.screenInterference(stripedImage(100, 100), region)
	if striped != 1 {
		t.Errorf("striped interference = %f, want 1", striped)
	}

	flat := ld.screenInterference(flatGrayImage(100, 100, 128), region)
	if flat != 0 {
		t.Errorf("flat image interference = %f, want 0", flat)
	}
}

func TestIsLive(t *testing.T) {
	ld := NewLivenessDetector()
	if !ld.IsLive(0.5) {
		t.Error("IsLive(0.5) = false, want true at threshold")
	}
	if !ld.IsLive(0.9) {
		t.Error("IsLive(0.9) = false, want true")
	}
	if ld.IsLive(0.49) {
		t.Error("IsLive(0.49) = true, want false")
	}
}
