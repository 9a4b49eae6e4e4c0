package media

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func flatGrayImage(w, h int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
	return img
}

func checkerboardImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func defaultAnalyzer() *QualityAnalyzer {
	return NewQualityAnalyzer(DefaultQualityWeights(), 0.6, 0.10)
}

func TestDefaultQualityWeightsSumToOne(t *testing.T) {
	w := DefaultQualityWeights()
	sum := w.Sharpness + w.Lighting + w.FaceSize + w.Confidence
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("default weights sum to %f, want 1.0", sum)
	}
}

func TestAnalyzeFaceSizeRatio(t *testing.T) {
	img := flatGrayImage(100, 100, 128)
	box := BoundingBox{X1: 0, Y1: 0, X2: 50, Y2: 50}

	m := defaultAnalyzer().Analyze(img, box, 0.9, 1)
	if math.Abs(m.FaceSizeRatio-0.25) > 1e-9 {
		t.Errorf("FaceSizeRatio = %f, want 0.25", m.FaceSizeRatio)
	}
}

func TestAnalyzeClampsConfidence(t *testing.T) {
	img := flatGrayImage(50, 50, 128)
	box := BoundingBox{X1: 0, Y1: 0, X2: 50, Y2: 50}

	m := defaultAnalyzer().Analyze(img, box, 1.5, 1)
	if m.DetectionConfidence != 1.0 {
		t.Errorf("DetectionConfidence = %f, want 1.0", m.DetectionConfidence)
	}
	m = defaultAnalyzer().Analyze(img, box, -0.5, 1)
	if m.DetectionConfidence != 0.0 {
		t.Errorf("DetectionConfidence = %f, want 0.0", m.DetectionConfidence)
	}
}

func TestAnalyzeFlatImage(t *testing.T) {
	// a flat image has zero sharpness and zero histogram entropy, so only
	// size and confidence contribute
	img := flatGrayImage(100, 100, 128)
	box := BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}

	m := defaultAnalyzer().Analyze(img, box, 1.0, 1)
	if m.Sharpness != 0 {
		t.Errorf("Sharpness = %f, want 0 for flat image", m.Sharpness)
	}
	if m.LightingUniformity != 0 {
		t.Errorf("LightingUniformity = %f, want 0 for flat image", m.LightingUniformity)
	}
	want := 0.20*1.0 + 0.20*1.0
	if math.Abs(m.OverallScore-want) > 1e-9 {
		t.Errorf("OverallScore = %f, want %f", m.OverallScore, want)
	}
}

func TestAnalyzeSharpnessOrdering(t *testing.T) {
	box := BoundingBox{X1: 0, Y1: 0, X2: 60, Y2: 60}
	flat := defaultAnalyzer().Analyze(flatGrayImage(60, 60, 128), box, 1.0, 1)
	sharp := defaultAnalyzer().Analyze(checkerboardImage(60, 60), box, 1.0, 1)

	if sharp.Sharpness <= flat.Sharpness {
		t.Errorf("checkerboard sharpness %f should exceed flat %f", sharp.Sharpness, flat.Sharpness)
	}
	if sharp.Sharpness > 1.0 {
		t.Errorf("sharpness %f exceeds 1.0", sharp.Sharpness)
	}
}

func TestIsAcceptable(t *testing.T) {
	tests := []struct {
		name      string
		metrics   QualityMetrics
		wantOK    bool
		wantIssue QualityIssue
	}{
		{
			name:      "acceptable",
			metrics:   QualityMetrics{OverallScore: 0.8, FaceSizeRatio: 0.2, FaceCount: 1},
			wantOK:    true,
			wantIssue: QualityIssueNone,
		},
		{
			name:      "multiple faces beats low score",
			metrics:   QualityMetrics{OverallScore: 0.1, FaceSizeRatio: 0.2, FaceCount: 3},
			wantOK:    false,
			wantIssue: QualityIssueMultipleFaces,
		},
		{
			name:      "low score",
			metrics:   QualityMetrics{OverallScore: 0.59, FaceSizeRatio: 0.2, FaceCount: 1},
			wantOK:    false,
			wantIssue: QualityIssueLowScore,
		},
		{
			name:      "score exactly at minimum passes",
			metrics:   QualityMetrics{OverallScore: 0.6, FaceSizeRatio: 0.2, FaceCount: 1},
			wantOK:    true,
			wantIssue: QualityIssueNone,
		},
		{
			name:      "face too small",
			metrics:   QualityMetrics{OverallScore: 0.8, FaceSizeRatio: 0.05, FaceCount: 1},
			wantOK:    false,
			wantIssue: QualityIssueFaceTooSmall,
		},
	}

	qa := defaultAnalyzer()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, issue, _ := qa.IsAcceptable(tc.metrics)
			if ok != tc.wantOK || issue != tc.wantIssue {
				t.Errorf("IsAcceptable() = (%v, %q), want (%v, %q)", ok, issue, tc.wantOK, tc.wantIssue)
			}
		})
	}
}
