package media

import (
	"image"
	"math"
)

// LivenessThreshold is the minimum score for a detection to be considered
// a live face rather than a photo or screen replay
const LivenessThreshold = 0.5

// LivenessDetector scores whether a detection shows a live subject. It
// combines micro-texture analysis of the face region (skin texture differs
// from print/screen texture) with detection of the regular high-frequency
// interference patterns characteristic of screen recapture.
type LivenessDetector struct{}

var _ LivenessScorer = (*LivenessDetector)(nil)

// NewLivenessDetector creates a liveness detector
func NewLivenessDetector() *LivenessDetector {
	return &LivenessDetector{}
}

// CheckLiveness scores the face region in [0,1]; higher means more likely
// a live subject
func (ld *LivenessDetector) CheckLiveness(img image.Image, box BoundingBox) float64 {
	bounds := img.Bounds()
	region := image.Rect(
		clampInt(bounds.Min.X+int(box.X1), bounds.Min.X, bounds.Max.X),
		clampInt(bounds.Min.Y+int(box.Y1), bounds.Min.Y, bounds.Max.Y),
		clampInt(bounds.Min.X+int(box.X2), bounds.Min.X, bounds.Max.X),
		clampInt(bounds.Min.Y+int(box.Y2), bounds.Min.Y, bounds.Max.Y),
	)
	if region.Dx() < 8 || region.Dy() < 8 {
		return 0
	}

	texture := ld.textureComplexity(img, region)
	edges := ld.edgeDensity(img, region)
	interference := ld.screenInterference(img, region)

	return clampUnit(0.4*texture + 0.3*edges + 0.3*(1-interference))
}

// IsLive reports whether a liveness score passes the fixed threshold
func (ld *LivenessDetector) IsLive(score float64) bool {
	return score >= LivenessThreshold
}

// textureComplexity samples an 8-neighbor local binary pattern across the
// region; live skin produces a broad spread of patterns while flat
// reproductions cluster
func (ld *LivenessDetector) textureComplexity(img image.Image, region image.Rectangle) float64 {
	var patternSum float64
	samples := 0

	step := 4
	for y := region.Min.Y + 1; y < region.Max.Y-1; y += step {
		for x := region.Min.X + 1; x < region.Max.X-1; x += step {
			center := grayValueAt(img, x, y)

			var pattern uint8
			if grayValueAt(img, x-1, y-1) >= center {
				pattern |= 1 << 0
			}
			if grayValueAt(img, x, y-1) >= center {
				pattern |= 1 << 1
			}
			if grayValueAt(img, x+1, y-1) >= center {
				pattern |= 1 << 2
			}
			if grayValueAt(img, x+1, y) >= center {
				pattern |= 1 << 3
			}
			if grayValueAt(img, x+1, y+1) >= center {
				pattern |= 1 << 4
			}
			if grayValueAt(img, x, y+1) >= center {
				pattern |= 1 << 5
			}
			if grayValueAt(img, x-1, y+1) >= center {
				pattern |= 1 << 6
			}
			if grayValueAt(img, x-1, y) >= center {
				pattern |= 1 << 7
			}

			patternSum += float64(pattern)
			samples++
		}
	}
	if samples == 0 {
		return 0
	}
	return normalizeScore(patternSum/float64(samples), 0, 255)
}

// edgeDensity measures the fraction of pixels with a strong gradient; live
// faces carry more natural edge structure than flat reproductions
func (ld *LivenessDetector) edgeDensity(img image.Image, region image.Rectangle) float64 {
	edgeCount := 0
	total := 0

	for y := region.Min.Y + 1; y < region.Max.Y-1; y++ {
		for x := region.Min.X + 1; x < region.Max.X-1; x++ {
			gx := grayValueAt(img, x+1, y) - grayValueAt(img, x-1, y)
			gy := grayValueAt(img, x, y+1) - grayValueAt(img, x, y-1)
			if math.Sqrt(gx*gx+gy*gy) > 30 {
				edgeCount++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(edgeCount) / float64(total)
}

// screenInterference looks for regular short-period alternation of the
// horizontal gradient across scanlines. Screen recapture produces moiré
// banding with near-constant spacing; natural scenes do not. Returns a
// score in [0,1] where higher means more screen-like.
func (ld *LivenessDetector) screenInterference(img image.Image, region image.Rectangle) float64 {
	var runLengths []float64

	rowStep := 8
	for y := region.Min.Y; y < region.Max.Y; y += rowStep {
		lastSign := 0
		runStart := region.Min.X
		for x := region.Min.X; x < region.Max.X-1; x++ {
			g := grayValueAt(img, x+1, y) - grayValueAt(img, x, y)
			sign := 0
			if g > 6 {
				sign = 1
			} else if g < -6 {
				sign = -1
			}
			if sign != 0 && sign != lastSign {
				if lastSign != 0 {
					runLengths = append(runLengths, float64(x-runStart))
				}
				runStart = x
				lastSign = sign
			}
		}
	}

	// too few alternations to call it a pattern
	if len(runLengths) < 8 {
		return 0
	}

	var sum float64
	for _, r := range runLengths {
		sum += r
	}
	mean := sum / float64(len(runLengths))
	if mean > 6 {
		// spacing too wide for display-grid interference
		return 0
	}

	var variance float64
	for _, r := range runLengths {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(runLengths))

	// near-constant run lengths indicate a periodic pattern
	return clampUnit(1 / (1 + variance))
}
