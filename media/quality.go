package media

import (
	"fmt"
	"image"
	"math"
)

// referenceFaceRatio is the face-to-image area ratio treated as "fills the
// frame" when scoring face size; ratios at or above it score 1.0
const referenceFaceRatio = 0.25

// QualityWeights controls the weighted combination of the individual
// quality measures. The weights should sum to 1.
type QualityWeights struct {
	Sharpness  float64 `yaml:"sharpness"`
	Lighting   float64 `yaml:"lighting"`
	FaceSize   float64 `yaml:"face_size"`
	Confidence float64 `yaml:"confidence"`
}

// DefaultQualityWeights returns the stock weighting
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Sharpness:  0.35,
		Lighting:   0.25,
		FaceSize:   0.20,
		Confidence: 0.20,
	}
}

// QualityMetrics holds the per-image quality measures for one detection.
// All scores are in [0,1].
type QualityMetrics struct {
	OverallScore        float64 `json:"overall_score"`
	Sharpness           float64 `json:"sharpness"`
	LightingUniformity  float64 `json:"lighting_uniformity"`
	FaceSizeRatio       float64 `json:"face_size_ratio"`
	DetectionConfidence float64 `json:"detection_confidence"`
	FaceCount           int     `json:"face_count"`
	RejectionReason     string  `json:"rejection_reason,omitempty"`
}

// QualityIssue identifies which acceptance check failed
type QualityIssue string

const (
	QualityIssueNone          QualityIssue = ""
	QualityIssueMultipleFaces QualityIssue = "multiple_faces"
	QualityIssueLowScore      QualityIssue = "low_score"
	QualityIssueFaceTooSmall  QualityIssue = "face_too_small"
)

// QualityAnalyzer scores a single face detection for enrollment suitability
type QualityAnalyzer struct {
	weights          QualityWeights
	minOverallScore  float64
	minFaceSizeRatio float64
}

var _ QualityScorer = (*QualityAnalyzer)(nil)

// NewQualityAnalyzer creates a quality analyzer with the given weighting and
// acceptance thresholds
func NewQualityAnalyzer(weights QualityWeights, minOverallScore, minFaceSizeRatio float64) *QualityAnalyzer {
	return &QualityAnalyzer{
		weights:          weights,
		minOverallScore:  minOverallScore,
		minFaceSizeRatio: minFaceSizeRatio,
	}
}

// Analyze scores the face region of img bounded by box. faceCount is the
// total number of faces the detector reported for the whole image; it is
// carried in the metrics for the acceptance check. Analyze itself never
// fails; undecodable input must be rejected before a detection exists.
func (qa *QualityAnalyzer) Analyze(img image.Image, box BoundingBox, detConfidence float64, faceCount int) QualityMetrics {
	bounds := img.Bounds()
	imageArea := float64(bounds.Dx() * bounds.Dy())

	region := image.Rect(
		clampInt(bounds.Min.X+int(box.X1), bounds.Min.X, bounds.Max.X),
		clampInt(bounds.Min.Y+int(box.Y1), bounds.Min.Y, bounds.Max.Y),
		clampInt(bounds.Min.X+int(box.X2), bounds.Min.X, bounds.Max.X),
		clampInt(bounds.Min.Y+int(box.Y2), bounds.Min.Y, bounds.Max.Y),
	)

	metrics := QualityMetrics{
		Sharpness:           qa.sharpness(img, region),
		LightingUniformity:  qa.lightingUniformity(img, region),
		DetectionConfidence: clampUnit(detConfidence),
		FaceCount:           faceCount,
	}
	if imageArea > 0 {
		metrics.FaceSizeRatio = box.Area() / imageArea
	}

	sizeScore := clampUnit(metrics.FaceSizeRatio / referenceFaceRatio)
	metrics.OverallScore = clampUnit(
		qa.weights.Sharpness*metrics.Sharpness +
			qa.weights.Lighting*metrics.LightingUniformity +
			qa.weights.FaceSize*sizeScore +
			qa.weights.Confidence*metrics.DetectionConfidence)

	return metrics
}

// IsAcceptable decides whether a scored detection may be enrolled. When it
// returns false, exactly one issue and a human-readable reason are set; the
// face-count check takes precedence since extra faces invalidate the box
// selection.
func (qa *QualityAnalyzer) IsAcceptable(m QualityMetrics) (bool, QualityIssue, string) {
	if m.FaceCount > 1 {
		return false, QualityIssueMultipleFaces, fmt.Sprintf("%d faces detected, expected exactly one", m.FaceCount)
	}
	if m.OverallScore < qa.minOverallScore {
		return false, QualityIssueLowScore, fmt.Sprintf("quality score %.2f below minimum %.2f", m.OverallScore, qa.minOverallScore)
	}
	if m.FaceSizeRatio < qa.minFaceSizeRatio {
		return false, QualityIssueFaceTooSmall, fmt.Sprintf("face covers %.1f%% of image, minimum is %.0f%%", m.FaceSizeRatio*100, qa.minFaceSizeRatio*100)
	}
	return true, QualityIssueNone, ""
}

// sharpness measures blur via the variance of a 4-neighbor Laplacian over
// the face region, normalized to [0,1]. Blurry regions have near-zero edge
// response everywhere and therefore near-zero variance.
func (qa *QualityAnalyzer) sharpness(img image.Image, region image.Rectangle) float64 {
	if region.Dx() < 3 || region.Dy() < 3 {
		return 0
	}

	var sum, sumSq float64
	count := 0
	for y := region.Min.Y + 1; y < region.Max.Y-1; y++ {
		for x := region.Min.X + 1; x < region.Max.X-1; x++ {
			center := grayValueAt(img, x, y)
			lap := grayValueAt(img, x-1, y) + grayValueAt(img, x+1, y) +
				grayValueAt(img, x, y-1) + grayValueAt(img, x, y+1) - 4*center
			sum += lap
			sumSq += lap * lap
			count++
		}
	}
	if count == 0 {
		return 0
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	return normalizeScore(variance, 0, 1000)
}

// lightingUniformity measures evenness of the brightness histogram within
// the face region using normalized entropy over 32 intensity bins
func (qa *QualityAnalyzer) lightingUniformity(img image.Image, region image.Rectangle) float64 {
	if region.Dx() < 1 || region.Dy() < 1 {
		return 0
	}

	const bins = 32
	var hist [bins]int
	total := 0
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			gray := grayValueAt(img, x, y)
			bin := int(gray / 256.0 * bins)
			if bin >= bins {
				bin = bins - 1
			}
			hist[bin]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	var entropy float64
	for _, n := range hist {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return clampUnit(entropy / math.Log2(bins))
}
