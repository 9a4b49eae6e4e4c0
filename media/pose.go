package media

import "math"

// PoseCategory buckets a face's 3-D orientation into one of five fixed
// categories used to track multi-angle enrollment coverage
type PoseCategory string

const (
	PoseFront   PoseCategory = "front"
	PoseLeft30  PoseCategory = "left_30"
	PoseRight30 PoseCategory = "right_30"
	PoseUp15    PoseCategory = "up_15"
	PoseDown15  PoseCategory = "down_15"
)

// AllPoseCategories returns the five categories in a stable order
func AllPoseCategories() []PoseCategory {
	return []PoseCategory{PoseFront, PoseLeft30, PoseRight30, PoseUp15, PoseDown15}
}

// AllPoseCategoryNames returns the five category names in a stable order
func AllPoseCategoryNames() []string {
	categories := AllPoseCategories()
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}

// PoseInfo holds the estimated head orientation in degrees and the
// resulting category
type PoseInfo struct {
	Yaw      float64      `json:"yaw"`
	Pitch    float64      `json:"pitch"`
	Roll     float64      `json:"roll"`
	Category PoseCategory `json:"category"`
}

// frontalNoseRatio is the vertical nose position between the eye line and
// the mouth line for a frontal face; deviation from it drives the pitch
// estimate
const frontalNoseRatio = 0.55

// PoseClassifier estimates yaw/pitch/roll from the relative geometry of the
// five landmark points and classifies the result into a PoseCategory
type PoseClassifier struct{}

var _ PoseEstimator = (*PoseClassifier)(nil)

// NewPoseClassifier creates a pose classifier
func NewPoseClassifier() *PoseClassifier {
	return &PoseClassifier{}
}

// Classify estimates head orientation from landmarks. Yaw is positive when
// the nose is displaced toward increasing image x (subject turned toward
// the camera's right), pitch is positive when the nose sits closer to the
// eye line than frontal (head tilted up).
func (pc *PoseClassifier) Classify(lm Landmarks) PoseInfo {
	eyeDX := lm.RightEye.X - lm.LeftEye.X
	eyeDY := lm.RightEye.Y - lm.LeftEye.Y
	eyeDist := math.Hypot(eyeDX, eyeDY)

	eyeMidX := (lm.LeftEye.X + lm.RightEye.X) / 2
	eyeMidY := (lm.LeftEye.Y + lm.RightEye.Y) / 2
	mouthMidY := (lm.LeftMouth.Y + lm.RightMouth.Y) / 2
	faceHeight := mouthMidY - eyeMidY

	if eyeDist <= 0 || faceHeight <= 0 {
		// degenerate landmark geometry
		return PoseInfo{Category: PoseFront}
	}

	info := PoseInfo{
		Yaw:  (lm.Nose.X - eyeMidX) / eyeDist * 90,
		Roll: math.Atan2(eyeDY, eyeDX) * 180 / math.Pi,
	}

	noseRatio := (lm.Nose.Y - eyeMidY) / faceHeight
	info.Pitch = (frontalNoseRatio - noseRatio) * 120

	info.Category = pc.categorize(info.Yaw, info.Pitch)
	return info
}

// categorize applies the fixed angle bands. Yaw-based categories take
// precedence over pitch-based ones when both are non-trivial; angles
// outside every band fall back to FRONT.
func (pc *PoseClassifier) categorize(yaw, pitch float64) PoseCategory {
	switch {
	case yaw >= -45 && yaw < -15:
		return PoseLeft30
	case yaw > 15 && yaw <= 45:
		return PoseRight30
	case pitch >= 10 && pitch <= 25:
		return PoseUp15
	case pitch >= -25 && pitch <= -10:
		return PoseDown15
	default:
		return PoseFront
	}
}

// MissingCategories returns the categories not yet captured for a user, in
// the stable AllPoseCategories order
func (pc *PoseClassifier) MissingCategories(captured []PoseCategory) []PoseCategory {
	have := make(map[PoseCategory]bool, len(captured))
	for _, c := range captured {
		have[c] = true
	}

	var missing []PoseCategory
	for _, c := range AllPoseCategories() {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
