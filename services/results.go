package services

import "errors"

// ErrStudentNotFound is returned when an operation references a student
// that does not exist
var ErrStudentNotFound = errors.New("student not found")

// RejectReason identifies why an enrollment image was refused
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectDecodeFailure    RejectReason = "decode_failure"
	RejectNoFaceDetected   RejectReason = "no_face_detected"
	RejectMultipleFaces    RejectReason = "multiple_faces"
	RejectQualityTooLow    RejectReason = "quality_too_low"
	RejectFaceTooSmall     RejectReason = "face_too_small"
	RejectDuplicateImage   RejectReason = "duplicate_image"
	RejectEnrollmentLimit  RejectReason = "enrollment_limit_reached"
	RejectLivenessFailed   RejectReason = "liveness_check_failed"
)

// EnrollmentResult reports the outcome of a single enrollment attempt
type EnrollmentResult struct {
	Accepted     bool         `json:"accepted"`
	Reason       RejectReason `json:"reason,omitempty"`
	Detail       string       `json:"detail,omitempty"`
	EncodingID   uint         `json:"encoding_id,omitempty"`
	QualityScore float64      `json:"quality_score"`
	PoseCategory string       `json:"pose_category,omitempty"`
	CropPath     string       `json:"crop_path,omitempty"`

	LivenessChecked bool    `json:"liveness_checked"`
	LivenessScore   float64 `json:"liveness_score,omitempty"`

	// Metrics describes the student's enrollment state after this attempt
	Metrics *EnrollmentMetrics `json:"metrics,omitempty"`
}

// RecognitionResult reports the outcome of a recognition attempt
type RecognitionResult struct {
	Matched           bool    `json:"matched"`
	StudentID         uint    `json:"student_id,omitempty"`
	StudentCode       string  `json:"student_code,omitempty"`
	Confidence        float64 `json:"confidence"`
	Distance          float64 `json:"distance"`
	Threshold         float64 `json:"threshold"`
	CentroidUsed      bool    `json:"centroid_used"`
	LivenessChecked   bool    `json:"liveness_checked"`
	LivenessScore     float64 `json:"liveness_score,omitempty"`
	Reason            RejectReason `json:"reason,omitempty"`
	AdaptivePromotion bool    `json:"adaptive_promotion,omitempty"`
}

// EnrollmentMetrics summarizes a student's enrollment coverage
type EnrollmentMetrics struct {
	StudentID          uint     `json:"student_id"`
	EncodingCount      int      `json:"encoding_count"`
	AdaptiveCount      int      `json:"adaptive_count"`
	AvgQuality         float64  `json:"avg_quality"`
	PoseCoverage       []string `json:"pose_coverage"`
	MissingPoses       []string `json:"missing_poses"`
	EnrollmentComplete bool     `json:"enrollment_complete"`
	NeedsReEnrollment  bool     `json:"needs_re_enrollment"`
	LastUpdated        int64    `json:"last_updated"`
}
