// media/types.go
package media

import "image"

// Point2D is a 2D point in image pixel coordinates
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is a face bounding box in pixel coordinates
type BoundingBox struct {
	X1 float64 `json:"x1"` // top-left
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"` // bottom-right
	Y2 float64 `json:"y2"`
}

// Width returns box width
func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Area returns box area
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Center returns the box center point
func (b BoundingBox) Center() Point2D {
	return Point2D{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Landmarks represents the 5 facial landmark points reported by the detector
type Landmarks struct {
	LeftEye    Point2D `json:"left_eye"`
	RightEye   Point2D `json:"right_eye"`
	Nose       Point2D `json:"nose"`
	LeftMouth  Point2D `json:"left_mouth"`
	RightMouth Point2D `json:"right_mouth"`
}

// Detection is one face found in an image by the external detector, with
// its embedding already extracted
type Detection struct {
	Box        BoundingBox
	Landmarks  Landmarks
	Embedding  []float32
	Confidence float64
}

// FaceDetector is the interface for the external face detection/embedding
// extractor. Implementations are treated as opaque; the engine never
// re-implements detection itself.
type FaceDetector interface {
	// DetectFaces finds faces in an image and returns their bounding boxes,
	// landmarks, embeddings and detection confidences
	DetectFaces(img image.Image) ([]Detection, error)
	Close()
}

// QualityScorer scores a detection and gates whether it may be enrolled
type QualityScorer interface {
	Analyze(img image.Image, box BoundingBox, detConfidence float64, faceCount int) QualityMetrics
	IsAcceptable(m QualityMetrics) (bool, QualityIssue, string)
}

// PoseEstimator classifies head pose from detector landmarks
type PoseEstimator interface {
	Classify(lm Landmarks) PoseInfo
}

// LivenessScorer scores whether a face region looks like a live capture
// rather than a print or screen replay
type LivenessScorer interface {
	CheckLiveness(img image.Image, box BoundingBox) float64
	IsLive(score float64) bool
}
