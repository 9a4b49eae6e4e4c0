package services

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/calebwray/attendsysbackend/media"
	"github.com/calebwray/attendsysbackend/models"
	"github.com/calebwray/attendsysbackend/repository"
	"github.com/calebwray/attendsysbackend/utils"
)

const (
	// ThresholdTight applies to well-enrolled students (5+ encodings with
	// high average quality)
	ThresholdTight = 0.35
	// ThresholdDefault is the baseline match distance threshold
	ThresholdDefault = 0.40
	// ThresholdRelaxed applies to sparsely enrolled students (fewer than
	// 3 encodings)
	ThresholdRelaxed = 0.45

	tightMinEncodings  = 5
	tightMinAvgQuality = 0.8
	relaxedMaxEncodings = 3

	// re-enrollment is suggested below this average quality or with more
	// than this many pose categories missing
	reEnrollMinAvgQuality  = 0.7
	reEnrollMaxMissingPoses = 2

	// enrollment is considered complete with this many distinct poses
	enrollmentCompletePoses = 3

	// how many index neighbors to pull when shortlisting candidates.
	// The shortlist is approximate; the k is sized well above any single
	// class so the true nearest student is not cut off.
	candidateSearchK = 50
)

// RecognitionService orchestrates enrollment and recognition of student
// faces. Enrollment and deletion are serialized per student; recognition
// runs lock free against the shared index.
type RecognitionService struct {
	detector media.FaceDetector
	quality  media.QualityScorer
	pose     media.PoseEstimator
	liveness media.LivenessScorer

	studentRepo   repository.StudentRepositoryInterface
	encodingRepo  repository.FaceEncodingRepositoryInterface
	centroidRepo  repository.CentroidRepositoryInterface
	centroids     *CentroidManager
	adaptive      *AdaptiveLearner
	index         *EmbeddingIndex
	store         media.Store

	studentLocks *utils.KeyedMutex

	toggleMu        sync.RWMutex
	livenessEnabled bool
	adaptiveEnabled bool
}

// NewRecognitionService creates a recognition service. store may be nil to
// disable snapshot and crop persistence.
func NewRecognitionService(
	detector media.FaceDetector,
	quality media.QualityScorer,
	pose media.PoseEstimator,
	liveness media.LivenessScorer,
	studentRepo repository.StudentRepositoryInterface,
	encodingRepo repository.FaceEncodingRepositoryInterface,
	centroidRepo repository.CentroidRepositoryInterface,
	adaptiveRepo repository.AdaptiveCandidateRepositoryInterface,
	store media.Store,
) *RecognitionService {
	return &RecognitionService{
		detector:        detector,
		quality:         quality,
		pose:            pose,
		liveness:        liveness,
		studentRepo:     studentRepo,
		encodingRepo:    encodingRepo,
		centroidRepo:    centroidRepo,
		centroids:       NewCentroidManager(centroidRepo, encodingRepo),
		adaptive:        NewAdaptiveLearner(adaptiveRepo),
		index:           NewEmbeddingIndex(),
		store:           store,
		studentLocks:    utils.NewKeyedMutex(),
		livenessEnabled: false,
		adaptiveEnabled: false,
	}
}

// SetLivenessEnabled toggles the liveness gate on recognition
func (s *RecognitionService) SetLivenessEnabled(enabled bool) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	s.livenessEnabled = enabled
}

// LivenessEnabled reports whether the liveness gate is active
func (s *RecognitionService) LivenessEnabled() bool {
	s.toggleMu.RLock()
	defer s.toggleMu.RUnlock()
	return s.livenessEnabled
}

// SetAdaptiveEnabled toggles adaptive learning on recognition
func (s *RecognitionService) SetAdaptiveEnabled(enabled bool) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()
	s.adaptiveEnabled = enabled
}

// AdaptiveEnabled reports whether adaptive learning is active
func (s *RecognitionService) AdaptiveEnabled() bool {
	s.toggleMu.RLock()
	defer s.toggleMu.RUnlock()
	return s.adaptiveEnabled
}

// RebuildIndex reloads every stored encoding into the candidate index.
// Called at startup and after deletions.
func (s *RecognitionService) RebuildIndex() error {
	encodings, err := s.encodingRepo.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list encodings for index rebuild: %w", err)
	}
	s.index.BuildFromEncodings(encodings)
	log.Printf("recognition: rebuilt candidate index with %d encodings", len(encodings))
	return nil
}

// EnrollFaceData decodes raw image bytes and enrolls the contained face
// for the student
func (s *RecognitionService) EnrollFaceData(studentID uint, data []byte) (*EnrollmentResult, error) {
	if _, err := s.studentRepo.GetByID(studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student %d: %w", studentID, err)
	}

	img, err := media.DecodeImage(data)
	if err != nil {
		return &EnrollmentResult{
			Accepted: false,
			Reason:   RejectDecodeFailure,
			Detail:   "image data could not be decoded",
		}, nil
	}

	return s.EnrollFace(studentID, img)
}

// EnrollFace runs the full enrollment pipeline for a decoded image:
// detection, quality gate, duplicate check, liveness, pose classification
// and storage, followed by a synchronous centroid recompute
func (s *RecognitionService) EnrollFace(studentID uint, img image.Image) (*EnrollmentResult, error) {
	s.studentLocks.Lock(studentID)
	defer s.studentLocks.Unlock(studentID)

	detections, err := s.detector.DetectFaces(img)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(detections) == 0 {
		return &EnrollmentResult{Accepted: false, Reason: RejectNoFaceDetected, Detail: "no face found in image"}, nil
	}

	det := detections[0]
	metrics := s.quality.Analyze(img, det.Box, det.Confidence, len(detections))
	if ok, issue, detail := s.quality.IsAcceptable(metrics); !ok {
		return &EnrollmentResult{
			Accepted:     false,
			Reason:       rejectReasonForQualityIssue(issue),
			Detail:       detail,
			QualityScore: metrics.OverallScore,
		}, nil
	}

	existing, err := s.encodingRepo.ListByStudentID(studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list encodings for student %d: %w", studentID, err)
	}

	if !CanEnrollMore(len(existing)) {
		return &EnrollmentResult{
			Accepted:     false,
			Reason:       RejectEnrollmentLimit,
			Detail:       fmt.Sprintf("student already has %d encodings", len(existing)),
			QualityScore: metrics.OverallScore,
		}, nil
	}

	if IsDuplicate(det.Embedding, existing) {
		return &EnrollmentResult{
			Accepted:     false,
			Reason:       RejectDuplicateImage,
			Detail:       "image is too similar to an existing enrollment",
			QualityScore: metrics.OverallScore,
		}, nil
	}

	livenessChecked := s.LivenessEnabled()
	var livenessScore float64
	if livenessChecked {
		livenessScore = s.liveness.CheckLiveness(img, det.Box)
		if !s.liveness.IsLive(livenessScore) {
			return &EnrollmentResult{
				Accepted:        false,
				Reason:          RejectLivenessFailed,
				Detail:          fmt.Sprintf("liveness score %.2f below threshold", livenessScore),
				QualityScore:    metrics.OverallScore,
				LivenessChecked: true,
				LivenessScore:   livenessScore,
			}, nil
		}
	}

	poseInfo := s.pose.Classify(det.Landmarks)
	poseCategory := string(poseInfo.Category)

	encoding := &models.FaceEncoding{
		StudentID:    studentID,
		QualityScore: metrics.OverallScore,
		PoseCategory: &poseCategory,
		IsAdaptive:   false,
		CreatedAt:    time.Now().Unix(),
		UpdatedAt:    time.Now().Unix(),
	}
	encoding.SetEmbedding(det.Embedding)

	if err := s.encodingRepo.Create(encoding); err != nil {
		return nil, fmt.Errorf("failed to store encoding for student %d: %w", studentID, err)
	}

	if err := s.centroids.UpdateForStudent(studentID); err != nil {
		return nil, err
	}
	s.index.Add(encoding.ID, studentID, det.Embedding)

	result := &EnrollmentResult{
		Accepted:        true,
		EncodingID:      encoding.ID,
		QualityScore:    metrics.OverallScore,
		PoseCategory:    poseCategory,
		LivenessChecked: livenessChecked,
		LivenessScore:   livenessScore,
	}

	if s.store != nil {
		crop := media.CropFace(img, det.Box)
		cropPath, err := s.store.SaveJPEG(media.AssetTypeEnrollmentCrop, fmt.Sprintf("%d", studentID), crop)
		if err != nil {
			log.Printf("recognition: failed to save enrollment crop for student %d: %v", studentID, err)
		} else {
			result.CropPath = cropPath
		}
	}

	metricsAfter, err := s.enrollmentMetricsLocked(studentID)
	if err != nil {
		log.Printf("recognition: failed to compute metrics for student %d: %v", studentID, err)
	} else {
		result.Metrics = metricsAfter
	}

	return result, nil
}

func rejectReasonForQualityIssue(issue media.QualityIssue) RejectReason {
	switch issue {
	case media.QualityIssueMultipleFaces:
		return RejectMultipleFaces
	case media.QualityIssueFaceTooSmall:
		return RejectFaceTooSmall
	default:
		return RejectQualityTooLow
	}
}

// Recognize matches the given image against enrolled students. When
// multiple faces are present the most confident detection is used.
func (s *RecognitionService) Recognize(data []byte) (*RecognitionResult, error) {
	img, err := media.DecodeImage(data)
	if err != nil {
		return &RecognitionResult{Matched: false, Reason: RejectDecodeFailure}, nil
	}
	return s.RecognizeImage(img)
}

// RecognizeImage runs recognition on a decoded image
func (s *RecognitionService) RecognizeImage(img image.Image) (*RecognitionResult, error) {
	detections, err := s.detector.DetectFaces(img)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(detections) == 0 {
		return &RecognitionResult{Matched: false, Reason: RejectNoFaceDetected}, nil
	}

	det := detections[0]
	for i := 1; i < len(detections); i++ {
		if detections[i].Confidence > det.Confidence {
			det = detections[i]
		}
	}

	result := &RecognitionResult{Threshold: ThresholdDefault}

	if s.LivenessEnabled() {
		score := s.liveness.CheckLiveness(img, det.Box)
		result.LivenessChecked = true
		result.LivenessScore = score
		if !s.liveness.IsLive(score) {
			result.Reason = RejectLivenessFailed
			return result, nil
		}
	}

	match, err := s.matchEmbedding(det.Embedding)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return result, nil
	}

	result.Matched = true
	result.StudentID = match.studentID
	result.Distance = match.distance
	result.Threshold = match.threshold
	result.CentroidUsed = match.centroidUsed
	result.Confidence = clampConfidence(1 - match.distance)

	if student, err := s.studentRepo.GetByID(match.studentID); err == nil {
		result.StudentCode = student.Code
	}

	if s.AdaptiveEnabled() {
		promoted, err := s.adaptive.RecordRecognition(match.studentID, det.Embedding, result.Confidence)
		if err != nil {
			log.Printf("recognition: adaptive tracking failed for student %d: %v", match.studentID, err)
		} else if promoted != nil {
			if err := s.promoteEmbedding(match.studentID, promoted, result.Confidence); err != nil {
				log.Printf("recognition: adaptive promotion failed for student %d: %v", match.studentID, err)
			} else {
				result.AdaptivePromotion = true
			}
		}
	}

	return result, nil
}

type matchCandidate struct {
	studentID    uint
	distance     float64
	threshold    float64
	centroidUsed bool
}

// matchEmbedding scores the query against candidate students and picks the
// single nearest one by final distance. Only that student's own adaptive
// threshold decides acceptance; a farther student is never reported just
// because its threshold is laxer. Returns nil when the nearest candidate
// does not clear its threshold.
func (s *RecognitionService) matchEmbedding(query []float32) (*matchCandidate, error) {
	candidateIDs := s.index.CandidateStudents(query, candidateSearchK)
	var centroidsToCheck []models.UserCentroid

	if candidateIDs == nil {
		all, err := s.centroidRepo.ListAll()
		if err != nil {
			return nil, fmt.Errorf("failed to list centroids: %w", err)
		}
		centroidsToCheck = all
	} else {
		for _, id := range candidateIDs {
			centroid, err := s.centroidRepo.GetByStudentID(id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return nil, fmt.Errorf("failed to load centroid for student %d: %w", id, err)
			}
			centroidsToCheck = append(centroidsToCheck, *centroid)
		}
	}

	var best *matchCandidate
	for i := range centroidsToCheck {
		centroid := &centroidsToCheck[i]

		centroidDist := CosineDistance(query, centroid.GetCentroid())

		// the final distance is the better of the centroid distance and
		// the closest individual encoding
		finalDist := centroidDist
		centroidUsed := true
		encodings, err := s.encodingRepo.ListByStudentID(centroid.StudentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list encodings for student %d: %w", centroid.StudentID, err)
		}
		for j := range encodings {
			if d := CosineDistance(query, encodings[j].GetEmbedding()); d < finalDist {
				finalDist = d
				centroidUsed = false
			}
		}

		if best == nil || finalDist < best.distance {
			best = &matchCandidate{
				studentID:    centroid.StudentID,
				distance:     finalDist,
				threshold:    thresholdFor(centroid.EmbeddingCount, centroid.AvgQualityScore),
				centroidUsed: centroidUsed,
			}
		}
	}

	// a distance exactly at the threshold still matches
	if best == nil || best.distance > best.threshold {
		return nil, nil
	}
	return best, nil
}

// thresholdFor picks the adaptive match threshold from the student's
// enrollment depth and quality
func thresholdFor(encodingCount int, avgQuality float64) float64 {
	if encodingCount >= tightMinEncodings && avgQuality >= tightMinAvgQuality {
		return ThresholdTight
	}
	if encodingCount < relaxedMaxEncodings {
		return ThresholdRelaxed
	}
	return ThresholdDefault
}

// GetAdaptiveThreshold returns the current match threshold for a student.
// Students without any stored centroid get the relaxed threshold.
func (s *RecognitionService) GetAdaptiveThreshold(studentID uint) (float64, error) {
	centroid, err := s.centroids.GetCentroid(studentID)
	if err != nil {
		return 0, err
	}
	if centroid == nil {
		return ThresholdRelaxed, nil
	}
	return thresholdFor(centroid.EmbeddingCount, centroid.AvgQualityScore), nil
}

// replacementVictim picks the encoding to evict when promoting into a full
// gallery: the lowest-quality manual enrollment, oldest first on ties.
// Adaptive samples are evicted only when no manual enrollment remains.
// The list is ordered by creation time ascending and is never empty here.
func replacementVictim(encodings []models.FaceEncoding) *models.FaceEncoding {
	var victim *models.FaceEncoding
	for i := range encodings {
		if encodings[i].IsAdaptive {
			continue
		}
		if victim == nil || encodings[i].QualityScore < victim.QualityScore {
			victim = &encodings[i]
		}
	}
	if victim != nil {
		return victim
	}
	for i := range encodings {
		if victim == nil || encodings[i].QualityScore < victim.QualityScore {
			victim = &encodings[i]
		}
	}
	return victim
}

// promoteEmbedding adds a promoted adaptive embedding to the student's
// gallery, evicting the replacement victim when the gallery is full.
func (s *RecognitionService) promoteEmbedding(studentID uint, embedding []float32, confidence float64) error {
	s.studentLocks.Lock(studentID)
	defer s.studentLocks.Unlock(studentID)

	existing, err := s.encodingRepo.ListByStudentID(studentID)
	if err != nil {
		return fmt.Errorf("failed to list encodings for student %d: %w", studentID, err)
	}

	rebuild := false
	if !CanEnrollMore(len(existing)) {
		victim := replacementVictim(existing)
		if err := s.encodingRepo.Delete(victim.ID); err != nil {
			return fmt.Errorf("failed to replace encoding %d: %w", victim.ID, err)
		}
		rebuild = true
	}

	encoding := &models.FaceEncoding{
		StudentID:    studentID,
		QualityScore: confidence,
		IsAdaptive:   true,
		CreatedAt:    time.Now().Unix(),
		UpdatedAt:    time.Now().Unix(),
	}
	encoding.SetEmbedding(embedding)

	if err := s.encodingRepo.Create(encoding); err != nil {
		return fmt.Errorf("failed to store adaptive encoding for student %d: %w", studentID, err)
	}

	if err := s.centroids.UpdateForStudent(studentID); err != nil {
		return err
	}

	if rebuild {
		if err := s.RebuildIndex(); err != nil {
			return err
		}
	} else {
		s.index.Add(encoding.ID, studentID, embedding)
	}

	log.Printf("recognition: promoted adaptive encoding %d for student %d (confidence %.3f)", encoding.ID, studentID, confidence)
	return nil
}

// GetEnrollmentMetrics summarizes the student's enrollment state
func (s *RecognitionService) GetEnrollmentMetrics(studentID uint) (*EnrollmentMetrics, error) {
	if _, err := s.studentRepo.GetByID(studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student %d: %w", studentID, err)
	}
	return s.enrollmentMetricsLocked(studentID)
}

func (s *RecognitionService) enrollmentMetricsLocked(studentID uint) (*EnrollmentMetrics, error) {
	encodings, err := s.encodingRepo.ListByStudentID(studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list encodings for student %d: %w", studentID, err)
	}

	metrics := &EnrollmentMetrics{
		StudentID:     studentID,
		EncodingCount: len(encodings),
		MissingPoses:  media.AllPoseCategoryNames(),
	}

	if len(encodings) == 0 {
		metrics.NeedsReEnrollment = true
		return metrics, nil
	}

	var qualitySum float64
	var lastUpdated int64
	captured := map[string]bool{}
	for i := range encodings {
		qualitySum += encodings[i].QualityScore
		if encodings[i].IsAdaptive {
			metrics.AdaptiveCount++
		}
		if encodings[i].PoseCategory != nil {
			captured[*encodings[i].PoseCategory] = true
		}
		if encodings[i].UpdatedAt > lastUpdated {
			lastUpdated = encodings[i].UpdatedAt
		}
	}

	metrics.AvgQuality = qualitySum / float64(len(encodings))
	metrics.LastUpdated = lastUpdated
	metrics.PoseCoverage = make([]string, 0, len(captured))
	metrics.MissingPoses = nil
	for _, pose := range media.AllPoseCategoryNames() {
		if captured[pose] {
			metrics.PoseCoverage = append(metrics.PoseCoverage, pose)
		} else {
			metrics.MissingPoses = append(metrics.MissingPoses, pose)
		}
	}

	metrics.EnrollmentComplete = len(metrics.PoseCoverage) >= enrollmentCompletePoses
	metrics.NeedsReEnrollment = metrics.AvgQuality < reEnrollMinAvgQuality ||
		len(metrics.MissingPoses) > reEnrollMaxMissingPoses

	return metrics, nil
}

// DeleteEncoding removes a single encoding owned by the student and
// recomputes the centroid
func (s *RecognitionService) DeleteEncoding(studentID, encodingID uint) error {
	s.studentLocks.Lock(studentID)
	defer s.studentLocks.Unlock(studentID)

	encoding, err := s.encodingRepo.GetByID(encodingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("encoding %d not found", encodingID)
		}
		return fmt.Errorf("failed to load encoding %d: %w", encodingID, err)
	}
	if encoding.StudentID != studentID {
		return fmt.Errorf("encoding %d does not belong to student %d", encodingID, studentID)
	}

	if err := s.encodingRepo.Delete(encodingID); err != nil {
		return fmt.Errorf("failed to delete encoding %d: %w", encodingID, err)
	}

	if err := s.centroids.UpdateForStudent(studentID); err != nil {
		return err
	}
	return s.RebuildIndex()
}

// DeleteStudentData removes all face data for a student. The student row
// itself is left to the caller.
func (s *RecognitionService) DeleteStudentData(studentID uint) error {
	s.studentLocks.Lock(studentID)
	defer s.studentLocks.Unlock(studentID)

	if err := s.encodingRepo.DeleteByStudentID(studentID); err != nil {
		return fmt.Errorf("failed to delete encodings for student %d: %w", studentID, err)
	}
	if err := s.centroidRepo.DeleteByStudentID(studentID); err != nil {
		return fmt.Errorf("failed to delete centroid for student %d: %w", studentID, err)
	}
	if err := s.adaptive.Reset(studentID); err != nil {
		return fmt.Errorf("failed to delete adaptive candidate for student %d: %w", studentID, err)
	}
	return s.RebuildIndex()
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
