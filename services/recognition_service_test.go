package services

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/calebwray/attendsysbackend/media"
	"github.com/calebwray/attendsysbackend/models"
)

type serviceFixture struct {
	svc          *RecognitionService
	detector     *fakeDetector
	studentRepo  *fakeStudentRepo
	encodingRepo *fakeEncodingRepo
	centroidRepo *fakeCentroidRepo
	adaptiveRepo *fakeAdaptiveRepo
}

// newFixture builds a service whose quality score equals the detection
// confidence, keeping enrollment outcomes controllable from the fake
// detector alone
func newFixture() *serviceFixture {
	f := &serviceFixture{
		detector:     &fakeDetector{},
		studentRepo:  newFakeStudentRepo(),
		encodingRepo: newFakeEncodingRepo(),
		centroidRepo: newFakeCentroidRepo(),
		adaptiveRepo: newFakeAdaptiveRepo(),
	}
	quality := media.NewQualityAnalyzer(media.QualityWeights{Confidence: 1}, 0.6, 0.10)
	f.svc = NewRecognitionService(
		f.detector,
		quality,
		media.NewPoseClassifier(),
		media.NewLivenessDetector(),
		f.studentRepo,
		f.encodingRepo,
		f.centroidRepo,
		f.adaptiveRepo,
		nil,
	)
	return f
}

func (f *serviceFixture) addStudent(t *testing.T, code string) uint {
	t.Helper()
	student := &models.Student{Code: code, FullName: "Student " + code}
	if err := f.studentRepo.Create(student); err != nil {
		t.Fatalf("create student: %v", err)
	}
	return student.ID
}

func testFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	return img
}

func TestEnrollFaceDataStudentNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.EnrollFaceData(42, []byte{0x01})
	if !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("EnrollFaceData for unknown student: err = %v, want ErrStudentNotFound", err)
	}
}

func TestEnrollFaceDataDecodeFailure(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	result, err := f.svc.EnrollFaceData(studentID, []byte("not an image"))
	if err != nil {
		t.Fatalf("EnrollFaceData: %v", err)
	}
	if result.Accepted || result.Reason != RejectDecodeFailure {
		t.Errorf("result = %+v, want rejection with reason %q", result, RejectDecodeFailure)
	}
}

func TestEnrollAccepted(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")
	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}

	result, err := f.svc.EnrollFace(studentID, testFrame())
	if err != nil {
		t.Fatalf("EnrollFace: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("enrollment rejected: %s (%s)", result.Reason, result.Detail)
	}
	if result.PoseCategory != string(media.PoseFront) {
		t.Errorf("PoseCategory = %q, want %q", result.PoseCategory, media.PoseFront)
	}
	if result.Metrics == nil || result.Metrics.EncodingCount != 1 {
		t.Errorf("metrics = %+v, want encoding count 1", result.Metrics)
	}
	if result.Metrics.EnrollmentComplete {
		t.Error("enrollment complete after a single pose")
	}
	if !result.Metrics.NeedsReEnrollment {
		t.Error("one frontal capture should still need re-enrollment")
	}

	centroid, err := f.centroidRepo.GetByStudentID(studentID)
	if err != nil {
		t.Fatalf("centroid not stored: %v", err)
	}
	if centroid.EmbeddingCount != 1 {
		t.Errorf("centroid EmbeddingCount = %d, want 1", centroid.EmbeddingCount)
	}
}

func TestEnrollRejections(t *testing.T) {
	smallBox := singleFace([]float32{1, 0, 0})
	smallBox.Box = media.BoundingBox{X1: 45, Y1: 45, X2: 65, Y2: 65}

	lowConfidence := singleFace([]float32{1, 0, 0})
	lowConfidence.Confidence = 0.3

	tests := []struct {
		name       string
		detections []media.Detection
		want       RejectReason
	}{
		{"no face", nil, RejectNoFaceDetected},
		{
			"multiple faces",
			[]media.Detection{singleFace([]float32{1, 0, 0}), singleFace([]float32{0, 1, 0})},
			RejectMultipleFaces,
		},
		{"low quality", []media.Detection{lowConfidence}, RejectQualityTooLow},
		{"face too small", []media.Detection{smallBox}, RejectFaceTooSmall},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			studentID := f.addStudent(t, "S001")
			f.detector.detections = tc.detections

			result, err := f.svc.EnrollFace(studentID, testFrame())
			if err != nil {
				t.Fatalf("EnrollFace: %v", err)
			}
			if result.Accepted || result.Reason != tc.want {
				t.Errorf("result = (accepted=%v, reason=%q), want rejection %q", result.Accepted, result.Reason, tc.want)
			}
		})
	}
}

func TestEnrollDuplicateImage(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")
	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}

	if result, err := f.svc.EnrollFace(studentID, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("first enrollment failed: result=%+v err=%v", result, err)
	}

	result, err := f.svc.EnrollFace(studentID, testFrame())
	if err != nil {
		t.Fatalf("EnrollFace: %v", err)
	}
	if result.Accepted || result.Reason != RejectDuplicateImage {
		t.Errorf("second identical enrollment = %+v, want %q rejection", result, RejectDuplicateImage)
	}
}

func TestEnrollLimitReached(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	for i := 0; i < MaxEnrollments; i++ {
		enc := &models.FaceEncoding{StudentID: studentID, QualityScore: 0.9}
		enc.SetEmbedding([]float32{float32(i + 1), 1, 0})
		if err := f.encodingRepo.Create(enc); err != nil {
			t.Fatalf("seed encoding: %v", err)
		}
	}

	f.detector.detections = []media.Detection{singleFace([]float32{0, 0, 1})}
	result, err := f.svc.EnrollFace(studentID, testFrame())
	if err != nil {
		t.Fatalf("EnrollFace: %v", err)
	}
	if result.Accepted || result.Reason != RejectEnrollmentLimit {
		t.Errorf("result = %+v, want %q rejection", result, RejectEnrollmentLimit)
	}
}

func TestThresholdTiers(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		avgQuality float64
		want       float64
	}{
		{"well enrolled", 6, 0.9, ThresholdTight},
		{"exactly at tight boundary", 5, 0.8, ThresholdTight},
		{"enough encodings but low quality", 5, 0.79, ThresholdDefault},
		{"mid enrollment", 3, 0.5, ThresholdDefault},
		{"sparse", 2, 0.95, ThresholdRelaxed},
		{"single encoding", 1, 1.0, ThresholdRelaxed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := thresholdFor(tc.count, tc.avgQuality)
			if got != tc.want {
				t.Errorf("thresholdFor(%d, %.2f) = %.2f, want %.2f", tc.count, tc.avgQuality, got, tc.want)
			}
		})
	}
}

func TestGetAdaptiveThresholdWithoutCentroid(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	got, err := f.svc.GetAdaptiveThreshold(studentID)
	if err != nil {
		t.Fatalf("GetAdaptiveThreshold: %v", err)
	}
	if got != ThresholdRelaxed {
		t.Errorf("threshold without centroid = %.2f, want %.2f", got, ThresholdRelaxed)
	}
}

func TestRecognizeMatchesEnrolledStudent(t *testing.T) {
	f := newFixture()
	alice := f.addStudent(t, "S001")
	bob := f.addStudent(t, "S002")

	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	if result, err := f.svc.EnrollFace(alice, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll alice: result=%+v err=%v", result, err)
	}
	f.detector.detections = []media.Detection{singleFace([]float32{0, 1, 0})}
	if result, err := f.svc.EnrollFace(bob, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll bob: result=%+v err=%v", result, err)
	}

	f.detector.detections = []media.Detection{singleFace([]float32{0.98, 0.05, 0})}
	result, err := f.svc.RecognizeImage(testFrame())
	if err != nil {
		t.Fatalf("RecognizeImage: %v", err)
	}
	if !result.Matched {
		t.Fatalf("no match, distance %.3f threshold %.3f", result.Distance, result.Threshold)
	}
	if result.StudentID != alice {
		t.Errorf("matched student %d, want %d", result.StudentID, alice)
	}
	if result.StudentCode != "S001" {
		t.Errorf("StudentCode = %q, want S001", result.StudentCode)
	}
	if result.Threshold != ThresholdRelaxed {
		t.Errorf("threshold = %.2f, want relaxed %.2f for a single encoding", result.Threshold, ThresholdRelaxed)
	}
}

func TestRecognizeNoMatch(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	if result, err := f.svc.EnrollFace(studentID, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll: result=%+v err=%v", result, err)
	}

	f.detector.detections = []media.Detection{singleFace([]float32{0, 0, 1})}
	result, err := f.svc.RecognizeImage(testFrame())
	if err != nil {
		t.Fatalf("RecognizeImage: %v", err)
	}
	if result.Matched {
		t.Errorf("matched with orthogonal embedding, distance %.3f", result.Distance)
	}
}

// seedGallery stores encodings and a matching centroid row directly,
// bypassing the enrollment gates
func seedGallery(t *testing.T, f *serviceFixture, studentID uint, quality float64, embeddings ...[]float32) {
	t.Helper()
	for i, emb := range embeddings {
		enc := &models.FaceEncoding{
			StudentID:    studentID,
			QualityScore: quality,
			CreatedAt:    int64(1000 + i),
		}
		enc.SetEmbedding(emb)
		if err := f.encodingRepo.Create(enc); err != nil {
			t.Fatalf("seed encoding: %v", err)
		}
	}
	centroid := &models.UserCentroid{
		StudentID:       studentID,
		EmbeddingCount:  len(embeddings),
		AvgQualityScore: quality,
	}
	centroid.SetCentroid(embeddings[0])
	if err := f.centroidRepo.Upsert(centroid); err != nil {
		t.Fatalf("seed centroid: %v", err)
	}
}

func TestMatchNearestStudentMustClearOwnThreshold(t *testing.T) {
	f := newFixture()
	alice := f.addStudent(t, "S001")
	bob := f.addStudent(t, "S002")

	query := []float32{1, 0}

	// alice is well enrolled (5 encodings, quality 0.9, tight threshold
	// 0.35) and is the nearest student at distance ~0.37; bob sits
	// farther at 0.40 but under his relaxed threshold of 0.45
	aliceNear := []float32{0.63, 0.7766}
	aliceFar := []float32{0.3, 0.9539}
	seedGallery(t, f, alice, 0.9, aliceFar, aliceFar, aliceFar, aliceFar, aliceNear)

	bobOnly := []float32{3, 4}
	seedGallery(t, f, bob, 0.9, bobOnly)

	distAlice := CosineDistance(query, aliceNear)
	distBob := CosineDistance(query, bobOnly)
	if distAlice <= ThresholdTight || distAlice >= distBob || distBob > ThresholdRelaxed {
		t.Fatalf("bad geometry: distAlice=%.4f distBob=%.4f", distAlice, distBob)
	}

	// the nearest student fails her own threshold, so nobody matches
	match, err := f.svc.matchEmbedding(query)
	if err != nil {
		t.Fatalf("matchEmbedding: %v", err)
	}
	if match != nil {
		t.Fatalf("matched student %d at distance %.4f, want no match", match.studentID, match.distance)
	}

	// with alice gone, bob is the nearest and clears his threshold
	if err := f.encodingRepo.DeleteByStudentID(alice); err != nil {
		t.Fatalf("delete encodings: %v", err)
	}
	if err := f.centroidRepo.DeleteByStudentID(alice); err != nil {
		t.Fatalf("delete centroid: %v", err)
	}
	match, err = f.svc.matchEmbedding(query)
	if err != nil {
		t.Fatalf("matchEmbedding: %v", err)
	}
	if match == nil || match.studentID != bob {
		t.Fatalf("match = %+v, want bob (%d)", match, bob)
	}
}

func TestMatchDistanceExactlyAtThreshold(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	// (3,4) against (1,0) gives a cosine distance of exactly 0.40, the
	// default threshold for a 3-encoding gallery of middling quality
	emb := []float32{3, 4}
	seedGallery(t, f, studentID, 0.5, emb, emb, emb)

	if d := CosineDistance([]float32{1, 0}, emb); d != ThresholdDefault {
		t.Fatalf("bad geometry: distance %.17f, want exactly %.2f", d, ThresholdDefault)
	}

	match, err := f.svc.matchEmbedding([]float32{1, 0})
	if err != nil {
		t.Fatalf("matchEmbedding: %v", err)
	}
	if match == nil {
		t.Fatal("distance equal to the threshold did not match")
	}
	if match.distance != ThresholdDefault || match.threshold != ThresholdDefault {
		t.Errorf("match = %+v, want distance and threshold both %.2f", match, ThresholdDefault)
	}
}

func TestEnrollLivenessRejection(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")
	f.svc.SetLivenessEnabled(true)
	f.svc.liveness = &stubLiveness{score: 0.2}
	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}

	result, err := f.svc.EnrollFace(studentID, testFrame())
	if err != nil {
		t.Fatalf("EnrollFace: %v", err)
	}
	if result.Accepted || result.Reason != RejectLivenessFailed {
		t.Errorf("result = %+v, want %q rejection", result, RejectLivenessFailed)
	}
	if !result.LivenessChecked || result.LivenessScore != 0.2 {
		t.Errorf("liveness fields = (%v, %.2f), want (true, 0.20)", result.LivenessChecked, result.LivenessScore)
	}

	// a score exactly at the threshold is live
	f.svc.liveness = &stubLiveness{score: 0.5}
	result, err = f.svc.EnrollFace(studentID, testFrame())
	if err != nil {
		t.Fatalf("EnrollFace: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("enrollment rejected at boundary liveness score: %s", result.Reason)
	}
	if !result.LivenessChecked || result.LivenessScore != 0.5 {
		t.Errorf("liveness fields = (%v, %.2f), want (true, 0.50)", result.LivenessChecked, result.LivenessScore)
	}
}

func TestRecognizeLivenessRejection(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	if result, err := f.svc.EnrollFace(studentID, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll: result=%+v err=%v", result, err)
	}

	f.svc.SetLivenessEnabled(true)
	f.svc.liveness = &stubLiveness{score: 0.3}

	result, err := f.svc.RecognizeImage(testFrame())
	if err != nil {
		t.Fatalf("RecognizeImage: %v", err)
	}
	if result.Matched || result.Reason != RejectLivenessFailed {
		t.Errorf("result = %+v, want %q rejection", result, RejectLivenessFailed)
	}
	if !result.LivenessChecked || result.LivenessScore != 0.3 {
		t.Errorf("liveness fields = (%v, %.2f), want (true, 0.30)", result.LivenessChecked, result.LivenessScore)
	}
}

func TestRecognizeNoFace(t *testing.T) {
	f := newFixture()
	result, err := f.svc.RecognizeImage(testFrame())
	if err != nil {
		t.Fatalf("RecognizeImage: %v", err)
	}
	if result.Matched || result.Reason != RejectNoFaceDetected {
		t.Errorf("result = %+v, want no-face rejection", result)
	}
}

func TestRecognizeUsesBestIndividualDistance(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	if result, err := f.svc.EnrollFace(studentID, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll first: result=%+v err=%v", result, err)
	}
	f.detector.detections = []media.Detection{singleFace([]float32{0, 1, 0})}
	if result, err := f.svc.EnrollFace(studentID, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll second: result=%+v err=%v", result, err)
	}

	// the query sits exactly on one stored encoding; the centroid sits
	// between the two, so the individual distance must win
	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	result, err := f.svc.RecognizeImage(testFrame())
	if err != nil {
		t.Fatalf("RecognizeImage: %v", err)
	}
	if !result.Matched {
		t.Fatalf("no match, distance %.3f", result.Distance)
	}
	if result.CentroidUsed {
		t.Error("CentroidUsed = true, want individual encoding to provide the final distance")
	}
	if result.Distance > 1e-6 {
		t.Errorf("distance = %f, want ~0", result.Distance)
	}
}

func TestRecognizeLivenessToggle(t *testing.T) {
	f := newFixture()
	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}

	result, err := f.svc.RecognizeImage(testFrame())
	if err != nil {
		t.Fatalf("RecognizeImage: %v", err)
	}
	if result.LivenessChecked {
		t.Error("liveness computed while disabled")
	}

	f.svc.SetLivenessEnabled(true)
	result, err = f.svc.RecognizeImage(testFrame())
	if err != nil {
		t.Fatalf("RecognizeImage: %v", err)
	}
	if !result.LivenessChecked {
		t.Error("LivenessChecked = false with liveness enabled")
	}
	if result.LivenessScore <= 0 || result.LivenessScore > 1 {
		t.Errorf("liveness score %f out of range", result.LivenessScore)
	}
}

func TestRecognizeAdaptivePromotion(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")
	f.svc.SetAdaptiveEnabled(true)

	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	if result, err := f.svc.EnrollFace(studentID, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll: result=%+v err=%v", result, err)
	}

	for i := 0; i < AdaptiveConsecutiveRequired; i++ {
		result, err := f.svc.RecognizeImage(testFrame())
		if err != nil {
			t.Fatalf("RecognizeImage %d: %v", i, err)
		}
		if !result.Matched {
			t.Fatalf("recognition %d missed", i)
		}
		wantPromotion := i == AdaptiveConsecutiveRequired-1
		if result.AdaptivePromotion != wantPromotion {
			t.Errorf("recognition %d: AdaptivePromotion = %v, want %v", i, result.AdaptivePromotion, wantPromotion)
		}
	}

	encodings, _ := f.encodingRepo.ListByStudentID(studentID)
	if len(encodings) != 2 {
		t.Fatalf("encoding count = %d, want 2 after promotion", len(encodings))
	}
	if !encodings[1].IsAdaptive {
		t.Error("promoted encoding not marked adaptive")
	}
}

func TestRecognizeAdaptiveDisabled(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")
	f.svc.SetAdaptiveEnabled(false)

	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	if result, err := f.svc.EnrollFace(studentID, testFrame()); err != nil || !result.Accepted {
		t.Fatalf("enroll: result=%+v err=%v", result, err)
	}

	for i := 0; i < AdaptiveConsecutiveRequired+1; i++ {
		result, err := f.svc.RecognizeImage(testFrame())
		if err != nil {
			t.Fatalf("RecognizeImage: %v", err)
		}
		if result.AdaptivePromotion {
			t.Fatal("adaptive promotion while learning is disabled")
		}
	}

	encodings, _ := f.encodingRepo.ListByStudentID(studentID)
	if len(encodings) != 1 {
		t.Errorf("encoding count = %d, want 1 with adaptive learning off", len(encodings))
	}
}

func TestPromoteEmbeddingEvictsLowestQualityManual(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	// the adaptive sample at 0.30 is worse than every manual one, but
	// manual enrollments are evicted first
	qualities := []float64{0.90, 0.30, 0.85, 0.55, 0.80, 0.75, 0.95, 0.70, 0.88, 0.92}
	for i := 0; i < MaxEnrollments; i++ {
		enc := &models.FaceEncoding{
			StudentID:    studentID,
			QualityScore: qualities[i],
			IsAdaptive:   i == 1,
			CreatedAt:    int64(1000 + i),
		}
		enc.SetEmbedding([]float32{float32(i + 1), 1, 0})
		if err := f.encodingRepo.Create(enc); err != nil {
			t.Fatalf("seed encoding: %v", err)
		}
	}

	if err := f.svc.promoteEmbedding(studentID, []float32{0, 0, 1}, 0.97); err != nil {
		t.Fatalf("promoteEmbedding: %v", err)
	}

	encodings, _ := f.encodingRepo.ListByStudentID(studentID)
	if len(encodings) != MaxEnrollments {
		t.Fatalf("encoding count = %d, want %d after replacement", len(encodings), MaxEnrollments)
	}

	adaptiveCount := 0
	for i := range encodings {
		if encodings[i].IsAdaptive {
			adaptiveCount++
		}
		if encodings[i].CreatedAt == 1003 {
			t.Error("lowest-quality manual encoding was not evicted")
		}
	}
	if adaptiveCount != 2 {
		t.Errorf("adaptive count = %d, want 2", adaptiveCount)
	}
}

func TestPromoteEmbeddingEvictionTieBreaksOldest(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	for i := 0; i < MaxEnrollments; i++ {
		quality := 0.9
		if i == 3 || i == 7 {
			quality = 0.5
		}
		enc := &models.FaceEncoding{
			StudentID:    studentID,
			QualityScore: quality,
			CreatedAt:    int64(1000 + i),
		}
		enc.SetEmbedding([]float32{float32(i + 1), 1, 0})
		if err := f.encodingRepo.Create(enc); err != nil {
			t.Fatalf("seed encoding: %v", err)
		}
	}

	if err := f.svc.promoteEmbedding(studentID, []float32{0, 0, 1}, 0.99); err != nil {
		t.Fatalf("promoteEmbedding: %v", err)
	}

	encodings, _ := f.encodingRepo.ListByStudentID(studentID)
	for i := range encodings {
		if encodings[i].CreatedAt == 1003 {
			t.Error("older of the tied lowest-quality encodings survived")
		}
	}
}

func TestPromoteEmbeddingFallsBackToAdaptive(t *testing.T) {
	f := newFixture()
	studentID := f.addStudent(t, "S001")

	for i := 0; i < MaxEnrollments; i++ {
		quality := 0.9
		if i == 5 {
			quality = 0.6
		}
		enc := &models.FaceEncoding{
			StudentID:    studentID,
			QualityScore: quality,
			IsAdaptive:   true,
			CreatedAt:    int64(1000 + i),
		}
		enc.SetEmbedding([]float32{float32(i + 1), 1, 0})
		if err := f.encodingRepo.Create(enc); err != nil {
			t.Fatalf("seed encoding: %v", err)
		}
	}

	if err := f.svc.promoteEmbedding(studentID, []float32{0, 0, 1}, 0.99); err != nil {
		t.Fatalf("promoteEmbedding: %v", err)
	}

	encodings, _ := f.encodingRepo.ListByStudentID(studentID)
	if len(encodings) != MaxEnrollments {
		t.Fatalf("encoding count = %d, want %d", len(encodings), MaxEnrollments)
	}
	for i := range encodings {
		if encodings[i].CreatedAt == 1005 {
			t.Error("lowest-quality adaptive encoding was not evicted")
		}
	}
}

func TestEnrollmentMetrics(t *testing.T) {
	front, left, right := "front", "left_30", "right_30"

	tests := []struct {
		name         string
		poses        []*string
		quality      float64
		wantComplete bool
		wantReEnroll bool
	}{
		{"three poses, good quality", []*string{&front, &left, &right}, 0.9, true, false},
		{"three poses, weak quality", []*string{&front, &left, &right}, 0.65, true, true},
		{"two poses", []*string{&front, &left}, 0.9, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			studentID := f.addStudent(t, "S001")
			for i, pose := range tc.poses {
				enc := &models.FaceEncoding{
					StudentID:    studentID,
					QualityScore: tc.quality,
					PoseCategory: pose,
					CreatedAt:    int64(1000 + i),
				}
				enc.SetEmbedding([]float32{float32(i + 1), 1, 0})
				if err := f.encodingRepo.Create(enc); err != nil {
					t.Fatalf("seed encoding: %v", err)
				}
			}

			metrics, err := f.svc.GetEnrollmentMetrics(studentID)
			if err != nil {
				t.Fatalf("GetEnrollmentMetrics: %v", err)
			}
			if metrics.EnrollmentComplete != tc.wantComplete {
				t.Errorf("EnrollmentComplete = %v, want %v", metrics.EnrollmentComplete, tc.wantComplete)
			}
			if metrics.NeedsReEnrollment != tc.wantReEnroll {
				t.Errorf("NeedsReEnrollment = %v, want %v", metrics.NeedsReEnrollment, tc.wantReEnroll)
			}
			if metrics.EncodingCount != len(tc.poses) {
				t.Errorf("EncodingCount = %d, want %d", metrics.EncodingCount, len(tc.poses))
			}
		})
	}
}

func TestDeleteEncoding(t *testing.T) {
	f := newFixture()
	alice := f.addStudent(t, "S001")
	bob := f.addStudent(t, "S002")

	f.detector.detections = []media.Detection{singleFace([]float32{1, 0, 0})}
	result, err := f.svc.EnrollFace(alice, testFrame())
	if err != nil || !result.Accepted {
		t.Fatalf("enroll: result=%+v err=%v", result, err)
	}

	if err := f.svc.DeleteEncoding(bob, result.EncodingID); err == nil {
		t.Error("deleting another student's encoding succeeded")
	}

	if err := f.svc.DeleteEncoding(alice, result.EncodingID); err != nil {
		t.Fatalf("DeleteEncoding: %v", err)
	}

	encodings, _ := f.encodingRepo.ListByStudentID(alice)
	if len(encodings) != 0 {
		t.Errorf("encoding count = %d, want 0", len(encodings))
	}
	if _, err := f.centroidRepo.GetByStudentID(alice); err == nil {
		t.Error("centroid still present after deleting the last encoding")
	}
}
