package services

import (
	"image"

	"gorm.io/gorm"

	"github.com/calebwray/attendsysbackend/media"
	"github.com/calebwray/attendsysbackend/models"
)

type fakeStudentRepo struct {
	students map[uint]*models.Student
	nextID   uint
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: make(map[uint]*models.Student), nextID: 1}
}

func (r *fakeStudentRepo) Create(s *models.Student) error {
	s.ID = r.nextID
	r.nextID++
	r.students[s.ID] = s
	return nil
}

func (r *fakeStudentRepo) GetByID(id uint) (*models.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeStudentRepo) GetByCode(code string) (*models.Student, error) {
	for _, s := range r.students {
		if s.Code == code {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStudentRepo) ListAll() ([]models.Student, error) {
	var out []models.Student
	for _, s := range r.students {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeStudentRepo) Update(s *models.Student) error {
	r.students[s.ID] = s
	return nil
}

func (r *fakeStudentRepo) Delete(id uint) error {
	delete(r.students, id)
	return nil
}

type fakeEncodingRepo struct {
	encodings []models.FaceEncoding
	nextID    uint
}

func newFakeEncodingRepo() *fakeEncodingRepo {
	return &fakeEncodingRepo{nextID: 1}
}

func (r *fakeEncodingRepo) Create(e *models.FaceEncoding) error {
	e.ID = r.nextID
	r.nextID++
	r.encodings = append(r.encodings, *e)
	return nil
}

func (r *fakeEncodingRepo) GetByID(id uint) (*models.FaceEncoding, error) {
	for i := range r.encodings {
		if r.encodings[i].ID == id {
			enc := r.encodings[i]
			return &enc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEncodingRepo) ListByStudentID(studentID uint) ([]models.FaceEncoding, error) {
	var out []models.FaceEncoding
	for i := range r.encodings {
		if r.encodings[i].StudentID == studentID {
			out = append(out, r.encodings[i])
		}
	}
	return out, nil
}

func (r *fakeEncodingRepo) CountByStudentID(studentID uint) (int64, error) {
	list, _ := r.ListByStudentID(studentID)
	return int64(len(list)), nil
}

func (r *fakeEncodingRepo) ListAll() ([]models.FaceEncoding, error) {
	out := make([]models.FaceEncoding, len(r.encodings))
	copy(out, r.encodings)
	return out, nil
}

func (r *fakeEncodingRepo) Delete(id uint) error {
	for i := range r.encodings {
		if r.encodings[i].ID == id {
			r.encodings = append(r.encodings[:i], r.encodings[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeEncodingRepo) DeleteByStudentID(studentID uint) error {
	var kept []models.FaceEncoding
	for i := range r.encodings {
		if r.encodings[i].StudentID != studentID {
			kept = append(kept, r.encodings[i])
		}
	}
	r.encodings = kept
	return nil
}

type fakeCentroidRepo struct {
	centroids map[uint]*models.UserCentroid
}

func newFakeCentroidRepo() *fakeCentroidRepo {
	return &fakeCentroidRepo{centroids: make(map[uint]*models.UserCentroid)}
}

func (r *fakeCentroidRepo) GetByStudentID(studentID uint) (*models.UserCentroid, error) {
	c, ok := r.centroids[studentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCentroidRepo) Upsert(c *models.UserCentroid) error {
	copied := *c
	r.centroids[c.StudentID] = &copied
	return nil
}

func (r *fakeCentroidRepo) DeleteByStudentID(studentID uint) error {
	delete(r.centroids, studentID)
	return nil
}

func (r *fakeCentroidRepo) ListAll() ([]models.UserCentroid, error) {
	var out []models.UserCentroid
	for _, c := range r.centroids {
		out = append(out, *c)
	}
	return out, nil
}

type fakeAdaptiveRepo struct {
	candidates map[uint]*models.AdaptiveCandidate
}

func newFakeAdaptiveRepo() *fakeAdaptiveRepo {
	return &fakeAdaptiveRepo{candidates: make(map[uint]*models.AdaptiveCandidate)}
}

func (r *fakeAdaptiveRepo) GetByStudentID(studentID uint) (*models.AdaptiveCandidate, error) {
	c, ok := r.candidates[studentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeAdaptiveRepo) Upsert(c *models.AdaptiveCandidate) error {
	copied := *c
	r.candidates[c.StudentID] = &copied
	return nil
}

func (r *fakeAdaptiveRepo) DeleteByStudentID(studentID uint) error {
	delete(r.candidates, studentID)
	return nil
}

// fakeDetector returns a fixed set of detections regardless of input
type fakeDetector struct {
	detections []media.Detection
	err        error
}

func (d *fakeDetector) DetectFaces(img image.Image) ([]media.Detection, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.detections, nil
}

func (d *fakeDetector) Close() {}

// stubLiveness returns a fixed liveness score regardless of input
type stubLiveness struct {
	score float64
}

func (s *stubLiveness) CheckLiveness(img image.Image, box media.BoundingBox) float64 {
	return s.score
}

func (s *stubLiveness) IsLive(score float64) bool {
	return score >= 0.5
}

// singleFace builds one confident detection covering a 40x40 region of a
// 100x100 frame with frontal landmark geometry
func singleFace(embedding []float32) media.Detection {
	return media.Detection{
		Box: media.BoundingBox{X1: 30, Y1: 30, X2: 70, Y2: 70},
		Landmarks: media.Landmarks{
			LeftEye:    media.Point2D{X: 40, Y: 42},
			RightEye:   media.Point2D{X: 60, Y: 42},
			Nose:       media.Point2D{X: 50, Y: 55},
			LeftMouth:  media.Point2D{X: 44, Y: 64},
			RightMouth: media.Point2D{X: 56, Y: 64},
		},
		Embedding:  embedding,
		Confidence: 0.99,
	}
}
