package services

import (
	"math"
	"testing"
	"time"

	"github.com/calebwray/attendsysbackend/models"
)

func TestComputeCentroid(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := ComputeCentroid(nil); got != nil {
			t.Errorf("ComputeCentroid(nil) = %v, want nil", got)
		}
	})

	t.Run("inconsistent dimensions", func(t *testing.T) {
		got := ComputeCentroid([][]float32{{1, 0}, {1, 0, 0}})
		if got != nil {
			t.Errorf("ComputeCentroid with mixed dims = %v, want nil", got)
		}
	})

	t.Run("single vector is normalized", func(t *testing.T) {
		got := ComputeCentroid([][]float32{{3, 4}})
		want := []float32{0.6, 0.8}
		for i := range want {
			if math.Abs(float64(got[i]-want[i])) > 1e-6 {
				t.Errorf("centroid[%d] = %f, want %f", i, got[i], want[i])
			}
		}
	})

	t.Run("mean of opposing axes", func(t *testing.T) {
		got := ComputeCentroid([][]float32{{1, 0}, {0, 1}})
		inv := float32(1 / math.Sqrt2)
		for i, want := range []float32{inv, inv} {
			if math.Abs(float64(got[i]-want)) > 1e-6 {
				t.Errorf("centroid[%d] = %f, want %f", i, got[i], want)
			}
		}
	})

	t.Run("unit norm", func(t *testing.T) {
		got := ComputeCentroid([][]float32{{2, 3, 1}, {-1, 4, 2}, {0, 1, 5}})
		var norm float64
		for _, v := range got {
			norm += float64(v) * float64(v)
		}
		if math.Abs(math.Sqrt(norm)-1) > 1e-6 {
			t.Errorf("centroid norm = %f, want 1", math.Sqrt(norm))
		}
	})
}

func TestUpdateForStudent(t *testing.T) {
	encodingRepo := newFakeEncodingRepo()
	centroidRepo := newFakeCentroidRepo()
	cm := NewCentroidManager(centroidRepo, encodingRepo)

	front := "front"
	left := "left_30"
	for i, sample := range []struct {
		emb     []float32
		quality float64
		pose    *string
	}{
		{[]float32{1, 0}, 0.9, &front},
		{[]float32{0, 1}, 0.7, &left},
	} {
		enc := &models.FaceEncoding{
			StudentID:    1,
			QualityScore: sample.quality,
			PoseCategory: sample.pose,
			CreatedAt:    time.Now().Unix() + int64(i),
		}
		enc.SetEmbedding(sample.emb)
		if err := encodingRepo.Create(enc); err != nil {
			t.Fatalf("create encoding: %v", err)
		}
	}

	if err := cm.UpdateForStudent(1); err != nil {
		t.Fatalf("UpdateForStudent: %v", err)
	}

	centroid, err := cm.GetCentroid(1)
	if err != nil {
		t.Fatalf("GetCentroid: %v", err)
	}
	if centroid == nil {
		t.Fatal("GetCentroid returned nil after update")
	}
	if centroid.EmbeddingCount != 2 {
		t.Errorf("EmbeddingCount = %d, want 2", centroid.EmbeddingCount)
	}
	if math.Abs(centroid.AvgQualityScore-0.8) > 1e-9 {
		t.Errorf("AvgQualityScore = %f, want 0.8", centroid.AvgQualityScore)
	}

	poses := centroid.GetPoseCoverage()
	if len(poses) != 2 {
		t.Errorf("pose coverage = %v, want 2 categories", poses)
	}

	vec := centroid.GetCentroid()
	inv := float32(1 / math.Sqrt2)
	for i, want := range []float32{inv, inv} {
		if math.Abs(float64(vec[i]-want)) > 1e-6 {
			t.Errorf("centroid[%d] = %f, want %f", i, vec[i], want)
		}
	}
}

func TestUpdateForStudentRemovesEmptyCentroid(t *testing.T) {
	encodingRepo := newFakeEncodingRepo()
	centroidRepo := newFakeCentroidRepo()
	cm := NewCentroidManager(centroidRepo, encodingRepo)

	enc := &models.FaceEncoding{StudentID: 7, QualityScore: 0.9}
	enc.SetEmbedding([]float32{1, 0})
	if err := encodingRepo.Create(enc); err != nil {
		t.Fatalf("create encoding: %v", err)
	}
	if err := cm.UpdateForStudent(7); err != nil {
		t.Fatalf("UpdateForStudent: %v", err)
	}

	if err := encodingRepo.DeleteByStudentID(7); err != nil {
		t.Fatalf("delete encodings: %v", err)
	}
	if err := cm.UpdateForStudent(7); err != nil {
		t.Fatalf("UpdateForStudent after delete: %v", err)
	}

	centroid, err := cm.GetCentroid(7)
	if err != nil {
		t.Fatalf("GetCentroid: %v", err)
	}
	if centroid != nil {
		t.Errorf("expected centroid removed, got %+v", centroid)
	}
}
