package services

import (
	"testing"

	"github.com/calebwray/attendsysbackend/models"
)

func encodingWithEmbedding(studentID uint, emb []float32) models.FaceEncoding {
	enc := models.FaceEncoding{StudentID: studentID}
	enc.SetEmbedding(emb)
	return enc
}

func TestIsDuplicate(t *testing.T) {
	existing := []models.FaceEncoding{
		encodingWithEmbedding(1, []float32{1, 0, 0}),
		encodingWithEmbedding(1, []float32{0, 1, 0}),
	}

	t.Run("exact copy is duplicate", func(t *testing.T) {
		if !IsDuplicate([]float32{1, 0, 0}, existing) {
			t.Error("identical embedding not flagged as duplicate")
		}
	})

	t.Run("near copy is duplicate", func(t *testing.T) {
		// cosine distance to (1,0,0) is well under 0.15
		if !IsDuplicate([]float32{0.99, 0.05, 0}, existing) {
			t.Error("near-identical embedding not flagged as duplicate")
		}
	})

	t.Run("distinct embedding passes", func(t *testing.T) {
		if IsDuplicate([]float32{0, 0, 1}, existing) {
			t.Error("orthogonal embedding flagged as duplicate")
		}
	})

	t.Run("no existing encodings", func(t *testing.T) {
		if IsDuplicate([]float32{1, 0, 0}, nil) {
			t.Error("duplicate reported against empty gallery")
		}
	})
}

func TestCanEnrollMore(t *testing.T) {
	if !CanEnrollMore(0) {
		t.Error("CanEnrollMore(0) = false")
	}
	if !CanEnrollMore(MaxEnrollments - 1) {
		t.Errorf("CanEnrollMore(%d) = false", MaxEnrollments-1)
	}
	if CanEnrollMore(MaxEnrollments) {
		t.Errorf("CanEnrollMore(%d) = true", MaxEnrollments)
	}
}
