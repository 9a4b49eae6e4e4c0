package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/calebwray/attendsysbackend/models"
	"github.com/calebwray/attendsysbackend/repository"
)

// ComputeCentroid returns the unit-normalized mean of the given embeddings.
// Returns nil when there are no embeddings or their lengths disagree.
func ComputeCentroid(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}

	dim := len(embeddings[0])
	if dim == 0 {
		return nil
	}

	sum := make([]float64, dim)
	for _, emb := range embeddings {
		if len(emb) != dim {
			return nil
		}
		for i, v := range emb {
			sum[i] += float64(v)
		}
	}

	var norm float64
	n := float64(len(embeddings))
	for i := range sum {
		sum[i] /= n
		norm += sum[i] * sum[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}

	centroid := make([]float32, dim)
	for i := range sum {
		centroid[i] = float32(sum[i] / norm)
	}
	return centroid
}

// CentroidManager keeps per-student centroids in sync with stored encodings
type CentroidManager struct {
	centroidRepo repository.CentroidRepositoryInterface
	encodingRepo repository.FaceEncodingRepositoryInterface
}

func NewCentroidManager(centroidRepo repository.CentroidRepositoryInterface, encodingRepo repository.FaceEncodingRepositoryInterface) *CentroidManager {
	return &CentroidManager{centroidRepo: centroidRepo, encodingRepo: encodingRepo}
}

// UpdateForStudent recomputes the student's centroid from all stored
// encodings and persists it. If the student has no encodings left the
// centroid row is removed.
func (cm *CentroidManager) UpdateForStudent(studentID uint) error {
	encodings, err := cm.encodingRepo.ListByStudentID(studentID)
	if err != nil {
		return fmt.Errorf("failed to list encodings for student %d: %w", studentID, err)
	}

	if len(encodings) == 0 {
		if err := cm.centroidRepo.DeleteByStudentID(studentID); err != nil {
			return fmt.Errorf("failed to delete centroid for student %d: %w", studentID, err)
		}
		return nil
	}

	embeddings := make([][]float32, 0, len(encodings))
	var qualitySum float64
	poseSeen := map[string]bool{}
	for i := range encodings {
		embeddings = append(embeddings, encodings[i].GetEmbedding())
		qualitySum += encodings[i].QualityScore
		if encodings[i].PoseCategory != nil {
			poseSeen[*encodings[i].PoseCategory] = true
		}
	}

	centroidVec := ComputeCentroid(embeddings)
	if centroidVec == nil {
		return fmt.Errorf("failed to compute centroid for student %d: inconsistent embeddings", studentID)
	}

	poses := make([]string, 0, len(poseSeen))
	for pose := range poseSeen {
		poses = append(poses, pose)
	}

	centroid := &models.UserCentroid{
		StudentID:       studentID,
		EmbeddingCount:  len(encodings),
		AvgQualityScore: qualitySum / float64(len(encodings)),
		UpdatedAt:       time.Now().Unix(),
	}
	centroid.SetCentroid(centroidVec)
	centroid.SetPoseCoverage(poses)

	if err := cm.centroidRepo.Upsert(centroid); err != nil {
		return fmt.Errorf("failed to store centroid for student %d: %w", studentID, err)
	}
	return nil
}

// GetCentroid returns the student's centroid, or nil when none is stored
func (cm *CentroidManager) GetCentroid(studentID uint) (*models.UserCentroid, error) {
	centroid, err := cm.centroidRepo.GetByStudentID(studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get centroid for student %d: %w", studentID, err)
	}
	return centroid, nil
}
