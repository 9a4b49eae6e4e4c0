package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/calebwray/attendsysbackend/realtime"
	"github.com/calebwray/attendsysbackend/repository"
	"github.com/calebwray/attendsysbackend/services"
)

type EnrollmentHandler struct {
	Service      *services.RecognitionService
	EncodingRepo repository.FaceEncodingRepositoryInterface
	Hub          *realtime.Hub
}

// Enroll accepts an image upload and runs the enrollment pipeline for the
// student. Rejections are returned with the reason; they are not errors.
func (eh *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	data, err := readImageUpload(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := eh.Service.EnrollFaceData(studentID, data)
	if err != nil {
		if errors.Is(err, services.ErrStudentNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		log.Printf("Error enrolling face for student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "enrollment failed")
		return
	}

	status := http.StatusCreated
	if !result.Accepted {
		status = statusForRejection(result.Reason)
	}

	if eh.Hub != nil && result.Accepted {
		eh.Hub.Broadcast(realtime.Event{
			Type:      realtime.EventTypeEnrollment,
			StudentID: studentID,
			Matched:   true,
			Timestamp: time.Now().Unix(),
		})
	}

	writeJSON(w, status, result)
}

// GetMetrics returns the student's enrollment coverage summary
func (eh *EnrollmentHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	metrics, err := eh.Service.GetEnrollmentMetrics(studentID)
	if err != nil {
		if errors.Is(err, services.ErrStudentNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		log.Printf("Error getting enrollment metrics for student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to get enrollment metrics")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

type encodingResponse struct {
	ID           uint    `json:"id"`
	QualityScore float64 `json:"quality_score"`
	PoseCategory string  `json:"pose_category,omitempty"`
	IsAdaptive   bool    `json:"is_adaptive"`
	CreatedAt    int64   `json:"created_at"`
}

// ListEncodings returns the student's stored encodings without embedding data
func (eh *EnrollmentHandler) ListEncodings(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	encodings, err := eh.EncodingRepo.ListByStudentID(studentID)
	if err != nil {
		log.Printf("Error listing encodings for student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list encodings")
		return
	}

	responses := make([]encodingResponse, len(encodings))
	for i := range encodings {
		responses[i] = encodingResponse{
			ID:           encodings[i].ID,
			QualityScore: encodings[i].QualityScore,
			IsAdaptive:   encodings[i].IsAdaptive,
			CreatedAt:    encodings[i].CreatedAt,
		}
		if encodings[i].PoseCategory != nil {
			responses[i].PoseCategory = *encodings[i].PoseCategory
		}
	}
	writeJSON(w, http.StatusOK, responses)
}

// DeleteEncoding removes one stored encoding and recomputes the centroid
func (eh *EnrollmentHandler) DeleteEncoding(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	encodingID, err := parseUintParam(r, "encodingID")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := eh.Service.DeleteEncoding(studentID, encodingID); err != nil {
		log.Printf("Error deleting encoding %d for student %d: %v", encodingID, studentID, err)
		WriteAPIError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetThreshold returns the student's current adaptive match threshold
func (eh *EnrollmentHandler) GetThreshold(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	threshold, err := eh.Service.GetAdaptiveThreshold(studentID)
	if err != nil {
		log.Printf("Error getting threshold for student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to get threshold")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"threshold": threshold})
}
