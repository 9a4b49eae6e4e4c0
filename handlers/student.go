package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/calebwray/attendsysbackend/models"
	"github.com/calebwray/attendsysbackend/repository"
	"github.com/calebwray/attendsysbackend/services"
)

type StudentHandler struct {
	StudentRepo repository.StudentRepositoryInterface
	Service     *services.RecognitionService
}

type studentPayload struct {
	Code     string `json:"code"`
	FullName string `json:"full_name"`
}

type studentResponse struct {
	ID        uint   `json:"id"`
	Code      string `json:"code"`
	FullName  string `json:"full_name"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`

	Metrics *services.EnrollmentMetrics `json:"enrollment,omitempty"`
}

func toStudentResponse(s *models.Student) studentResponse {
	return studentResponse{
		ID:        s.ID,
		Code:      s.Code,
		FullName:  s.FullName,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// CreateStudent registers a new student record
func (sh *StudentHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var payload studentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	payload.Code = strings.TrimSpace(payload.Code)
	payload.FullName = strings.TrimSpace(payload.FullName)
	if payload.Code == "" || payload.FullName == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "code and full_name are required")
		return
	}

	if existing, err := sh.StudentRepo.GetByCode(payload.Code); err == nil && existing != nil {
		WriteAPIError(w, http.StatusConflict, "duplicate_code", "a student with this code already exists")
		return
	}

	now := time.Now().Unix()
	student := &models.Student{
		Code:      payload.Code,
		FullName:  payload.FullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sh.StudentRepo.Create(student); err != nil {
		log.Printf("Error creating student: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to create student")
		return
	}

	writeJSON(w, http.StatusCreated, toStudentResponse(student))
}

// ListStudents returns all students in natural order of their codes
func (sh *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := sh.StudentRepo.ListAll()
	if err != nil {
		log.Printf("Error listing students: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list students")
		return
	}

	sort.Slice(students, func(i, j int) bool {
		return natsort.Compare(students[i].Code, students[j].Code)
	})

	responses := make([]studentResponse, len(students))
	for i := range students {
		responses[i] = toStudentResponse(&students[i])
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetStudent returns a single student with enrollment metrics
func (sh *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	student, err := sh.StudentRepo.GetByID(studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		log.Printf("Error getting student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}

	resp := toStudentResponse(student)
	if metrics, err := sh.Service.GetEnrollmentMetrics(studentID); err != nil {
		log.Printf("Error getting metrics for student %d: %v", studentID, err)
	} else {
		resp.Metrics = metrics
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStudent updates a student's name or code
func (sh *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	student, err := sh.StudentRepo.GetByID(studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}

	var payload studentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if code := strings.TrimSpace(payload.Code); code != "" {
		student.Code = code
	}
	if name := strings.TrimSpace(payload.FullName); name != "" {
		student.FullName = name
	}
	student.UpdatedAt = time.Now().Unix()

	if err := sh.StudentRepo.Update(student); err != nil {
		log.Printf("Error updating student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to update student")
		return
	}
	writeJSON(w, http.StatusOK, toStudentResponse(student))
}

// DeleteStudent removes a student and all associated face data
func (sh *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if _, err := sh.StudentRepo.GetByID(studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return
	}

	if err := sh.Service.DeleteStudentData(studentID); err != nil {
		log.Printf("Error deleting face data for student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to delete student face data")
		return
	}
	if err := sh.StudentRepo.Delete(studentID); err != nil {
		log.Printf("Error deleting student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to delete student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
