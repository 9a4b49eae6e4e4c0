package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/calebwray/attendsysbackend/repository"
	"github.com/calebwray/attendsysbackend/services"
	"github.com/calebwray/attendsysbackend/workers"
)

type RecognitionHandler struct {
	Service   *services.RecognitionService
	Processor *workers.RecognitionProcessor
	EventRepo repository.RecognitionEventRepositoryInterface
}

// Recognize runs recognition synchronously on the uploaded image and
// returns the match result
func (rh *RecognitionHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	data, err := readImageUpload(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := rh.Service.Recognize(data)
	if err != nil {
		log.Printf("Error recognizing image: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "recognition failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RecognizeAsync queues the frame for background recognition. Used by
// attendance devices streaming frames; results arrive over the websocket.
func (rh *RecognitionHandler) RecognizeAsync(w http.ResponseWriter, r *http.Request) {
	data, err := readImageUpload(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	job := workers.RecognitionJob{
		ImageData:  data,
		EnqueuedAt: time.Now().Unix(),
	}
	if device := DeviceFromContext(r.Context()); device != nil {
		deviceID := device.ID
		job.DeviceID = &deviceID
		job.DeviceName = device.Name
	}

	if !rh.Processor.QueueJob(job) {
		WriteAPIError(w, http.StatusServiceUnavailable, "queue_full", "recognition queue is full, retry later")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// ListEvents returns the most recent recognition events
func (rh *RecognitionHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	events, err := rh.EventRepo.ListRecent(limit)
	if err != nil {
		log.Printf("Error listing recognition events: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ListStudentEvents returns recognition events for one student
func (rh *RecognitionHandler) ListStudentEvents(w http.ResponseWriter, r *http.Request) {
	studentID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	events, err := rh.EventRepo.ListByStudentID(studentID, limit)
	if err != nil {
		log.Printf("Error listing events for student %d: %v", studentID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
