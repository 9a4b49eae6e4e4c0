package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/calebwray/attendsysbackend/models"
	"github.com/calebwray/attendsysbackend/repository"
)

type DeviceHandler struct {
	DeviceRepo repository.DeviceRepositoryInterface
}

type devicePayload struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type deviceResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	CreatedAt  int64  `json:"created_at"`
	LastSeenAt *int64 `json:"last_seen_at,omitempty"`

	// APIKey is only populated on creation, the plaintext key is not stored
	APIKey string `json:"api_key,omitempty"`
}

func toDeviceResponse(d *models.Device) deviceResponse {
	return deviceResponse{
		ID:         d.ID,
		Name:       d.Name,
		Location:   d.Location,
		CreatedAt:  d.CreatedAt,
		LastSeenAt: d.LastSeenAt,
	}
}

// CreateDevice registers an attendance device and returns its API key.
// The key is shown exactly once; only the bcrypt hash is persisted.
func (dh *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var payload devicePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	if _, err := dh.DeviceRepo.GetByName(payload.Name); err == nil {
		WriteAPIError(w, http.StatusConflict, "duplicate_name", "a device with this name already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to check device name")
		return
	}

	apiKey := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing device key: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to create device")
		return
	}

	device := &models.Device{
		Name:       payload.Name,
		Location:   strings.TrimSpace(payload.Location),
		APIKeyHash: string(hash),
		CreatedAt:  time.Now().Unix(),
	}
	if err := dh.DeviceRepo.Create(device); err != nil {
		log.Printf("Error creating device: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to create device")
		return
	}

	resp := toDeviceResponse(device)
	resp.APIKey = apiKey
	writeJSON(w, http.StatusCreated, resp)
}

// ListDevices returns all registered devices
func (dh *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := dh.DeviceRepo.ListAll()
	if err != nil {
		log.Printf("Error listing devices: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list devices")
		return
	}

	responses := make([]deviceResponse, len(devices))
	for i := range devices {
		responses[i] = toDeviceResponse(&devices[i])
	}
	writeJSON(w, http.StatusOK, responses)
}

// DeleteDevice removes a device registration
func (dh *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := parseUintParam(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := dh.DeviceRepo.Delete(deviceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "device not found")
			return
		}
		log.Printf("Error deleting device %d: %v", deviceID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
