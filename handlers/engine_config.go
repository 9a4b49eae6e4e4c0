package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/calebwray/attendsysbackend/services"
)

type EngineConfigHandler struct {
	Service *services.RecognitionService
}

type engineConfigResponse struct {
	LivenessEnabled  bool    `json:"liveness_enabled"`
	AdaptiveEnabled  bool    `json:"adaptive_enabled"`
	ThresholdTight   float64 `json:"threshold_tight"`
	ThresholdDefault float64 `json:"threshold_default"`
	ThresholdRelaxed float64 `json:"threshold_relaxed"`
	MaxEnrollments   int     `json:"max_enrollments"`
}

type engineConfigPayload struct {
	LivenessEnabled *bool `json:"liveness_enabled"`
	AdaptiveEnabled *bool `json:"adaptive_enabled"`
}

// GetConfig returns the current engine toggles and fixed thresholds
func (ech *EngineConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, engineConfigResponse{
		LivenessEnabled:  ech.Service.LivenessEnabled(),
		AdaptiveEnabled:  ech.Service.AdaptiveEnabled(),
		ThresholdTight:   services.ThresholdTight,
		ThresholdDefault: services.ThresholdDefault,
		ThresholdRelaxed: services.ThresholdRelaxed,
		MaxEnrollments:   services.MaxEnrollments,
	})
}

// UpdateConfig flips the runtime toggles. Omitted fields are unchanged.
func (ech *EngineConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var payload engineConfigPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if payload.LivenessEnabled != nil {
		ech.Service.SetLivenessEnabled(*payload.LivenessEnabled)
	}
	if payload.AdaptiveEnabled != nil {
		ech.Service.SetAdaptiveEnabled(*payload.AdaptiveEnabled)
	}

	ech.GetConfig(w, r)
}
