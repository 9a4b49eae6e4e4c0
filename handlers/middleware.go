package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/calebwray/attendsysbackend/models"
	"github.com/calebwray/attendsysbackend/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// DeviceContextKey is the key used to store the authenticated device in
	// the request context.
	DeviceContextKey ContextKey = "device"
)

// DeviceAuthMiddleware authenticates attendance devices via the
// X-Device-Name and X-Device-Key headers. The key is compared against the
// stored bcrypt hash and the device's last seen timestamp is refreshed.
func DeviceAuthMiddleware(deviceRepo repository.DeviceRepositoryInterface, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("X-Device-Name")
		key := r.Header.Get("X-Device-Key")
		if name == "" || key == "" {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "X-Device-Name and X-Device-Key headers required")
			return
		}

		device, err := deviceRepo.GetByName(name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "unknown device")
				return
			}
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to authenticate device")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(device.APIKeyHash), []byte(key)) != nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "invalid device key")
			return
		}

		if err := deviceRepo.TouchLastSeen(device.ID); err != nil {
			log.Printf("Warning: failed to update last seen for device %s: %v", device.Name, err)
		}

		ctx := context.WithValue(r.Context(), DeviceContextKey, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceFromContext returns the authenticated device, or nil when the
// request did not pass device auth
func DeviceFromContext(ctx context.Context) *models.Device {
	device, _ := ctx.Value(DeviceContextKey).(*models.Device)
	return device
}
