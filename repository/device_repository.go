package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/calebwray/attendsysbackend/models"
	"gorm.io/gorm"
)

// DeviceRepository handles database operations for Device entities
type DeviceRepository struct {
	DB *gorm.DB
}

// Ensure DeviceRepository implements DeviceRepositoryInterface
var _ DeviceRepositoryInterface = (*DeviceRepository)(nil)

// NewDeviceRepository creates a new instance of DeviceRepository
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{DB: db}
}

// Create creates a new device record in the database
func (r *DeviceRepository) Create(device *models.Device) error {
	if device.CreatedAt == 0 {
		device.CreatedAt = time.Now().Unix()
	}
	err := r.DB.Create(device).Error
	if err != nil {
		return fmt.Errorf("failed to create device '%s': %w", device.Name, err)
	}
	return nil
}

// GetByID retrieves a device by ID
func (r *DeviceRepository) GetByID(id uint) (*models.Device, error) {
	var device models.Device
	err := r.DB.First(&device, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get device by ID %d: %w", id, err)
	}
	return &device, nil
}

// GetByName retrieves a device by name
func (r *DeviceRepository) GetByName(name string) (*models.Device, error) {
	var device models.Device
	err := r.DB.Where("name = ?", name).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get device by name '%s': %w", name, err)
	}
	return &device, nil
}

// ListAll retrieves all devices
func (r *DeviceRepository) ListAll() ([]models.Device, error) {
	var devices []models.Device
	err := r.DB.Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// TouchLastSeen records the time of the last authenticated request
func (r *DeviceRepository) TouchLastSeen(id uint) error {
	now := time.Now().Unix()
	err := r.DB.Model(&models.Device{}).Where("id = ?", id).Update("last_seen_at", now).Error
	if err != nil {
		return fmt.Errorf("failed to update last_seen_at for device ID %d: %w", id, err)
	}
	return nil
}

// Delete removes a device by ID
func (r *DeviceRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Device{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete device ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
