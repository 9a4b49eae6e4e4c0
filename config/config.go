package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	defaultRecognitionQueueSize = 200
	defaultNumWorkers           = 4
)

// Config holds process-level settings loaded from the environment
type Config struct {
	// http listen address
	ListenAddr string

	// database path
	DatabasePath string

	// root for stored image assets (enrollment crops, event snapshots)
	MediaStoragePath string

	// recognition worker settings
	RecognitionQueueSize int
	NumWorkers           int

	// face model paths (DNN)
	DetectionModelPath   string
	RecognitionModelPath string
	EmbeddingModelName   string

	// engine tuning, loaded from TUNING_PATH when set
	Tuning Tuning
}

// Tuning holds the recognition engine knobs that operators may override
// via a yaml file
type Tuning struct {
	MinQualityScore  float64 `yaml:"min_quality_score"`
	MinFaceSizeRatio float64 `yaml:"min_face_size_ratio"`
	QualityWeights   struct {
		Sharpness  float64 `yaml:"sharpness"`
		Lighting   float64 `yaml:"lighting"`
		FaceSize   float64 `yaml:"face_size"`
		Confidence float64 `yaml:"confidence"`
	} `yaml:"quality_weights"`
	LivenessEnabled bool `yaml:"liveness_enabled"`
	AdaptiveEnabled bool `yaml:"adaptive_enabled"`
}

// DefaultTuning returns the engine defaults
func DefaultTuning() Tuning {
	t := Tuning{
		MinQualityScore:  0.6,
		MinFaceSizeRatio: 0.10,
		LivenessEnabled:  false,
		AdaptiveEnabled:  false,
	}
	t.QualityWeights.Sharpness = 0.35
	t.QualityWeights.Lighting = 0.25
	t.QualityWeights.FaceSize = 0.20
	t.QualityWeights.Confidence = 0.20
	return t
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	cfg := Config{
		ListenAddr:           getEnvOrDefault("LISTEN_ADDR", ":8080"),
		DatabasePath:         getEnvOrDefault("DATABASE_PATH", "attendance.db"),
		MediaStoragePath:     absMediaStorage,
		RecognitionQueueSize: getEnvIntOrDefault("RECOGNITION_QUEUE_SIZE", defaultRecognitionQueueSize),
		NumWorkers:           getEnvIntOrDefault("NUM_RECOGNITION_WORKERS", defaultNumWorkers),
		DetectionModelPath:   getEnvOrDefault("DETECTION_MODEL_PATH", "./models/retinaface.onnx"),
		RecognitionModelPath: getEnvOrDefault("RECOGNITION_MODEL_PATH", "./models/arcface_r50.onnx"),
		EmbeddingModelName:   getEnvOrDefault("EMBEDDING_MODEL_NAME", "arcface"),
		Tuning:               DefaultTuning(),
	}

	if tuningPath := os.Getenv("TUNING_PATH"); tuningPath != "" {
		data, err := os.ReadFile(tuningPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read tuning file '%s': %w", tuningPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg.Tuning); err != nil {
			return Config{}, fmt.Errorf("failed to parse tuning file '%s': %w", tuningPath, err)
		}
		log.Printf("config: loaded tuning overrides from %s", tuningPath)
	}

	return cfg, nil
}
