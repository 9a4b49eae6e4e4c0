package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/calebwray/attendsysbackend/config"
	"github.com/calebwray/attendsysbackend/database"
	"github.com/calebwray/attendsysbackend/handlers"
	"github.com/calebwray/attendsysbackend/media"
	"github.com/calebwray/attendsysbackend/realtime"
	"github.com/calebwray/attendsysbackend/repository"
	"github.com/calebwray/attendsysbackend/services"
	"github.com/calebwray/attendsysbackend/workers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	for _, p := range []string{cfg.MediaStoragePath, filepath.Dir(cfg.DatabasePath)} {
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create directory %s: %v", p, err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}

	studentRepo := repository.NewStudentRepository(gormDB)
	encodingRepo := repository.NewFaceEncodingRepository(gormDB)
	centroidRepo := repository.NewCentroidRepository(gormDB)
	adaptiveRepo := repository.NewAdaptiveCandidateRepository(gormDB)
	deviceRepo := repository.NewDeviceRepository(gormDB)
	eventRepo := repository.NewRecognitionEventRepository(gormDB)

	detector := media.NewDNNDetector(cfg.DetectionModelPath, cfg.RecognitionModelPath, cfg.EmbeddingModelName)
	defer detector.Close()

	weights := media.QualityWeights{
		Sharpness:  cfg.Tuning.QualityWeights.Sharpness,
		Lighting:   cfg.Tuning.QualityWeights.Lighting,
		FaceSize:   cfg.Tuning.QualityWeights.FaceSize,
		Confidence: cfg.Tuning.QualityWeights.Confidence,
	}
	qualityAnalyzer := media.NewQualityAnalyzer(weights, cfg.Tuning.MinQualityScore, cfg.Tuning.MinFaceSizeRatio)
	poseClassifier := media.NewPoseClassifier()
	livenessDetector := media.NewLivenessDetector()

	service := services.NewRecognitionService(
		detector,
		qualityAnalyzer,
		poseClassifier,
		livenessDetector,
		studentRepo,
		encodingRepo,
		centroidRepo,
		adaptiveRepo,
		mediaStore,
	)
	service.SetLivenessEnabled(cfg.Tuning.LivenessEnabled)
	service.SetAdaptiveEnabled(cfg.Tuning.AdaptiveEnabled)
	if err := service.RebuildIndex(); err != nil {
		log.Fatalf("FATAL: Failed to build embedding index: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	log.Printf("Initializing recognition worker pool (Workers: %d, Queue Size: %d)...", cfg.NumWorkers, cfg.RecognitionQueueSize)
	processor := workers.NewRecognitionProcessor(service, eventRepo, hub, mediaStore, cfg.RecognitionQueueSize, cfg.NumWorkers)
	defer processor.Stop()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing image assets in: %s", cfg.MediaStoragePath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device-Name", "X-Device-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	studentHandler := &handlers.StudentHandler{StudentRepo: studentRepo, Service: service}
	enrollmentHandler := &handlers.EnrollmentHandler{Service: service, EncodingRepo: encodingRepo, Hub: hub}
	recognitionHandler := &handlers.RecognitionHandler{Service: service, Processor: processor, EventRepo: eventRepo}
	deviceHandler := &handlers.DeviceHandler{DeviceRepo: deviceRepo}
	statsHandler := &handlers.StatsHandler{DB: sqlDB}
	engineConfigHandler := &handlers.EngineConfigHandler{Service: service}

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Post("/", studentHandler.CreateStudent)
			r.Get("/", studentHandler.ListStudents)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", studentHandler.GetStudent)
				r.Put("/", studentHandler.UpdateStudent)
				r.Delete("/", studentHandler.DeleteStudent)
				r.Post("/enroll", enrollmentHandler.Enroll)
				r.Get("/enrollment", enrollmentHandler.GetMetrics)
				r.Get("/threshold", enrollmentHandler.GetThreshold)
				r.Get("/encodings", enrollmentHandler.ListEncodings)
				r.Delete("/encodings/{encodingID}", enrollmentHandler.DeleteEncoding)
				r.Get("/events", recognitionHandler.ListStudentEvents)
			})
		})

		r.Post("/recognize", recognitionHandler.Recognize)
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return handlers.DeviceAuthMiddleware(deviceRepo, next)
			})
			r.Post("/recognize/async", recognitionHandler.RecognizeAsync)
		})

		r.Get("/events", recognitionHandler.ListEvents)

		r.Route("/devices", func(r chi.Router) {
			r.Post("/", deviceHandler.CreateDevice)
			r.Get("/", deviceHandler.ListDevices)
			r.Delete("/{id}", deviceHandler.DeleteDevice)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/coverage", statsHandler.GetEnrollmentCoverage)
			r.Get("/events", statsHandler.GetEventCounts)
		})

		r.Route("/engine", func(r chi.Router) {
			r.Get("/config", engineConfigHandler.GetConfig)
			r.Put("/config", engineConfigHandler.UpdateConfig)
		})
	})

	r.Get("/ws", hub.ServeWS)

	fmt.Printf("Server starting on %s\n", cfg.ListenAddr)
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
