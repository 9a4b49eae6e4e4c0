package workers

import (
	"bytes"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calebwray/attendsysbackend/media"
	"github.com/calebwray/attendsysbackend/models"
	"github.com/calebwray/attendsysbackend/realtime"
	"github.com/calebwray/attendsysbackend/repository"
	"github.com/calebwray/attendsysbackend/services"
)

// RecognitionJob is a single camera frame waiting to be matched
type RecognitionJob struct {
	DeviceID   *uint
	DeviceName string
	ImageData  []byte
	EnqueuedAt int64
}

// RecognitionProcessor runs recognition jobs from attendance devices on a
// fixed pool of workers, persists the resulting events and pushes them to
// connected dashboards
type RecognitionProcessor struct {
	JobQueue  chan RecognitionJob
	Service   *services.RecognitionService
	EventRepo repository.RecognitionEventRepositoryInterface
	Hub       *realtime.Hub
	Store     media.Store
	Wg        sync.WaitGroup
	StopChan  chan struct{}
}

func NewRecognitionProcessor(
	service *services.RecognitionService,
	eventRepo repository.RecognitionEventRepositoryInterface,
	hub *realtime.Hub,
	store media.Store,
	queueSize, numWorkers int,
) *RecognitionProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &RecognitionProcessor{
		JobQueue:  make(chan RecognitionJob, queueSize),
		Service:   service,
		EventRepo: eventRepo,
		Hub:       hub,
		Store:     store,
		StopChan:  make(chan struct{}),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d recognition worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (rp *RecognitionProcessor) worker(id int) {
	defer rp.Wg.Done()

	log.Printf("Recognition worker %d started", id)
	for {
		select {
		case job, ok := <-rp.JobQueue:
			if !ok {
				log.Printf("Recognition worker %d stopping: job queue closed", id)
				return
			}
			rp.processJob(id, job)
		case <-rp.StopChan:
			log.Printf("Recognition worker %d stopping: stop signal received", id)
			return
		}
	}
}

func (rp *RecognitionProcessor) processJob(id int, job RecognitionJob) {
	result, err := rp.Service.Recognize(job.ImageData)
	if err != nil {
		log.Printf("Worker %d: ERROR recognizing frame from %s: %v", id, job.DeviceName, err)
		rp.Hub.Broadcast(realtime.Event{
			Type:       realtime.EventTypeError,
			DeviceName: job.DeviceName,
			Error:      err.Error(),
			Timestamp:  time.Now().Unix(),
		})
		return
	}

	event := &models.RecognitionEvent{
		EventID:      uuid.NewString(),
		DeviceID:     job.DeviceID,
		Matched:      result.Matched,
		Distance:     result.Distance,
		Threshold:    result.Threshold,
		CentroidUsed: result.CentroidUsed,
		CapturedAt:   media.ReadCaptureTime(job.ImageData),
		CreatedAt:    time.Now().Unix(),
	}
	if result.Matched {
		studentID := result.StudentID
		event.StudentID = &studentID
	}

	if rp.Store != nil && result.Matched {
		path, saveErr := rp.Store.Save(
			media.AssetTypeRecognitionSnapshot,
			time.Now().Format("2006-01-02"),
			event.EventID+".jpg",
			bytes.NewReader(job.ImageData),
		)
		if saveErr != nil {
			log.Printf("Worker %d: WARNING failed to save snapshot for event %s: %v", id, event.EventID, saveErr)
		} else {
			event.SnapshotPath = &path
		}
	}

	if err := rp.EventRepo.Create(event); err != nil {
		log.Printf("Worker %d: ERROR persisting recognition event %s: %v", id, event.EventID, err)
	}

	rp.Hub.Broadcast(realtime.Event{
		Type:        realtime.EventTypeRecognition,
		EventID:     event.EventID,
		DeviceName:  job.DeviceName,
		StudentID:   result.StudentID,
		StudentCode: result.StudentCode,
		Matched:     result.Matched,
		Distance:    result.Distance,
		Confidence:  result.Confidence,
		Timestamp:   event.CreatedAt,
	})
}

// QueueJob queues a frame for recognition. Returns false when the queue
// is full.
func (rp *RecognitionProcessor) QueueJob(job RecognitionJob) bool {
	select {
	case rp.JobQueue <- job:
		return true
	default:
		log.Printf("WARNING: recognition job queue full, dropping frame from %s", job.DeviceName)
		return false
	}
}

func (rp *RecognitionProcessor) Stop() {
	log.Println("Stopping recognition workers...")
	close(rp.StopChan)
	rp.Wg.Wait()
	log.Println("All recognition workers stopped")
}
