package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"videonotes-backend/internal/analysis"
	"videonotes-backend/internal/models"
	"videonotes-backend/internal/pipeline"
	"videonotes-backend/internal/repository"
	"videonotes-backend/internal/services"
)

const noteQueue = "queue:note-generation"

// Pool consumes note-generation jobs from Redis. Each job runs the
// chunked analysis pipeline exactly once; there is no retry.
type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	youtube     *services.YouTubeService
	jobRepo     *repository.JobRepo
	noteRepo    *repository.NoteRepo
	maxChunks   int
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	youtube *services.YouTubeService,
	jobRepo *repository.JobRepo,
	noteRepo *repository.NoteRepo,
	maxChunks, workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		youtube:     youtube,
		jobRepo:     jobRepo,
		noteRepo:    noteRepo,
		maxChunks:   maxChunks,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, noteQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s", id, job.ID)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")
		p.noteRepo.UpdateStatus(ctx, job.ReferenceID, "processing")

		if err := p.processNote(ctx, &job); err != nil {
			p.handleFailure(ctx, &job, err)
		} else {
			p.handleSuccess(ctx, &job)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processNote(ctx context.Context, job *models.Job) error {
	var config models.GenerateNotesRequest
	if err := json.Unmarshal(job.ConfigJSON, &config); err != nil {
		return fmt.Errorf("failed to parse job config: %w", err)
	}

	text := config.Transcript
	if strings.TrimSpace(text) == "" {
		if config.VideoURL == "" {
			return fmt.Errorf("job has neither a transcript nor a video URL")
		}

		videoID := services.ExtractVideoID(config.VideoURL)
		if videoID == "" {
			return fmt.Errorf("invalid YouTube URL %q", config.VideoURL)
		}

		p.publish(ctx, job.SessionID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:    job.ID,
				StepName: "Extracting transcript from video",
			},
		})

		fetched, err := p.youtube.GetTranscript(videoID)
		if err != nil {
			return fmt.Errorf("transcript extraction failed for video %s: %w", videoID, err)
		}
		text = fetched
	}

	numParts := config.NumParts
	if numParts < 1 {
		numParts = 1
	}
	if numParts > p.maxChunks {
		numParts = p.maxChunks
	}

	opts := pipeline.ChunkOptions{
		Model:      config.Model,
		MaxWords:   config.MaxWords,
		Sections:   config.Sections,
		UserPrompt: config.UserPrompt,
		EasyRead:   config.EasyRead,
	}

	runner := pipeline.NewRunner(p.gemini)
	state := runner.Run(ctx, text, numParts, opts, func(chunk, total int) {
		p.publish(ctx, job.SessionID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:       job.ID,
				Chunk:       chunk,
				TotalChunks: total,
				StepName:    fmt.Sprintf("Analyzing part %d of %d", chunk, total),
			},
		})
	})

	if state.Status != pipeline.StatusSucceeded {
		if state.Error != nil {
			return state.Error
		}
		return fmt.Errorf("analysis run failed")
	}

	resultBytes, err := json.Marshal(state.Merged)
	if err != nil {
		return fmt.Errorf("failed to serialize merged result: %w", err)
	}

	title := strings.TrimSpace(state.Merged.MainSubject)
	if title == "" {
		note, getErr := p.noteRepo.GetByID(ctx, job.ReferenceID)
		if getErr == nil && note.Title != "" {
			title = note.Title
		} else {
			title = "Video Notes"
		}
	}

	if err := p.noteRepo.SetResult(ctx, job.ReferenceID, title, resultBytes, len(state.ChunkResults)); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.jobRepo.UpdateStatus(ctx, job.ID, "completed")

	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:  job.ID,
			NoteID: job.ReferenceID,
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

// handleFailure marks the job and note failed. One attempt per job:
// failures are terminal and re-running means submitting a new job.
func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	code := "JOB_FAILED"
	var failure *analysis.Failure
	if errors.As(err, &failure) {
		code = string(failure.Kind)
	}

	log.Printf("Job %s failed (%s): %v", job.ID, code, err)

	p.jobRepo.MarkFailed(ctx, job.ID, code, err.Error())
	p.noteRepo.MarkFailed(ctx, job.ReferenceID, code)

	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    code,
			ErrorMessage: err.Error(),
		},
	})
}

func (p *Pool) publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	p.redis.Publish(ctx, "session_updates:"+sessionID.String(), string(data))
}
