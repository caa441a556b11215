package downloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/internal/job"
)

type (
	SubmissionDto struct {
		JobID uuid.UUID `json:"job_id"`
	}

	// Dto is the response used by endpoints that return download
	// jobs (e.g., list, get).
	Dto struct {
		ID            uuid.UUID                `json:"id"`
		MediaURL      string                   `json:"media_url"`
		State         StateDto                 `json:"state"`
		Result        *download.ResponseRecord `json:"result,omitempty"`
		FailureReason string                   `json:"failure_reason,omitempty"`
		FromCache     bool                     `json:"from_cache,omitempty"`
		QueuedAt      time.Time                `json:"queued_at"`
		StartedAt     *time.Time               `json:"started_at,omitempty"`
		FinishedAt    *time.Time               `json:"finished_at,omitempty"`
	}

	StateDto string
)

const (
	PENDING  StateDto = "PENDING"
	RUNNING  StateDto = "RUNNING"
	COMPLETE StateDto = "COMPLETE"
	FAILED   StateDto = "FAILED"
)

func NewDto(downloadJob *job.DownloadJob) *Dto {
	return &Dto{
		ID:            downloadJob.ID,
		MediaURL:      downloadJob.Request.MediaURL,
		State:         StateDto(downloadJob.State.String()),
		Result:        downloadJob.Result,
		FailureReason: downloadJob.FailureReason,
		FromCache:     downloadJob.FromCache,
		QueuedAt:      downloadJob.QueuedAt,
		StartedAt:     downloadJob.StartedAt,
		FinishedAt:    downloadJob.FinishedAt,
	}
}
