package job

import (
	"time"

	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/download"
)

type DownloadJobState int

const (
	PENDING DownloadJobState = iota
	RUNNING
	COMPLETE
	FAILED
)

func (state DownloadJobState) String() string {
	switch state {
	case PENDING:
		return "PENDING"
	case RUNNING:
		return "RUNNING"
	case COMPLETE:
		return "COMPLETE"
	case FAILED:
		return "FAILED"
	}

	return "UNKNOWN"
}

func (state DownloadJobState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + state.String() + `"`), nil
}

// DownloadJob is one queued download request and its lifecycle state.
// State transitions only happen under the owning service's lock; the
// Result and FailureReason fields are written exactly once, on the
// transition out of RUNNING.
type DownloadJob struct {
	ID            uuid.UUID                `json:"id"`
	Request       *download.Request        `json:"request"`
	State         DownloadJobState         `json:"state"`
	Result        *download.ResponseRecord `json:"result,omitempty"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	FromCache     bool                     `json:"from_cache,omitempty"`
	QueuedAt      time.Time                `json:"queued_at"`
	StartedAt     *time.Time               `json:"started_at,omitempty"`
	FinishedAt    *time.Time               `json:"finished_at,omitempty"`
}
