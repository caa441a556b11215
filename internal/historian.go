package internal

import (
	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/api/records"
	"github.com/snagd/snagd/internal/database"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/internal/history"
	"github.com/snagd/snagd/internal/job"
	"github.com/snagd/snagd/pkg/logger"
)

var historyLog = logger.Get("History")

// historian bridges the job service lifecycle callbacks onto the
// history store. Persistence failures are logged, never propagated;
// the download itself must not fail because its record could not be
// written.
type historian struct {
	db    database.Manager
	store *history.Store
}

func newHistorian(db database.Manager, store *history.Store) *historian {
	return &historian{db: db, store: store}
}

// orNil converts a possibly-nil *historian into the job.Historian
// interface without producing a non-nil interface holding a nil pointer.
func (h *historian) orNil() job.Historian {
	if h == nil {
		return nil
	}

	return h
}

// recordServiceOrNil is the same conversion for the history REST
// surface; a nil service keeps those routes unregistered.
func (h *historian) recordServiceOrNil() records.Service {
	if h == nil {
		return nil
	}

	return h
}

func (h *historian) Created(jobID uuid.UUID, mediaURL string) {
	if err := h.store.Create(h.db.GetSqlxDb(), jobID, mediaURL); err != nil {
		historyLog.Errorf("Failed to record job %s creation: %v\n", jobID, err)
	}
}

func (h *historian) Started(jobID uuid.UUID) {
	if err := h.store.RecordState(h.db.GetSqlxDb(), jobID, "RUNNING"); err != nil {
		historyLog.Errorf("Failed to record job %s start: %v\n", jobID, err)
	}
}

func (h *historian) Completed(jobID uuid.UUID, record *download.ResponseRecord) {
	var mediaURL, audioURL *string
	title := ""
	if record != nil {
		title = record.Media.Title
		if record.Media.MediaURL != "" {
			mediaURL = &record.Media.MediaURL
		}
		if record.Audio != nil && record.Audio.AudioURL != "" {
			audioURL = &record.Audio.AudioURL
		}
	}

	if err := h.store.RecordCompletion(h.db.GetSqlxDb(), jobID, title, mediaURL, audioURL); err != nil {
		historyLog.Errorf("Failed to record job %s completion: %v\n", jobID, err)
	}
}

func (h *historian) Failed(jobID uuid.UUID, reason string) {
	if err := h.store.RecordFailure(h.db.GetSqlxDb(), jobID, reason); err != nil {
		historyLog.Errorf("Failed to record job %s failure: %v\n", jobID, err)
	}
}

func (h *historian) ListDownloads(limit int) ([]*history.Record, error) {
	return h.store.List(h.db.GetSqlxDb(), limit)
}

func (h *historian) GetDownload(id uuid.UUID) (*history.Record, error) {
	return h.store.GetWithID(h.db.GetSqlxDb(), id)
}
