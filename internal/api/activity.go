package api

import (
	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/api/downloads"
	"github.com/snagd/snagd/internal/http/websocket"
)

const (
	TitleDownloadUpdate   = "DOWNLOAD_UPDATE"
	TitleDownloadComplete = "DOWNLOAD_COMPLETE"
)

type (
	DownloadUpdate struct {
		JobID    uuid.UUID      `json:"job_id"`
		Download *downloads.Dto `json:"download"`
	}

	// broadcaster translates job lifecycle events into websocket frames
	// pushed to every connected client.
	broadcaster struct {
		socketHub  *websocket.SocketHub
		jobService downloads.JobService
	}
)

func newBroadcaster(socketHub *websocket.SocketHub, jobService downloads.JobService) *broadcaster {
	return &broadcaster{socketHub, jobService}
}

func (hub *broadcaster) BroadcastJobUpdate(id uuid.UUID) error {
	return hub.broadcastJob(TitleDownloadUpdate, id)
}

func (hub *broadcaster) BroadcastJobComplete(id uuid.UUID) error {
	return hub.broadcastJob(TitleDownloadComplete, id)
}

func (hub *broadcaster) broadcastJob(title string, id uuid.UUID) error {
	job := hub.jobService.GetJob(id)
	if job == nil {
		return nil
	}

	update := DownloadUpdate{JobID: id, Download: downloads.NewDto(job)}
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": update},
		Type:  websocket.Update,
	})

	return nil
}

// connectionPayload is the initial state furnished to a freshly
// connected websocket client.
func (hub *broadcaster) connectionPayload() map[string]interface{} {
	jobs := hub.jobService.GetAllJobs()
	dtos := make([]*downloads.Dto, len(jobs))
	for k, v := range jobs {
		dtos[k] = downloads.NewDto(v)
	}

	return map[string]interface{}{"downloads": dtos}
}
