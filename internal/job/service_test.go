package job_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/internal/event"
	"github.com/snagd/snagd/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRunner struct{ mock.Mock }

func (m *MockRunner) Run(ctx context.Context, jobID uuid.UUID, req *download.Request) (*download.ResponseRecord, error) {
	args := m.Called(ctx, jobID, req)
	if record := args.Get(0); record != nil {
		return record.(*download.ResponseRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockHistorian struct{ mock.Mock }

func (m *MockHistorian) Created(jobID uuid.UUID, mediaURL string) { m.Called(jobID, mediaURL) }
func (m *MockHistorian) Started(jobID uuid.UUID)                  { m.Called(jobID) }
func (m *MockHistorian) Completed(jobID uuid.UUID, record *download.ResponseRecord) {
	m.Called(jobID, record)
}
func (m *MockHistorian) Failed(jobID uuid.UUID, reason string) { m.Called(jobID, reason) }

func testRecord() *download.ResponseRecord {
	return &download.ResponseRecord{
		Media: download.MediaBlock{MediaURL: "https://store.example.com/abc.mp4", Title: "A Title"},
	}
}

func TestQueue_CreatesPendingJobAndDispatchesUpdate(t *testing.T) {
	runner := &MockRunner{}
	eventBus := event.New()

	updates := make(event.HandlerChannel, 10)
	eventBus.RegisterHandlerChannel(updates, event.JobUpdateEvent)

	service := job.New(job.Config{Parallelism: 1}, runner, eventBus, nil, nil)

	jobID := service.Queue(&download.Request{MediaURL: "https://example.com/a"})

	queued := service.GetJob(jobID)
	assert.NotNil(t, queued)
	assert.Equal(t, job.PENDING, queued.State)
	assert.False(t, queued.QueuedAt.IsZero())
	assert.Nil(t, queued.StartedAt)

	select {
	case handlerEvent := <-updates:
		assert.Equal(t, event.JobUpdateEvent, handlerEvent.Event)
		assert.Equal(t, jobID, handlerEvent.Payload)
	default:
		t.Fatal("expected a job update event on queue")
	}
}

func TestPerformJob_NoPendingWork(t *testing.T) {
	service := job.New(job.Config{Parallelism: 1}, &MockRunner{}, event.New(), nil, nil)

	claimed, err := service.PerformJob(nil)

	assert.False(t, claimed, "worker goes back to sleep when the queue is empty")
	assert.Nil(t, err)
}

func TestPerformJob_CompletesJob(t *testing.T) {
	runner := &MockRunner{}
	eventBus := event.New()

	completions := make(event.HandlerChannel, 10)
	eventBus.RegisterHandlerChannel(completions, event.JobCompleteEvent)

	service := job.New(job.Config{Parallelism: 1}, runner, eventBus, nil, nil)

	req := &download.Request{MediaURL: "https://example.com/a"}
	jobID := service.Queue(req)

	runner.On("Run", mock.Anything, jobID, req).Return(testRecord(), nil).Once()

	claimed, err := service.PerformJob(nil)
	assert.True(t, claimed)
	assert.Nil(t, err)

	finished := service.GetJob(jobID)
	assert.Equal(t, job.COMPLETE, finished.State)
	assert.Equal(t, "A Title", finished.Result.Media.Title)
	assert.NotNil(t, finished.StartedAt)
	assert.NotNil(t, finished.FinishedAt)

	select {
	case handlerEvent := <-completions:
		assert.Equal(t, jobID, handlerEvent.Payload)
	default:
		t.Fatal("expected a completion event")
	}
	runner.AssertExpectations(t)
}

func TestPerformJob_FailureRecordsExplainedReason(t *testing.T) {
	runner := &MockRunner{}
	service := job.New(job.Config{Parallelism: 1}, runner, event.New(), nil, nil)

	req := &download.Request{MediaURL: "https://example.com/a"}
	jobID := service.Queue(req)

	runner.On("Run", mock.Anything, jobID, req).
		Return(nil, &download.UploadError{Path: "/work/abc.mp4", Attempts: 2}).Once()

	claimed, err := service.PerformJob(nil)
	assert.True(t, claimed)
	assert.Nil(t, err, "a failed job is still a successfully performed task")

	failed := service.GetJob(jobID)
	assert.Equal(t, job.FAILED, failed.State)
	assert.Contains(t, failed.FailureReason, "could not be stored")
	assert.Nil(t, failed.Result)
}

func TestPerformJob_ClaimsEachJobExactlyOnce(t *testing.T) {
	runner := &MockRunner{}
	service := job.New(job.Config{Parallelism: 2}, runner, event.New(), nil, nil)

	first := service.Queue(&download.Request{MediaURL: "https://example.com/a"})
	second := service.Queue(&download.Request{MediaURL: "https://example.com/b"})

	runner.On("Run", mock.Anything, first, mock.Anything).Return(testRecord(), nil).Once()
	runner.On("Run", mock.Anything, second, mock.Anything).Return(testRecord(), nil).Once()

	claimed, _ := service.PerformJob(nil)
	assert.True(t, claimed)
	claimed, _ = service.PerformJob(nil)
	assert.True(t, claimed)
	claimed, _ = service.PerformJob(nil)
	assert.False(t, claimed, "no third claim exists")

	runner.AssertExpectations(t)
}

func TestHistorian_SeesFullLifecycle(t *testing.T) {
	runner := &MockRunner{}
	historian := &MockHistorian{}
	service := job.New(job.Config{Parallelism: 1}, runner, event.New(), nil, historian)

	req := &download.Request{MediaURL: "https://example.com/a"}
	historian.On("Created", mock.Anything, req.MediaURL).Once()
	historian.On("Started", mock.Anything).Once()
	historian.On("Completed", mock.Anything, mock.Anything).Once()

	jobID := service.Queue(req)
	runner.On("Run", mock.Anything, jobID, req).Return(testRecord(), nil).Once()

	service.PerformJob(nil)

	historian.AssertExpectations(t)
	historian.AssertNotCalled(t, "Failed", mock.Anything, mock.Anything)
}

func TestGetAllJobs_ReturnsCopy(t *testing.T) {
	service := job.New(job.Config{Parallelism: 1}, &MockRunner{}, event.New(), nil, nil)

	service.Queue(&download.Request{MediaURL: "https://example.com/a"})
	service.Queue(&download.Request{MediaURL: "https://example.com/b"})

	jobs := service.GetAllJobs()
	assert.Len(t, jobs, 2)

	jobs[0] = nil
	assert.NotNil(t, service.GetAllJobs()[0], "mutating the returned slice must not affect the queue")
}

func TestResultCache_DisabledWithoutAddress(t *testing.T) {
	cache := job.NewResultCache("", "", 0)
	assert.False(t, cache.Enabled())
	assert.Nil(t, cache.Get(context.Background(), "result:any"))
}

func TestResultCache_KeyIgnoresDeliveryFields(t *testing.T) {
	cache := job.NewResultCache("", "", 0)

	base := &download.Request{
		MediaURL: "https://example.com/a",
		Audio:    download.AudioSpec{Extract: true, Format: "mp3"},
	}
	withWebhook := &download.Request{
		MediaURL:   "https://example.com/a",
		WebhookURL: "https://hooks.example.com/x",
		Audio:      download.AudioSpec{Extract: true, Format: "mp3"},
		Thumbnails: download.ThumbnailSpec{Download: true},
	}
	differentFormat := &download.Request{
		MediaURL: "https://example.com/a",
		Audio:    download.AudioSpec{Extract: true, Format: "opus"},
	}

	assert.Equal(t, cache.Key(base), cache.Key(withWebhook), "delivery settings do not affect the artifact")
	assert.NotEqual(t, cache.Key(base), cache.Key(differentFormat))
}
