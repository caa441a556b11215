package downloads_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/snagd/snagd/internal/api/downloads"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockJobService struct{ mock.Mock }

func (m *MockJobService) Queue(req *download.Request) uuid.UUID {
	args := m.Called(req)
	return args.Get(0).(uuid.UUID)
}

func (m *MockJobService) GetJob(id uuid.UUID) *job.DownloadJob {
	args := m.Called(id)
	if downloadJob := args.Get(0); downloadJob != nil {
		return downloadJob.(*job.DownloadJob)
	}
	return nil
}

func (m *MockJobService) GetAllJobs() []*job.DownloadJob {
	args := m.Called()
	return args.Get(0).([]*job.DownloadJob)
}

func newTestServer(service *MockJobService) *echo.Echo {
	server := echo.New()
	controller := downloads.New(validator.New(), service)
	controller.SetRoutes(server.Group("/api/snagd/v1/downloads"))
	return server
}

func performRequest(server *echo.Echo, method string, target string, body string) *httptest.ResponseRecorder {
	var request *http.Request
	if body != "" {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
		request.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		request = httptest.NewRequest(method, target, nil)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, request)
	return recorder
}

func TestSubmit_QueuesValidRequest(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	jobID := uuid.New()
	service.On("Queue", mock.MatchedBy(func(req *download.Request) bool {
		return req.MediaURL == "https://example.com/watch?v=abc" && req.Audio.Extract
	})).Return(jobID).Once()

	recorder := performRequest(server, http.MethodPost, "/api/snagd/v1/downloads/",
		`{"media_url":"https://example.com/watch?v=abc","audio":{"extract":true}}`)

	assert.Equal(t, http.StatusAccepted, recorder.Code)

	var submission downloads.SubmissionDto
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &submission))
	assert.Equal(t, jobID, submission.JobID)
	service.AssertExpectations(t)
}

func TestSubmit_RejectsMissingMediaURL(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	recorder := performRequest(server, http.MethodPost, "/api/snagd/v1/downloads/",
		`{"audio":{"extract":true}}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	service.AssertNotCalled(t, "Queue", mock.Anything)
}

func TestSubmit_RejectsInvalidURL(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	recorder := performRequest(server, http.MethodPost, "/api/snagd/v1/downloads/",
		`{"media_url":"not a url"}`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	service.AssertNotCalled(t, "Queue", mock.Anything)
}

func TestSubmit_RejectsMalformedBody(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	recorder := performRequest(server, http.MethodPost, "/api/snagd/v1/downloads/", `{"media_url":`)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestList_ReturnsJobDtos(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	queued := time.Now()
	service.On("GetAllJobs").Return([]*job.DownloadJob{
		{
			ID:       uuid.New(),
			Request:  &download.Request{MediaURL: "https://example.com/a"},
			State:    job.PENDING,
			QueuedAt: queued,
		},
		{
			ID:            uuid.New(),
			Request:       &download.Request{MediaURL: "https://example.com/b"},
			State:         job.FAILED,
			FailureReason: "boom",
			QueuedAt:      queued,
		},
	}).Once()

	recorder := performRequest(server, http.MethodGet, "/api/snagd/v1/downloads/", "")

	assert.Equal(t, http.StatusOK, recorder.Code)

	var dtos []downloads.Dto
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &dtos))
	assert.Len(t, dtos, 2)
	assert.Equal(t, downloads.PENDING, dtos[0].State)
	assert.Equal(t, downloads.FAILED, dtos[1].State)
	assert.Equal(t, "boom", dtos[1].FailureReason)
}

func TestGet_UnknownJobIs404(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	id := uuid.New()
	service.On("GetJob", id).Return(nil).Once()

	recorder := performRequest(server, http.MethodGet, "/api/snagd/v1/downloads/"+id.String()+"/", "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGet_InvalidIDIs400(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	recorder := performRequest(server, http.MethodGet, "/api/snagd/v1/downloads/not-a-uuid/", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	service.AssertNotCalled(t, "GetJob", mock.Anything)
}

func TestGet_ReturnsCompletedJob(t *testing.T) {
	service := &MockJobService{}
	server := newTestServer(service)

	id := uuid.New()
	finished := time.Now()
	service.On("GetJob", id).Return(&job.DownloadJob{
		ID:      id,
		Request: &download.Request{MediaURL: "https://example.com/a"},
		State:   job.COMPLETE,
		Result: &download.ResponseRecord{
			Media: download.MediaBlock{MediaURL: "https://store.example.com/a.mp4", Title: "A"},
		},
		QueuedAt:   finished.Add(-time.Minute),
		FinishedAt: &finished,
	}).Once()

	recorder := performRequest(server, http.MethodGet, "/api/snagd/v1/downloads/"+id.String()+"/", "")

	assert.Equal(t, http.StatusOK, recorder.Code)

	var dto downloads.Dto
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &dto))
	assert.Equal(t, downloads.COMPLETE, dto.State)
	assert.Equal(t, "https://store.example.com/a.mp4", dto.Result.Media.MediaURL)
}
