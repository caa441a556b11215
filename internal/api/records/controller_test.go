package records_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/snagd/snagd/internal/api/records"
	"github.com/snagd/snagd/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct{ mock.Mock }

func (m *MockService) ListDownloads(limit int) ([]*history.Record, error) {
	args := m.Called(limit)
	if result := args.Get(0); result != nil {
		return result.([]*history.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) GetDownload(id uuid.UUID) (*history.Record, error) {
	args := m.Called(id)
	if record := args.Get(0); record != nil {
		return record.(*history.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestServer(service *MockService) *echo.Echo {
	server := echo.New()
	records.New(service).SetRoutes(server.Group("/api/snagd/v1/history"))
	return server
}

func get(server *echo.Echo, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func TestList_DefaultLimit(t *testing.T) {
	service := &MockService{}
	server := newTestServer(service)

	service.On("ListDownloads", 50).Return([]*history.Record{
		{ID: uuid.New(), MediaURL: "https://example.com/a", State: "COMPLETE", CreatedAt: time.Now()},
	}, nil).Once()

	recorder := get(server, "/api/snagd/v1/history/")

	assert.Equal(t, http.StatusOK, recorder.Code)

	var results []history.Record
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &results))
	assert.Len(t, results, 1)
	service.AssertExpectations(t)
}

func TestList_ExplicitLimit(t *testing.T) {
	service := &MockService{}
	server := newTestServer(service)

	service.On("ListDownloads", 5).Return([]*history.Record{}, nil).Once()

	recorder := get(server, "/api/snagd/v1/history/?limit=5")

	assert.Equal(t, http.StatusOK, recorder.Code)
	service.AssertExpectations(t)
}

func TestList_RejectsBadLimit(t *testing.T) {
	service := &MockService{}
	server := newTestServer(service)

	assert.Equal(t, http.StatusBadRequest, get(server, "/api/snagd/v1/history/?limit=nope").Code)
	assert.Equal(t, http.StatusBadRequest, get(server, "/api/snagd/v1/history/?limit=0").Code)
	service.AssertNotCalled(t, "ListDownloads", mock.Anything)
}

func TestGet_UnknownRecordIs404(t *testing.T) {
	service := &MockService{}
	server := newTestServer(service)

	id := uuid.New()
	service.On("GetDownload", id).Return(nil, history.ErrRecordNotFound).Once()

	assert.Equal(t, http.StatusNotFound, get(server, "/api/snagd/v1/history/"+id.String()+"/").Code)
}

func TestGet_InvalidIDIs400(t *testing.T) {
	service := &MockService{}
	server := newTestServer(service)

	assert.Equal(t, http.StatusBadRequest, get(server, "/api/snagd/v1/history/nope/").Code)
	service.AssertNotCalled(t, "GetDownload", mock.Anything)
}
