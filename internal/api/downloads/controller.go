// Package downloads exposes the download job REST surface: submitting
// new download requests and inspecting the jobs they became.
package downloads

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/snagd/snagd/internal/download"
	"github.com/snagd/snagd/internal/job"
	"github.com/snagd/snagd/pkg/logger"
)

var controllerLogger = logger.Get("DownloadsController")

type (
	JobService interface {
		Queue(*download.Request) uuid.UUID
		GetJob(uuid.UUID) *job.DownloadJob
		GetAllJobs() []*job.DownloadJob
	}

	// Controller defines the routes for the downloads endpoints and
	// holds the reference to the job service they operate against.
	Controller struct {
		validate *validator.Validate
		service  JobService
	}
)

func New(validate *validator.Validate, service JobService) *Controller {
	return &Controller{validate: validate, service: service}
}

// SetRoutes accepts the Echo group for the download endpoints
// and sets the routes on them.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/", controller.submit)
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
}

// submit validates the incoming request and queues a new download job
// for it. The job runs asynchronously; the response carries the ID to
// poll (or watch over the websocket) for completion.
func (controller *Controller) submit(ec echo.Context) error {
	var request download.Request
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Request body is not valid JSON")
	}

	if err := controller.validate.Struct(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	jobID := controller.service.Queue(&request)
	controllerLogger.Infof("Queued download job %s for %s\n", jobID, request.MediaURL)

	return ec.JSON(http.StatusAccepted, SubmissionDto{JobID: jobID})
}

// list returns all the download jobs, represented as DTOs.
func (controller *Controller) list(ec echo.Context) error {
	jobs := controller.service.GetAllJobs()
	dtos := make([]*Dto, len(jobs))
	for k, v := range jobs {
		dtos[k] = NewDto(v)
	}

	return ec.JSON(http.StatusOK, dtos)
}

// get uses the 'id' path param from the context and retrieves the job
// from the underlying service. If found, a DTO representing the job is
// returned.
func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Job ID is not a valid UUID")
	}

	downloadJob := controller.service.GetJob(id)
	if downloadJob == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	return ec.JSON(http.StatusOK, NewDto(downloadJob))
}
