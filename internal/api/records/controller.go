// Package records exposes the persisted download history: finished
// jobs that survive restarts, unlike the in-memory queue served by the
// downloads endpoints.
package records

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/snagd/snagd/internal/history"
)

const defaultListLimit = 50

type (
	// Service reads the persisted download records. It is nil when the
	// server runs without a database, in which case these routes are
	// never registered.
	Service interface {
		ListDownloads(limit int) ([]*history.Record, error)
		GetDownload(id uuid.UUID) (*history.Record, error)
	}

	Controller struct {
		service Service
	}
)

func New(service Service) *Controller {
	return &Controller{service: service}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
}

// list returns the most recent download records, newest first. The
// optional 'limit' query parameter caps the page size.
func (controller *Controller) list(ec echo.Context) error {
	limit := defaultListLimit
	if raw := ec.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	records, err := controller.service.ListDownloads(limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list download history")
	}

	return ec.JSON(http.StatusOK, records)
}

func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Record ID is not a valid UUID")
	}

	record, err := controller.service.GetDownload(id)
	if err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}

		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch download record")
	}

	return ec.JSON(http.StatusOK, record)
}
