package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avelys/studio-scheduler/internal/repository"
	"github.com/avelys/studio-scheduler/internal/service"
)

// getCustomerID extracts the customer_id placed in context by the
// identity middleware and converts it to uint64.
func getCustomerID(c echo.Context) (uint64, error) {
	v := c.Get("customer_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid customer_id in context")
}

// pathID parses a numeric path parameter; zero is rejected.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// writeCoreError maps the core's sentinel errors onto HTTP responses so
// callers can branch on which precondition failed.  Unknown errors
// become a generic 500.
func writeCoreError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrClassNotFound),
		errors.Is(err, repository.ErrSeriesNotFound),
		errors.Is(err, repository.ErrRegistrationNotFound),
		errors.Is(err, repository.ErrAttendanceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrClassFull),
		errors.Is(err, repository.ErrClassClosed),
		errors.Is(err, repository.ErrClassExcluded),
		errors.Is(err, repository.ErrAlreadyRegistered),
		errors.Is(err, repository.ErrAlreadyExcluded),
		errors.Is(err, repository.ErrAlreadyCheckedIn):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNoOccurrences):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
