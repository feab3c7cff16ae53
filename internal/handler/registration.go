package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/queue"
	"github.com/avelys/studio-scheduler/internal/repository"
	"github.com/avelys/studio-scheduler/internal/service"
)

// RegistrationHandler exposes seat registration and cancellation plus
// the schedule reads.  Identity is assumed pre-validated by the bearer
// middleware; operators may act for another customer by supplying
// customer_id explicitly.
type RegistrationHandler struct {
	Registrar     *service.Registrar
	Classes       *repository.ClassRepo
	Registrations *repository.RegistrationRepo
}

// NewRegistrationHandler constructs a RegistrationHandler.  All
// dependencies must be non-nil.
func NewRegistrationHandler(registrar *service.Registrar, classes *repository.ClassRepo, registrations *repository.RegistrationRepo) *RegistrationHandler {
	if registrar == nil || classes == nil || registrations == nil {
		panic("nil dependency passed to NewRegistrationHandler")
	}
	return &RegistrationHandler{Registrar: registrar, Classes: classes, Registrations: registrations}
}

// Register handles POST /v1/classes/:id/registrations.  The customer id
// comes from the verified token; a customer_id in the body overrides it
// for operator-initiated registrations.
func (h *RegistrationHandler) Register(c echo.Context) error {
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var body struct {
		CustomerID uint64 `json:"customer_id"`
		Comment    string `json:"comment"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	customerID := body.CustomerID
	if customerID == 0 {
		var err error
		customerID, err = getCustomerID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
	}
	var comment *string
	if trimmed := strings.TrimSpace(body.Comment); trimmed != "" {
		comment = &trimmed
	}

	reg, err := h.Registrar.Register(c.Request().Context(), classID, customerID, comment)
	if err != nil {
		return writeCoreError(c, err)
	}

	// Best effort: a broker outage must not fail the registration.
	if class, cerr := h.Classes.GetByID(c.Request().Context(), classID); cerr == nil {
		_ = queue.PublishRegistrationConfirmed(c.Request().Context(), queue.RegistrationConfirmedEvent{
			RegistrationID: reg.ID,
			ClassID:        classID,
			CustomerID:     customerID,
			ClassTitle:     class.Title,
			ClassDate:      class.Date.Format("2006-01-02"),
			StartsAt:       class.StartsAtTime,
			RegisteredAt:   time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"registration_id": reg.ID,
		"class_id":        reg.ClassID,
		"customer_id":     reg.CustomerID,
		"status":          reg.Status,
	})
}

// Cancel handles DELETE /v1/classes/:id/registrations/:customerID.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	customerID, ok := pathID(c, "customerID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	if err := h.Registrar.Cancel(c.Request().Context(), classID, customerID); err != nil {
		return writeCoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUpcoming handles GET /v1/classes.  Excluded occurrences are not
// shown.  The Redis cache fronts this endpoint.
func (h *RegistrationHandler) ListUpcoming(c echo.Context) error {
	from := time.Now().UTC()
	if s := c.QueryParam("from"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
		}
		from = d
	}
	classes, err := h.Classes.ListUpcoming(c.Request().Context(), from)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(classes))
	for _, cl := range classes {
		out = append(out, classJSON(cl))
	}
	return c.JSON(http.StatusOK, echo.Map{"classes": out})
}

// Roster handles GET /v1/classes/:id/registrations.
func (h *RegistrationHandler) Roster(c echo.Context) error {
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	if _, err := h.Classes.GetByID(c.Request().Context(), classID); err != nil {
		return writeCoreError(c, err)
	}
	regs, err := h.Registrations.ListByClass(c.Request().Context(), classID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(regs))
	for _, reg := range regs {
		m := echo.Map{
			"registration_id": reg.ID,
			"customer_id":     reg.CustomerID,
			"status":          reg.Status,
			"registered_at":   reg.CreatedAt.UTC().Format(time.RFC3339),
		}
		if reg.Comment != nil {
			m["comment"] = *reg.Comment
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"registrations": out})
}

// classJSON renders a class for API responses.
func classJSON(cl model.YogaClass) echo.Map {
	m := echo.Map{
		"id":             cl.ID,
		"title":          cl.Title,
		"instructor":     cl.Instructor,
		"date":           cl.Date.Format("2006-01-02"),
		"starts_at":      cl.StartInstant().Format(time.RFC3339),
		"starts_at_time": cl.StartsAtTime,
		"ends_at_time":   cl.EndsAtTime,
		"max_capacity":   cl.MaxCapacity,
		"is_open":        cl.IsOpen,
		"is_excluded":    cl.IsExcluded,
	}
	if cl.SeriesID != nil {
		m["series_id"] = *cl.SeriesID
	}
	if cl.ExcludedReason != nil {
		m["excluded_reason"] = *cl.ExcludedReason
	}
	return m
}
