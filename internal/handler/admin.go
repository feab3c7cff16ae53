package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelys/studio-scheduler/internal/model"
	"github.com/avelys/studio-scheduler/internal/repository"
	"github.com/avelys/studio-scheduler/internal/service"
)

// AdminHandler groups the services behind the admin surface: series
// creation and reads, occurrence exclusion, ad-hoc classes, direct
// check-in, attendance reversal and membership lookups.  Request
// validation here is limited to binding and shape checks; business
// preconditions live in the services.
type AdminHandler struct {
	Planner     *service.Planner
	Exclude     *service.Excluder
	CheckIn     *service.CheckIn
	Series      *repository.SeriesRepo
	Memberships *repository.MembershipRepo
}

// NewAdminHandler constructs an AdminHandler.  All dependencies must be non-nil.
func NewAdminHandler(planner *service.Planner, exclude *service.Excluder, checkIn *service.CheckIn, series *repository.SeriesRepo, memberships *repository.MembershipRepo) *AdminHandler {
	if planner == nil || exclude == nil || checkIn == nil || series == nil || memberships == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Planner: planner, Exclude: exclude, CheckIn: checkIn, Series: series, Memberships: memberships}
}

// parseClockTime validates an "HH:MM" or "HH:MM:SS" time of day and
// normalizes it to "HH:MM:SS".
func parseClockTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}

// CreateSeries handles POST /v1/series.  It persists a recurrence
// template together with one class row per qualifying date.
func (h *AdminHandler) CreateSeries(c echo.Context) error {
	var body struct {
		Title           string   `json:"title"`
		Instructor      string   `json:"instructor"`
		StartsAtTime    string   `json:"starts_at_time"`
		EndsAtTime      string   `json:"ends_at_time"`
		MaxCapacity     uint32   `json:"max_capacity"`
		Open            *bool    `json:"open"`
		RecurrenceStart string   `json:"recurrence_start"`
		RecurrenceEnd   string   `json:"recurrence_end"`
		Weekdays        []int    `json:"weekdays"`
		ExcludedDates   []string `json:"excluded_dates"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if body.MaxCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_capacity must be positive"})
	}
	startsAt, ok := parseClockTime(body.StartsAtTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at_time"})
	}
	endsAt, ok := parseClockTime(body.EndsAtTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ends_at_time"})
	}
	recStart, err := time.Parse("2006-01-02", body.RecurrenceStart)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recurrence_start"})
	}
	recEnd, err := time.Parse("2006-01-02", body.RecurrenceEnd)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recurrence_end"})
	}
	excluded := make([]time.Time, 0, len(body.ExcludedDates))
	for _, s := range body.ExcludedDates {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid excluded date: " + s})
		}
		excluded = append(excluded, d)
	}
	open := true
	if body.Open != nil {
		open = *body.Open
	}

	series := &model.ClassSeries{
		Title:           title,
		Instructor:      strings.TrimSpace(body.Instructor),
		StartsAtTime:    startsAt,
		EndsAtTime:      endsAt,
		MaxCapacity:     body.MaxCapacity,
		DefaultOpen:     open,
		RecurrenceStart: recStart,
		RecurrenceEnd:   recEnd,
		Weekdays:        body.Weekdays,
	}
	dates, err := h.Planner.CreateSeries(c.Request().Context(), series, excluded)
	if err != nil {
		if err == service.ErrNoOccurrences {
			return writeCoreError(c, err)
		}
		// Expansion failures are validation errors; storage was never touched.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	dateStrs := make([]string, len(dates))
	for i, d := range dates {
		dateStrs[i] = d.Format("2006-01-02")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"series_id":   series.ID,
		"occurrences": len(dates),
		"dates":       dateStrs,
	})
}

// GetSeries handles GET /v1/series/:id and returns the recurrence
// template, not its occurrences.
func (h *AdminHandler) GetSeries(c echo.Context) error {
	seriesID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid series id"})
	}
	series, err := h.Series.GetByID(c.Request().Context(), seriesID)
	if err != nil {
		return writeCoreError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":               series.ID,
		"title":            series.Title,
		"instructor":       series.Instructor,
		"starts_at_time":   series.StartsAtTime,
		"ends_at_time":     series.EndsAtTime,
		"max_capacity":     series.MaxCapacity,
		"default_open":     series.DefaultOpen,
		"recurrence_start": series.RecurrenceStart.Format("2006-01-02"),
		"recurrence_end":   series.RecurrenceEnd.Format("2006-01-02"),
		"weekdays":         series.Weekdays,
	})
}

// ListMemberships handles GET /v1/customers/:id/memberships.
func (h *AdminHandler) ListMemberships(c echo.Context) error {
	customerID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	memberships, err := h.Memberships.ListByCustomer(c.Request().Context(), customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(memberships))
	for _, m := range memberships {
		entry := echo.Map{
			"id":        m.ID,
			"type_name": m.TypeName,
			"is_active": m.IsActive,
			"unlimited": m.RemainingSessions == nil,
		}
		if m.RemainingSessions != nil {
			entry["remaining_sessions"] = *m.RemainingSessions
		}
		if m.EndsOn != nil {
			entry["ends_on"] = m.EndsOn.Format("2006-01-02")
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, echo.Map{"memberships": out})
}

// ExcludeOccurrence handles POST /v1/series/:id/exclusions.  The body
// references the occurrence by class_id or by date.
func (h *AdminHandler) ExcludeOccurrence(c echo.Context) error {
	seriesID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid series id"})
	}
	var body struct {
		ClassID uint64 `json:"class_id"`
		Date    string `json:"date"`
		Reason  string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ref := service.OccurrenceRef{ClassID: body.ClassID}
	if body.ClassID == 0 {
		if body.Date == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "class_id or date is required"})
		}
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
		}
		ref.Date = &d
	}

	class, err := h.Exclude.Exclude(c.Request().Context(), seriesID, ref, strings.TrimSpace(body.Reason))
	if err != nil {
		return writeCoreError(c, err)
	}
	return c.JSON(http.StatusOK, classJSON(*class))
}

// CreateClass handles POST /v1/classes and persists one ad-hoc class.
func (h *AdminHandler) CreateClass(c echo.Context) error {
	var body struct {
		SeriesID     *uint64 `json:"series_id"`
		Title        string  `json:"title"`
		Instructor   string  `json:"instructor"`
		Date         string  `json:"date"`
		StartsAtTime string  `json:"starts_at_time"`
		EndsAtTime   string  `json:"ends_at_time"`
		MaxCapacity  uint32  `json:"max_capacity"`
		Open         *bool   `json:"open"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if body.MaxCapacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_capacity must be positive"})
	}
	date, err := time.Parse("2006-01-02", body.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	startsAt, ok := parseClockTime(body.StartsAtTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at_time"})
	}
	endsAt, ok := parseClockTime(body.EndsAtTime)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ends_at_time"})
	}
	open := true
	if body.Open != nil {
		open = *body.Open
	}

	class := &model.YogaClass{
		SeriesID:     body.SeriesID,
		Title:        title,
		Instructor:   strings.TrimSpace(body.Instructor),
		Date:         date,
		StartsAtTime: startsAt,
		EndsAtTime:   endsAt,
		MaxCapacity:  body.MaxCapacity,
		IsOpen:       open,
	}
	if err := h.Planner.CreateClass(c.Request().Context(), class); err != nil {
		return writeCoreError(c, err)
	}
	return c.JSON(http.StatusCreated, classJSON(*class))
}

// DeleteClass handles DELETE /v1/classes/:id.  Registrations cascade.
func (h *AdminHandler) DeleteClass(c echo.Context) error {
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	if err := h.Planner.DeleteClass(c.Request().Context(), classID); err != nil {
		return writeCoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RecordCheckIn handles POST /v1/classes/:id/checkins: an explicit
// admin check-in for one customer.
func (h *AdminHandler) RecordCheckIn(c echo.Context) error {
	classID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var body struct {
		CustomerID uint64 `json:"customer_id"`
	}
	if err := c.Bind(&body); err != nil || body.CustomerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_id is required"})
	}
	att, err := h.CheckIn.Record(c.Request().Context(), classID, body.CustomerID)
	if err != nil {
		return writeCoreError(c, err)
	}
	resp := echo.Map{
		"attendance_id": att.ID,
		"class_label":   att.ClassLabel,
	}
	if att.MembershipID != nil {
		resp["membership_id"] = *att.MembershipID
	}
	return c.JSON(http.StatusCreated, resp)
}

// ReverseAttendance handles DELETE /v1/attendances/:id.  The used
// membership gets its session back.
func (h *AdminHandler) ReverseAttendance(c echo.Context) error {
	attendanceID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendance id"})
	}
	if err := h.CheckIn.Reverse(c.Request().Context(), attendanceID); err != nil {
		return writeCoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
