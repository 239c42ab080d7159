package handlers

import (
	"net/http"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/service"
	"github.com/labstack/echo/v4"
)

// CreateWindow POST /api/v1/schedules
func (h *Handlers) CreateWindow(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}

	var req service.CreateWindowRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	id, err := h.availability.CreateWindow(c.Request().Context(), cl, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"schedule_id": id})
}

// CreateWindows POST /api/v1/schedules/batch
func (h *Handlers) CreateWindows(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}

	var body struct {
		Schedules []service.CreateWindowRequest `json:"schedules"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	n, err := h.availability.CreateWindows(c.Request().Context(), cl, body.Schedules)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"created_count": n})
}

// ExpireWindow DELETE /api/v1/schedules/:id
func (h *Handlers) ExpireWindow(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid schedule id")
	}

	if err := h.availability.ExpireWindow(c.Request().Context(), cl, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"schedule_id": id, "deleted_count": 1})
}

// ExpireWindowsByDate DELETE /api/v1/schedules/date/:date?lecture_id=
func (h *Handlers) ExpireWindowsByDate(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	lectureID, ok := optionalQueryID(c, "lecture_id")
	if !ok {
		return badRequest(c, "invalid lecture_id")
	}

	n, err := h.availability.ExpireWindowsByDate(c.Request().Context(), cl, lectureID, c.Param("date"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted_count": n})
}

// ExpireAllWindows DELETE /api/v1/schedules/lecture/:id/all
func (h *Handlers) ExpireAllWindows(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	lectureID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	n, err := h.availability.ExpireAllWindows(c.Request().Context(), cl, lectureID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted_count": n})
}

// ListWindows GET /api/v1/schedules?lecture_id=&teacher_id=
func (h *Handlers) ListWindows(c echo.Context) error {
	lectureID, ok := optionalQueryID(c, "lecture_id")
	if !ok {
		return badRequest(c, "invalid lecture_id")
	}
	teacherID, ok := optionalQueryID(c, "teacher_id")
	if !ok {
		return badRequest(c, "invalid teacher_id")
	}

	windows, err := h.availability.ListWindows(c.Request().Context(), model.WindowFilter{
		LectureID: lectureID,
		TeacherID: teacherID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	if windows == nil {
		windows = []*model.WindowDetail{}
	}
	return c.JSON(http.StatusOK, windows)
}

// GetWindow GET /api/v1/schedules/:id
func (h *Handlers) GetWindow(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid schedule id")
	}

	w, err := h.availability.GetWindow(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

// ListAvailableTimes GET /api/v1/schedules/lecture/:id/available-times
func (h *Handlers) ListAvailableTimes(c echo.Context) error {
	lectureID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	times, err := h.availability.ListAvailableTimes(c.Request().Context(), lectureID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, times)
}

// WeekImage GET /api/v1/schedules/lecture/:id/week.png?date=YYYY-MM-DD
func (h *Handlers) WeekImage(c echo.Context) error {
	lectureID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	var day model.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		day = d
	}

	week, err := h.availability.WeekSchedule(c.Request().Context(), lectureID, day)
	if err != nil {
		return h.fail(c, err)
	}
	img, err := h.renderWeek(week, h.now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", img)
}
