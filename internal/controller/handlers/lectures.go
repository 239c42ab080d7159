package handlers

import (
	"net/http"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/service"
	"github.com/labstack/echo/v4"
)

// CreateLecture POST /api/v1/lectures
func (h *Handlers) CreateLecture(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}

	var req service.CreateLectureRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	lecture, err := h.lectures.CreateLecture(c.Request().Context(), cl, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, lecture)
}

// GetLecture GET /api/v1/lectures/:id
func (h *Handlers) GetLecture(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	lecture, err := h.lectures.GetLecture(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, lecture)
}

// DeleteLecture DELETE /api/v1/lectures/:id
func (h *Handlers) DeleteLecture(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	if err := h.lectures.DeleteLecture(c.Request().Context(), cl, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetApproval PUT /api/v1/lectures/:id/approval
func (h *Handlers) SetApproval(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	var body struct {
		Status string `json:"approval_status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.lectures.SetApproval(c.Request().Context(), cl, id, body.Status); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lecture_id": id, "approval_status": body.Status})
}

// ListTeachers GET /api/v1/lectures/:id/teachers
func (h *Handlers) ListTeachers(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	teachers, err := h.teachers.ListTeachers(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if teachers == nil {
		teachers = []*model.LectureTeacher{}
	}
	return c.JSON(http.StatusOK, teachers)
}

type teacherBody struct {
	TeacherID int64 `json:"teacher_id"`
}

// AddTeacher POST /api/v1/lectures/:id/teachers
func (h *Handlers) AddTeacher(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}
	var body teacherBody
	if err := c.Bind(&body); err != nil || body.TeacherID <= 0 {
		return badRequest(c, "teacher_id is required")
	}

	if err := h.teachers.AddTeacher(c.Request().Context(), cl, id, body.TeacherID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"lecture_id": id, "teacher_id": body.TeacherID})
}

// RemoveTeacher DELETE /api/v1/lectures/:id/teachers/:teacher_id
func (h *Handlers) RemoveTeacher(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}
	teacherID, ok := pathID(c, "teacher_id")
	if !ok {
		return badRequest(c, "invalid teacher id")
	}

	if err := h.teachers.RemoveTeacher(c.Request().Context(), cl, id, teacherID); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePrimary PUT /api/v1/lectures/:id/primary-teacher
func (h *Handlers) ChangePrimary(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}
	var body teacherBody
	if err := c.Bind(&body); err != nil || body.TeacherID <= 0 {
		return badRequest(c, "teacher_id is required")
	}

	if err := h.teachers.ChangePrimary(c.Request().Context(), cl, id, body.TeacherID); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"lecture_id": id, "teacher_id": body.TeacherID})
}
