package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/controller/middleware"
	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AvailabilityService interface {
	CreateWindow(ctx context.Context, caller service.Caller, req service.CreateWindowRequest) (int64, error)
	CreateWindows(ctx context.Context, caller service.Caller, reqs []service.CreateWindowRequest) (int, error)
	ExpireWindow(ctx context.Context, caller service.Caller, windowID int64) error
	ExpireWindowsByDate(ctx context.Context, caller service.Caller, lectureID *int64, date string) (int64, error)
	ExpireAllWindows(ctx context.Context, caller service.Caller, lectureID int64) (int64, error)
	GetWindow(ctx context.Context, id int64) (*model.AvailabilityWindow, error)
	ListWindows(ctx context.Context, filter model.WindowFilter) ([]*model.WindowDetail, error)
	ListAvailableTimes(ctx context.Context, lectureID int64) ([]model.TimeRange, error)
	WeekSchedule(ctx context.Context, lectureID int64, day model.Date) (*model.WeekSchedule, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, caller service.Caller, req service.CreateBookingRequest) (*model.Booking, error)
	CancelBooking(ctx context.Context, caller service.Caller, bookingID int64) error
	ListBookings(ctx context.Context, caller service.Caller, lectureID *int64) ([]*model.BookingDetail, error)
	ListMyBookings(ctx context.Context, caller service.Caller) ([]*model.BookingDetail, error)
	ListBookedTimes(ctx context.Context, lectureID int64) ([]model.TimeRange, error)
	Stats(ctx context.Context, caller service.Caller) (*model.BookingStats, error)
}

type LectureService interface {
	CreateLecture(ctx context.Context, caller service.Caller, req service.CreateLectureRequest) (*model.Lecture, error)
	GetLecture(ctx context.Context, id int64) (*model.Lecture, error)
	DeleteLecture(ctx context.Context, caller service.Caller, id int64) error
	SetApproval(ctx context.Context, caller service.Caller, id int64, status string) error
}

type TeacherSetService interface {
	AddTeacher(ctx context.Context, caller service.Caller, lectureID, teacherID int64) error
	RemoveTeacher(ctx context.Context, caller service.Caller, lectureID, teacherID int64) error
	ChangePrimary(ctx context.Context, caller service.Caller, lectureID, newTeacherID int64) error
	ListTeachers(ctx context.Context, lectureID int64) ([]*model.LectureTeacher, error)
}

// WeekRenderer рисует PNG недели
type WeekRenderer func(week *model.WeekSchedule, now time.Time) ([]byte, error)

type Handlers struct {
	availability AvailabilityService
	bookings     BookingService
	lectures     LectureService
	teachers     TeacherSetService
	renderWeek   WeekRenderer
	now          func() time.Time
	logger       *zap.Logger
}

func NewHandlers(
	availability AvailabilityService,
	bookings BookingService,
	lectures LectureService,
	teachers TeacherSetService,
	renderWeek WeekRenderer,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		availability: availability,
		bookings:     bookings,
		lectures:     lectures,
		teachers:     teachers,
		renderWeek:   renderWeek,
		now:          time.Now,
		logger:       logger,
	}
}

// Health GET /healthz
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindPermission:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail отдаёт доменную ошибку клиенту; внутренние ошибки логируются целиком
func (h *Handlers) fail(c echo.Context, err error) error {
	kind := service.KindOf(err)
	if kind == service.KindInternal {
		fields := []zap.Field{
			zap.String("request_id", middleware.RequestIDFrom(c.Request().Context())),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		}
		if caller, ok := service.CallerFrom(c.Request().Context()); ok {
			fields = append(fields, zap.Int64("caller_id", caller.ID))
		}
		h.logger.Error("Request failed", fields...)
	}
	return c.JSON(statusFor(kind), errorResponse{Error: errorDetail{
		Code:    string(kind),
		Message: service.PublicMessage(err),
	}})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: errorDetail{
		Code:    string(service.KindValidation),
		Message: msg,
	}})
}

// unauthenticated на случай маршрута без JWTAuth
func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: errorDetail{
		Code:    "unauthorized",
		Message: "authentication required",
	}})
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// optionalQueryID разбирает необязательный числовой query-параметр
func optionalQueryID(c echo.Context, name string) (*int64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}
