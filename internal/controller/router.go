package controller

import (
	"github.com/Freeeeeet/lecture_booking/internal/controller/handlers"
	"github.com/Freeeeeet/lecture_booking/internal/controller/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// NewRouter собирает echo с публичными и авторизованными маршрутами
func NewRouter(h *handlers.Handlers, jwtSecret string, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))

	e.GET("/healthz", h.Health)

	api := e.Group("/api/v1")

	// Публичные
	api.GET("/schedules", h.ListWindows)
	api.GET("/schedules/:id", h.GetWindow)
	api.GET("/schedules/lecture/:id/week.png", h.WeekImage)
	api.GET("/bookings/lecture/:id/booked-times", h.ListBookedTimes)

	auth := api.Group("", middleware.JWTAuth(jwtSecret))

	auth.POST("/schedules", h.CreateWindow)
	auth.POST("/schedules/batch", h.CreateWindows)
	auth.DELETE("/schedules/:id", h.ExpireWindow)
	auth.DELETE("/schedules/date/:date", h.ExpireWindowsByDate)
	auth.DELETE("/schedules/lecture/:id/all", h.ExpireAllWindows)
	auth.GET("/schedules/lecture/:id/available-times", h.ListAvailableTimes)

	auth.POST("/bookings/register", h.CreateBooking)
	auth.PUT("/bookings/cancel/:id", h.CancelBooking)
	auth.GET("/bookings/lecture/:id", h.ListLectureBookings)
	auth.GET("/bookings/all", h.ListAllBookings)
	auth.GET("/bookings/my-bookings", h.ListMyBookings)
	auth.GET("/bookings/stats", h.BookingStats)

	auth.POST("/lectures", h.CreateLecture)
	auth.GET("/lectures/:id", h.GetLecture)
	auth.GET("/lectures/:id/teachers", h.ListTeachers)
	auth.DELETE("/lectures/:id", h.DeleteLecture)
	auth.PUT("/lectures/:id/approval", h.SetApproval)
	auth.POST("/lectures/:id/teachers", h.AddTeacher)
	auth.DELETE("/lectures/:id/teachers/:teacher_id", h.RemoveTeacher)
	auth.PUT("/lectures/:id/primary-teacher", h.ChangePrimary)

	return e
}
