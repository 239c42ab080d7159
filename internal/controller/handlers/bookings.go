package handlers

import (
	"net/http"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/service"
	"github.com/labstack/echo/v4"
)

// CreateBooking POST /api/v1/bookings/register
func (h *Handlers) CreateBooking(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}

	var req service.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	b, err := h.bookings.CreateBooking(c.Request().Context(), cl, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking_id": b.ID, "status": b.Status})
}

// CancelBooking PUT /api/v1/bookings/cancel/:id
func (h *Handlers) CancelBooking(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}

	if err := h.bookings.CancelBooking(c.Request().Context(), cl, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": id, "status": model.BookingStatusCancelled})
}

// ListLectureBookings GET /api/v1/bookings/lecture/:id
func (h *Handlers) ListLectureBookings(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	lectureID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}
	return h.listBookings(c, cl, &lectureID)
}

// ListAllBookings GET /api/v1/bookings/all
func (h *Handlers) ListAllBookings(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}
	return h.listBookings(c, cl, nil)
}

func (h *Handlers) listBookings(c echo.Context, cl service.Caller, lectureID *int64) error {
	bookings, err := h.bookings.ListBookings(c.Request().Context(), cl, lectureID)
	if err != nil {
		return h.fail(c, err)
	}
	if bookings == nil {
		bookings = []*model.BookingDetail{}
	}
	return c.JSON(http.StatusOK, bookings)
}

// ListMyBookings GET /api/v1/bookings/my-bookings
func (h *Handlers) ListMyBookings(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}

	bookings, err := h.bookings.ListMyBookings(c.Request().Context(), cl)
	if err != nil {
		return h.fail(c, err)
	}
	if bookings == nil {
		bookings = []*model.BookingDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings, "total": len(bookings)})
}

// ListBookedTimes GET /api/v1/bookings/lecture/:id/booked-times
func (h *Handlers) ListBookedTimes(c echo.Context) error {
	lectureID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid lecture id")
	}

	times, err := h.bookings.ListBookedTimes(c.Request().Context(), lectureID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, times)
}

// BookingStats GET /api/v1/bookings/stats
func (h *Handlers) BookingStats(c echo.Context) error {
	cl, ok := service.CallerFrom(c.Request().Context())
	if !ok {
		return unauthenticated(c)
	}

	stats, err := h.bookings.Stats(c.Request().Context(), cl)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
