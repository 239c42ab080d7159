package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingReq(userID, lectureID, teacherID int64, date, start, end string) CreateBookingRequest {
	return CreateBookingRequest{
		UserID:    userID,
		LectureID: lectureID,
		TeacherID: teacherID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}
}

// Одно и то же время могут занять разные пользователи, но не один дважды
func TestCreateBookingSelfConflictIsPerUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	_, err := env.availability.CreateWindow(ctx, teacher5, windowReq(1, 5, "2030-01-08", "09:00", "10:00"))
	require.NoError(t, err)

	b, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.NotZero(t, b.ID)

	_, err = env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
	assert.ErrorIs(t, err, ErrConflict)

	other, err := env.bookings.CreateBooking(ctx, student8, bookingReq(8, 1, 5, "2030-01-08", "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, other.Status)
	assert.Len(t, env.store.bookings, 2)
}

func TestCreateBookingOutsideWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("no window", func(t *testing.T) {
		env := newTestEnv()
		env.seed()
		_, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("no window even with other bookings", func(t *testing.T) {
		env := newTestEnv()
		env.seed()
		env.store.addBooking(8, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusPending)
		_, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("expired window", func(t *testing.T) {
		env := newTestEnv()
		env.seed()
		w := env.store.addWindow(1, 5, "2030-01-08", "09:00", "10:00")
		w.IsExpired = true
		_, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("sticks out of window", func(t *testing.T) {
		env := newTestEnv()
		env.seed()
		env.store.addWindow(1, 5, "2030-01-08", "09:00", "10:00")
		_, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:30", "10:30"))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("window of another teacher", func(t *testing.T) {
		env := newTestEnv()
		env.seed()
		env.store.addWindow(2, 6, "2030-01-08", "09:00", "10:00")
		_, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 2, 5, "2030-01-08", "09:00", "10:00"))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCreateBookingInsideWindow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	env.store.addWindow(2, 6, "2030-01-08", "09:00", "12:00")

	b, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 2, 6, "2030-01-08", "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), b.TeacherID)

	// соседнее время того же пользователя, касание границ
	_, err = env.bookings.CreateBooking(ctx, student7, bookingReq(7, 2, 6, "2030-01-08", "11:00", "12:00"))
	assert.NoError(t, err)

	// пересекается со своей же бронью
	_, err = env.bookings.CreateBooking(ctx, student7, bookingReq(7, 2, 6, "2030-01-08", "09:00", "10:30"))
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, []string{EventBookingCreated, EventBookingCreated}, env.publisher.keys())
	assert.Equal(t, []int64{2, 2}, env.cache.invalidated)
}

func TestCreateBookingCancelledDoesNotConflict(t *testing.T) {
	env := newTestEnv()
	env.seed()
	env.store.addWindow(1, 5, "2030-01-08", "09:00", "10:00")
	env.store.addBooking(7, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusCancelled)

	_, err := env.bookings.CreateBooking(context.Background(), student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
	assert.NoError(t, err)
}

// Ошибки проверяются по порядку: права, лекция, преподаватель, время, окно, конфликт
func TestCreateBookingErrorOrder(t *testing.T) {
	tests := []struct {
		name   string
		caller Caller
		req    CreateBookingRequest
		want   error
	}{
		{"for another user before anything", student7, bookingReq(8, 42, 9, "bad", "x", "y"), ErrPermission},
		{"unknown lecture before teacher", student7, bookingReq(7, 42, 9, "bad", "x", "y"), ErrNotFound},
		{"non-member teacher before time", student7, bookingReq(7, 1, 6, "bad", "x", "y"), ErrValidation},
		{"bad date", student7, bookingReq(7, 1, 5, "bad", "09:00", "10:00"), ErrValidation},
		{"start after end", student7, bookingReq(7, 1, 5, "2030-01-08", "10:00", "09:00"), ErrValidation},
		{"past date", student7, bookingReq(7, 1, 5, "2030-01-06", "09:00", "10:00"), ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.seed()
			env.store.addWindow(1, 5, "2030-01-06", "09:00", "10:00")

			_, err := env.bookings.CreateBooking(context.Background(), tt.caller, tt.req)

			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, env.store.bookings)
		})
	}
}

func TestCreateBookingDeletedLecture(t *testing.T) {
	env := newTestEnv()
	env.seed()
	env.store.addWindow(1, 5, "2030-01-08", "09:00", "10:00")
	env.store.lectures[1].IsDeleted = true

	_, err := env.bookings.CreateBooking(context.Background(), student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	b := env.store.addBooking(7, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusPending)

	assert.ErrorIs(t, env.bookings.CancelBooking(ctx, student8, b.ID), ErrPermission)
	assert.ErrorIs(t, env.bookings.CancelBooking(ctx, admin, b.ID), ErrPermission)

	require.NoError(t, env.bookings.CancelBooking(ctx, student7, b.ID))
	assert.Equal(t, model.BookingStatusCancelled, env.store.bookings[b.ID].Status)
	assert.Equal(t, []string{EventBookingCancelled}, env.publisher.keys())

	// повторная отмена - ошибка состояния, статус не меняется
	assert.ErrorIs(t, env.bookings.CancelBooking(ctx, student7, b.ID), ErrState)
	assert.Equal(t, model.BookingStatusCancelled, env.store.bookings[b.ID].Status)

	assert.ErrorIs(t, env.bookings.CancelBooking(ctx, student7, 999), ErrNotFound)
}

func TestCancelConfirmedBooking(t *testing.T) {
	env := newTestEnv()
	env.seed()
	b := env.store.addBooking(7, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusConfirmed)

	err := env.bookings.CancelBooking(context.Background(), student7, b.ID)

	assert.ErrorIs(t, err, ErrState)
	assert.Equal(t, "confirmed bookings cannot be cancelled", PublicMessage(err))
	assert.Equal(t, model.BookingStatusConfirmed, env.store.bookings[b.ID].Status)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	env.store.addWindow(1, 5, "2030-01-08", "09:00", "10:00")

	b, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
	require.NoError(t, err)
	require.NoError(t, env.bookings.CancelBooking(ctx, student7, b.ID))

	_, err = env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
	assert.NoError(t, err)
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	env.store.addBooking(7, 2, 6, "2030-01-08", "09:00", "10:00", model.BookingStatusConfirmed)
	env.store.addBooking(8, 2, 6, "2030-01-08", "10:00", "11:00", model.BookingStatusCancelled)
	env.store.addBooking(8, 1, 5, "2030-01-08", "10:00", "11:00", model.BookingStatusPending)

	lectureID := int64(2)
	list, err := env.bookings.ListBookings(ctx, teacher6, &lectureID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "reserved", list[0].DisplayStatus)

	lectureID = 1
	_, err = env.bookings.ListBookings(ctx, teacher6, &lectureID)
	assert.ErrorIs(t, err, ErrPermission)
	_, err = env.bookings.ListBookings(ctx, student7, &lectureID)
	assert.ErrorIs(t, err, ErrPermission)

	_, err = env.bookings.ListBookings(ctx, teacher5, nil)
	assert.ErrorIs(t, err, ErrPermission)
	all, err := env.bookings.ListBookings(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListMyBookings(t *testing.T) {
	env := newTestEnv()
	env.seed()
	env.store.addBooking(7, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusPending)
	env.store.addBooking(7, 1, 5, "2030-01-09", "09:00", "10:00", model.BookingStatusCancelled)
	env.store.addBooking(8, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusPending)

	list, err := env.bookings.ListMyBookings(context.Background(), student7)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pending", list[0].DisplayStatus)
}

func TestListBookedTimes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	env.store.addBooking(7, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusPending)
	env.store.addBooking(8, 1, 5, "2030-01-08", "10:00", "11:00", model.BookingStatusCancelled)

	times, err := env.bookings.ListBookedTimes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, times, 1)
	assert.Equal(t, "09:00", times[0].Start.String())

	_, err = env.bookings.ListBookedTimes(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsAdminOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	env.store.addBooking(7, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusPending)
	env.store.addBooking(8, 1, 5, "2030-01-08", "09:00", "10:00", model.BookingStatusConfirmed)

	_, err := env.bookings.Stats(ctx, teacher5)
	assert.ErrorIs(t, err, ErrPermission)

	st, err := env.bookings.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Total)
	assert.Equal(t, int64(1), st.Pending)
	assert.Equal(t, int64(1), st.Confirmed)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	env := newTestEnv()
	env.seed()
	env.store.addWindow(1, 5, "2030-01-08", "09:00", "10:00")
	env.publisher.err = errStoreDown

	_, err := env.bookings.CreateBooking(context.Background(), student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))

	assert.NoError(t, err)
	assert.Len(t, env.store.bookings, 1)
}

// Бронь, закоммиченная между чтением и записью в кэш, видна при следующем запросе
func TestListBookedTimesIgnoresWriteRacingBooking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seed()
	env.store.addWindow(1, 5, "2030-01-08", "09:00", "10:00")
	svc := env.bookingsWith(concurrentBookings{memBookings{env.store}, once(func() {
		_, err := env.bookings.CreateBooking(ctx, student7, bookingReq(7, 1, 5, "2030-01-08", "09:00", "10:00"))
		require.NoError(t, err)
	})})

	times, err := svc.ListBookedTimes(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, times)

	times, err = svc.ListBookedTimes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, times, 1)
	assert.Equal(t, "2030-01-08 09:00-10:00", times[0].String())
}
