package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"go.uber.org/zap"
)

// Ключи маршрутизации интеграционных событий
const (
	EventWindowCreated    = "window.created"
	EventWindowExpired    = "window.expired"
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

type WindowEvent struct {
	WindowID   int64           `json:"window_id"`
	LectureID  int64           `json:"lecture_id"`
	TeacherID  int64           `json:"teacher_id"`
	Date       model.Date      `json:"date"`
	Start      model.TimeOfDay `json:"start_time"`
	End        model.TimeOfDay `json:"end_time"`
	ActorID    int64           `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type BookingEvent struct {
	BookingID  int64               `json:"booking_id"`
	UserID     int64               `json:"user_id"`
	LectureID  int64               `json:"lecture_id"`
	TeacherID  int64               `json:"teacher_id"`
	Date       model.Date          `json:"date"`
	Start      model.TimeOfDay     `json:"start_time"`
	End        model.TimeOfDay     `json:"end_time"`
	Status     model.BookingStatus `json:"status"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func newWindowEvent(w *model.AvailabilityWindow, actorID int64, at time.Time) WindowEvent {
	return WindowEvent{
		WindowID:   w.ID,
		LectureID:  w.LectureID,
		TeacherID:  w.TeacherID,
		Date:       w.Date,
		Start:      w.Start,
		End:        w.End,
		ActorID:    actorID,
		OccurredAt: at,
	}
}

func newBookingEvent(b *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:  b.ID,
		UserID:     b.UserID,
		LectureID:  b.LectureID,
		TeacherID:  b.TeacherID,
		Date:       b.Date,
		Start:      b.Start,
		End:        b.End,
		Status:     b.Status,
		OccurredAt: at,
	}
}

// publishEvent вызывается после коммита, ошибка доставки только логируется
func publishEvent(ctx context.Context, pub EventPublisher, logger *zap.Logger, key string, payload any) {
	if err := pub.Publish(ctx, key, payload); err != nil {
		logger.Warn("Failed to publish event", zap.String("routing_key", key), zap.Error(err))
	}
}
