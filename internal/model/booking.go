package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает подтверждения
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено извне, терминальный
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено владельцем, терминальный
)

// IsActive - бронь занимает время (pending или confirmed)
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// DisplayStatus статус для отображения: confirmed показывается как reserved
func (s BookingStatus) DisplayStatus() string {
	if s == BookingStatusConfirmed {
		return "reserved"
	}
	return string(s)
}

type Booking struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	LectureID int64         `json:"lecture_id"`
	TeacherID int64         `json:"teacher_id"`
	Date      Date          `json:"date"`
	Start     TimeOfDay     `json:"start_time"`
	End       TimeOfDay     `json:"end_time"`
	Status    BookingStatus `json:"status"`
	IsExpired bool          `json:"is_expired"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsActive - бронь учитывается при проверках конфликтов
func (b *Booking) IsActive() bool {
	return b.Status.IsActive() && !b.IsExpired
}

func (b *Booking) Range() TimeRange {
	return TimeRange{Date: b.Date, Start: b.Start, End: b.End}
}

// BookingDetail бронь с полями для отображения
type BookingDetail struct {
	Booking
	UserName      string `json:"user_name"`
	LectureTitle  string `json:"lecture_title"`
	TeacherName   string `json:"teacher_name"`
	DisplayStatus string `json:"display_status"`
}

type LectureBookingCount struct {
	LectureTitle string `json:"lecture_title"`
	BookingCount int64  `json:"booking_count"`
}

type BookingStats struct {
	Total           int64                 `json:"total_bookings"`
	Pending         int64                 `json:"pending_bookings"`
	Confirmed       int64                 `json:"confirmed_bookings"`
	Cancelled       int64                 `json:"cancelled_bookings"`
	PopularLectures []LectureBookingCount `json:"popular_lectures"`
}
