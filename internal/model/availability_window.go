package model

import "time"

// AvailabilityWindow опубликованное преподавателем окно для записи.
// Никогда не удаляется, только помечается истёкшим.
type AvailabilityWindow struct {
	ID        int64     `json:"id"`
	LectureID int64     `json:"lecture_id"`
	TeacherID int64     `json:"teacher_id"`
	Date      Date      `json:"date"`
	Start     TimeOfDay `json:"start_time"`
	End       TimeOfDay `json:"end_time"`
	IsExpired bool      `json:"is_expired"`
	CreatedAt time.Time `json:"created_at"`
}

func (w *AvailabilityWindow) Range() TimeRange {
	return TimeRange{Date: w.Date, Start: w.Start, End: w.End}
}

// WindowDetail окно с полями для отображения
type WindowDetail struct {
	AvailabilityWindow
	LectureTitle string `json:"lecture_title"`
	TeacherName  string `json:"teacher_name"`
}

// WindowFilter фильтр списка окон; nil означает "без ограничения"
type WindowFilter struct {
	LectureID *int64
	TeacherID *int64
}

// WeekSchedule окна и активные брони лекции за неделю (Пн-Вс)
type WeekSchedule struct {
	Lecture   *Lecture
	WeekStart Date
	Windows   []*AvailabilityWindow
	Bookings  []*Booking
}
