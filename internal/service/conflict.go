package service

import "github.com/Freeeeeet/lecture_booking/internal/model"

// Два вида пересечений намеренно разделены: окна сравниваются как полуоткрытые
// интервалы, брони одного пользователя - с включёнными границами.

// WindowsOverlap пересечение полуоткрытых интервалов [s1,e1) и [s2,e2).
// Касание концами (e1 == s2) пересечением не считается.
func WindowsOverlap(s1, e1, s2, e2 model.TimeOfDay) bool {
	return s1 < e2 && s2 < e1
}

// WindowContains окно [ws,we) целиком покрывает [s,e)
func WindowContains(ws, we, s, e model.TimeOfDay) bool {
	return ws <= s && we >= e
}

// BookingsOverlapInclusive существующая бронь [s2,e2) конфликтует с новой [s,e),
// если накрывает её начало, её конец или целиком лежит внутри неё.
func BookingsOverlapInclusive(s, e, s2, e2 model.TimeOfDay) bool {
	return (s2 <= s && e2 > s) ||
		(s2 < e && e2 >= e) ||
		(s2 >= s && e2 <= e)
}

// SameInterval точное совпадение даты и времени
func SameInterval(a, b model.TimeRange) bool {
	return a.Date.Equal(b.Date) && a.Start == b.Start && a.End == b.End
}

// findOverlappingWindow первое живое окно той же даты, пересекающее [start,end)
func findOverlappingWindow(windows []*model.AvailabilityWindow, date model.Date, start, end model.TimeOfDay) *model.AvailabilityWindow {
	for _, w := range windows {
		if w.IsExpired || !w.Date.Equal(date) {
			continue
		}
		if WindowsOverlap(start, end, w.Start, w.End) {
			return w
		}
	}
	return nil
}

// findContainingWindow живое окно преподавателя, покрывающее [start,end)
func findContainingWindow(windows []*model.AvailabilityWindow, teacherID int64, date model.Date, start, end model.TimeOfDay) *model.AvailabilityWindow {
	for _, w := range windows {
		if w.IsExpired || w.TeacherID != teacherID || !w.Date.Equal(date) {
			continue
		}
		if WindowContains(w.Start, w.End, start, end) {
			return w
		}
	}
	return nil
}

// findSelfConflict активная бронь того же пользователя, конфликтующая с [start,end)
func findSelfConflict(bookings []*model.Booking, userID int64, date model.Date, start, end model.TimeOfDay) *model.Booking {
	for _, b := range bookings {
		if b.UserID != userID || !b.Status.IsActive() || !b.Date.Equal(date) {
			continue
		}
		if BookingsOverlapInclusive(start, end, b.Start, b.End) {
			return b
		}
	}
	return nil
}

// findBlockingBooking активная бронь, совпадающая с окном по дате и времени
func findBlockingBooking(bookings []*model.Booking, w *model.AvailabilityWindow) *model.Booking {
	for _, b := range bookings {
		if b.IsActive() && SameInterval(b.Range(), w.Range()) {
			return b
		}
	}
	return nil
}
