package service

import "github.com/Freeeeeet/lecture_booking/internal/model"

// PermissionGate правила авторизации изменений. Не обращается к хранилищу:
// всё нужное (лекция, членство) передаётся вызывающим.
type PermissionGate struct{}

// CanManageWindows роль вообще может управлять окнами
func (PermissionGate) CanManageWindows(c Caller) error {
	if c.IsTeacher() || c.IsAdmin() {
		return nil
	}
	return permissionError("teacher or admin role is required")
}

// CanCreateWindow преподаватель публикует окна только для своей лекции и только от своего имени.
// Администратор может указать любого преподавателя из набора преподавателей лекции.
func (g PermissionGate) CanCreateWindow(c Caller, lecture *model.Lecture, teacherID int64, teacherIsMember bool) error {
	if err := g.CanManageWindows(c); err != nil {
		return err
	}
	if c.IsTeacher() {
		if lecture.TeacherID != c.ID {
			return permissionError("teachers can only publish windows for their own lectures")
		}
		if teacherID != c.ID {
			return permissionError("teachers can only publish windows under their own teacher id")
		}
		return nil
	}
	if !teacherIsMember {
		return permissionError("teacher %d is not assigned to lecture %d", teacherID, lecture.ID)
	}
	return nil
}

// CanExpireWindows преподаватель снимает окна только лекций, где он основной
func (g PermissionGate) CanExpireWindows(c Caller, lecture *model.Lecture) error {
	if err := g.CanManageWindows(c); err != nil {
		return err
	}
	if c.IsTeacher() && lecture.TeacherID != c.ID {
		return permissionError("teachers can only remove windows of their own lectures")
	}
	return nil
}

// CanCreateBooking запись только за себя
func (PermissionGate) CanCreateBooking(c Caller, userID int64) error {
	if c.ID != userID {
		return permissionError("bookings can only be made for yourself")
	}
	return nil
}

// CanCancelBooking отменить может только владелец брони
func (PermissionGate) CanCancelBooking(c Caller, b *model.Booking) error {
	if c.ID != b.UserID {
		return permissionError("only your own bookings can be cancelled")
	}
	return nil
}

// CanViewLectureBookings администратор или преподаватель лекции
func (PermissionGate) CanViewLectureBookings(c Caller, isMember bool) error {
	if c.IsAdmin() || (c.IsTeacher() && isMember) {
		return nil
	}
	return permissionError("no permission to view bookings of this lecture")
}

// CanCreateLecture преподаватель создаёт только одиночные лекции на себя
func (PermissionGate) CanCreateLecture(c Caller, teacherID int64, multiTeacher bool) error {
	switch {
	case c.IsAdmin():
		return nil
	case c.IsTeacher():
		if multiTeacher {
			return permissionError("only admins can create multi-teacher lectures")
		}
		if teacherID != c.ID {
			return permissionError("teachers can only create lectures for themselves")
		}
		return nil
	default:
		return permissionError("teacher or admin role is required")
	}
}

// RequireAdmin операции только для администратора
func (PermissionGate) RequireAdmin(c Caller) error {
	if !c.IsAdmin() {
		return permissionError("admin role is required")
	}
	return nil
}
