package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
)

// Интерфейсы хранилища. Методы Get* возвращают nil, nil если запись не найдена.

// Transactor выполняет fn в одной транзакции; ошибка fn откатывает все изменения
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SlotLocker сериализует изменения окон и броней одной лекции на одну дату
type SlotLocker interface {
	LockLectureDate(ctx context.Context, lectureID int64, date model.Date) error
}

type LectureRepository interface {
	Create(ctx context.Context, lecture *model.Lecture) error
	GetByID(ctx context.Context, id int64) (*model.Lecture, error)
	UpdatePrimaryTeacher(ctx context.Context, lectureID, teacherID int64) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	UpdateApprovalStatus(ctx context.Context, id int64, status model.ApprovalStatus) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetTeacherProfile(ctx context.Context, id int64) (*model.TeacherProfile, error)
}

type AssignmentRepository interface {
	Exists(ctx context.Context, lectureID, teacherID int64) (bool, error)
	Add(ctx context.Context, lectureID, teacherID int64) error
	Remove(ctx context.Context, lectureID, teacherID int64) error
	ListByLecture(ctx context.Context, lectureID int64) ([]*model.LectureTeacher, error)
}

type WindowRepository interface {
	Create(ctx context.Context, w *model.AvailabilityWindow) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilityWindow, error)
	// ListActiveByLectureDate живые окна лекции на дату
	ListActiveByLectureDate(ctx context.Context, lectureID int64, date model.Date) ([]*model.AvailabilityWindow, error)
	// ListActiveByLecture живые окна лекции начиная с from (нулевая дата - все)
	ListActiveByLecture(ctx context.Context, lectureID int64, from model.Date) ([]*model.AvailabilityWindow, error)
	// ListActiveByDate живые окна на дату. primaryTeacherID ограничивает лекциями
	// этого основного преподавателя, lectureID - одной лекцией.
	ListActiveByDate(ctx context.Context, date model.Date, primaryTeacherID *int64, lectureID *int64) ([]*model.AvailabilityWindow, error)
	List(ctx context.Context, filter model.WindowFilter) ([]*model.WindowDetail, error)
	Expire(ctx context.Context, ids []int64) (int64, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	// GetByIDForUpdate блокирует строку до конца транзакции
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error)
	// ListByLectureDate брони лекции на дату в любом статусе
	ListByLectureDate(ctx context.Context, lectureID int64, date model.Date) ([]*model.Booking, error)
	ListActiveByLecture(ctx context.Context, lectureID int64) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error
	// ListDetails брони без отменённых; lectureID nil - все лекции
	ListDetails(ctx context.Context, lectureID *int64) ([]*model.BookingDetail, error)
	ListDetailsByUser(ctx context.Context, userID int64) ([]*model.BookingDetail, error)
	Stats(ctx context.Context) (*model.BookingStats, error)
}

// TimesCache кэш публичных списков времени по лекции. Читатель берёт поколение
// до чтения из базы и пишет под ним же; Invalidate начинает новое поколение.
type TimesCache interface {
	// Generation текущее поколение; false - кэш недоступен
	Generation(ctx context.Context, lectureID int64) (int64, bool)
	GetTimes(ctx context.Context, kind model.TimesKind, lectureID, gen int64) ([]model.TimeRange, bool)
	SetTimes(ctx context.Context, kind model.TimesKind, lectureID, gen int64, times []model.TimeRange)
	Invalidate(ctx context.Context, lectureID int64)
}

// EventPublisher публикует интеграционные события после коммита
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Clock источник текущего времени
type Clock func() time.Time

type noopCache struct{}

func (noopCache) Generation(context.Context, int64) (int64, bool) { return 0, false }
func (noopCache) GetTimes(context.Context, model.TimesKind, int64, int64) ([]model.TimeRange, bool) {
	return nil, false
}
func (noopCache) SetTimes(context.Context, model.TimesKind, int64, int64, []model.TimeRange) {}
func (noopCache) Invalidate(context.Context, int64)                                          {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
