package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"go.uber.org/zap"
)

// CreateBookingRequest запись на время внутри опубликованного окна
type CreateBookingRequest struct {
	UserID    int64  `json:"user_id"`
	LectureID int64  `json:"lecture_id"`
	TeacherID int64  `json:"teacher_id"`
	Date      string `json:"reserved_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BookingService журнал броней
type BookingService struct {
	tx          Transactor
	locker      SlotLocker
	lectureRepo LectureRepository
	windowRepo  WindowRepository
	bookingRepo BookingRepository
	teachers    *TeacherSetService
	gate        PermissionGate
	cache       TimesCache
	publisher   EventPublisher
	now         Clock
	logger      *zap.Logger
}

func NewBookingService(
	tx Transactor,
	locker SlotLocker,
	lectureRepo LectureRepository,
	windowRepo WindowRepository,
	bookingRepo BookingRepository,
	teachers *TeacherSetService,
	cache TimesCache,
	publisher EventPublisher,
	logger *zap.Logger,
) *BookingService {
	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &BookingService{
		tx:          tx,
		locker:      locker,
		lectureRepo: lectureRepo,
		windowRepo:  windowRepo,
		bookingRepo: bookingRepo,
		teachers:    teachers,
		cache:       cache,
		publisher:   publisher,
		now:         time.Now,
		logger:      logger,
	}
}

// WithClock подменяет источник времени
func (s *BookingService) WithClock(c Clock) *BookingService {
	s.now = c
	return s
}

// CreateBooking бронирует время для студента. Проверки идут строго по порядку,
// возвращается первая найденная ошибка.
func (s *BookingService) CreateBooking(ctx context.Context, caller Caller, req CreateBookingRequest) (*model.Booking, error) {
	if err := s.gate.CanCreateBooking(caller, req.UserID); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lecture, err := loadLecture(ctx, s.lectureRepo, req.LectureID)
		if err != nil {
			return err
		}

		member, err := s.teachers.IsMember(ctx, lecture, req.TeacherID)
		if err != nil {
			return err
		}
		if !member {
			return validationError("teacher %d does not teach lecture %d", req.TeacherID, req.LectureID)
		}

		date, start, end, err := parseInterval(req.Date, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}
		if date.Before(model.DateOf(s.now())) {
			return validationError("bookings cannot be made for past dates")
		}

		if err := s.locker.LockLectureDate(ctx, lecture.ID, date); err != nil {
			return internalError("lock lecture date", err)
		}

		windows, err := s.windowRepo.ListActiveByLectureDate(ctx, lecture.ID, date)
		if err != nil {
			return internalError("list windows", err)
		}
		if findContainingWindow(windows, req.TeacherID, date, start, end) == nil {
			return validationError("%s %s-%s is not a bookable time", date, start, end)
		}

		// проверка только среди броней этого же пользователя
		existing, err := s.bookingRepo.ListByLectureDate(ctx, lecture.ID, date)
		if err != nil {
			return internalError("list bookings", err)
		}
		if b := findSelfConflict(existing, req.UserID, date, start, end); b != nil {
			return conflictError("you already have a booking at %s-%s on %s", b.Start, b.End, date)
		}

		booking = &model.Booking{
			UserID:    req.UserID,
			LectureID: lecture.ID,
			TeacherID: req.TeacherID,
			Date:      date,
			Start:     start,
			End:       end,
			Status:    model.BookingStatusPending,
		}
		if err := s.bookingRepo.Create(ctx, booking); err != nil {
			return internalError("create booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, internalError("create booking", err)
	}

	s.cache.Invalidate(ctx, booking.LectureID)
	publishEvent(ctx, s.publisher, s.logger, EventBookingCreated, newBookingEvent(booking, s.now()))
	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", booking.UserID),
		zap.Int64("lecture_id", booking.LectureID),
		zap.Int64("teacher_id", booking.TeacherID),
		zap.Stringer("date", booking.Date),
		zap.Stringer("start", booking.Start),
		zap.Stringer("end", booking.End))
	return booking, nil
}

// CancelBooking отменяет бронь владельцем; отменить можно только pending
func (s *BookingService) CancelBooking(ctx context.Context, caller Caller, bookingID int64) error {
	var booking *model.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return internalError("get booking", err)
		}
		if b == nil {
			return notFoundError("booking %d not found", bookingID)
		}
		if err := s.gate.CanCancelBooking(caller, b); err != nil {
			return err
		}

		switch b.Status {
		case model.BookingStatusPending:
		case model.BookingStatusConfirmed:
			return stateError("confirmed bookings cannot be cancelled")
		default:
			return stateError("booking in status %q cannot be cancelled", b.Status)
		}

		if err := s.bookingRepo.UpdateStatus(ctx, b.ID, model.BookingStatusCancelled); err != nil {
			return internalError("cancel booking", err)
		}
		b.Status = model.BookingStatusCancelled
		booking = b
		return nil
	})
	if err != nil {
		return internalError("cancel booking", err)
	}

	s.cache.Invalidate(ctx, booking.LectureID)
	publishEvent(ctx, s.publisher, s.logger, EventBookingCancelled, newBookingEvent(booking, s.now()))
	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", booking.UserID))
	return nil
}

// ListBookings брони без отменённых. lectureID nil - все брони, только для администратора.
func (s *BookingService) ListBookings(ctx context.Context, caller Caller, lectureID *int64) ([]*model.BookingDetail, error) {
	if lectureID == nil {
		if err := s.gate.RequireAdmin(caller); err != nil {
			return nil, err
		}
	} else {
		lecture, err := loadLecture(ctx, s.lectureRepo, *lectureID)
		if err != nil {
			return nil, err
		}
		member := false
		if caller.IsTeacher() {
			if member, err = s.teachers.IsMember(ctx, lecture, caller.ID); err != nil {
				return nil, err
			}
		}
		if err := s.gate.CanViewLectureBookings(caller, member); err != nil {
			return nil, err
		}
	}

	bookings, err := s.bookingRepo.ListDetails(ctx, lectureID)
	if err != nil {
		return nil, internalError("list bookings", err)
	}
	return withDisplayStatus(bookings), nil
}

// ListMyBookings брони инициатора без отменённых
func (s *BookingService) ListMyBookings(ctx context.Context, caller Caller) ([]*model.BookingDetail, error) {
	bookings, err := s.bookingRepo.ListDetailsByUser(ctx, caller.ID)
	if err != nil {
		return nil, internalError("list user bookings", err)
	}
	return withDisplayStatus(bookings), nil
}

// ListBookedTimes занятое время лекции (pending и confirmed)
func (s *BookingService) ListBookedTimes(ctx context.Context, lectureID int64) ([]model.TimeRange, error) {
	if _, err := loadLecture(ctx, s.lectureRepo, lectureID); err != nil {
		return nil, err
	}
	gen, cached := s.cache.Generation(ctx, lectureID)
	if cached {
		if times, ok := s.cache.GetTimes(ctx, model.TimesBooked, lectureID, gen); ok {
			return times, nil
		}
	}

	bookings, err := s.bookingRepo.ListActiveByLecture(ctx, lectureID)
	if err != nil {
		return nil, internalError("list bookings", err)
	}
	times := make([]model.TimeRange, 0, len(bookings))
	for _, b := range bookings {
		times = append(times, b.Range())
	}

	if cached {
		s.cache.SetTimes(ctx, model.TimesBooked, lectureID, gen, times)
	}
	return times, nil
}

// Stats сводка по броням для администратора
func (s *BookingService) Stats(ctx context.Context, caller Caller) (*model.BookingStats, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	stats, err := s.bookingRepo.Stats(ctx)
	if err != nil {
		return nil, internalError("booking stats", err)
	}
	return stats, nil
}

func withDisplayStatus(bookings []*model.BookingDetail) []*model.BookingDetail {
	for _, b := range bookings {
		b.DisplayStatus = b.Status.DisplayStatus()
	}
	return bookings
}
