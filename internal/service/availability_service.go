package service

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"go.uber.org/zap"
)

// CreateWindowRequest окно для публикации; дата YYYY-MM-DD, время HH:MM
type CreateWindowRequest struct {
	LectureID int64  `json:"lecture_id"`
	TeacherID int64  `json:"teacher_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AvailabilityService реестр окон доступности
type AvailabilityService struct {
	tx          Transactor
	locker      SlotLocker
	lectureRepo LectureRepository
	userRepo    UserRepository
	windowRepo  WindowRepository
	bookingRepo BookingRepository
	teachers    *TeacherSetService
	gate        PermissionGate
	cache       TimesCache
	publisher   EventPublisher
	now         Clock
	logger      *zap.Logger
}

func NewAvailabilityService(
	tx Transactor,
	locker SlotLocker,
	lectureRepo LectureRepository,
	userRepo UserRepository,
	windowRepo WindowRepository,
	bookingRepo BookingRepository,
	teachers *TeacherSetService,
	cache TimesCache,
	publisher EventPublisher,
	logger *zap.Logger,
) *AvailabilityService {
	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &AvailabilityService{
		tx:          tx,
		locker:      locker,
		lectureRepo: lectureRepo,
		userRepo:    userRepo,
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
func (s *AvailabilityService) WithClock(c Clock) *AvailabilityService {
	s.now = c
	return s
}

func (s *AvailabilityService) today() model.Date {
	return model.DateOf(s.now())
}

// CreateWindow публикует одно окно и возвращает его id
func (s *AvailabilityService) CreateWindow(ctx context.Context, caller Caller, req CreateWindowRequest) (int64, error) {
	created, err := s.createWindows(ctx, caller, []CreateWindowRequest{req})
	if err != nil {
		return 0, err
	}
	return created[0].ID, nil
}

// CreateWindows публикует пачку окон: либо все, либо ни одного
func (s *AvailabilityService) CreateWindows(ctx context.Context, caller Caller, reqs []CreateWindowRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, validationError("no windows provided")
	}
	created, err := s.createWindows(ctx, caller, reqs)
	if err != nil {
		return 0, err
	}
	return len(created), nil
}

func (s *AvailabilityService) createWindows(ctx context.Context, caller Caller, reqs []CreateWindowRequest) ([]*model.AvailabilityWindow, error) {
	if err := s.gate.CanManageWindows(caller); err != nil {
		return nil, err
	}

	var created []*model.AvailabilityWindow
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created = created[:0]
		for _, req := range reqs {
			w, err := s.createWindow(ctx, caller, req, created)
			if err != nil {
				return err
			}
			created = append(created, w)
		}
		return nil
	})
	if err != nil {
		return nil, internalError("create windows", err)
	}

	now := s.now()
	for _, w := range created {
		s.cache.Invalidate(ctx, w.LectureID)
		publishEvent(ctx, s.publisher, s.logger, EventWindowCreated, newWindowEvent(w, caller.ID, now))
		s.logger.Info("Availability window created",
			zap.Int64("window_id", w.ID),
			zap.Int64("lecture_id", w.LectureID),
			zap.Int64("teacher_id", w.TeacherID),
			zap.Stringer("date", w.Date),
			zap.Stringer("start", w.Start),
			zap.Stringer("end", w.End))
	}
	return created, nil
}

// createWindow проверки и вставка одного окна внутри транзакции.
// batch - окна, уже созданные в этой же транзакции.
func (s *AvailabilityService) createWindow(ctx context.Context, caller Caller, req CreateWindowRequest, batch []*model.AvailabilityWindow) (*model.AvailabilityWindow, error) {
	lecture, err := loadLecture(ctx, s.lectureRepo, req.LectureID)
	if err != nil {
		return nil, err
	}

	member := false
	if caller.IsAdmin() {
		if err := s.checkTeacherProfile(ctx, req.TeacherID); err != nil {
			return nil, err
		}
		member, err = s.teachers.IsMember(ctx, lecture, req.TeacherID)
		if err != nil {
			return nil, err
		}
	}
	if err := s.gate.CanCreateWindow(caller, lecture, req.TeacherID, member); err != nil {
		return nil, err
	}

	date, start, end, err := parseInterval(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, validationError("windows cannot be published for past dates")
	}

	if err := s.locker.LockLectureDate(ctx, lecture.ID, date); err != nil {
		return nil, internalError("lock lecture date", err)
	}

	existing, err := s.windowRepo.ListActiveByLectureDate(ctx, lecture.ID, date)
	if err != nil {
		return nil, internalError("list windows", err)
	}
	for _, w := range batch {
		if w.LectureID == lecture.ID {
			existing = append(existing, w)
		}
	}
	if w := findOverlappingWindow(existing, date, start, end); w != nil {
		return nil, conflictError("%s %s-%s overlaps the existing window %s-%s", date, start, end, w.Start, w.End)
	}

	window := &model.AvailabilityWindow{
		LectureID: lecture.ID,
		TeacherID: req.TeacherID,
		Date:      date,
		Start:     start,
		End:       end,
	}
	if err := s.windowRepo.Create(ctx, window); err != nil {
		return nil, internalError("create window", err)
	}
	return window, nil
}

// checkTeacherProfile преподаватель существует, не удалён и имеет профиль
func (s *AvailabilityService) checkTeacherProfile(ctx context.Context, teacherID int64) error {
	user, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		return internalError("get teacher", err)
	}
	if !user.IsActiveTeacher() {
		return notFoundError("teacher %d not found or has no teacher role", teacherID)
	}
	profile, err := s.userRepo.GetTeacherProfile(ctx, teacherID)
	if err != nil {
		return internalError("get teacher profile", err)
	}
	if profile == nil {
		return notFoundError("teacher %d has no teacher profile", teacherID)
	}
	return nil
}

// ExpireWindow снимает одно окно с публикации
func (s *AvailabilityService) ExpireWindow(ctx context.Context, caller Caller, windowID int64) error {
	if err := s.gate.CanManageWindows(caller); err != nil {
		return err
	}

	var window *model.AvailabilityWindow
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		w, err := s.windowRepo.GetByID(ctx, windowID)
		if err != nil {
			return internalError("get window", err)
		}
		if w == nil || w.IsExpired {
			return notFoundError("window %d not found", windowID)
		}

		lecture, err := loadLecture(ctx, s.lectureRepo, w.LectureID)
		if err != nil {
			return err
		}
		if err := s.gate.CanExpireWindows(caller, lecture); err != nil {
			return err
		}

		if err := s.locker.LockLectureDate(ctx, lecture.ID, w.Date); err != nil {
			return internalError("lock lecture date", err)
		}
		bookings, err := s.bookingRepo.ListByLectureDate(ctx, lecture.ID, w.Date)
		if err != nil {
			return internalError("list bookings", err)
		}
		if b := findBlockingBooking(bookings, w); b != nil {
			return conflictError("%s is already booked and cannot be removed", w.Range())
		}

		if _, err := s.windowRepo.Expire(ctx, []int64{w.ID}); err != nil {
			return internalError("expire window", err)
		}
		window = w
		return nil
	})
	if err != nil {
		return internalError("expire window", err)
	}

	s.afterExpire(ctx, caller, []*model.AvailabilityWindow{window})
	return nil
}

// ExpireWindowsByDate снимает все окна на дату. Преподаватель затрагивает только
// лекции, где он основной; lectureID ограничивает одной лекцией.
func (s *AvailabilityService) ExpireWindowsByDate(ctx context.Context, caller Caller, lectureID *int64, dateStr string) (int64, error) {
	if err := s.gate.CanManageWindows(caller); err != nil {
		return 0, err
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		return 0, validationError("%s", err.Error())
	}
	if date.Before(s.today()) {
		return 0, validationError("windows of past dates cannot be removed")
	}

	var primary *int64
	if caller.IsTeacher() {
		id := caller.ID
		primary = &id
	}

	var expired []*model.AvailabilityWindow
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if lectureID != nil {
			lecture, err := loadLecture(ctx, s.lectureRepo, *lectureID)
			if err != nil {
				return err
			}
			if err := s.gate.CanExpireWindows(caller, lecture); err != nil {
				return err
			}
		}

		windows, err := s.lockWindows(ctx, func(ctx context.Context) ([]*model.AvailabilityWindow, error) {
			return s.windowRepo.ListActiveByDate(ctx, date, primary, lectureID)
		})
		if err != nil {
			return err
		}

		bookingsByLecture := make(map[int64][]*model.Booking)
		for _, id := range lectureIDsOf(windows) {
			bookings, err := s.bookingRepo.ListByLectureDate(ctx, id, date)
			if err != nil {
				return internalError("list bookings", err)
			}
			bookingsByLecture[id] = bookings
		}
		if err := s.expireChecked(ctx, windows, bookingsByLecture); err != nil {
			return err
		}
		expired = windows
		return nil
	})
	if err != nil {
		return 0, internalError("expire windows by date", err)
	}

	s.afterExpire(ctx, caller, expired)
	return int64(len(expired)), nil
}

// ExpireAllWindows снимает все живые окна лекции
func (s *AvailabilityService) ExpireAllWindows(ctx context.Context, caller Caller, lectureID int64) (int64, error) {
	if err := s.gate.CanManageWindows(caller); err != nil {
		return 0, err
	}

	var expired []*model.AvailabilityWindow
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lecture, err := loadLecture(ctx, s.lectureRepo, lectureID)
		if err != nil {
			return err
		}
		if err := s.gate.CanExpireWindows(caller, lecture); err != nil {
			return err
		}

		windows, err := s.lockWindows(ctx, func(ctx context.Context) ([]*model.AvailabilityWindow, error) {
			return s.windowRepo.ListActiveByLecture(ctx, lectureID, model.Date{})
		})
		if err != nil {
			return err
		}

		bookings, err := s.bookingRepo.ListActiveByLecture(ctx, lectureID)
		if err != nil {
			return internalError("list bookings", err)
		}
		if err := s.expireChecked(ctx, windows, map[int64][]*model.Booking{lectureID: bookings}); err != nil {
			return err
		}
		expired = windows
		return nil
	})
	if err != nil {
		return 0, internalError("expire all windows", err)
	}

	s.afterExpire(ctx, caller, expired)
	return int64(len(expired)), nil
}

// maxLockRounds сколько раз перечитывать окна, пока появляются новые пары
const maxLockRounds = 5

// lockWindows блокирует пары (лекция, дата) окон из read и перечитывает окна,
// пока каждое прочитанное окно не окажется под блокировкой. Пары одного
// раунда берутся по возрастанию.
func (s *AvailabilityService) lockWindows(ctx context.Context, read func(ctx context.Context) ([]*model.AvailabilityWindow, error)) ([]*model.AvailabilityWindow, error) {
	windows, err := read(ctx)
	if err != nil {
		return nil, internalError("list windows", err)
	}

	locked := make(map[lockPair]bool)
	for round := 0; ; round++ {
		pending := unlockedPairs(windows, locked)
		if len(pending) == 0 {
			return windows, nil
		}
		if round == maxLockRounds {
			return nil, conflictError("windows keep changing, please retry")
		}
		for _, p := range pending {
			if err := s.locker.LockLectureDate(ctx, p.lectureID, p.date); err != nil {
				return nil, internalError("lock lecture date", err)
			}
			locked[p] = true
		}
		// перечитываем под блокировкой
		if windows, err = read(ctx); err != nil {
			return nil, internalError("list windows", err)
		}
	}
}

type lockPair struct {
	lectureID int64
	date      model.Date
}

// unlockedPairs пары окон, ещё не взятые в locked, по возрастанию
func unlockedPairs(windows []*model.AvailabilityWindow, locked map[lockPair]bool) []lockPair {
	seen := make(map[lockPair]bool)
	var pairs []lockPair
	for _, w := range windows {
		p := lockPair{w.LectureID, w.Date}
		if !locked[p] && !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].lectureID != pairs[j].lectureID {
			return pairs[i].lectureID < pairs[j].lectureID
		}
		return pairs[i].date.Before(pairs[j].date)
	})
	return pairs
}

// expireChecked помечает окна истёкшими, если ни одно не занято бронью
func (s *AvailabilityService) expireChecked(ctx context.Context, windows []*model.AvailabilityWindow, bookingsByLecture map[int64][]*model.Booking) error {
	if len(windows) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(windows))
	for _, w := range windows {
		if b := findBlockingBooking(bookingsByLecture[w.LectureID], w); b != nil {
			return conflictError("%s is already booked and cannot be removed", w.Range())
		}
		ids = append(ids, w.ID)
	}
	if _, err := s.windowRepo.Expire(ctx, ids); err != nil {
		return internalError("expire windows", err)
	}
	return nil
}

func (s *AvailabilityService) afterExpire(ctx context.Context, caller Caller, windows []*model.AvailabilityWindow) {
	now := s.now()
	seen := make(map[int64]bool)
	for _, w := range windows {
		if !seen[w.LectureID] {
			s.cache.Invalidate(ctx, w.LectureID)
			seen[w.LectureID] = true
		}
		publishEvent(ctx, s.publisher, s.logger, EventWindowExpired, newWindowEvent(w, caller.ID, now))
	}
	s.logger.Info("Availability windows expired",
		zap.Int("count", len(windows)),
		zap.Int64("caller_id", caller.ID))
}

// GetWindow живое окно по id
func (s *AvailabilityService) GetWindow(ctx context.Context, id int64) (*model.AvailabilityWindow, error) {
	w, err := s.windowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError("get window", err)
	}
	if w == nil || w.IsExpired {
		return nil, notFoundError("window %d not found", id)
	}
	return w, nil
}

// ListWindows живые окна с полями для отображения
func (s *AvailabilityService) ListWindows(ctx context.Context, filter model.WindowFilter) ([]*model.WindowDetail, error) {
	windows, err := s.windowRepo.List(ctx, filter)
	if err != nil {
		return nil, internalError("list windows", err)
	}
	return windows, nil
}

// ListAvailableTimes живые окна лекции начиная с сегодняшнего дня
func (s *AvailabilityService) ListAvailableTimes(ctx context.Context, lectureID int64) ([]model.TimeRange, error) {
	if _, err := loadLecture(ctx, s.lectureRepo, lectureID); err != nil {
		return nil, err
	}
	today := s.today()
	gen, cached := s.cache.Generation(ctx, lectureID)
	if cached {
		if times, ok := s.cache.GetTimes(ctx, model.TimesAvailable, lectureID, gen); ok {
			// запись могла пережить полночь
			return timesFrom(times, today), nil
		}
	}

	windows, err := s.windowRepo.ListActiveByLecture(ctx, lectureID, today)
	if err != nil {
		return nil, internalError("list windows", err)
	}
	times := make([]model.TimeRange, 0, len(windows))
	for _, w := range windows {
		times = append(times, w.Range())
	}

	if cached {
		s.cache.SetTimes(ctx, model.TimesAvailable, lectureID, gen, times)
	}
	return times, nil
}

// WeekSchedule окна и активные брони лекции за неделю, содержащую day
func (s *AvailabilityService) WeekSchedule(ctx context.Context, lectureID int64, day model.Date) (*model.WeekSchedule, error) {
	lecture, err := loadLecture(ctx, s.lectureRepo, lectureID)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = s.today()
	}
	weekStart := weekStartOf(day)
	weekEnd := weekStart.AddDays(6)

	windows, err := s.windowRepo.ListActiveByLecture(ctx, lectureID, weekStart)
	if err != nil {
		return nil, internalError("list windows", err)
	}
	bookings, err := s.bookingRepo.ListActiveByLecture(ctx, lectureID)
	if err != nil {
		return nil, internalError("list bookings", err)
	}

	week := &model.WeekSchedule{Lecture: lecture, WeekStart: weekStart}
	for _, w := range windows {
		if !w.Date.After(weekEnd) {
			week.Windows = append(week.Windows, w)
		}
	}
	for _, b := range bookings {
		if !b.Date.Before(weekStart) && !b.Date.After(weekEnd) {
			week.Bookings = append(week.Bookings, b)
		}
	}
	return week, nil
}

// weekStartOf понедельник недели, содержащей d
func weekStartOf(d model.Date) model.Date {
	offset := int(d.Weekday()) - 1
	if d.Weekday() == time.Sunday {
		offset = 6
	}
	return d.AddDays(-offset)
}

// parseInterval разбирает дату и время и проверяет порядок start < end
func parseInterval(dateStr, startStr, endStr string) (model.Date, model.TimeOfDay, model.TimeOfDay, error) {
	date, err := model.ParseDate(dateStr)
	if err != nil {
		return model.Date{}, 0, 0, validationError("%s", err.Error())
	}
	start, err := model.ParseTimeOfDay(startStr)
	if err != nil {
		return model.Date{}, 0, 0, validationError("%s", err.Error())
	}
	end, err := model.ParseTimeOfDay(endStr)
	if err != nil {
		return model.Date{}, 0, 0, validationError("%s", err.Error())
	}
	if start >= end {
		return model.Date{}, 0, 0, validationError("start time must be before end time")
	}
	return date, start, end, nil
}

// lectureIDsOf уникальные id лекций по возрастанию
func lectureIDsOf(windows []*model.AvailabilityWindow) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, w := range windows {
		if !seen[w.LectureID] {
			seen[w.LectureID] = true
			ids = append(ids, w.LectureID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// timesFrom интервалы с датой не раньше from
func timesFrom(times []model.TimeRange, from model.Date) []model.TimeRange {
	out := make([]model.TimeRange, 0, len(times))
	for _, t := range times {
		if !t.Date.Before(from) {
			out = append(out, t)
		}
	}
	return out
}
