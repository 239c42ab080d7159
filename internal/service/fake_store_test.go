package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"go.uber.org/zap"
)

// memStore хранилище в памяти для тестов сервисов. WithinTx откатывает
// все изменения, если fn вернула ошибку.
type memStore struct {
	mu sync.Mutex

	lectures    map[int64]*model.Lecture
	users       map[int64]*model.User
	profiles    map[int64]*model.TeacherProfile
	assignments map[[2]int64]bool
	windows     map[int64]*model.AvailabilityWindow
	bookings    map[int64]*model.Booking
	nextID      int64

	locks []lockKey
	// failOn заставляет операцию с этим именем вернуть ошибку
	failOn string
}

type lockKey struct {
	LectureID int64
	Date      model.Date
}

type txMarker struct{}

var errStoreDown = errors.New("store is down")

func newMemStore() *memStore {
	return &memStore{
		lectures:    make(map[int64]*model.Lecture),
		users:       make(map[int64]*model.User),
		profiles:    make(map[int64]*model.TeacherProfile),
		assignments: make(map[[2]int64]bool),
		windows:     make(map[int64]*model.AvailabilityWindow),
		bookings:    make(map[int64]*model.Booking),
		nextID:      100,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return errStoreDown
	}
	return nil
}

type memSnapshot struct {
	lectures    map[int64]model.Lecture
	assignments map[[2]int64]bool
	windows     map[int64]model.AvailabilityWindow
	bookings    map[int64]model.Booking
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		lectures:    make(map[int64]model.Lecture, len(m.lectures)),
		assignments: make(map[[2]int64]bool, len(m.assignments)),
		windows:     make(map[int64]model.AvailabilityWindow, len(m.windows)),
		bookings:    make(map[int64]model.Booking, len(m.bookings)),
	}
	for k, v := range m.lectures {
		s.lectures[k] = *v
	}
	for k, v := range m.assignments {
		s.assignments[k] = v
	}
	for k, v := range m.windows {
		s.windows[k] = *v
	}
	for k, v := range m.bookings {
		s.bookings[k] = *v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.lectures = make(map[int64]*model.Lecture, len(s.lectures))
	for k, v := range s.lectures {
		v := v
		m.lectures[k] = &v
	}
	m.assignments = s.assignments
	m.windows = make(map[int64]*model.AvailabilityWindow, len(s.windows))
	for k, v := range s.windows {
		v := v
		m.windows[k] = &v
	}
	m.bookings = make(map[int64]*model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		v := v
		m.bookings[k] = &v
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) LockLectureDate(ctx context.Context, lectureID int64, date model.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = append(m.locks, lockKey{lectureID, date})
	return nil
}

// Наполнение

func (m *memStore) addUser(id int64, role model.Role, withProfile bool) {
	m.users[id] = &model.User{ID: id, Name: "user", Role: role}
	if withProfile {
		m.profiles[id] = &model.TeacherProfile{ID: id}
	}
}

func (m *memStore) addLecture(id, teacherID int64, multi bool) *model.Lecture {
	l := &model.Lecture{ID: id, Title: "lecture", TeacherID: teacherID, IsMultiTeacher: multi, ApprovalStatus: model.ApprovalApproved}
	m.lectures[id] = l
	return l
}

func (m *memStore) addWindow(lectureID, teacherID int64, date string, start, end string) *model.AvailabilityWindow {
	d, s, e, err := parseInterval(date, start, end)
	if err != nil {
		panic(err)
	}
	w := &model.AvailabilityWindow{ID: m.id(), LectureID: lectureID, TeacherID: teacherID, Date: d, Start: s, End: e}
	m.windows[w.ID] = w
	return w
}

func (m *memStore) addBooking(userID, lectureID, teacherID int64, date, start, end string, status model.BookingStatus) *model.Booking {
	d, s, e, err := parseInterval(date, start, end)
	if err != nil {
		panic(err)
	}
	b := &model.Booking{ID: m.id(), UserID: userID, LectureID: lectureID, TeacherID: teacherID, Date: d, Start: s, End: e, Status: status}
	m.bookings[b.ID] = b
	return b
}

func (m *memStore) activeWindows() []*model.AvailabilityWindow {
	var out []*model.AvailabilityWindow
	for _, w := range m.windows {
		if !w.IsExpired {
			out = append(out, w)
		}
	}
	sortWindows(out)
	return out
}

func sortWindows(ws []*model.AvailabilityWindow) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].ID < ws[j].ID })
}

func sortBookings(bs []*model.Booking) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].ID < bs[j].ID })
}

// lectureRepo

type memLectures struct{ *memStore }

func (r memLectures) Create(ctx context.Context, l *model.Lecture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = r.id()
	l.CreatedAt = time.Now()
	cp := *l
	r.lectures[l.ID] = &cp
	return nil
}

func (r memLectures) GetByID(ctx context.Context, id int64) (*model.Lecture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("lectures.get"); err != nil {
		return nil, err
	}
	l, ok := r.lectures[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r memLectures) UpdatePrimaryTeacher(ctx context.Context, lectureID, teacherID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lectures[lectureID].TeacherID = teacherID
	return nil
}

func (r memLectures) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lectures[id].IsDeleted = true
	r.lectures[id].DeletedAt = &at
	return nil
}

func (r memLectures) UpdateApprovalStatus(ctx context.Context, id int64, status model.ApprovalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lectures[id].ApprovalStatus = status
	return nil
}

// userRepo

type memUsers struct{ *memStore }

func (r memUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetTeacherProfile(ctx context.Context, id int64) (*model.TeacherProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// assignmentRepo

type memAssignments struct{ *memStore }

func (r memAssignments) Exists(ctx context.Context, lectureID, teacherID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assignments[[2]int64{lectureID, teacherID}], nil
}

func (r memAssignments) Add(ctx context.Context, lectureID, teacherID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[[2]int64{lectureID, teacherID}] = true
	return nil
}

func (r memAssignments) Remove(ctx context.Context, lectureID, teacherID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, [2]int64{lectureID, teacherID})
	return nil
}

func (r memAssignments) ListByLecture(ctx context.Context, lectureID int64) ([]*model.LectureTeacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.LectureTeacher
	for k := range r.assignments {
		if k[0] == lectureID {
			out = append(out, &model.LectureTeacher{TeacherID: k[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeacherID < out[j].TeacherID })
	return out, nil
}

// windowRepo

type memWindows struct{ *memStore }

func (r memWindows) Create(ctx context.Context, w *model.AvailabilityWindow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("windows.create"); err != nil {
		return err
	}
	w.ID = r.id()
	cp := *w
	r.windows[w.ID] = &cp
	return nil
}

func (r memWindows) GetByID(ctx context.Context, id int64) (*model.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func copyWindows(ws []*model.AvailabilityWindow) []*model.AvailabilityWindow {
	out := make([]*model.AvailabilityWindow, 0, len(ws))
	for _, w := range ws {
		cp := *w
		out = append(out, &cp)
	}
	return out
}

func (r memWindows) ListActiveByLectureDate(ctx context.Context, lectureID int64, date model.Date) ([]*model.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AvailabilityWindow
	for _, w := range r.activeWindows() {
		if w.LectureID == lectureID && w.Date.Equal(date) {
			out = append(out, w)
		}
	}
	return copyWindows(out), nil
}

func (r memWindows) ListActiveByLecture(ctx context.Context, lectureID int64, from model.Date) ([]*model.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AvailabilityWindow
	for _, w := range r.activeWindows() {
		if w.LectureID == lectureID && (from.IsZero() || !w.Date.Before(from)) {
			out = append(out, w)
		}
	}
	return copyWindows(out), nil
}

func (r memWindows) ListActiveByDate(ctx context.Context, date model.Date, primaryTeacherID *int64, lectureID *int64) ([]*model.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AvailabilityWindow
	for _, w := range r.activeWindows() {
		if !w.Date.Equal(date) {
			continue
		}
		if lectureID != nil && w.LectureID != *lectureID {
			continue
		}
		if primaryTeacherID != nil {
			l := r.lectures[w.LectureID]
			if l == nil || l.TeacherID != *primaryTeacherID {
				continue
			}
		}
		out = append(out, w)
	}
	return copyWindows(out), nil
}

func (r memWindows) List(ctx context.Context, filter model.WindowFilter) ([]*model.WindowDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WindowDetail
	for _, w := range r.activeWindows() {
		if filter.LectureID != nil && w.LectureID != *filter.LectureID {
			continue
		}
		if filter.TeacherID != nil && w.TeacherID != *filter.TeacherID {
			continue
		}
		out = append(out, &model.WindowDetail{AvailabilityWindow: *w})
	}
	return out, nil
}

func (r memWindows) Expire(ctx context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if w, ok := r.windows[id]; ok && !w.IsExpired {
			w.IsExpired = true
			n++
		}
	}
	return n, nil
}

// bookingRepo

type memBookings struct{ *memStore }

func (r memBookings) Create(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.id()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r memBookings) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r memBookings) GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r memBookings) filter(keep func(*model.Booking) bool) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.bookings {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sortBookings(out)
	return out
}

func (r memBookings) ListByLectureDate(ctx context.Context, lectureID int64, date model.Date) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(b *model.Booking) bool {
		return b.LectureID == lectureID && b.Date.Equal(date)
	}), nil
}

func (r memBookings) ListActiveByLecture(ctx context.Context, lectureID int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(b *model.Booking) bool {
		return b.LectureID == lectureID && b.IsActive()
	}), nil
}

func (r memBookings) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[id].Status = status
	return nil
}

func (r memBookings) details(keep func(*model.Booking) bool) []*model.BookingDetail {
	var out []*model.BookingDetail
	for _, b := range r.filter(keep) {
		if b.Status == model.BookingStatusCancelled {
			continue
		}
		out = append(out, &model.BookingDetail{Booking: *b})
	}
	return out
}

func (r memBookings) ListDetails(ctx context.Context, lectureID *int64) ([]*model.BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.details(func(b *model.Booking) bool {
		return lectureID == nil || b.LectureID == *lectureID
	}), nil
}

func (r memBookings) ListDetailsByUser(ctx context.Context, userID int64) ([]*model.BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.details(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (r memBookings) Stats(ctx context.Context) (*model.BookingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &model.BookingStats{}
	for _, b := range r.bookings {
		st.Total++
		switch b.Status {
		case model.BookingStatusPending:
			st.Pending++
		case model.BookingStatusConfirmed:
			st.Confirmed++
		case model.BookingStatusCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

// Кэш и публикатор с записью вызовов

type recordingCache struct {
	mu          sync.Mutex
	gens        map[int64]int64
	times       map[string][]model.TimeRange
	invalidated []int64
}

func newRecordingCache() *recordingCache {
	return &recordingCache{gens: make(map[int64]int64), times: make(map[string][]model.TimeRange)}
}

func cacheKey(kind model.TimesKind, lectureID, gen int64) string {
	return fmt.Sprintf("%s:%d:%d", kind, lectureID, gen)
}

func (c *recordingCache) Generation(_ context.Context, lectureID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[lectureID], true
}

func (c *recordingCache) GetTimes(_ context.Context, kind model.TimesKind, lectureID, gen int64) ([]model.TimeRange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.times[cacheKey(kind, lectureID, gen)]
	return t, ok
}

func (c *recordingCache) SetTimes(_ context.Context, kind model.TimesKind, lectureID, gen int64, times []model.TimeRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.times[cacheKey(kind, lectureID, gen)] = times
}

func (c *recordingCache) Invalidate(_ context.Context, lectureID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, lectureID)
	c.gens[lectureID]++
}

type publishedEvent struct {
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{key, payload})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Key)
	}
	return out
}

// testEnv собранные сервисы поверх memStore. Сегодня - 2030-01-07 (понедельник).
type testEnv struct {
	store        *memStore
	cache        *recordingCache
	publisher    *recordingPublisher
	teachers     *TeacherSetService
	availability *AvailabilityService
	bookings     *BookingService
	lectures     *LectureService
}

var testNow = time.Date(2030, 1, 7, 12, 0, 0, 0, time.UTC)

func newTestEnv() *testEnv {
	store := newMemStore()
	cache := newRecordingCache()
	pub := &recordingPublisher{}
	logger := zap.NewNop()
	clock := func() time.Time { return testNow }

	lectures := memLectures{store}
	users := memUsers{store}
	windows := memWindows{store}
	bookings := memBookings{store}

	teachers := NewTeacherSetService(store, lectures, users, memAssignments{store}, logger)
	return &testEnv{
		store:     store,
		cache:     cache,
		publisher: pub,
		teachers:  teachers,
		availability: NewAvailabilityService(store, store, lectures, users, windows, bookings,
			teachers, cache, pub, logger).WithClock(clock),
		bookings: NewBookingService(store, store, lectures, windows, bookings,
			teachers, cache, pub, logger).WithClock(clock),
		lectures: NewLectureService(lectures, users, cache, logger).WithClock(clock),
	}
}

var (
	admin    = Caller{ID: 1, Role: model.RoleAdmin}
	teacher5 = Caller{ID: 5, Role: model.RoleTeacher}
	teacher6 = Caller{ID: 6, Role: model.RoleTeacher}
	student7 = Caller{ID: 7, Role: model.RoleStudent}
	student8 = Caller{ID: 8, Role: model.RoleStudent}
)

// seed: лекция 1 (основной 5), мульти-лекция 2 (основной 5, назначен 6),
// лекция 3 преподавателя 6
func (e *testEnv) seed() {
	s := e.store
	s.addUser(1, model.RoleAdmin, false)
	s.addUser(5, model.RoleTeacher, true)
	s.addUser(6, model.RoleTeacher, true)
	s.addUser(9, model.RoleTeacher, false)
	s.addUser(7, model.RoleStudent, false)
	s.addUser(8, model.RoleStudent, false)
	s.addLecture(1, 5, false)
	s.addLecture(2, 5, true)
	s.addLecture(3, 6, false)
	s.assignments[[2]int64{2, 6}] = true
}

// availabilityWith сервис окон поверх другого хранилища окон
func (e *testEnv) availabilityWith(windows WindowRepository) *AvailabilityService {
	return NewAvailabilityService(e.store, e.store, memLectures{e.store}, memUsers{e.store}, windows,
		memBookings{e.store}, e.teachers, e.cache, e.publisher, zap.NewNop()).
		WithClock(func() time.Time { return testNow })
}

// bookingsWith сервис броней поверх другого хранилища броней
func (e *testEnv) bookingsWith(bookings BookingRepository) *BookingService {
	return NewBookingService(e.store, e.store, memLectures{e.store}, memWindows{e.store}, bookings,
		e.teachers, e.cache, e.publisher, zap.NewNop()).
		WithClock(func() time.Time { return testNow })
}

// concurrentWindows вызывает afterRead после каждого чтения списка окон,
// как параллельный запрос, вклинившийся между чтением и продолжением
type concurrentWindows struct {
	memWindows
	afterRead func()
}

func (r concurrentWindows) ListActiveByLecture(ctx context.Context, lectureID int64, from model.Date) ([]*model.AvailabilityWindow, error) {
	ws, err := r.memWindows.ListActiveByLecture(ctx, lectureID, from)
	r.afterRead()
	return ws, err
}

func (r concurrentWindows) ListActiveByDate(ctx context.Context, date model.Date, primaryTeacherID *int64, lectureID *int64) ([]*model.AvailabilityWindow, error) {
	ws, err := r.memWindows.ListActiveByDate(ctx, date, primaryTeacherID, lectureID)
	r.afterRead()
	return ws, err
}

// concurrentBookings то же для активных броней лекции
type concurrentBookings struct {
	memBookings
	afterRead func()
}

func (r concurrentBookings) ListActiveByLecture(ctx context.Context, lectureID int64) ([]*model.Booking, error) {
	bs, err := r.memBookings.ListActiveByLecture(ctx, lectureID)
	r.afterRead()
	return bs, err
}

// once оборачивает fn так, что она выполняется только при первом вызове
func once(fn func()) func() {
	done := false
	return func() {
		if !done {
			done = true
			fn()
		}
	}
}
