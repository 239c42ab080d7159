package service

import (
	"context"
	"strings"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"go.uber.org/zap"
)

type CreateLectureRequest struct {
	Title          string `json:"lecture_title"`
	Description    string `json:"description"`
	TeacherID      int64  `json:"teacher_id"`
	IsMultiTeacher bool   `json:"is_multi_teacher"`
}

// LectureService создание, модерация и удаление лекций
type LectureService struct {
	lectureRepo LectureRepository
	userRepo    UserRepository
	gate        PermissionGate
	cache       TimesCache
	now         Clock
	logger      *zap.Logger
}

func NewLectureService(
	lectureRepo LectureRepository,
	userRepo UserRepository,
	cache TimesCache,
	logger *zap.Logger,
) *LectureService {
	if cache == nil {
		cache = noopCache{}
	}
	return &LectureService{
		lectureRepo: lectureRepo,
		userRepo:    userRepo,
		cache:       cache,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *LectureService) WithClock(c Clock) *LectureService {
	s.now = c
	return s
}

// CreateLecture создаёт лекцию в статусе модерации pending
func (s *LectureService) CreateLecture(ctx context.Context, caller Caller, req CreateLectureRequest) (*model.Lecture, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationError("lecture title is required")
	}
	if req.TeacherID == 0 {
		return nil, validationError("primary teacher id is required")
	}
	if err := s.gate.CanCreateLecture(caller, req.TeacherID, req.IsMultiTeacher); err != nil {
		return nil, err
	}

	if caller.IsAdmin() {
		user, err := s.userRepo.GetByID(ctx, req.TeacherID)
		if err != nil {
			return nil, internalError("get teacher", err)
		}
		if !user.IsActiveTeacher() {
			return nil, notFoundError("teacher %d not found or has no teacher role", req.TeacherID)
		}
	}
	profile, err := s.userRepo.GetTeacherProfile(ctx, req.TeacherID)
	if err != nil {
		return nil, internalError("get teacher profile", err)
	}
	if profile == nil {
		if caller.IsTeacher() {
			return nil, validationError("create your teacher profile first")
		}
		return nil, notFoundError("teacher %d has no teacher profile", req.TeacherID)
	}

	lecture := &model.Lecture{
		Title:          title,
		Description:    req.Description,
		TeacherID:      req.TeacherID,
		IsMultiTeacher: req.IsMultiTeacher,
		ApprovalStatus: model.ApprovalPending,
	}
	if err := s.lectureRepo.Create(ctx, lecture); err != nil {
		return nil, internalError("create lecture", err)
	}

	s.logger.Info("Lecture created",
		zap.Int64("lecture_id", lecture.ID),
		zap.Int64("teacher_id", lecture.TeacherID),
		zap.Bool("multi_teacher", lecture.IsMultiTeacher))
	return lecture, nil
}

func (s *LectureService) GetLecture(ctx context.Context, id int64) (*model.Lecture, error) {
	return loadLecture(ctx, s.lectureRepo, id)
}

// DeleteLecture мягкое удаление
func (s *LectureService) DeleteLecture(ctx context.Context, caller Caller, id int64) error {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return err
	}
	if _, err := loadLecture(ctx, s.lectureRepo, id); err != nil {
		return err
	}
	if err := s.lectureRepo.SoftDelete(ctx, id, s.now()); err != nil {
		return internalError("delete lecture", err)
	}
	s.cache.Invalidate(ctx, id)

	s.logger.Info("Lecture deleted", zap.Int64("lecture_id", id), zap.Int64("admin_id", caller.ID))
	return nil
}

// SetApproval меняет статус модерации
func (s *LectureService) SetApproval(ctx context.Context, caller Caller, id int64, status string) error {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return err
	}
	st, ok := model.ParseApprovalStatus(status)
	if !ok {
		return validationError("unknown approval status %q", status)
	}
	if _, err := loadLecture(ctx, s.lectureRepo, id); err != nil {
		return err
	}
	if err := s.lectureRepo.UpdateApprovalStatus(ctx, id, st); err != nil {
		return internalError("update approval status", err)
	}

	s.logger.Info("Lecture approval status changed",
		zap.Int64("lecture_id", id),
		zap.String("status", string(st)))
	return nil
}
