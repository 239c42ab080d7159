package service

import (
	"context"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"go.uber.org/zap"
)

// TeacherSetService набор преподавателей лекции: основной + назначенные
type TeacherSetService struct {
	tx             Transactor
	lectureRepo    LectureRepository
	userRepo       UserRepository
	assignmentRepo AssignmentRepository
	gate           PermissionGate
	logger         *zap.Logger
}

func NewTeacherSetService(
	tx Transactor,
	lectureRepo LectureRepository,
	userRepo UserRepository,
	assignmentRepo AssignmentRepository,
	logger *zap.Logger,
) *TeacherSetService {
	return &TeacherSetService{
		tx:             tx,
		lectureRepo:    lectureRepo,
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		logger:         logger,
	}
}

// IsMember преподаватель основной или назначен на лекцию
func (s *TeacherSetService) IsMember(ctx context.Context, lecture *model.Lecture, teacherID int64) (bool, error) {
	if lecture.TeacherID == teacherID {
		return true, nil
	}
	ok, err := s.assignmentRepo.Exists(ctx, lecture.ID, teacherID)
	if err != nil {
		return false, internalError("check lecture teacher", err)
	}
	return ok, nil
}

// AddTeacher назначает дополнительного преподавателя на лекцию с несколькими преподавателями
func (s *TeacherSetService) AddTeacher(ctx context.Context, caller Caller, lectureID, teacherID int64) error {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lecture, err := loadLecture(ctx, s.lectureRepo, lectureID)
		if err != nil {
			return err
		}
		if !lecture.IsMultiTeacher {
			return conflictError("lecture %d is not a multi-teacher lecture", lectureID)
		}

		member, err := s.IsMember(ctx, lecture, teacherID)
		if err != nil {
			return err
		}
		if member {
			return conflictError("teacher %d is already assigned to lecture %d", teacherID, lectureID)
		}

		user, err := s.userRepo.GetByID(ctx, teacherID)
		if err != nil {
			return internalError("get teacher", err)
		}
		if !user.IsActiveTeacher() {
			return conflictError("teacher %d not found or has no teacher role", teacherID)
		}
		profile, err := s.userRepo.GetTeacherProfile(ctx, teacherID)
		if err != nil {
			return internalError("get teacher profile", err)
		}
		if profile == nil {
			return conflictError("teacher %d has no teacher profile", teacherID)
		}

		if err := s.assignmentRepo.Add(ctx, lectureID, teacherID); err != nil {
			return internalError("add lecture teacher", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Teacher assigned to lecture",
		zap.Int64("lecture_id", lectureID),
		zap.Int64("teacher_id", teacherID),
		zap.Int64("admin_id", caller.ID))
	return nil
}

// RemoveTeacher снимает назначенного преподавателя; основной меняется через ChangePrimary
func (s *TeacherSetService) RemoveTeacher(ctx context.Context, caller Caller, lectureID, teacherID int64) error {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lecture, err := loadLecture(ctx, s.lectureRepo, lectureID)
		if err != nil {
			return err
		}
		if lecture.TeacherID == teacherID {
			return validationError("the primary teacher cannot be removed, change the primary teacher instead")
		}

		ok, err := s.assignmentRepo.Exists(ctx, lectureID, teacherID)
		if err != nil {
			return internalError("check lecture teacher", err)
		}
		if !ok {
			return notFoundError("teacher %d is not assigned to lecture %d", teacherID, lectureID)
		}

		if err := s.assignmentRepo.Remove(ctx, lectureID, teacherID); err != nil {
			return internalError("remove lecture teacher", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Teacher removed from lecture",
		zap.Int64("lecture_id", lectureID),
		zap.Int64("teacher_id", teacherID),
		zap.Int64("admin_id", caller.ID))
	return nil
}

// ChangePrimary меняет основного преподавателя лекции с одним преподавателем
func (s *TeacherSetService) ChangePrimary(ctx context.Context, caller Caller, lectureID, newTeacherID int64) error {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return err
	}

	var previous int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lecture, err := loadLecture(ctx, s.lectureRepo, lectureID)
		if err != nil {
			return err
		}
		if lecture.IsMultiTeacher {
			return validationError("primary teacher of a multi-teacher lecture cannot be changed")
		}
		if lecture.TeacherID == newTeacherID {
			return validationError("teacher %d is already the primary teacher", newTeacherID)
		}

		user, err := s.userRepo.GetByID(ctx, newTeacherID)
		if err != nil {
			return internalError("get teacher", err)
		}
		if !user.IsActiveTeacher() {
			return notFoundError("teacher %d not found or has no teacher role", newTeacherID)
		}
		profile, err := s.userRepo.GetTeacherProfile(ctx, newTeacherID)
		if err != nil {
			return internalError("get teacher profile", err)
		}
		if profile == nil {
			return notFoundError("teacher %d has no teacher profile", newTeacherID)
		}

		previous = lecture.TeacherID
		if err := s.lectureRepo.UpdatePrimaryTeacher(ctx, lectureID, newTeacherID); err != nil {
			return internalError("update primary teacher", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Primary teacher changed",
		zap.Int64("lecture_id", lectureID),
		zap.Int64("old_teacher_id", previous),
		zap.Int64("new_teacher_id", newTeacherID))
	return nil
}

// ListTeachers основной преподаватель первым, затем назначенные
func (s *TeacherSetService) ListTeachers(ctx context.Context, lectureID int64) ([]*model.LectureTeacher, error) {
	lecture, err := loadLecture(ctx, s.lectureRepo, lectureID)
	if err != nil {
		return nil, err
	}

	primary := &model.LectureTeacher{TeacherID: lecture.TeacherID, IsPrimary: true}
	user, err := s.userRepo.GetByID(ctx, lecture.TeacherID)
	if err != nil {
		return nil, internalError("get primary teacher", err)
	}
	if user != nil {
		primary.Name = user.Name
	}

	assigned, err := s.assignmentRepo.ListByLecture(ctx, lectureID)
	if err != nil {
		return nil, internalError("list lecture teachers", err)
	}

	teachers := make([]*model.LectureTeacher, 0, len(assigned)+1)
	teachers = append(teachers, primary)
	for _, t := range assigned {
		if t.TeacherID == lecture.TeacherID {
			continue
		}
		teachers = append(teachers, t)
	}
	return teachers, nil
}

// loadLecture лекция, не помеченная удалённой
func loadLecture(ctx context.Context, repo LectureRepository, id int64) (*model.Lecture, error) {
	lecture, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, internalError("get lecture", err)
	}
	if lecture == nil || lecture.IsDeleted {
		return nil, notFoundError("lecture %d not found", id)
	}
	return lecture, nil
}
