package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/repository/base"
)

type LectureRepository struct {
	db *base.Repository
}

func NewLectureRepository(db *base.Repository) *LectureRepository {
	return &LectureRepository{db: db}
}

// Create создаёт лекцию
func (r *LectureRepository) Create(ctx context.Context, l *model.Lecture) error {
	query := `
		INSERT INTO lectures (lecture_title, description, teacher_id, is_multi_teacher, approval_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		l.Title,
		l.Description,
		l.TeacherID,
		l.IsMultiTeacher,
		l.ApprovalStatus,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// GetByID получает лекцию по ID, включая удалённые
func (r *LectureRepository) GetByID(ctx context.Context, id int64) (*model.Lecture, error) {
	query := `
		SELECT id, lecture_title, description, teacher_id, is_multi_teacher,
		       approval_status, is_deleted, deleted_at, created_at
		FROM lectures
		WHERE id = $1
	`

	var l model.Lecture
	err := r.db.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.TeacherID,
		&l.IsMultiTeacher,
		&l.ApprovalStatus,
		&l.IsDeleted,
		&l.DeletedAt,
		&l.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lecture by id: %w", err)
	}
	return &l, nil
}

// UpdatePrimaryTeacher меняет основного преподавателя
func (r *LectureRepository) UpdatePrimaryTeacher(ctx context.Context, lectureID, teacherID int64) error {
	_, err := r.db.ExecAffected(ctx, `UPDATE lectures SET teacher_id = $2 WHERE id = $1`, lectureID, teacherID)
	if err != nil {
		return fmt.Errorf("update primary teacher: %w", err)
	}
	return nil
}

// SoftDelete помечает лекцию удалённой
func (r *LectureRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecAffected(ctx, `UPDATE lectures SET is_deleted = TRUE, deleted_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete lecture: %w", err)
	}
	return nil
}

// UpdateApprovalStatus меняет статус модерации
func (r *LectureRepository) UpdateApprovalStatus(ctx context.Context, id int64, status model.ApprovalStatus) error {
	_, err := r.db.ExecAffected(ctx, `UPDATE lectures SET approval_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update approval status: %w", err)
	}
	return nil
}
