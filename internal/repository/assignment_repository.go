package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/repository/base"
)

// AssignmentRepository дополнительные преподаватели лекций
type AssignmentRepository struct {
	db *base.Repository
}

func NewAssignmentRepository(db *base.Repository) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Exists назначен ли преподаватель на лекцию
func (r *AssignmentRepository) Exists(ctx context.Context, lectureID, teacherID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM lecture_teachers WHERE lecture_id = $1 AND teacher_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, lectureID, teacherID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check lecture teacher: %w", err)
	}
	return exists, nil
}

// Add назначает преподавателя
func (r *AssignmentRepository) Add(ctx context.Context, lectureID, teacherID int64) error {
	_, err := r.db.ExecAffected(ctx,
		`INSERT INTO lecture_teachers (lecture_id, teacher_id) VALUES ($1, $2)`,
		lectureID, teacherID)
	if err != nil {
		return base.Classify(fmt.Errorf("add lecture teacher: %w", err))
	}
	return nil
}

// Remove снимает преподавателя
func (r *AssignmentRepository) Remove(ctx context.Context, lectureID, teacherID int64) error {
	_, err := r.db.ExecAffected(ctx,
		`DELETE FROM lecture_teachers WHERE lecture_id = $1 AND teacher_id = $2`,
		lectureID, teacherID)
	if err != nil {
		return fmt.Errorf("remove lecture teacher: %w", err)
	}
	return nil
}

// ListByLecture назначенные преподаватели в порядке назначения
func (r *AssignmentRepository) ListByLecture(ctx context.Context, lectureID int64) ([]*model.LectureTeacher, error) {
	query := `
		SELECT lt.teacher_id, COALESCE(u.name, '')
		FROM lecture_teachers lt
		LEFT JOIN users u ON u.id = lt.teacher_id
		WHERE lt.lecture_id = $1
		ORDER BY lt.created_at, lt.teacher_id
	`

	rows, err := r.db.Query(ctx, query, lectureID)
	if err != nil {
		return nil, fmt.Errorf("list lecture teachers: %w", err)
	}
	defer rows.Close()

	var teachers []*model.LectureTeacher
	for rows.Next() {
		var t model.LectureTeacher
		if err := rows.Scan(&t.TeacherID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan lecture teacher: %w", err)
		}
		teachers = append(teachers, &t)
	}
	return teachers, rows.Err()
}
