package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/repository/base"
)

// UserRepository чтение пользователей и профилей преподавателей.
// Регистрация и редактирование аккаунтов живут в другом сервисе.
type UserRepository struct {
	db *base.Repository
}

func NewUserRepository(db *base.Repository) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, name, email, role, is_deleted, created_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.IsDeleted,
		&u.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// GetTeacherProfile получает профиль преподавателя
func (r *UserRepository) GetTeacherProfile(ctx context.Context, id int64) (*model.TeacherProfile, error) {
	var p model.TeacherProfile
	err := r.db.QueryRow(ctx, `SELECT id, bio FROM teacher_profiles WHERE id = $1`, id).Scan(&p.ID, &p.Bio)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher profile: %w", err)
	}
	return &p, nil
}
