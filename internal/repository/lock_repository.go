package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/repository/base"
)

// LockRepository транзакционные advisory-блокировки
type LockRepository struct {
	*base.Repository
}

func NewLockRepository(b *base.Repository) *LockRepository {
	return &LockRepository{Repository: b}
}

// LockLectureDate блокирует пару (лекция, дата) до конца текущей транзакции
func (r *LockRepository) LockLectureDate(ctx context.Context, lectureID int64, date model.Date) error {
	_, err := r.Conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1::int4, $2::int4)`, int32(lectureID), date.Days())
	if err != nil {
		return fmt.Errorf("lock lecture %d date %s: %w", lectureID, date, err)
	}
	return nil
}
