package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type WindowRepository struct {
	db *base.Repository
}

func NewWindowRepository(db *base.Repository) *WindowRepository {
	return &WindowRepository{db: db}
}

const windowColumns = `s.id, s.lecture_id, s.teacher_id, s.booking_date, s.start_time, s.end_time, s.is_expired, s.created_at`

func scanWindow(row scanner) (*model.AvailabilityWindow, error) {
	var (
		w          model.AvailabilityWindow
		date       time.Time
		start, end pgtype.Time
	)
	if err := row.Scan(&w.ID, &w.LectureID, &w.TeacherID, &date, &start, &end, &w.IsExpired, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Date = fromPgDate(date)
	w.Start = fromPgTime(start)
	w.End = fromPgTime(end)
	return &w, nil
}

func collectWindows(rows pgx.Rows) ([]*model.AvailabilityWindow, error) {
	defer rows.Close()

	var windows []*model.AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// Create создаёт окно
func (r *WindowRepository) Create(ctx context.Context, w *model.AvailabilityWindow) error {
	query := `
		INSERT INTO lecture_schedules (lecture_id, teacher_id, booking_date, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_expired, created_at
	`

	err := r.db.QueryRow(ctx, query,
		w.LectureID,
		w.TeacherID,
		pgDate(w.Date),
		pgTime(w.Start),
		pgTime(w.End),
	).Scan(&w.ID, &w.IsExpired, &w.CreatedAt)
	if err != nil {
		return base.Classify(fmt.Errorf("create window: %w", err))
	}
	return nil
}

// GetByID получает окно по ID, включая истёкшие
func (r *WindowRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilityWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM lecture_schedules s WHERE s.id = $1`

	w, err := scanWindow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get window by id: %w", err)
	}
	return w, nil
}

// ListActiveByLectureDate живые окна лекции на дату
func (r *WindowRepository) ListActiveByLectureDate(ctx context.Context, lectureID int64, date model.Date) ([]*model.AvailabilityWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM lecture_schedules s
		WHERE s.lecture_id = $1
		  AND s.booking_date = $2
		  AND NOT s.is_expired
		ORDER BY s.start_time
	`

	rows, err := r.db.Query(ctx, query, lectureID, pgDate(date))
	if err != nil {
		return nil, fmt.Errorf("list windows by lecture date: %w", err)
	}
	windows, err := collectWindows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan windows: %w", err)
	}
	return windows, nil
}

// ListActiveByLecture живые окна лекции с даты from; нулевая from - без ограничения
func (r *WindowRepository) ListActiveByLecture(ctx context.Context, lectureID int64, from model.Date) ([]*model.AvailabilityWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM lecture_schedules s
		WHERE s.lecture_id = $1
		  AND NOT s.is_expired
		  AND ($2::date IS NULL OR s.booking_date >= $2)
		ORDER BY s.booking_date, s.start_time
	`

	var fromArg *time.Time
	if !from.IsZero() {
		t := pgDate(from)
		fromArg = &t
	}

	rows, err := r.db.Query(ctx, query, lectureID, fromArg)
	if err != nil {
		return nil, fmt.Errorf("list windows by lecture: %w", err)
	}
	windows, err := collectWindows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan windows: %w", err)
	}
	return windows, nil
}

// ListActiveByDate живые окна на дату для неудалённых лекций
func (r *WindowRepository) ListActiveByDate(ctx context.Context, date model.Date, primaryTeacherID *int64, lectureID *int64) ([]*model.AvailabilityWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM lecture_schedules s
		JOIN lectures l ON l.id = s.lecture_id
		WHERE s.booking_date = $1
		  AND NOT s.is_expired
		  AND NOT l.is_deleted
		  AND ($2::bigint IS NULL OR l.teacher_id = $2)
		  AND ($3::bigint IS NULL OR s.lecture_id = $3)
		ORDER BY s.lecture_id, s.start_time
	`

	rows, err := r.db.Query(ctx, query, pgDate(date), primaryTeacherID, lectureID)
	if err != nil {
		return nil, fmt.Errorf("list windows by date: %w", err)
	}
	windows, err := collectWindows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan windows: %w", err)
	}
	return windows, nil
}

// List живые окна неудалённых лекций с названием лекции и именем преподавателя
func (r *WindowRepository) List(ctx context.Context, filter model.WindowFilter) ([]*model.WindowDetail, error) {
	query := `
		SELECT ` + windowColumns + `, l.lecture_title, COALESCE(u.name, '')
		FROM lecture_schedules s
		JOIN lectures l ON l.id = s.lecture_id
		LEFT JOIN users u ON u.id = s.teacher_id
		WHERE NOT s.is_expired
		  AND NOT l.is_deleted
		  AND ($1::bigint IS NULL OR s.lecture_id = $1)
		  AND ($2::bigint IS NULL OR s.teacher_id = $2)
		ORDER BY s.booking_date, s.start_time
	`

	rows, err := r.db.Query(ctx, query, filter.LectureID, filter.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var windows []*model.WindowDetail
	for rows.Next() {
		var (
			d          model.WindowDetail
			date       time.Time
			start, end pgtype.Time
		)
		err := rows.Scan(
			&d.ID, &d.LectureID, &d.TeacherID, &date, &start, &end, &d.IsExpired, &d.CreatedAt,
			&d.LectureTitle, &d.TeacherName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		d.Date = fromPgDate(date)
		d.Start = fromPgTime(start)
		d.End = fromPgTime(end)
		windows = append(windows, &d)
	}
	return windows, rows.Err()
}

// Expire помечает окна истёкшими, строки не удаляются
func (r *WindowRepository) Expire(ctx context.Context, ids []int64) (int64, error) {
	query := `
		UPDATE lecture_schedules
		SET is_expired = TRUE
		WHERE id = ANY($1) AND NOT is_expired
	`

	n, err := r.db.ExecAffected(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("expire windows: %w", err)
	}
	return n, nil
}
