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

type BookingRepository struct {
	db *base.Repository
}

func NewBookingRepository(db *base.Repository) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `b.id, b.user_id, b.lecture_id, b.teacher_id, b.booking_date, b.start_time, b.end_time, b.status, b.is_expired, b.created_at`

func scanBooking(row scanner, extra ...any) (*model.Booking, error) {
	var (
		b          model.Booking
		date       time.Time
		start, end pgtype.Time
	)
	dest := append([]any{
		&b.ID, &b.UserID, &b.LectureID, &b.TeacherID, &date, &start, &end, &b.Status, &b.IsExpired, &b.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.Date = fromPgDate(date)
	b.Start = fromPgTime(start)
	b.End = fromPgTime(end)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Create создаёт бронирование
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO lecture_bookings (user_id, lecture_id, teacher_id, booking_date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_expired, created_at
	`

	err := r.db.QueryRow(ctx, query,
		b.UserID,
		b.LectureID,
		b.TeacherID,
		pgDate(b.Date),
		pgTime(b.Start),
		pgTime(b.End),
		b.Status,
	).Scan(&b.ID, &b.IsExpired, &b.CreatedAt)
	if err != nil {
		return base.Classify(fmt.Errorf("create booking: %w", err))
	}
	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return r.getByID(ctx, `SELECT `+bookingColumns+` FROM lecture_bookings b WHERE b.id = $1`, id)
}

// GetByIDForUpdate получает бронирование и блокирует строку
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	return r.getByID(ctx, `SELECT `+bookingColumns+` FROM lecture_bookings b WHERE b.id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) getByID(ctx context.Context, query string, id int64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return b, nil
}

// ListByLectureDate все брони лекции на дату
func (r *BookingRepository) ListByLectureDate(ctx context.Context, lectureID int64, date model.Date) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM lecture_bookings b
		WHERE b.lecture_id = $1 AND b.booking_date = $2
		ORDER BY b.start_time
	`

	rows, err := r.db.Query(ctx, query, lectureID, pgDate(date))
	if err != nil {
		return nil, fmt.Errorf("list bookings by lecture date: %w", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan bookings: %w", err)
	}
	return bookings, nil
}

// ListActiveByLecture брони pending/confirmed, не истёкшие
func (r *BookingRepository) ListActiveByLecture(ctx context.Context, lectureID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM lecture_bookings b
		WHERE b.lecture_id = $1
		  AND b.status IN ('pending', 'confirmed')
		  AND NOT b.is_expired
		ORDER BY b.booking_date, b.start_time
	`

	rows, err := r.db.Query(ctx, query, lectureID)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("scan bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatus обновляет статус бронирования
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus) error {
	n, err := r.db.ExecAffected(ctx, `UPDATE lecture_bookings SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update booking status: booking %d not found", id)
	}
	return nil
}

const bookingDetailQuery = `
	SELECT ` + bookingColumns + `, COALESCE(u.name, ''), l.lecture_title, COALESCE(t.name, '')
	FROM lecture_bookings b
	JOIN lectures l ON l.id = b.lecture_id
	LEFT JOIN users u ON u.id = b.user_id
	LEFT JOIN users t ON t.id = b.teacher_id
	WHERE b.status <> 'cancelled'
`

// ListDetails брони без отменённых; lectureID nil - по всем лекциям
func (r *BookingRepository) ListDetails(ctx context.Context, lectureID *int64) ([]*model.BookingDetail, error) {
	query := bookingDetailQuery + `
		  AND ($1::bigint IS NULL OR b.lecture_id = $1)
		ORDER BY b.booking_date DESC, b.start_time
	`

	rows, err := r.db.Query(ctx, query, lectureID)
	if err != nil {
		return nil, fmt.Errorf("list booking details: %w", err)
	}
	return collectDetails(rows)
}

// ListDetailsByUser брони пользователя без отменённых
func (r *BookingRepository) ListDetailsByUser(ctx context.Context, userID int64) ([]*model.BookingDetail, error) {
	query := bookingDetailQuery + `
		  AND b.user_id = $1
		ORDER BY b.booking_date DESC, b.start_time
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]*model.BookingDetail, error) {
	defer rows.Close()

	var details []*model.BookingDetail
	for rows.Next() {
		var d model.BookingDetail
		b, err := scanBooking(rows, &d.UserName, &d.LectureTitle, &d.TeacherName)
		if err != nil {
			return nil, fmt.Errorf("scan booking detail: %w", err)
		}
		d.Booking = *b
		details = append(details, &d)
	}
	return details, rows.Err()
}

// Stats количество броней по статусам и самые популярные лекции
func (r *BookingRepository) Stats(ctx context.Context) (*model.BookingStats, error) {
	countsQuery := `
		SELECT
			COUNT(b.id),
			COUNT(*) FILTER (WHERE b.status = 'pending'),
			COUNT(*) FILTER (WHERE b.status = 'confirmed'),
			COUNT(*) FILTER (WHERE b.status = 'cancelled')
		FROM lecture_bookings b
		JOIN lectures l ON l.id = b.lecture_id
		WHERE NOT l.is_deleted
	`

	stats := &model.BookingStats{PopularLectures: []model.LectureBookingCount{}}
	err := r.db.QueryRow(ctx, countsQuery).Scan(&stats.Total, &stats.Pending, &stats.Confirmed, &stats.Cancelled)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	popularQuery := `
		SELECT l.lecture_title, COUNT(b.id) AS booking_count
		FROM lectures l
		JOIN lecture_bookings b ON b.lecture_id = l.id
		WHERE NOT l.is_deleted
		GROUP BY l.id, l.lecture_title
		ORDER BY booking_count DESC
		LIMIT 5
	`

	rows, err := r.db.Query(ctx, popularQuery)
	if err != nil {
		return nil, fmt.Errorf("popular lectures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.LectureBookingCount
		if err := rows.Scan(&c.LectureTitle, &c.BookingCount); err != nil {
			return nil, fmt.Errorf("scan popular lecture: %w", err)
		}
		stats.PopularLectures = append(stats.PopularLectures, c)
	}
	return stats, rows.Err()
}
