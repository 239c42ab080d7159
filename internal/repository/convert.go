package repository

import (
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/jackc/pgx/v5/pgtype"
)

// колонки TIME хранятся в pgtype.Time (микросекунды от полуночи)

func pgTime(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Duration() / time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) model.TimeOfDay {
	return model.TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}

// колонки DATE передаются как time.Time в UTC

func pgDate(d model.Date) time.Time {
	return d.Time()
}

func fromPgDate(t time.Time) model.Date {
	return model.DateOf(t)
}

type scanner interface {
	Scan(dest ...any) error
}
