package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/render"
)

// Рисует неделю на тестовых данных, удобно для проверки вёрстки картинки
func main() {
	out := flag.String("o", "week.png", "output file")
	flag.Parse()

	now := time.Now()
	monday := model.DateOf(now)
	for monday.Weekday() != time.Monday {
		monday = monday.AddDays(-1)
	}

	at := func(h, m int) model.TimeOfDay { return model.NewTimeOfDay(h, m) }

	week := &model.WeekSchedule{
		Lecture:   &model.Lecture{ID: 1, Title: "Distributed Systems", TeacherID: 5},
		WeekStart: monday,
		Windows: []*model.AvailabilityWindow{
			{ID: 1, LectureID: 1, TeacherID: 5, Date: monday, Start: at(9, 0), End: at(12, 0)},
			{ID: 2, LectureID: 1, TeacherID: 5, Date: monday, Start: at(14, 0), End: at(15, 30)},
			{ID: 3, LectureID: 1, TeacherID: 7, Date: monday.AddDays(1), Start: at(10, 0), End: at(13, 0)},
			{ID: 4, LectureID: 1, TeacherID: 5, Date: monday.AddDays(2), Start: at(15, 0), End: at(18, 0)},
			{ID: 5, LectureID: 1, TeacherID: 5, Date: monday.AddDays(4), Start: at(11, 0), End: at(14, 0)},
		},
		Bookings: []*model.Booking{
			{ID: 1, UserID: 100, LectureID: 1, TeacherID: 5, Date: monday, Start: at(9, 0), End: at(10, 0), Status: model.BookingStatusConfirmed},
			{ID: 2, UserID: 101, LectureID: 1, TeacherID: 5, Date: monday, Start: at(10, 30), End: at(11, 30), Status: model.BookingStatusPending},
			{ID: 3, UserID: 100, LectureID: 1, TeacherID: 7, Date: monday.AddDays(1), Start: at(11, 0), End: at(12, 0), Status: model.BookingStatusPending},
			{ID: 4, UserID: 102, LectureID: 1, TeacherID: 5, Date: monday.AddDays(4), Start: at(12, 0), End: at(13, 0), Status: model.BookingStatusConfirmed},
		},
	}

	img, err := render.WeekImage(week, now)
	if err != nil {
		fmt.Printf("Ошибка генерации изображения: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, img, 0644); err != nil {
		fmt.Printf("Ошибка сохранения файла: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Изображение сохранено в %s\n", *out)
	fmt.Printf("Неделя: %s - %s\n", monday, monday.AddDays(6))
}
