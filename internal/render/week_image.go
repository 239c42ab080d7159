package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontStyle определяет стиль шрифта
type FontStyle string

const (
	FontStyleRegular FontStyle = ""
	FontStyleMedium  FontStyle = "medium"
	FontStyleBold    FontStyle = "bold"
)

// Константы размеров и отступов
const (
	imageWidth        = 1400
	imageHeight       = 900
	headerHeight      = 100
	leftLabelsWidth   = 80
	legendWidth       = 140
	dayPaddingX       = 8
	minBlockHeight    = 8.0
	blockBorderRadius = 6.0
	shadowOffset      = 3.0
	totalDaysInWeek   = 7
	hourPaddingTop    = 1
	hourPaddingBot    = 1
	defaultMinHour    = 8
	defaultMaxHour    = 18
)

// Константы шрифтов
const (
	titleFontSize      = 25.0
	dayFontSize        = 22.0
	hourLabelFontSize  = 16.0
	blockTimeFontSize  = 14.0
	legendItemFontSize = 12.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	windowColor           = color.RGBA{133, 193, 85, 220}
	bookingPendingColor   = color.RGBA{255, 182, 193, 255}
	bookingConfirmedColor = color.RGBA{120, 160, 230, 255}
	blockTextColor        = color.RGBA{20, 24, 28, 230}
	bookingTextColor      = color.RGBA{120, 40, 50, 255}
	blockShadowColor      = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

// hourRange содержит диапазон часов для отображения
type hourRange struct {
	start int
	end   int
	total int
}

var (
	fontsOnce   sync.Once
	parsedFonts map[FontStyle]*opentype.Font
)

func parseFonts() {
	parsedFonts = make(map[FontStyle]*opentype.Font)
	sources := map[FontStyle][]byte{
		FontStyleRegular: goregular.TTF,
		FontStyleMedium:  gomedium.TTF,
		FontStyleBold:    gobold.TTF,
	}
	for style, data := range sources {
		if f, err := opentype.Parse(data); err == nil {
			parsedFonts[style] = f
		}
	}
}

// loadFont ставит шрифт указанного стиля или basicfont как fallback
func loadFont(dc *gg.Context, size float64, style FontStyle) {
	fontsOnce.Do(parseFonts)

	if f, ok := parsedFonts[style]; ok {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// block прямоугольник на сетке недели: окно или бронь
type block struct {
	date   model.Date
	start  model.TimeOfDay
	end    model.TimeOfDay
	fill   color.RGBA
	text   color.RGBA
	inset  bool // брони рисуются поверх окна со сдвигом
	detail string
}

// WeekImage рисует неделю лекции: окна доступности и активные брони.
// now используется для подсветки текущего дня и линии текущего времени.
func WeekImage(week *model.WeekSchedule, now time.Time) ([]byte, error) {
	today := model.DateOf(now)
	weekEnd := week.WeekStart.AddDays(totalDaysInWeek - 1)
	highlightToday := !today.Before(week.WeekStart) && !today.After(weekEnd)

	blocksByDay := groupBlocksByDay(week)
	hours := calculateHourRange(week)

	dc := createCanvas()
	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	title := week.WeekStart.Time().Format("January 2006")
	if week.Lecture != nil && week.Lecture.Title != "" {
		title = week.Lecture.Title + " - " + title
	}
	drawHeader(dc, title)
	drawHourLabels(dc, hours, cellHeight)

	for dayIndex := 0; dayIndex < totalDaysInWeek; dayIndex++ {
		date := week.WeekStart.AddDays(dayIndex)
		x := float64(leftLabelsWidth + dayIndex*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, dayIndex, highlightToday && date.Equal(today))
		drawDayHeader(dc, date, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, b := range blocksByDay[date] {
			drawBlock(dc, b, x, y, dayWidth, hours, cellHeight)
		}
	}

	if highlightToday {
		drawCurrentTimeLine(dc, model.NewTimeOfDay(now.Hour(), now.Minute()), hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	return encodeImage(dc)
}

// groupBlocksByDay окна первыми, чтобы брони рисовались поверх
func groupBlocksByDay(week *model.WeekSchedule) map[model.Date][]block {
	byDay := make(map[model.Date][]block)
	for _, w := range week.Windows {
		byDay[w.Date] = append(byDay[w.Date], block{
			date: w.Date, start: w.Start, end: w.End,
			fill: windowColor, text: blockTextColor,
		})
	}
	for _, b := range week.Bookings {
		fill := bookingPendingColor
		if b.Status == model.BookingStatusConfirmed {
			fill = bookingConfirmedColor
		}
		byDay[b.Date] = append(byDay[b.Date], block{
			date: b.Date, start: b.Start, end: b.End,
			fill: fill, text: bookingTextColor, inset: true,
			detail: fmt.Sprintf("#%d", b.UserID),
		})
	}
	return byDay
}

// calculateHourRange определяет диапазон часов для отображения
func calculateHourRange(week *model.WeekSchedule) hourRange {
	minHour, maxHour := 24, 0
	track := func(start, end model.TimeOfDay) {
		startH := start.Hour()
		endH := end.Hour()
		if end.Minute() > 0 {
			endH++
		}
		if startH < minHour {
			minHour = startH
		}
		if endH > maxHour {
			maxHour = endH
		}
	}
	for _, w := range week.Windows {
		track(w.Start, w.End)
	}
	for _, b := range week.Bookings {
		track(b.Start, b.End)
	}

	if minHour == 24 {
		minHour, maxHour = defaultMinHour, defaultMaxHour
	}

	startHour := minHour - hourPaddingTop
	endHour := maxHour + hourPaddingBot
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 24 {
		endHour = 24
	}
	return hourRange{start: startHour, end: endHour, total: endHour - startHour}
}

// createCanvas создает новый контекст рисования с фоном
func createCanvas() *gg.Context {
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	return dc
}

func drawHeader(dc *gg.Context, title string) {
	loadFont(dc, titleFontSize, FontStyleBold)
	dc.SetColor(textColor)
	_, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/8+h/2, 0, 0)
}

// drawHourLabels рисует колонку с часами слева
func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	loadFont(dc, hourLabelFontSize, FontStyleMedium)
	dc.SetColor(hourLabelColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		y := float64(headerHeight) + float64(hIdx)*cellHeight
		label := fmt.Sprintf("%02d:00", hours.start+hIdx)
		dc.DrawStringAnchored(label, float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

// drawDayBackground рисует фон дня
func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

// drawDayHeader рисует день недели и дату
func drawDayHeader(dc *gg.Context, date model.Date, x, y float64, dayWidth int) {
	loadFont(dc, dayFontSize, FontStyleBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Time().Format("02.01"), x+float64(dayWidth)/2, y, 0.5, -1)
	dc.DrawStringAnchored(date.Weekday().String()[:3], x+float64(dayWidth)/2, y, 0.5, -0.2)
}

// drawHourLines рисует горизонтальные линии часов
func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		hy := y + float64(hIdx)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

func hourOffset(t model.TimeOfDay) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

// drawBlock рисует окно или бронь
func drawBlock(dc *gg.Context, b block, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	blockY := y + (hourOffset(b.start)-float64(hours.start))*cellHeight
	blockHeight := (hourOffset(b.end) - hourOffset(b.start)) * cellHeight
	if blockHeight < minBlockHeight {
		blockHeight = minBlockHeight
	}

	blockX := x + dayPaddingX
	blockWidth := float64(dayWidth) - dayPaddingX*2
	if b.inset {
		blockX += blockWidth / 3
		blockWidth -= blockWidth / 3
	}

	// Тень
	dc.SetColor(blockShadowColor)
	dc.DrawRoundedRectangle(blockX+shadowOffset, blockY+2+shadowOffset, blockWidth, blockHeight-4, blockBorderRadius)
	dc.Fill()

	dc.SetColor(b.fill)
	dc.DrawRoundedRectangle(blockX, blockY+2, blockWidth, blockHeight-4, blockBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(b.fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(blockX, blockY+2, blockWidth, blockHeight-4, blockBorderRadius)
	dc.Stroke()

	loadFont(dc, blockTimeFontSize, FontStyleMedium)
	dc.SetColor(b.text)
	txtX := blockX + 6
	txtY := blockY + 18
	dc.DrawStringAnchored(b.start.String()+"-"+b.end.String(), txtX, txtY, 0, 0)

	if b.detail != "" && blockHeight > 36 {
		loadFont(dc, blockTimeFontSize-2, FontStyleRegular)
		dc.DrawStringAnchored(b.detail, txtX, txtY+16, 0, 0)
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует красную линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, now model.TimeOfDay, hours hourRange, cellHeight float64, dayWidth int) {
	current := hourOffset(now)
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	lineY := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), lineY, float64(leftLabelsWidth+totalDaysInWeek*dayWidth), lineY)
	dc.Stroke()
}

// drawLegend рисует легенду справа
func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Available", windowColor},
		{"Pending", bookingPendingColor},
		{"Confirmed", bookingConfirmedColor},
	}

	boxW, boxH := 20.0, 14.0
	liX := float64(leftLabelsWidth+totalDaysInWeek*dayWidth) + 10
	liY := float64(imageHeight) - 100.0 + 22

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		loadFont(dc, legendItemFontSize, FontStyleRegular)
		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.label, liX+boxW+8, liY+boxH/2+1, 0, 0.2)
		liY += boxH + 14
	}
}

// encodeImage кодирует изображение в PNG
func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
