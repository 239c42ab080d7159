package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:00", "09:00", false},
		{"23:59", "23:59", false},
		{"10:30:45", "10:30", false},
		{"24:00", "", true},
		{"9am", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTimeOfDayOrdering(t *testing.T) {
	assert.Less(t, NewTimeOfDay(9, 59), NewTimeOfDay(10, 0))
	assert.Equal(t, 90*time.Minute, NewTimeOfDay(1, 30).Duration())
}

func TestDateOfDropsClock(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	d := DateOf(time.Date(2030, 1, 7, 23, 30, 0, 0, msk))

	assert.Equal(t, "2030-01-07", d.String())
	assert.Equal(t, time.Monday, d.Weekday())
	assert.True(t, d.Equal(NewDate(2030, time.January, 7)))
	assert.True(t, d.Before(d.AddDays(1)))
}

func TestParseDateRejectsOtherLayouts(t *testing.T) {
	_, err := ParseDate("07.01.2030")
	assert.Error(t, err)
	_, err = ParseDate("2030-02-30")
	assert.Error(t, err)
}

func TestDateDays(t *testing.T) {
	assert.Equal(t, int32(0), NewDate(1970, time.January, 1).Days())
	assert.Equal(t, int32(1), NewDate(1970, time.January, 2).Days())
}

func TestTimeRangeJSON(t *testing.T) {
	r := TimeRange{Date: NewDate(2030, time.January, 8), Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 30)}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2030-01-08","start_time":"09:00","end_time":"10:30"}`, string(data))
}

func TestBookingIsActive(t *testing.T) {
	b := Booking{Status: BookingStatusPending}
	assert.True(t, b.IsActive())
	b.IsExpired = true
	assert.False(t, b.IsActive())
	assert.True(t, b.Status.IsActive(), "status alone ignores expiry")

	assert.False(t, BookingStatusCancelled.IsActive())
	assert.Equal(t, "reserved", BookingStatusConfirmed.DisplayStatus())
	assert.Equal(t, "pending", BookingStatusPending.DisplayStatus())
}
