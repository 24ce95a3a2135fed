package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/reservation-app/models"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"09:00", 9 * 60, true},
		{"17:30:15", 17*60 + 30, true},
		{"5", 5 * 60, true},
		{"9am", 9 * 60, true},
		{"9:30 PM", 21*60 + 30, true},
		{"12am", 0, true},
		{"12pm", 12 * 60, true},
		{"5-6pm", 5 * 60, true},
		{" 22:00 - 02:00 ", 22 * 60, true},
		{"24:00", 24 * 60, true},
		{"", 0, false},
		{"25:00", 0, false},
		{"13pm", 0, false},
		{"10:75", 0, false},
		{"noon", 0, false},
		{"1:2:3:4", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClock(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// 2026-03-06 is a Friday.
func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 6, hour, minute, 0, 0, time.UTC)
}

func TestCheckOperatingHoursSameDay(t *testing.T) {
	hours := models.OperatingHours{Default: &models.DayHours{Open: "09:00", Close: "17:00"}}

	assert.True(t, CheckOperatingHours(at(9, 0), hours).Allowed)
	assert.True(t, CheckOperatingHours(at(16, 59), hours).Allowed)

	check := CheckOperatingHours(at(17, 0), hours)
	assert.False(t, check.Allowed, "close is exclusive")
	assert.Equal(t, "Friday", check.Weekday)
	assert.Equal(t, "17:00", check.Applied.Close)
	assert.Contains(t, check.Message(), "between 09:00 and 17:00")

	assert.False(t, CheckOperatingHours(at(8, 59), hours).Allowed)
}

func TestCheckOperatingHoursOvernight(t *testing.T) {
	hours := models.OperatingHours{
		Days: map[time.Weekday]models.DaySchedule{
			time.Friday: {Hours: models.DayHours{Open: "22:00", Close: "02:00"}},
		},
	}

	assert.True(t, CheckOperatingHours(at(23, 30), hours).Allowed)
	assert.True(t, CheckOperatingHours(at(1, 59), hours).Allowed)
	assert.False(t, CheckOperatingHours(at(3, 0), hours).Allowed)
	assert.False(t, CheckOperatingHours(at(2, 0), hours).Allowed)
	assert.False(t, CheckOperatingHours(at(21, 59), hours).Allowed)
}

func TestCheckOperatingHoursOpenAllDay(t *testing.T) {
	for _, pair := range []models.DayHours{{Open: "10:00", Close: "10:00"}, {Open: "00:00", Close: "24:00"}} {
		hours := models.OperatingHours{Default: &pair}
		for _, hour := range []int{0, 6, 10, 23} {
			check := CheckOperatingHours(at(hour, 15), hours)
			assert.True(t, check.Allowed)
			assert.True(t, check.Open24h)
		}
	}
}

func TestCheckOperatingHoursClosedDay(t *testing.T) {
	hours := models.OperatingHours{
		Default: &models.DayHours{Open: "09:00", Close: "17:00"},
		Days:    map[time.Weekday]models.DaySchedule{time.Friday: {Closed: true}},
	}

	check := CheckOperatingHours(at(12, 0), hours)
	assert.False(t, check.Allowed)
	assert.Equal(t, HoursReasonClosed, check.Reason)
	assert.Nil(t, check.Applied)
	assert.Equal(t, "The restaurant is closed on Friday.", check.Message())

	check = CheckOperatingHours(at(12, 0), models.OperatingHours{})
	assert.False(t, check.Allowed, "no hours at all means closed")
}

func TestCheckOperatingHoursUnreadable(t *testing.T) {
	hours := models.OperatingHours{Default: &models.DayHours{Open: "whenever", Close: "17:00"}}

	check := CheckOperatingHours(at(12, 0), hours)
	assert.False(t, check.Allowed)
	assert.Equal(t, HoursReasonInvalid, check.Reason)
}
