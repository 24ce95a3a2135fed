package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yeremiapane/reservation-app/models"
)

const (
	endOfDay = 24 * 60

	HoursReasonClosed  = "closed"
	HoursReasonInvalid = "invalid hours configuration"
)

// HoursCheck is the verdict for one candidate time. Only Allowed decides.
type HoursCheck struct {
	Allowed bool             `json:"allowed"`
	Weekday string           `json:"weekday"`
	Applied *models.DayHours `json:"applied_hours,omitempty"`
	Open24h bool             `json:"open_24h"`
	Reason  string           `json:"reason,omitempty"`
}

// ParseClock turns a loosely written time of day into minutes after
// midnight. It accepts "HH:MM", "HH:MM:SS", a bare hour, "9am" and "9:30 pm",
// and drops anything from the first '-' on, so "5-6pm" reads as 5:00.
// "24:00" is end of day.
func ParseClock(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(s, "-"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return 0, false
	}

	meridiem := ""
	for _, suffix := range []string{"am", "pm", "a", "p"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix[:1]
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	values := make([]int, 3)
	for i, part := range parts {
		if part == "" || len(part) > 2 {
			return 0, false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		values[i] = n
	}
	hour, minute, second := values[0], values[1], values[2]
	if minute > 59 || second > 59 {
		return 0, false
	}

	switch meridiem {
	case "a", "p":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "p" {
			hour += 12
		}
	default:
		if hour == 24 && minute == 0 && second == 0 {
			return endOfDay, true
		}
		if hour > 23 {
			return 0, false
		}
	}
	return hour*60 + minute, true
}

// CheckOperatingHours decides whether t, already in the restaurant's
// timezone, falls inside the hours configured for its weekday. The interval
// is half-open, and a close earlier than open runs past midnight.
func CheckOperatingHours(t time.Time, hours models.OperatingHours) HoursCheck {
	check := HoursCheck{Weekday: t.Weekday().String()}

	applied, ok := hours.For(t.Weekday())
	if !ok {
		check.Reason = HoursReasonClosed
		return check
	}
	check.Applied = &applied

	open, okOpen := ParseClock(applied.Open)
	closing, okClose := ParseClock(applied.Close)
	if !okOpen || !okClose {
		check.Reason = HoursReasonInvalid
		return check
	}

	if open == closing || (open == 0 && closing == endOfDay) {
		check.Allowed = true
		check.Open24h = true
		return check
	}

	minute := t.Hour()*60 + t.Minute()
	if open < closing {
		check.Allowed = minute >= open && minute < closing
	} else {
		check.Allowed = minute >= open || minute < closing
	}
	if !check.Allowed {
		check.Reason = fmt.Sprintf("outside operating hours (%s - %s)", applied.Open, applied.Close)
	}
	return check
}

// Message is the text shown to a guest whose time was refused.
func (h HoursCheck) Message() string {
	if h.Allowed {
		return ""
	}
	if h.Reason == HoursReasonClosed {
		return fmt.Sprintf("The restaurant is closed on %s.", h.Weekday)
	}
	if h.Applied != nil && h.Reason != HoursReasonInvalid {
		return fmt.Sprintf("Reservations on %s are only accepted between %s and %s.",
			h.Weekday, h.Applied.Open, h.Applied.Close)
	}
	return "The restaurant's operating hours could not be read."
}
