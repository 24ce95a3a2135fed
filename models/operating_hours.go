package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayHours is an open/close pair of time-of-day strings as entered by the
// owner ("09:00", "5pm", ...). Parsing is left to the hours resolver.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// DaySchedule is the configured value of one weekday.
type DaySchedule struct {
	Closed bool
	Hours  DayHours
}

// OperatingHours is either a default pair applied to every day, a per-weekday
// mapping, or both. A weekday missing from Days falls back to Default.
type OperatingHours struct {
	Default *DayHours
	Days    map[time.Weekday]DaySchedule
}

var weekdayAliases = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "weds": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday accepts full and common abbreviated weekday names in any case.
func ParseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

// HasSchedule reports whether any hours were configured at all.
func (h OperatingHours) HasSchedule() bool {
	return h.Default != nil || len(h.Days) > 0
}

// For returns the hours that apply on the given weekday, or false when the
// restaurant is closed that day.
func (h OperatingHours) For(wd time.Weekday) (DayHours, bool) {
	if day, ok := h.Days[wd]; ok {
		if day.Closed {
			return DayHours{}, false
		}
		return day.Hours, true
	}
	if h.Default != nil {
		return *h.Default, true
	}
	return DayHours{}, false
}

func (h *OperatingHours) UnmarshalJSON(data []byte) error {
	*h = OperatingHours{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("operating hours must be a JSON object: %w", err)
	}

	var top DayHours
	for key, value := range raw {
		k := strings.ToLower(strings.TrimSpace(key))
		switch k {
		case "open":
			if err := json.Unmarshal(value, &top.Open); err != nil {
				return fmt.Errorf("open: expected an HH:MM string: %w", err)
			}
			continue
		case "close":
			if err := json.Unmarshal(value, &top.Close); err != nil {
				return fmt.Errorf("close: expected an HH:MM string: %w", err)
			}
			continue
		case "default":
			day, err := decodeDay(value)
			if err != nil {
				return fmt.Errorf("default hours: %w", err)
			}
			if !day.Closed {
				hours := day.Hours
				h.Default = &hours
			}
			continue
		}

		wd, ok := ParseWeekday(k)
		if !ok {
			continue
		}
		day, err := decodeDay(value)
		if err != nil {
			return fmt.Errorf("%s hours: %w", key, err)
		}
		if h.Days == nil {
			h.Days = make(map[time.Weekday]DaySchedule)
		}
		h.Days[wd] = day
	}

	if h.Default == nil && (top.Open != "" || top.Close != "") {
		h.Default = &top
	}
	return nil
}

// decodeDay reads one weekday value: null, a closed sentinel string, a
// "open-close" range string or an {open, close} object.
func decodeDay(value json.RawMessage) (DaySchedule, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) || bytes.Equal(value, []byte("false")) {
		return DaySchedule{Closed: true}, nil
	}

	switch value[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return DaySchedule{}, err
		}
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "", "null", "closed", "none":
			return DaySchedule{Closed: true}, nil
		}
		open, closing, found := strings.Cut(s, "-")
		if !found {
			return DaySchedule{}, fmt.Errorf("%q is not an open-close range", s)
		}
		return DaySchedule{Hours: DayHours{Open: strings.TrimSpace(open), Close: strings.TrimSpace(closing)}}, nil
	case '{':
		var obj struct {
			Open   string `json:"open"`
			Close  string `json:"close"`
			Closed bool   `json:"closed"`
		}
		if err := json.Unmarshal(value, &obj); err != nil {
			return DaySchedule{}, err
		}
		if obj.Closed || (strings.TrimSpace(obj.Open) == "" && strings.TrimSpace(obj.Close) == "") {
			return DaySchedule{Closed: true}, nil
		}
		return DaySchedule{Hours: DayHours{Open: obj.Open, Close: obj.Close}}, nil
	}
	return DaySchedule{}, errors.New("expected null, a string or an {open, close} object")
}

// MarshalJSON writes the canonical shape: full lowercase weekday keys, null
// for closed days, and the fallback pair under "default".
func (h OperatingHours) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(h.Days)+1)
	if h.Default != nil {
		out["default"] = *h.Default
	}
	for wd, day := range h.Days {
		key := strings.ToLower(wd.String())
		if day.Closed {
			out[key] = nil
			continue
		}
		out[key] = day.Hours
	}
	return json.Marshal(out)
}

func (h OperatingHours) Value() (driver.Value, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (h *OperatingHours) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*h = OperatingHours{}
		return nil
	case []byte:
		return h.UnmarshalJSON(v)
	case string:
		return h.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into OperatingHours", src)
	}
}
