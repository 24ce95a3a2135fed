package controllers

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexibleInt reads a JSON number or a numeric string. Anything else,
// fractions included, becomes 0 so the engine reports the field as invalid.
type flexibleInt int

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	*f = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		*f = flexibleInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v == math.Trunc(v) && math.Abs(v) < math.MaxInt32 {
		*f = flexibleInt(v)
	}
	return nil
}

type reservationRequest struct {
	TableID        string      `json:"table_id"`
	CustomerName   string      `json:"customer_name"`
	CustomerEmail  string      `json:"customer_email"`
	GuestCount     flexibleInt `json:"guest_count"`
	StartTime      string      `json:"start_time"`
	IdempotencyKey string      `json:"idempotency_key"`
}
