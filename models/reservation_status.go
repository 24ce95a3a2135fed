package models

import (
	"errors"
	"fmt"
	"strings"
)

// ReservationStatus is the closed set of reservation states. Only
// StatusConfirmed counts against a table's capacity.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusPending   ReservationStatus = "pending"
	StatusCompleted ReservationStatus = "completed"
	StatusDenied    ReservationStatus = "denied"
	StatusCancelled ReservationStatus = "cancelled"
	StatusRejected  ReservationStatus = "rejected"
)

var ErrUnknownStatus = errors.New("unknown reservation status")

var statusAliases = map[string]ReservationStatus{
	"confirmed": StatusConfirmed,
	"pending":   StatusPending,
	"completed": StatusCompleted,
	"denied":    StatusDenied,
	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
	"rejected":  StatusRejected,
}

// ParseReservationStatus maps free text from requests or stored rows onto
// the enumeration, ignoring case and surrounding whitespace.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// ParseReservationStatuses parses a comma separated list such as
// "confirmed,pending". Empty entries are skipped.
func ParseReservationStatuses(csv string) ([]ReservationStatus, error) {
	var out []ReservationStatus
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		st, err := ParseReservationStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s ReservationStatus) Valid() bool {
	st, ok := statusAliases[string(s)]
	return ok && st == s
}

// Successful reports whether the booking went ahead (confirmed or completed).
func (s ReservationStatus) Successful() bool {
	return s == StatusConfirmed || s == StatusCompleted
}

// Unsuccessful reports whether the booking was turned down or withdrawn.
func (s ReservationStatus) Unsuccessful() bool {
	return s == StatusDenied || s == StatusRejected || s == StatusCancelled
}
