package services

import (
	"errors"
	"fmt"
)

type AdmissionErrorKind string

const (
	KindValidation           AdmissionErrorKind = "validation"
	KindNotFound             AdmissionErrorKind = "not-found"
	KindInvalidTable         AdmissionErrorKind = "invalid-table"
	KindOutsideHours         AdmissionErrorKind = "outside-hours"
	KindInsufficientCapacity AdmissionErrorKind = "insufficient-capacity"
	KindDenied               AdmissionErrorKind = "denied"
	KindServiceUnavailable   AdmissionErrorKind = "service-unavailable"
	KindBackend              AdmissionErrorKind = "backend"
)

var (
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrTableNotFound       = errors.New("table not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// AdmissionError is a terminal rejection of one admission or amendment.
// No record has been written when it is returned.
type AdmissionError struct {
	Kind           AdmissionErrorKind
	Message        string
	RemainingSeats *int
	Hours          *HoursCheck
	Err            error
}

func (e *AdmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AdmissionError) Unwrap() error { return e.Err }

func rejectf(kind AdmissionErrorKind, format string, args ...any) *AdmissionError {
	return &AdmissionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func backendError(err error) *AdmissionError {
	return &AdmissionError{
		Kind:    KindBackend,
		Message: "The reservation could not be saved. Please try again.",
		Err:     err,
	}
}

func capacityError(remaining int) *AdmissionError {
	if remaining < 0 {
		remaining = 0
	}
	return &AdmissionError{
		Kind:           KindInsufficientCapacity,
		Message:        fmt.Sprintf("Not enough seats available, remaining capacity: %d seats.", remaining),
		RemainingSeats: &remaining,
	}
}

// AsAdmissionError unwraps err into an *AdmissionError when it is one.
func AsAdmissionError(err error) (*AdmissionError, bool) {
	var admissionErr *AdmissionError
	if errors.As(err, &admissionErr) {
		return admissionErr, true
	}
	return nil, false
}
