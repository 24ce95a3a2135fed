package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/reservation-app/database"
	"github.com/yeremiapane/reservation-app/events"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdmissionRequest struct {
	RestaurantID   string
	TableID        string
	CustomerName   string
	CustomerEmail  string
	GuestCount     int
	StartTime      string
	IdempotencyKey string
}

type AdmissionConfig struct {
	// DefaultMode applies to restaurants without their own admission mode.
	DefaultMode       string
	ReservationLength time.Duration
	Location          *time.Location
}

// ReservationPatch lists the fields an owner may change. Nil fields are
// left alone; an empty TableID unassigns the table.
type ReservationPatch struct {
	TableID       *string
	CustomerName  *string
	CustomerEmail *string
	GuestCount    *int
	StartTime     *string
	Status        *models.ReservationStatus
	ActualEndTime *time.Time
	PricePaid     *float64
}

// AdmissionEngine decides whether a reservation may be written, either by
// local capacity and hours rules or by the external decision service.
type AdmissionEngine struct {
	store      *ReservationStore
	consultant Consultant
	notifier   Notifier
	cfg        AdmissionConfig
}

func NewAdmissionEngine(store *ReservationStore, consultant Consultant, notifier Notifier, cfg AdmissionConfig) *AdmissionEngine {
	if cfg.ReservationLength <= 0 {
		cfg.ReservationLength = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultMode != models.AdmissionModeAI {
		cfg.DefaultMode = models.AdmissionModeLocal
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AdmissionEngine{store: store, consultant: consultant, notifier: notifier, cfg: cfg}
}

// Mode is the admission path used for the restaurant.
func (e *AdmissionEngine) Mode(restaurant *models.Restaurant) string {
	switch restaurant.AdmissionMode {
	case models.AdmissionModeLocal, models.AdmissionModeAI:
		return restaurant.AdmissionMode
	}
	return e.cfg.DefaultMode
}

// Location is the timezone the restaurant's times are read in.
func (e *AdmissionEngine) Location(restaurant *models.Restaurant) *time.Location {
	return restaurant.Location(e.cfg.Location)
}

var startTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStartTime accepts RFC 3339 or a local date-time read in loc.
func ParseStartTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised start time %q", raw)
}

func (req AdmissionRequest) normalized() AdmissionRequest {
	req.RestaurantID = strings.TrimSpace(req.RestaurantID)
	req.TableID = strings.TrimSpace(req.TableID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	return req
}

func (req AdmissionRequest) validate() error {
	switch {
	case req.RestaurantID == "":
		return rejectf(KindValidation, "Please select a restaurant.")
	case req.CustomerName == "":
		return rejectf(KindValidation, "Please enter the customer name.")
	case !validEmail(req.CustomerEmail):
		return rejectf(KindValidation, "Please enter a valid customer email.")
	case req.GuestCount <= 0:
		return rejectf(KindValidation, "Guest count must be a whole number greater than zero.")
	case req.StartTime == "":
		return rejectf(KindValidation, "Please select a start time.")
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

// Admit runs one admission attempt. A rejection is an *AdmissionError and
// leaves the ledger untouched.
func (e *AdmissionEngine) Admit(ctx context.Context, req AdmissionRequest) (*models.Reservation, error) {
	req = req.normalized()
	if err := req.validate(); err != nil {
		return nil, err
	}

	restaurant, err := e.restaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.FindByIdempotencyKey(ctx, restaurant.ID, req.IdempotencyKey)
	if err != nil {
		return nil, backendError(err)
	}
	if existing != nil {
		utils.InfoLogger.WithField("reservation_id", existing.ID).Info("Replaying admission for repeated idempotency key")
		return existing, nil
	}

	loc := e.Location(restaurant)
	start, err := ParseStartTime(req.StartTime, loc)
	if err != nil {
		return nil, &AdmissionError{Kind: KindValidation, Message: "Please provide a valid start time.", Err: err}
	}
	start = start.In(loc)

	mode := e.Mode(restaurant)
	var reservation *models.Reservation
	if mode == models.AdmissionModeAI {
		reservation, err = e.admitWithConsultant(ctx, restaurant, req, start)
	} else {
		reservation, err = e.admitLocal(ctx, restaurant, req, start)
	}

	fields := logrus.Fields{
		"restaurant_id": restaurant.ID,
		"table_id":      req.TableID,
		"guests":        req.GuestCount,
		"mode":          mode,
	}
	if err != nil {
		if admissionErr, ok := AsAdmissionError(err); ok && admissionErr.Kind != KindBackend {
			utils.InfoLogger.WithFields(fields).WithField("kind", admissionErr.Kind).Info("Reservation rejected")
		} else {
			utils.ErrorLogger.WithFields(fields).Errorf("Reservation admission failed: %v", err)
		}
		return nil, err
	}

	utils.InfoLogger.WithFields(fields).WithField("reservation_id", reservation.ID).Info("Reservation admitted")
	e.notifier.ReservationChanged(ctx, events.RoutingReservationCreated, reservation)
	return reservation, nil
}

func (e *AdmissionEngine) admitLocal(ctx context.Context, restaurant *models.Restaurant, req AdmissionRequest, start time.Time) (*models.Reservation, error) {
	if req.TableID == "" {
		return nil, rejectf(KindValidation, "Please select a table for this reservation.")
	}

	table, err := e.store.Table(ctx, restaurant.ID, req.TableID)
	if errors.Is(err, ErrTableNotFound) {
		return nil, rejectf(KindInvalidTable, "The selected table does not belong to this restaurant.")
	}
	if err != nil {
		return nil, backendError(err)
	}
	if table.Capacity <= 0 {
		return nil, noCapacityError()
	}

	if err := e.checkHours(restaurant, start); err != nil {
		return nil, err
	}

	reservation := e.newReservation(restaurant.ID, req, start, start.Add(e.cfg.ReservationLength), models.SourceLocal)
	tableID := table.ID
	reservation.TableID = &tableID

	err = e.store.WithTableLock(ctx, restaurant.ID, table.ID, func(tx *gorm.DB, locked *models.Table) error {
		if locked.Capacity <= 0 {
			return noCapacityError()
		}
		confirmed, err := confirmedOnTable(tx, locked.ID, "")
		if err != nil {
			return err
		}
		if remaining := AvailableSeats(*locked, confirmed); req.GuestCount > remaining {
			return capacityError(remaining)
		}
		return tx.Omit(clause.Associations).Create(reservation).Error
	})
	return e.writeResult(ctx, restaurant.ID, req.IdempotencyKey, reservation, err)
}

func (e *AdmissionEngine) admitWithConsultant(ctx context.Context, restaurant *models.Restaurant, req AdmissionRequest, start time.Time) (*models.Reservation, error) {
	booking := BookingRequest{
		RestaurantID:  restaurant.ID,
		CustomerEmail: req.CustomerEmail,
		GuestCount:    req.GuestCount,
		StartTime:     start,
	}

	if e.consultant == nil {
		return nil, unavailableError(ErrDecisionServiceUnavailable)
	}
	verdict, err := e.consultant.Consult(ctx, booking)
	if err != nil {
		return nil, unavailableError(err)
	}

	if verdict.Action == VerdictDeny {
		reason := verdict.Reason
		if reason == "" {
			reason = "The booking was not accepted at this time."
		}
		e.notifier.AdmissionDenied(ctx, booking, reason)
		return nil, &AdmissionError{Kind: KindDenied, Message: reason}
	}

	table, err := e.store.ResolveTable(ctx, restaurant.ID, verdict.TableID)
	if errors.Is(err, ErrTableNotFound) {
		return nil, rejectf(KindInvalidTable, "The assigned table %q does not exist in this restaurant.", verdict.TableID)
	}
	if err != nil {
		return nil, backendError(err)
	}

	end := start.Add(verdict.DurationOr(e.cfg.ReservationLength))
	reservation := e.newReservation(restaurant.ID, req, start, end, models.SourceAI)
	tableID := table.ID
	reservation.TableID = &tableID
	reservation.AIConfidence = verdict.Confidence

	// The verdict replaces the seat count, but the write still queues behind
	// any local admission on the same table.
	err = e.store.WithTableLock(ctx, restaurant.ID, table.ID, func(tx *gorm.DB, _ *models.Table) error {
		return tx.Omit(clause.Associations).Create(reservation).Error
	})
	return e.writeResult(ctx, restaurant.ID, req.IdempotencyKey, reservation, err)
}

func (e *AdmissionEngine) newReservation(restaurantID string, req AdmissionRequest, start, end time.Time, source string) *models.Reservation {
	reservation := &models.Reservation{
		RestaurantID:     restaurantID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		GuestCount:       req.GuestCount,
		StartTime:        start.UTC(),
		PredictedEndTime: end.UTC(),
		Status:           models.StatusConfirmed,
		Source:           source,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		reservation.IdempotencyKey = &key
	}
	return reservation
}

// writeResult maps the outcome of the final write step. A write that lost an
// idempotency race returns the winner's reservation.
func (e *AdmissionEngine) writeResult(ctx context.Context, restaurantID, key string, reservation *models.Reservation, err error) (*models.Reservation, error) {
	if err == nil {
		return reservation, nil
	}
	if admissionErr, ok := AsAdmissionError(err); ok {
		return nil, admissionErr
	}
	if errors.Is(err, ErrTableNotFound) {
		return nil, rejectf(KindInvalidTable, "The selected table does not belong to this restaurant.")
	}

	err = database.TranslateError(err)
	if errors.Is(err, database.ErrCapacityExceeded) {
		return nil, &AdmissionError{
			Kind:    KindInsufficientCapacity,
			Message: "Not enough seats available on the assigned table.",
			Err:     err,
		}
	}

	if key != "" {
		if existing, findErr := e.store.FindByIdempotencyKey(ctx, restaurantID, key); findErr == nil && existing != nil {
			return existing, nil
		}
	}
	return nil, backendError(err)
}

func (e *AdmissionEngine) checkHours(restaurant *models.Restaurant, start time.Time) error {
	if !restaurant.OperatingHours.HasSchedule() {
		return nil
	}
	check := CheckOperatingHours(start.In(e.Location(restaurant)), restaurant.OperatingHours)
	if check.Allowed {
		return nil
	}
	return &AdmissionError{Kind: KindOutsideHours, Message: check.Message(), Hours: &check}
}

func (e *AdmissionEngine) restaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	restaurant, err := e.store.Restaurant(ctx, restaurantID)
	if errors.Is(err, ErrRestaurantNotFound) {
		return nil, &AdmissionError{Kind: KindNotFound, Message: "Restaurant not found.", Err: err}
	}
	if err != nil {
		return nil, backendError(err)
	}
	return restaurant, nil
}

func noCapacityError() *AdmissionError {
	zero := 0
	return &AdmissionError{
		Kind:           KindInsufficientCapacity,
		Message:        "Selected table has no capacity configured.",
		RemainingSeats: &zero,
	}
}

func unavailableError(err error) *AdmissionError {
	return &AdmissionError{
		Kind:    KindServiceUnavailable,
		Message: "The booking decision service is unavailable. Please try again later.",
		Err:     err,
	}
}

// Amend applies an owner's changes to a reservation. Changes that can grow
// a table's allocation go through the same capacity gate as Admit, with the
// reservation itself left out of the allocation.
func (e *AdmissionEngine) Amend(ctx context.Context, restaurantID, reservationID string, patch ReservationPatch) (*models.Reservation, error) {
	restaurant, err := e.restaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	current, err := e.reservation(ctx, restaurant.ID, reservationID)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Table = nil
	loc := e.Location(restaurant)

	if patch.CustomerName != nil {
		name := strings.TrimSpace(*patch.CustomerName)
		if name == "" {
			return nil, rejectf(KindValidation, "Please enter the customer name.")
		}
		next.CustomerName = name
	}
	if patch.CustomerEmail != nil {
		email := strings.TrimSpace(*patch.CustomerEmail)
		if !validEmail(email) {
			return nil, rejectf(KindValidation, "Please enter a valid customer email.")
		}
		next.CustomerEmail = email
	}
	if patch.GuestCount != nil {
		if *patch.GuestCount <= 0 {
			return nil, rejectf(KindValidation, "Guest count must be a whole number greater than zero.")
		}
		next.GuestCount = *patch.GuestCount
	}

	startChanged := false
	if patch.StartTime != nil {
		start, err := ParseStartTime(*patch.StartTime, loc)
		if err != nil {
			return nil, &AdmissionError{Kind: KindValidation, Message: "Please provide a valid start time.", Err: err}
		}
		duration := current.PredictedDuration()
		if duration <= 0 {
			duration = e.cfg.ReservationLength
		}
		next.StartTime = start.UTC()
		next.PredictedEndTime = start.Add(duration).UTC()
		startChanged = !start.Equal(current.StartTime)
	}

	tableChanged := false
	if patch.TableID != nil {
		ref := strings.TrimSpace(*patch.TableID)
		if ref == "" {
			next.TableID = nil
		} else {
			table, err := e.store.Table(ctx, restaurant.ID, ref)
			if errors.Is(err, ErrTableNotFound) {
				return nil, rejectf(KindInvalidTable, "The selected table does not belong to this restaurant.")
			}
			if err != nil {
				return nil, backendError(err)
			}
			tableID := table.ID
			next.TableID = &tableID
		}
		tableChanged = !sameTable(current.TableID, next.TableID)
	}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, rejectf(KindValidation, "Unknown reservation status %q.", *patch.Status)
		}
		next.Status = *patch.Status
	}
	if patch.ActualEndTime != nil {
		if patch.ActualEndTime.Before(next.StartTime) {
			return nil, rejectf(KindValidation, "Actual end time cannot be before the start time.")
		}
		end := patch.ActualEndTime.UTC()
		next.ActualEndTime = &end
	}
	if patch.PricePaid != nil {
		if *patch.PricePaid < 0 {
			return nil, rejectf(KindValidation, "Price paid cannot be negative.")
		}
		price := *patch.PricePaid
		next.PricePaid = &price
	}

	if startChanged && next.Status == models.StatusConfirmed {
		if err := e.checkHours(restaurant, next.StartTime); err != nil {
			return nil, err
		}
	}

	save := func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Save(&next).Error
	}

	needsSeats := next.Status == models.StatusConfirmed && next.TableID != nil &&
		(current.Status != models.StatusConfirmed || tableChanged || next.GuestCount > current.GuestCount)
	if needsSeats {
		err = e.store.WithTableLock(ctx, restaurant.ID, *next.TableID, func(tx *gorm.DB, locked *models.Table) error {
			confirmed, err := confirmedOnTable(tx, locked.ID, next.ID)
			if err != nil {
				return err
			}
			if remaining := AvailableSeats(*locked, confirmed); next.GuestCount > remaining {
				return capacityError(remaining)
			}
			return save(tx)
		})
	} else {
		err = save(e.store.DB.WithContext(ctx))
	}
	if _, err := e.writeResult(ctx, restaurant.ID, "", &next, err); err != nil {
		return nil, err
	}

	routingKey := events.RoutingReservationUpdated
	if next.Status == models.StatusCompleted && current.Status != models.StatusCompleted {
		routingKey = events.RoutingReservationCompleted
	}

	updated, err := e.store.Reservation(ctx, restaurant.ID, next.ID)
	if err != nil {
		updated = &next
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id":  restaurant.ID,
		"reservation_id": updated.ID,
		"status":         updated.Status,
	}).Info("Reservation updated")
	e.notifier.ReservationChanged(ctx, routingKey, updated)
	return updated, nil
}

// Complete checks the guests out. A nil end time means now.
func (e *AdmissionEngine) Complete(ctx context.Context, restaurantID, reservationID string, actualEnd *time.Time, pricePaid *float64) (*models.Reservation, error) {
	current, err := e.reservation(ctx, restaurantID, reservationID)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.StatusConfirmed, models.StatusPending, models.StatusCompleted:
	default:
		return nil, rejectf(KindValidation, "A %s reservation cannot be completed.", current.Status)
	}

	end := time.Now().UTC()
	if actualEnd != nil {
		end = *actualEnd
	}
	status := models.StatusCompleted
	return e.Amend(ctx, restaurantID, reservationID, ReservationPatch{
		Status:        &status,
		ActualEndTime: &end,
		PricePaid:     pricePaid,
	})
}

func (e *AdmissionEngine) Cancel(ctx context.Context, restaurantID, reservationID string) (*models.Reservation, error) {
	current, err := e.reservation(ctx, restaurantID, reservationID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusConfirmed && current.Status != models.StatusPending {
		return nil, rejectf(KindValidation, "A %s reservation cannot be cancelled.", current.Status)
	}
	status := models.StatusCancelled
	return e.Amend(ctx, restaurantID, reservationID, ReservationPatch{Status: &status})
}

// Remove deletes the reservation. Its table and restaurant are untouched.
func (e *AdmissionEngine) Remove(ctx context.Context, restaurantID, reservationID string) error {
	removed, err := e.store.Delete(ctx, restaurantID, reservationID)
	if errors.Is(err, ErrReservationNotFound) {
		return &AdmissionError{Kind: KindNotFound, Message: "Reservation not found.", Err: err}
	}
	if err != nil {
		return backendError(err)
	}
	e.notifier.ReservationChanged(ctx, events.RoutingReservationDeleted, removed)
	return nil
}

func (e *AdmissionEngine) reservation(ctx context.Context, restaurantID, reservationID string) (*models.Reservation, error) {
	reservation, err := e.store.Reservation(ctx, restaurantID, reservationID)
	if errors.Is(err, ErrReservationNotFound) {
		return nil, &AdmissionError{Kind: KindNotFound, Message: "Reservation not found.", Err: err}
	}
	if err != nil {
		return nil, backendError(err)
	}
	return reservation, nil
}

func sameTable(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
