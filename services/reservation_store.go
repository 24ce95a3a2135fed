package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/yeremiapane/reservation-app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationStore is the gorm-backed ledger of restaurants, tables and
// reservations. Every query is scoped by restaurant id.
type ReservationStore struct {
	DB    *gorm.DB
	locks *keyedMutex
}

func NewReservationStore(db *gorm.DB) *ReservationStore {
	return &ReservationStore{DB: db, locks: newKeyedMutex()}
}

type ReservationFilter struct {
	Statuses []models.ReservationStatus
	From     *time.Time
	To       *time.Time
	TableID  string
}

func (s *ReservationStore) Restaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := s.DB.WithContext(ctx).Where("id = ?", restaurantID).First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (s *ReservationStore) Tables(ctx context.Context, restaurantID string) ([]models.Table, error) {
	var tables []models.Table
	err := s.DB.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("room_name ASC, table_name ASC").
		Find(&tables).Error
	return tables, err
}

func (s *ReservationStore) Table(ctx context.Context, restaurantID, tableID string) (*models.Table, error) {
	var table models.Table
	err := s.DB.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", tableID, restaurantID).
		First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ResolveTable finds one of the restaurant's tables by id, falling back to a
// case-insensitive match on the table name.
func (s *ReservationStore) ResolveTable(ctx context.Context, restaurantID, ref string) (*models.Table, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrTableNotFound
	}
	tables, err := s.Tables(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		if tables[i].ID == ref {
			return &tables[i], nil
		}
	}
	for i := range tables {
		if strings.EqualFold(strings.TrimSpace(tables[i].Name), ref) {
			return &tables[i], nil
		}
	}
	return nil, ErrTableNotFound
}

// ConfirmedReservations returns every confirmed reservation of the
// restaurant, the input of seating views.
func (s *ReservationStore) ConfirmedReservations(ctx context.Context, restaurantID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.DB.WithContext(ctx).
		Where("restaurant_id = ? AND status = ?", restaurantID, models.StatusConfirmed).
		Find(&reservations).Error
	return reservations, err
}

func (s *ReservationStore) Reservations(ctx context.Context, restaurantID string, filter ReservationFilter) ([]models.Reservation, error) {
	query := s.DB.WithContext(ctx).Preload("Table").Where("restaurant_id = ?", restaurantID)
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		query = query.Where("start_time >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("start_time < ?", filter.To.UTC())
	}
	if filter.TableID != "" {
		query = query.Where("table_id = ?", filter.TableID)
	}

	var reservations []models.Reservation
	err := query.Order("start_time ASC, created_at ASC").Find(&reservations).Error
	return reservations, err
}

func (s *ReservationStore) Reservation(ctx context.Context, restaurantID, reservationID string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.DB.WithContext(ctx).Preload("Table").
		Where("id = ? AND restaurant_id = ?", reservationID, restaurantID).
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindByIdempotencyKey returns nil, nil when the key has not been used.
func (s *ReservationStore) FindByIdempotencyKey(ctx context.Context, restaurantID, key string) (*models.Reservation, error) {
	if key == "" {
		return nil, nil
	}
	var reservation models.Reservation
	err := s.DB.WithContext(ctx).Preload("Table").
		Where("restaurant_id = ? AND idempotency_key = ?", restaurantID, key).
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// WithTableLock runs fn in a transaction that holds the table exclusively:
// an in-process lock keyed by table id plus a row lock where the dialect
// supports SELECT ... FOR UPDATE. fn must only use tx.
func (s *ReservationStore) WithTableLock(ctx context.Context, restaurantID, tableID string, fn func(tx *gorm.DB, table *models.Table) error) error {
	unlock := s.locks.Lock(tableID)
	defer unlock()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() != "sqlite" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var table models.Table
		err := query.Where("id = ? AND restaurant_id = ?", tableID, restaurantID).First(&table).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTableNotFound
		}
		if err != nil {
			return err
		}
		return fn(tx, &table)
	})
}

// confirmedOnTable is the allocation input for one table, optionally
// leaving out the reservation being amended.
func confirmedOnTable(tx *gorm.DB, tableID, excludeID string) ([]models.Reservation, error) {
	query := tx.Where("table_id = ? AND status = ?", tableID, models.StatusConfirmed)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var reservations []models.Reservation
	err := query.Find(&reservations).Error
	return reservations, err
}

func (s *ReservationStore) Delete(ctx context.Context, restaurantID, reservationID string) (*models.Reservation, error) {
	reservation, err := s.Reservation(ctx, restaurantID, reservationID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", reservation.ID).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// SeatingChart computes the current chart of the restaurant.
func (s *ReservationStore) SeatingChart(ctx context.Context, restaurantID string) ([]SeatingRoom, error) {
	tables, err := s.Tables(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.ConfirmedReservations(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	return SeatingChart(tables, confirmed), nil
}
