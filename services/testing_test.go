package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/reservation-app/database"
	"github.com/yeremiapane/reservation-app/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Restaurant{}, &models.Table{}, &models.Reservation{}))
	require.NoError(t, database.InstallCapacityGuard(db))
	return db
}

func seedRestaurant(t *testing.T, db *gorm.DB, hours models.OperatingHours) *models.Restaurant {
	restaurant := &models.Restaurant{
		OwnerID:        uuid.NewString(),
		Email:          "owner@example.com",
		Name:           "Bistro",
		OperatingHours: hours,
	}
	require.NoError(t, db.Create(restaurant).Error)
	return restaurant
}

func seedTable(t *testing.T, db *gorm.DB, restaurantID, name string, capacity int) *models.Table {
	table := &models.Table{RestaurantID: restaurantID, RoomName: "Main", Name: name, Capacity: capacity}
	require.NoError(t, db.Create(table).Error)
	return table
}

func countReservations(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&models.Reservation{}).Count(&n).Error)
	return n
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []string
	denied  []string
	tables  int
}

func (n *recordingNotifier) ReservationChanged(_ context.Context, routingKey string, _ *models.Reservation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, routingKey)
}

func (n *recordingNotifier) AdmissionDenied(_ context.Context, _ BookingRequest, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.denied = append(n.denied, reason)
}

func (n *recordingNotifier) TablesChanged(context.Context, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tables++
}

type stubConsultant struct {
	verdict Verdict
	err     error
	calls   int
	last    BookingRequest
}

func (s *stubConsultant) Consult(_ context.Context, req BookingRequest) (Verdict, error) {
	s.calls++
	s.last = req
	return s.verdict, s.err
}
