package models

import (
	"time"

	"gorm.io/gorm"
)

// Table is one seating unit of a restaurant. Capacity is the number of
// guests all of its confirmed reservations may hold together.
type Table struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RestaurantID string    `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	RoomName     string    `gorm:"type:varchar(100)" json:"room_name"`
	Name         string    `gorm:"column:table_name;type:varchar(100);not null" json:"table_name"`
	Capacity     int       `gorm:"not null" json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the storage name used by the seating setup flow.
func (Table) TableName() string {
	return "restaurant_seating"
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
