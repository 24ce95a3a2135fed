package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SourceLocal = "local"
	SourceAI    = "ai"
)

type Reservation struct {
	ID               string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	RestaurantID     string            `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_reservation_idempotency,priority:1" json:"restaurant_id"`
	TableID          *string           `gorm:"type:varchar(36);index" json:"table_id"`
	Table            *Table            `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"table,omitempty"`
	CustomerName     string            `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail    string            `gorm:"type:varchar(255);index" json:"customer_email"`
	GuestCount       int               `gorm:"not null" json:"guest_count"`
	StartTime        time.Time         `gorm:"not null;index" json:"start_time"`
	PredictedEndTime time.Time         `gorm:"not null" json:"predicted_end_time"`
	ActualEndTime    *time.Time        `json:"actual_end_time"`
	PricePaid        *float64          `gorm:"type:decimal(10,2)" json:"price_paid"`
	Status           ReservationStatus `gorm:"type:varchar(20);not null;default:'confirmed';index" json:"status"`
	Source           string            `gorm:"type:varchar(10)" json:"source"`
	AIConfidence     *float64          `json:"ai_confidence,omitempty"`
	IdempotencyKey   *string           `gorm:"type:varchar(100);uniqueIndex:idx_reservation_idempotency,priority:2" json:"-"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// PredictedDuration is the span between start and predicted end.
func (r *Reservation) PredictedDuration() time.Duration {
	return r.PredictedEndTime.Sub(r.StartTime)
}

// ActualDuration is known only once the guests have checked out.
func (r *Reservation) ActualDuration() (time.Duration, bool) {
	if r.ActualEndTime == nil {
		return 0, false
	}
	return r.ActualEndTime.Sub(r.StartTime), true
}

// OnTable reports whether the reservation is assigned to the given table.
func (r *Reservation) OnTable(tableID string) bool {
	return r.TableID != nil && *r.TableID == tableID
}
