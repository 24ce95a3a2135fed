package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AdmissionModeLocal = "local"
	AdmissionModeAI    = "ai"
)

type Restaurant struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID        string         `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Email          string         `gorm:"type:varchar(255);not null;index" json:"email"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Timezone       string         `gorm:"type:varchar(64)" json:"timezone"`
	AdmissionMode  string         `gorm:"type:varchar(10)" json:"admission_mode"`
	OperatingHours OperatingHours `gorm:"type:text" json:"operating_hours"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Location resolves the restaurant timezone, falling back to fallback when
// the stored name is empty or unknown.
func (r *Restaurant) Location(fallback *time.Location) *time.Location {
	if r.Timezone != "" {
		if loc, err := time.LoadLocation(r.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}
