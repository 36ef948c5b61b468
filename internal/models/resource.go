package models

import "time"

// ProviderKind tags which kind of provider owns a service.
type ProviderKind string

const (
	ProviderCoach            ProviderKind = "coach"
	ProviderHealthSpecialist ProviderKind = "healthSpecialist"
	ProviderGym              ProviderKind = "gym"
)

type Service struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Title        string       `gorm:"not null" json:"title"`
	Description  string       `json:"description"`
	ProviderID   uint         `gorm:"not null;index" json:"provider_id"`
	ProviderKind ProviderKind `gorm:"type:varchar(20);not null" json:"provider_kind"`

	Price           float64 `gorm:"not null" json:"price"`
	DurationMin     int     `json:"duration_min"`
	Category        string  `gorm:"type:varchar(20)" json:"category"`
	MaxParticipants int     `gorm:"default:1" json:"max_participants"`
	Active          bool    `gorm:"not null;default:true" json:"active"`

	RatingAvg   float64 `gorm:"default:0" json:"rating_avg"`
	RatingCount int     `gorm:"default:0" json:"rating_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SportField struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	OwnerID    uint    `gorm:"not null;index" json:"owner_id"`
	Name       string  `gorm:"not null" json:"name"`
	SportType  string  `json:"sport_type"`
	HourlyRate float64 `gorm:"not null" json:"hourly_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slot is one interval of a resource's weekly availability schedule.
// Exactly one of ServiceID / SportFieldID is set. Times are zero-padded
// "HH:MM" strings so lexical comparison matches chronological order.
type Slot struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	ServiceID    *uint `gorm:"index:idx_service_day" json:"service_id,omitempty"`
	SportFieldID *uint `gorm:"index:idx_field_day" json:"sport_field_id,omitempty"`

	Weekday   string `gorm:"type:varchar(10);not null;index:idx_service_day;index:idx_field_day" json:"weekday"`
	StartTime string `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime   string `gorm:"type:varchar(5);not null" json:"end_time"`

	IsBooked  bool  `gorm:"not null;default:false" json:"is_booked"`
	BookingID *uint `json:"booking_id,omitempty"`
}
