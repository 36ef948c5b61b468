package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further status transition is permitted.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCash   PaymentMethod = "cash"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is embedded in Booking; it never exists on its own.
type Payment struct {
	Amount        float64       `gorm:"not null" json:"amount"`
	Method        PaymentMethod `gorm:"type:varchar(10);not null" json:"method"`
	Status        PaymentStatus `gorm:"type:varchar(10);not null;default:'pending'" json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

type Booking struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	UserID       uint  `gorm:"not null;index" json:"user_id"`
	ServiceID    *uint `gorm:"index" json:"service_id,omitempty"`
	SportFieldID *uint `gorm:"index" json:"sport_field_id,omitempty"`

	Date         time.Time     `gorm:"not null" json:"date"`
	StartTime    string        `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime      string        `gorm:"type:varchar(5);not null" json:"end_time"`
	Participants int           `gorm:"not null;default:1" json:"participants"`
	Status       BookingStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Payment      Payment       `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Notes        string        `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Service    *Service    `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	SportField *SportField `gorm:"foreignKey:SportFieldID" json:"sport_field,omitempty"`
}

// PaymentSettled reports whether the asynchronous confirmation already ran.
// The webhook reconciler uses this as its idempotency guard.
func (b *Booking) PaymentSettled() bool {
	return b.Status == BookingConfirmed && b.Payment.Status == PaymentStatusCompleted
}
