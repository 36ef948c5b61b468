package models

import "time"

type NotificationType string

const (
	NotifyBookingConfirmed NotificationType = "bookingConfirmed"
	NotifyBookingCancelled NotificationType = "bookingCancelled"
	NotifyPaymentReceived  NotificationType = "paymentReceived"
	NotifyReminderSession  NotificationType = "reminderSession"
)

type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index:idx_notif_inbox,priority:1" json:"recipient_id"`
	SenderID    *uint            `json:"sender_id,omitempty"`
	Type        NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title       string           `gorm:"not null" json:"title"`
	Content     string           `gorm:"not null" json:"content"`

	RelatedModel string `gorm:"type:varchar(20)" json:"related_model,omitempty"`
	RelatedID    uint   `json:"related_id,omitempty"`

	Read      bool      `gorm:"not null;default:false;index:idx_notif_inbox,priority:2" json:"read"`
	CreatedAt time.Time `gorm:"index:idx_notif_inbox,priority:3,sort:desc" json:"created_at"`
}
