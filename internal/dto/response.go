package dto

import (
	"time"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"github.com/flexmatch/flexmatch-api/internal/payment"
)

type PaymentResponse struct {
	Amount        float64              `json:"amount"`
	Method        models.PaymentMethod `json:"method"`
	Status        models.PaymentStatus `json:"status"`
	TransactionID string               `json:"transaction_id,omitempty"`
}

type BookingResponse struct {
	ID           uint                 `json:"id"`
	UserID       uint                 `json:"user_id"`
	ServiceID    *uint                `json:"service_id,omitempty"`
	SportFieldID *uint                `json:"sport_field_id,omitempty"`
	Date         string               `json:"date"`
	StartTime    string               `json:"start_time"`
	EndTime      string               `json:"end_time"`
	Participants int                  `json:"participants"`
	Status       models.BookingStatus `json:"status"`
	Payment      PaymentResponse      `json:"payment"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ReservationResponse is returned by the payment-session endpoint. Session
// is only set for online payments.
type ReservationResponse struct {
	Booking BookingResponse          `json:"booking"`
	Session *payment.CheckoutSession `json:"session,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		UserID:       b.UserID,
		ServiceID:    b.ServiceID,
		SportFieldID: b.SportFieldID,
		Date:         b.Date.Format("2006-01-02"),
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Participants: b.Participants,
		Status:       b.Status,
		Payment: PaymentResponse{
			Amount:        b.Payment.Amount,
			Method:        b.Payment.Method,
			Status:        b.Payment.Status,
			TransactionID: b.Payment.TransactionID,
		},
		CreatedAt: b.CreatedAt,
	}
}
