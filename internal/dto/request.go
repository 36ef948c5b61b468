package dto

type CreateReservationRequest struct {
	ServiceID     *uint  `json:"service_id"`
	SportFieldID  *uint  `json:"sport_field_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Participants  int    `json:"participants"`
	PaymentMethod string `json:"payment_method"`
}
