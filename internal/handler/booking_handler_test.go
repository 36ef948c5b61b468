package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flexmatch/flexmatch-api/internal/dto"
	"github.com/flexmatch/flexmatch-api/internal/models"
	"github.com/flexmatch/flexmatch-api/internal/payment"
	"github.com/flexmatch/flexmatch-api/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createFn   func(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error)
	webhookFn  func(ctx context.Context, bookingID uint, transactionID string) error
	successFn  func(ctx context.Context, bookingID uint) (*models.Booking, error)
	redirectFn func(ctx context.Context, bookingID uint) (*models.Booking, error)
	cancelFn   func(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error)
	completeFn func(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error)
	getFn      func(ctx context.Context, id uint) (*models.Booking, error)
	listFn     func(ctx context.Context, userID uint) ([]models.Booking, error)
	providerFn func(ctx context.Context, requester service.Requester) ([]models.Booking, error)
}

func (m *mockBookingService) CreateReservation(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error) {
	return m.createFn(ctx, in)
}
func (m *mockBookingService) ConfirmFromWebhook(ctx context.Context, bookingID uint, transactionID string) error {
	return m.webhookFn(ctx, bookingID, transactionID)
}
func (m *mockBookingService) ConfirmSuccessRedirect(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return m.successFn(ctx, bookingID)
}
func (m *mockBookingService) CancelRedirect(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return m.redirectFn(ctx, bookingID)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error) {
	return m.cancelFn(ctx, bookingID, requester)
}
func (m *mockBookingService) CompleteBooking(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error) {
	return m.completeFn(ctx, bookingID, requester)
}
func (m *mockBookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	return m.getFn(ctx, id)
}
func (m *mockBookingService) ListUserBookings(ctx context.Context, userID uint) ([]models.Booking, error) {
	return m.listFn(ctx, userID)
}
func (m *mockBookingService) ListProviderBookings(ctx context.Context, requester service.Requester) ([]models.Booking, error) {
	return m.providerFn(ctx, requester)
}

func uintPtr(v uint) *uint { return &v }

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID uint, role models.Role) echo.Context {
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("role", string(role))
	return c
}

// --- Tests ---

func TestCreateReservation_Handler_CashConfirmed(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error) {
			return &service.ReservationResult{
				Booking: &models.Booking{
					ID:        1,
					UserID:    in.UserID,
					ServiceID: in.ServiceID,
					Date:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
					StartTime: in.StartTime,
					EndTime:   in.EndTime,
					Status:    models.BookingConfirmed,
					Payment: models.Payment{
						Amount: 50,
						Method: models.PaymentCash,
						Status: models.PaymentStatusPending,
					},
				},
			}, nil
		},
	}

	e := echo.New()
	body := `{"service_id":4,"date":"2026-09-07","start_time":"09:00","end_time":"10:00","payment_method":"cash"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/payment-session", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)

	h := NewBookingHandler(svc)
	err := h.CreateReservation(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ReservationResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(1), resp.Booking.ID)
	assert.Equal(t, uint(7), resp.Booking.UserID)
	assert.Equal(t, models.BookingConfirmed, resp.Booking.Status)
	assert.Nil(t, resp.Session)
}

func TestCreateReservation_Handler_OnlineReturnsSession(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error) {
			return &service.ReservationResult{
				Booking: &models.Booking{
					ID:           2,
					UserID:       in.UserID,
					SportFieldID: in.SportFieldID,
					Date:         time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
					StartTime:    in.StartTime,
					EndTime:      in.EndTime,
					Status:       models.BookingPending,
					Payment: models.Payment{
						Amount: 60,
						Method: models.PaymentOnline,
						Status: models.PaymentStatusPending,
					},
				},
				Session: &payment.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"},
			}, nil
		},
	}

	e := echo.New()
	body := `{"sport_field_id":9,"date":"2026-09-07","start_time":"10:00","end_time":"11:30","payment_method":"online"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/payment-session", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)

	h := NewBookingHandler(svc)
	err := h.CreateReservation(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ReservationResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.BookingPending, resp.Booking.Status)
	assert.NotNil(t, resp.Session)
	assert.Equal(t, "cs_test_1", resp.Session.ID)
}

func TestCreateReservation_Handler_ValidationError(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error) {
			return nil, service.ErrValidation
		},
	}

	e := echo.New()
	body := `{"date":"2026-09-07"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/payment-session", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)

	h := NewBookingHandler(svc)
	err := h.CreateReservation(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateReservation_Handler_SlotUnavailable(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error) {
			return nil, service.ErrSlotUnavailable
		},
	}

	e := echo.New()
	body := `{"service_id":4,"date":"2026-09-07","start_time":"09:00","end_time":"10:00","payment_method":"cash"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/payment-session", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)

	h := NewBookingHandler(svc)
	err := h.CreateReservation(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestCreateReservation_Handler_GatewayFailure(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error) {
			return nil, service.ErrGateway
		},
	}

	e := echo.New()
	body := `{"service_id":4,"date":"2026-09-07","start_time":"09:00","end_time":"10:00","payment_method":"online"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/payment-session", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)

	h := NewBookingHandler(svc)
	err := h.CreateReservation(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, he.Code)
}

func TestBookingSuccess_Handler_ConfirmsPending(t *testing.T) {
	svc := &mockBookingService{
		successFn: func(ctx context.Context, bookingID uint) (*models.Booking, error) {
			return &models.Booking{
				ID:        bookingID,
				UserID:    7,
				ServiceID: uintPtr(4),
				Status:    models.BookingConfirmed,
				Payment:   models.Payment{Method: models.PaymentOnline, Status: models.PaymentStatusCompleted},
			}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/success?booking=3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewBookingHandler(svc)
	err := h.BookingSuccess(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.BookingConfirmed, resp.Status)
}

func TestBookingSuccess_Handler_MissingParam(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/success", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewBookingHandler(nil)
	err := h.BookingSuccess(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCancelBooking_Handler_Success(t *testing.T) {
	var captured service.Requester
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error) {
			captured = requester
			return &models.Booking{
				ID:     bookingID,
				UserID: 7,
				Status: models.BookingCancelled,
			}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/5/cancel", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)
	c.SetParamNames("id")
	c.SetParamValues("5")

	h := NewBookingHandler(svc)
	err := h.CancelBooking(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), captured.ID)
	assert.Equal(t, models.RoleClient, captured.Role)

	var resp dto.BookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.BookingCancelled, resp.Status)
}

func TestCancelBooking_Handler_Forbidden(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error) {
			return nil, service.ErrNotAllowed
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/5/cancel", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 8, models.RoleClient)
	c.SetParamNames("id")
	c.SetParamValues("5")

	h := NewBookingHandler(svc)
	err := h.CancelBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Code)
}

func TestCancelBooking_Handler_AlreadyCancelled(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error) {
			return nil, service.ErrAlreadyCancelled
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/5/cancel", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)
	c.SetParamNames("id")
	c.SetParamValues("5")

	h := NewBookingHandler(svc)
	err := h.CancelBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestCompleteBooking_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		completeFn: func(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error) {
			return &models.Booking{
				ID:     bookingID,
				UserID: 7,
				Status: models.BookingCompleted,
			}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/5/complete", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 3, models.RoleCoach)
	c.SetParamNames("id")
	c.SetParamValues("5")

	h := NewBookingHandler(svc)
	err := h.CompleteBooking(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.BookingCompleted, resp.Status)
}

func TestCompleteBooking_Handler_AlreadyCompleted(t *testing.T) {
	svc := &mockBookingService{
		completeFn: func(ctx context.Context, bookingID uint, requester service.Requester) (*models.Booking, error) {
			return nil, service.ErrAlreadyCompleted
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/5/complete", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 3, models.RoleCoach)
	c.SetParamNames("id")
	c.SetParamValues("5")

	h := NewBookingHandler(svc)
	err := h.CompleteBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestGetBooking_Handler_NotFound(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			return nil, service.ErrBookingNotFound
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/999", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 1, models.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("999")

	h := NewBookingHandler(svc)
	err := h.GetBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestMyBookings_Handler_Success(t *testing.T) {
	var captured uint
	svc := &mockBookingService{
		listFn: func(ctx context.Context, userID uint) ([]models.Booking, error) {
			captured = userID
			return []models.Booking{
				{ID: 1, UserID: userID, Status: models.BookingConfirmed},
				{ID: 2, UserID: userID, Status: models.BookingCancelled},
			}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/my-bookings", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)

	h := NewBookingHandler(svc)
	err := h.MyBookings(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), captured)

	var resp []dto.BookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestProviderBookings_Handler_Forbidden(t *testing.T) {
	svc := &mockBookingService{
		providerFn: func(ctx context.Context, requester service.Requester) ([]models.Booking, error) {
			return nil, service.ErrNotAllowed
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/provider-bookings", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, 7, models.RoleClient)

	h := NewBookingHandler(svc)
	err := h.ProviderBookings(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.Code)
}
