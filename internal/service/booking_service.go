package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/flexmatch/flexmatch-api/internal/availability"
	"github.com/flexmatch/flexmatch-api/internal/models"
	"github.com/flexmatch/flexmatch-api/internal/notifier"
	"github.com/flexmatch/flexmatch-api/internal/payment"
	"github.com/flexmatch/flexmatch-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrValidation       = errors.New("date, startTime, endTime and exactly one of serviceId or sportFieldId are required")
	ErrServiceNotFound  = errors.New("service not found")
	ErrFieldNotFound    = errors.New("sport field not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrDayUnavailable   = errors.New("not available this day")
	ErrSlotUnavailable  = errors.New("slot not available")
	ErrNotAllowed       = errors.New("you are not allowed to perform this action")
	ErrAlreadyCompleted = errors.New("booking is already completed")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrGateway          = errors.New("payment gateway request failed")
)

// terminalErr names the existing terminal state in the rejection.
func terminalErr(status models.BookingStatus) error {
	if status == models.BookingCompleted {
		return ErrAlreadyCompleted
	}
	return ErrAlreadyCancelled
}

// Requester identifies the authenticated caller of a booking operation.
type Requester struct {
	ID   uint
	Role models.Role
}

func (r Requester) IsAdmin() bool { return r.Role == models.RoleAdmin }

type CreateReservationInput struct {
	UserID        uint
	ServiceID     *uint
	SportFieldID  *uint
	Date          string // "2006-01-02"
	StartTime     string // "HH:MM"
	EndTime       string // "HH:MM"
	Participants  int
	PaymentMethod models.PaymentMethod
}

// ReservationResult carries the created booking and, for online payments,
// the gateway checkout session the client is redirected to.
type ReservationResult struct {
	Booking *models.Booking
	Session *payment.CheckoutSession
}

type BookingService interface {
	CreateReservation(ctx context.Context, in CreateReservationInput) (*ReservationResult, error)
	ConfirmFromWebhook(ctx context.Context, bookingID uint, transactionID string) error
	ConfirmSuccessRedirect(ctx context.Context, bookingID uint) (*models.Booking, error)
	CancelRedirect(ctx context.Context, bookingID uint) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uint, requester Requester) (*models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID uint, requester Requester) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListUserBookings(ctx context.Context, userID uint) ([]models.Booking, error)
	ListProviderBookings(ctx context.Context, requester Requester) ([]models.Booking, error)
}

type bookingService struct {
	txm       repository.TxManager
	bookings  repository.BookingRepository
	resources repository.ResourceRepository
	users     repository.UserRepository
	gateway   payment.Gateway
	sink      notifier.Sink
	logger    *slog.Logger
	baseURL   string
	currency  string
}

func NewBookingService(
	txm repository.TxManager,
	bookings repository.BookingRepository,
	resources repository.ResourceRepository,
	users repository.UserRepository,
	gateway payment.Gateway,
	sink notifier.Sink,
	logger *slog.Logger,
	baseURL, currency string,
) BookingService {
	return &bookingService{
		txm:       txm,
		bookings:  bookings,
		resources: resources,
		users:     users,
		gateway:   gateway,
		sink:      sink,
		logger:    logger,
		baseURL:   baseURL,
		currency:  currency,
	}
}

func (s *bookingService) CreateReservation(ctx context.Context, in CreateReservationInput) (*ReservationResult, error) {
	if in.Date == "" || in.StartTime == "" || in.EndTime == "" {
		return nil, ErrValidation
	}
	if (in.ServiceID == nil) == (in.SportFieldID == nil) {
		return nil, ErrValidation
	}
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, ErrValidation
	}
	if in.Participants <= 0 {
		in.Participants = 1
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentOnline
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load requester: %w", err)
	}

	weekday := availability.DayKey(date)

	booking := &models.Booking{
		UserID:       in.UserID,
		ServiceID:    in.ServiceID,
		SportFieldID: in.SportFieldID,
		Date:         date,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		Participants: in.Participants,
		Status:       models.BookingPending,
	}

	var (
		productName string
		amount      float64
		providerID  uint
	)

	if in.ServiceID != nil {
		svc, err := s.resources.FindServiceByID(ctx, *in.ServiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrServiceNotFound
			}
			return nil, err
		}

		slots, err := s.resources.ServiceDaySlots(ctx, nil, svc.ID, weekday)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			return nil, ErrDayUnavailable
		}
		if !availability.SlotFree(slots, in.StartTime) {
			return nil, ErrSlotUnavailable
		}

		productName = svc.Title
		amount = svc.Price
		providerID = svc.ProviderID
	} else {
		field, err := s.resources.FindFieldByID(ctx, *in.SportFieldID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrFieldNotFound
			}
			return nil, err
		}

		amount, err = fieldPrice(field.HourlyRate, in.StartTime, in.EndTime)
		if err != nil {
			return nil, ErrValidation
		}

		slots, err := s.resources.FieldDaySlots(ctx, nil, field.ID, weekday)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			return nil, ErrDayUnavailable
		}
		if !availability.RangeFree(slots, in.StartTime, in.EndTime) {
			return nil, ErrSlotUnavailable
		}

		productName = fmt.Sprintf("%s - %s", field.Name, field.SportType)
		providerID = field.OwnerID
	}

	booking.Payment = models.Payment{
		Amount: amount,
		Method: in.PaymentMethod,
		Status: models.PaymentStatusPending,
	}

	if in.PaymentMethod == models.PaymentCash {
		// Cash settles in person: confirm and take the slot immediately.
		// The commit re-checks freedom under the resource lock so two cash
		// reservations racing for the same slot cannot both win.
		err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
			booking.Status = models.BookingConfirmed
			if err := s.bookings.Create(ctx, tx, booking); err != nil {
				return err
			}
			_, err := s.commitSlots(ctx, tx, booking)
			return err
		})
		if err != nil {
			return nil, err
		}

		s.sink.Notify(ctx, notifier.Message{
			RecipientID:  providerID,
			SenderID:     &user.ID,
			Type:         models.NotifyBookingConfirmed,
			Title:        "New booking",
			Content:      fmt.Sprintf("You have a new booking from %s for %s at %s", user.DisplayName(), in.Date, in.StartTime),
			RelatedModel: "Booking",
			RelatedID:    booking.ID,
		})
		return &ReservationResult{Booking: booking}, nil
	}

	// Online: the booking stays pending and the slot stays free until the
	// gateway confirms payment, so abandoned checkouts hold no inventory.
	err = s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		return s.bookings.Create(ctx, tx, booking)
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutParams{
		SuccessURL:        fmt.Sprintf("%s/api/v1/bookings/success?booking=%d", s.baseURL, booking.ID),
		CancelURL:         fmt.Sprintf("%s/api/v1/bookings/cancel?booking=%d", s.baseURL, booking.ID),
		CustomerEmail:     user.Email,
		ClientReferenceID: strconv.FormatUint(uint64(booking.ID), 10),
		ProductName:       productName,
		Description:       fmt.Sprintf("Booking for %s at %s", in.Date, in.StartTime),
		Amount:            amount,
		Currency:          s.currency,
	})
	if err != nil {
		// The pending booking is left behind; its slot was never committed
		// so it cannot block anyone.
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	return &ReservationResult{Booking: booking, Session: sess}, nil
}

// ConfirmFromWebhook applies a verified checkout-completed event. It is
// idempotent: redeliveries and unknown booking ids are acknowledged no-ops.
func (s *bookingService) ConfirmFromWebhook(ctx context.Context, bookingID uint, transactionID string) error {
	var (
		confirmed  *models.Booking
		providerID uint
	)

	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Failing here would make the gateway retry forever on a
				// deleted booking.
				s.logger.Warn("webhook for unknown booking", "booking_id", bookingID)
				return nil
			}
			return err
		}
		if booking.PaymentSettled() {
			return nil
		}

		booking.Status = models.BookingConfirmed
		booking.Payment.Status = models.PaymentStatusCompleted
		booking.Payment.TransactionID = transactionID
		if err := s.bookings.Save(ctx, tx, booking); err != nil {
			return err
		}

		pid, err := s.commitSlots(ctx, tx, booking)
		if err != nil {
			return err
		}
		providerID = pid

		if booking.ServiceID != nil {
			if err := s.users.AddProviderClient(ctx, tx, pid, booking.UserID); err != nil {
				return err
			}
		}

		confirmed = booking
		return nil
	})
	if err != nil {
		return err
	}
	if confirmed == nil {
		return nil
	}

	s.notifyConfirmed(ctx, confirmed, providerID)
	return nil
}

// ConfirmSuccessRedirect is the fallback for a delayed or lost webhook: the
// browser lands on the success URL before (or instead of) the gateway event.
// Only pending bookings are touched, so this cannot double-apply.
func (s *bookingService) ConfirmSuccessRedirect(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if booking.Status == models.BookingPending {
			booking.Status = models.BookingConfirmed
			booking.Payment.Status = models.PaymentStatusCompleted
			if err := s.bookings.Save(ctx, tx, booking); err != nil {
				return err
			}
			if _, err := s.commitSlots(ctx, tx, booking); err != nil {
				return err
			}
		}

		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelRedirect handles the gateway's cancel URL: an abandoned checkout
// moves the pending booking to cancelled. The slot was never committed.
func (s *bookingService) CancelRedirect(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if booking.Status == models.BookingPending {
			booking.Status = models.BookingCancelled
			if err := s.bookings.Save(ctx, tx, booking); err != nil {
				return err
			}
		}

		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID uint, requester Requester) (*models.Booking, error) {
	var (
		cancelled  *models.Booking
		providerID uint
	)

	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if booking.UserID != requester.ID && !requester.IsAdmin() {
			return ErrNotAllowed
		}
		if booking.Status.Terminal() {
			return terminalErr(booking.Status)
		}

		// Release before the terminal transition so a failure keeps the
		// booking cancellable.
		pid, err := s.releaseSlots(ctx, tx, booking)
		if err != nil {
			return err
		}
		providerID = pid

		booking.Status = models.BookingCancelled
		if err := s.bookings.Save(ctx, tx, booking); err != nil {
			return err
		}

		cancelled = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refundIfPaid(ctx, cancelled)

	requesterName := ""
	if user, err := s.users.FindByID(ctx, requester.ID); err == nil {
		requesterName = user.DisplayName()
	}
	s.sink.Notify(ctx, notifier.Message{
		RecipientID:  providerID,
		SenderID:     &requester.ID,
		Type:         models.NotifyBookingCancelled,
		Title:        "Booking cancelled",
		Content:      fmt.Sprintf("The booking from %s for %s at %s was cancelled.", requesterName, cancelled.Date.Format("2006-01-02"), cancelled.StartTime),
		RelatedModel: "Booking",
		RelatedID:    cancelled.ID,
	})

	return cancelled, nil
}

// refundIfPaid attempts a refund for completed online payments. Refund
// failure is logged and swallowed: the cancellation already happened and
// must not be rolled back over a gateway error.
func (s *bookingService) refundIfPaid(ctx context.Context, booking *models.Booking) {
	p := booking.Payment
	if p.Method != models.PaymentOnline || p.Status != models.PaymentStatusCompleted || p.TransactionID == "" {
		return
	}

	if _, err := s.gateway.CreateRefund(ctx, p.TransactionID, "requested_by_customer"); err != nil {
		s.logger.Error("refund failed, booking stays cancelled",
			"booking_id", booking.ID,
			"transaction_id", p.TransactionID,
			"error", err,
		)
		return
	}

	booking.Payment.Status = models.PaymentStatusRefunded
	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		return s.bookings.Save(ctx, tx, booking)
	})
	if err != nil {
		s.logger.Error("failed to record refund", "booking_id", booking.ID, "error", err)
	}
}

func (s *bookingService) CompleteBooking(ctx context.Context, bookingID uint, requester Requester) (*models.Booking, error) {
	var completed *models.Booking

	err := s.txm.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		isProvider, err := s.isResourceProvider(ctx, booking, requester.ID)
		if err != nil {
			return err
		}
		if !isProvider && !requester.IsAdmin() {
			return ErrNotAllowed
		}
		if booking.Status.Terminal() {
			return terminalErr(booking.Status)
		}

		booking.Status = models.BookingCompleted
		if err := s.bookings.Save(ctx, tx, booking); err != nil {
			return err
		}

		completed = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notifier.Message{
		RecipientID:  completed.UserID,
		SenderID:     &requester.ID,
		Type:         models.NotifyReminderSession,
		Title:        "Session completed",
		Content:      fmt.Sprintf("Your session on %s at %s was marked as completed. Feel free to leave a review!", completed.Date.Format("2006-01-02"), completed.StartTime),
		RelatedModel: "Booking",
		RelatedID:    completed.ID,
	})

	return completed, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListUserBookings(ctx context.Context, userID uint) ([]models.Booking, error) {
	return s.bookings.FindByUserID(ctx, userID)
}

func (s *bookingService) ListProviderBookings(ctx context.Context, requester Requester) ([]models.Booking, error) {
	switch requester.Role {
	case models.RoleCoach, models.RoleHealthSpecialist, models.RoleGymOwner:
		ids, err := s.resources.ServiceIDsByProvider(ctx, requester.ID)
		if err != nil {
			return nil, err
		}
		return s.bookings.FindByServiceIDs(ctx, ids)
	case models.RoleSportFieldOwner:
		ids, err := s.resources.FieldIDsByOwner(ctx, requester.ID)
		if err != nil {
			return nil, err
		}
		return s.bookings.FindByFieldIDs(ctx, ids)
	default:
		return nil, ErrNotAllowed
	}
}

// commitSlots books the slot(s) for the booking's resource and day under the
// resource row lock, and returns the provider (or field owner) id for
// notifications. A lost race surfaces as ErrSlotUnavailable and aborts the
// surrounding transaction.
func (s *bookingService) commitSlots(ctx context.Context, tx *gorm.DB, booking *models.Booking) (uint, error) {
	weekday := availability.DayKey(booking.Date)

	if booking.ServiceID != nil {
		svc, err := s.resources.FindServiceByIDForUpdate(ctx, tx, *booking.ServiceID)
		if err != nil {
			return 0, err
		}
		slots, err := s.resources.ServiceDaySlots(ctx, tx, svc.ID, weekday)
		if err != nil {
			return 0, err
		}
		if len(slots) == 0 {
			return 0, ErrDayUnavailable
		}
		changed, ok := availability.Commit(slots, booking.StartTime, booking.ID)
		if !ok {
			return 0, ErrSlotUnavailable
		}
		return svc.ProviderID, s.resources.SaveSlots(ctx, tx, pickSlots(slots, changed))
	}

	field, err := s.resources.FindFieldByIDForUpdate(ctx, tx, *booking.SportFieldID)
	if err != nil {
		return 0, err
	}
	slots, err := s.resources.FieldDaySlots(ctx, tx, field.ID, weekday)
	if err != nil {
		return 0, err
	}
	if len(slots) == 0 {
		return 0, ErrDayUnavailable
	}
	changed, ok := availability.CommitRange(slots, booking.StartTime, booking.EndTime, booking.ID)
	if !ok {
		return 0, ErrSlotUnavailable
	}
	return field.OwnerID, s.resources.SaveSlots(ctx, tx, pickSlots(slots, changed))
}

// releaseSlots is the inverse of commitSlots. A booking whose slot was never
// committed (abandoned online checkout) releases nothing.
func (s *bookingService) releaseSlots(ctx context.Context, tx *gorm.DB, booking *models.Booking) (uint, error) {
	weekday := availability.DayKey(booking.Date)

	if booking.ServiceID != nil {
		svc, err := s.resources.FindServiceByIDForUpdate(ctx, tx, *booking.ServiceID)
		if err != nil {
			return 0, err
		}
		slots, err := s.resources.ServiceDaySlots(ctx, tx, svc.ID, weekday)
		if err != nil {
			return 0, err
		}
		changed := availability.Release(slots, booking.StartTime, booking.ID)
		return svc.ProviderID, s.resources.SaveSlots(ctx, tx, pickSlots(slots, changed))
	}

	field, err := s.resources.FindFieldByIDForUpdate(ctx, tx, *booking.SportFieldID)
	if err != nil {
		return 0, err
	}
	slots, err := s.resources.FieldDaySlots(ctx, tx, field.ID, weekday)
	if err != nil {
		return 0, err
	}
	changed := availability.ReleaseRange(slots, booking.StartTime, booking.EndTime, booking.ID)
	return field.OwnerID, s.resources.SaveSlots(ctx, tx, pickSlots(slots, changed))
}

func (s *bookingService) isResourceProvider(ctx context.Context, booking *models.Booking, userID uint) (bool, error) {
	if booking.ServiceID != nil {
		svc, err := s.resources.FindServiceByID(ctx, *booking.ServiceID)
		if err != nil {
			return false, err
		}
		return svc.ProviderID == userID, nil
	}
	field, err := s.resources.FindFieldByID(ctx, *booking.SportFieldID)
	if err != nil {
		return false, err
	}
	return field.OwnerID == userID, nil
}

// notifyConfirmed tells both parties about a webhook-confirmed booking.
func (s *bookingService) notifyConfirmed(ctx context.Context, booking *models.Booking, providerID uint) {
	date := booking.Date.Format("2006-01-02")

	s.sink.Notify(ctx, notifier.Message{
		RecipientID:  booking.UserID,
		Type:         models.NotifyBookingConfirmed,
		Title:        "Booking confirmed",
		Content:      fmt.Sprintf("Your booking for %s at %s has been confirmed!", date, booking.StartTime),
		RelatedModel: "Booking",
		RelatedID:    booking.ID,
	})

	clientName := ""
	if user, err := s.users.FindByID(ctx, booking.UserID); err == nil {
		clientName = user.DisplayName()
	}
	s.sink.Notify(ctx, notifier.Message{
		RecipientID:  providerID,
		SenderID:     &booking.UserID,
		Type:         models.NotifyBookingConfirmed,
		Title:        "New booking",
		Content:      fmt.Sprintf("You have a new booking from %s for %s at %s", clientName, date, booking.StartTime),
		RelatedModel: "Booking",
		RelatedID:    booking.ID,
	})
}

func parseDate(v string) (time.Time, error) {
	return time.Parse("2006-01-02", v)
}

func pickSlots(slots []models.Slot, indexes []int) []models.Slot {
	out := make([]models.Slot, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, slots[i])
	}
	return out
}
