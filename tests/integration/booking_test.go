//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"github.com/flexmatch/flexmatch-api/internal/notifier"
	"github.com/flexmatch/flexmatch-api/internal/payment"
	"github.com/flexmatch/flexmatch-api/internal/repository"
	"github.com/flexmatch/flexmatch-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopSink struct{}

func (noopSink) Notify(ctx context.Context, msg notifier.Message) {}

type noopGateway struct{}

func (noopGateway) CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (*payment.CheckoutSession, error) {
	return &payment.CheckoutSession{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}
func (noopGateway) VerifyWebhook(payload []byte, signatureHeader string) (*payment.CheckoutEvent, error) {
	return nil, fmt.Errorf("not used")
}
func (noopGateway) CreateRefund(ctx context.Context, transactionID, reason string) (string, error) {
	return "re_test", nil
}

func newBookingService() service.BookingService {
	return service.NewBookingService(
		repository.NewTxManager(testDB),
		repository.NewBookingRepository(testDB),
		repository.NewResourceRepository(testDB),
		repository.NewUserRepository(testDB),
		noopGateway{},
		noopSink{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		"http://localhost:8080",
		"tnd",
	)
}

func uintPtr(v uint) *uint { return &v }

func createClients(t *testing.T, n int) []models.User {
	t.Helper()
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{
			FirstName: "Client",
			LastName:  fmt.Sprintf("%03d", i),
			Email:     fmt.Sprintf("client-%03d@example.com", i),
			Role:      models.RoleClient,
		}
		require.NoError(t, testDB.Create(&users[i]).Error)
	}
	return users
}

func createCoachWithService(t *testing.T) *models.Service {
	t.Helper()
	coach := models.User{FirstName: "Marc", LastName: "Coach", Email: "coach@example.com", Role: models.RoleCoach}
	require.NoError(t, testDB.Create(&coach).Error)

	svc := models.Service{
		Title:        "Strength session",
		ProviderID:   coach.ID,
		ProviderKind: models.ProviderCoach,
		Price:        50,
		Active:       true,
	}
	require.NoError(t, testDB.Create(&svc).Error)

	slot := models.Slot{ServiceID: &svc.ID, Weekday: "monday", StartTime: "09:00", EndTime: "10:00"}
	require.NoError(t, testDB.Create(&slot).Error)
	return &svc
}

func createFieldWithSlots(t *testing.T) *models.SportField {
	t.Helper()
	owner := models.User{FirstName: "Lina", LastName: "Field", Email: "owner@example.com", Role: models.RoleSportFieldOwner}
	require.NoError(t, testDB.Create(&owner).Error)

	field := models.SportField{OwnerID: owner.ID, Name: "Center Court", SportType: "tennis", HourlyRate: 40}
	require.NoError(t, testDB.Create(&field).Error)

	for _, s := range []struct{ start, end string }{{"10:00", "11:00"}, {"11:00", "12:00"}} {
		slot := models.Slot{SportFieldID: &field.ID, Weekday: "monday", StartTime: s.start, EndTime: s.end}
		require.NoError(t, testDB.Create(&slot).Error)
	}
	return &field
}

func cashInput(userID, serviceID uint) service.CreateReservationInput {
	return service.CreateReservationInput{
		UserID:        userID,
		ServiceID:     uintPtr(serviceID),
		Date:          "2026-09-07",
		StartTime:     "09:00",
		EndTime:       "10:00",
		PaymentMethod: models.PaymentCash,
	}
}

// sqlRecorder captures every statement gorm executes so tests can assert
// on the rendered SQL.
type sqlRecorder struct {
	logger.Interface
	mu      sync.Mutex
	queries []string
}

func (r *sqlRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	r.mu.Lock()
	r.queries = append(r.queries, sql)
	r.mu.Unlock()
}

func (r *sqlRecorder) countContaining(fragment string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, q := range r.queries {
		if strings.Contains(q, fragment) {
			n++
		}
	}
	return n
}

// The ForUpdate lookups are what serialize concurrent slot writers. If the
// locking clause ever stops rendering, the check-then-commit race reopens
// without any test failing loudly, so assert on the emitted SQL.
func TestForUpdateAcquiresRowLock(t *testing.T) {
	cleanTables()
	svcModel := createCoachWithService(t)
	field := createFieldWithSlots(t)
	clients := createClients(t, 1)

	booking := models.Booking{
		UserID:    clients[0].ID,
		ServiceID: &svcModel.ID,
		StartTime: "09:00",
		EndTime:   "10:00",
		Status:    models.BookingPending,
	}
	require.NoError(t, testDB.Create(&booking).Error)

	rec := &sqlRecorder{Interface: logger.Discard}
	session := testDB.Session(&gorm.Session{Logger: rec})
	resources := repository.NewResourceRepository(session)
	bookings := repository.NewBookingRepository(session)

	err := session.Transaction(func(tx *gorm.DB) error {
		if _, err := bookings.FindByIDForUpdate(context.Background(), tx, booking.ID); err != nil {
			return err
		}
		if _, err := resources.FindServiceByIDForUpdate(context.Background(), tx, svcModel.ID); err != nil {
			return err
		}
		_, err := resources.FindFieldByIDForUpdate(context.Background(), tx, field.ID)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 3, rec.countContaining("FOR UPDATE"),
		"all three lookups should lock their rows")
}

// Many clients race for the same service slot: exactly one wins, the rest
// are rejected and no slot ends up double-booked.
func TestConcurrentSlotBooking(t *testing.T) {
	cleanTables()
	svcModel := createCoachWithService(t)
	clients := createClients(t, 10)
	svc := newBookingService()

	var wg sync.WaitGroup
	var mu sync.Mutex
	confirmed := 0

	wg.Add(len(clients))
	for _, client := range clients {
		go func(userID uint) {
			defer wg.Done()
			result, err := svc.CreateReservation(context.Background(), cashInput(userID, svcModel.ID))
			if err == nil && result.Booking.Status == models.BookingConfirmed {
				mu.Lock()
				confirmed++
				mu.Unlock()
			}
		}(client.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, confirmed, "exactly one concurrent reservation should win the slot")

	var bookedSlots int64
	testDB.Model(&models.Slot{}).Where("service_id = ? AND is_booked", svcModel.ID).Count(&bookedSlots)
	assert.Equal(t, int64(1), bookedSlots)

	var confirmedBookings int64
	testDB.Model(&models.Booking{}).Where("service_id = ? AND status = ?", svcModel.ID, models.BookingConfirmed).Count(&confirmedBookings)
	assert.Equal(t, int64(1), confirmedBookings)
}

// Cancelling frees the slot so another client can book it again.
func TestCancelReleasesSlot(t *testing.T) {
	cleanTables()
	svcModel := createCoachWithService(t)
	clients := createClients(t, 2)
	svc := newBookingService()

	first, err := svc.CreateReservation(context.Background(), cashInput(clients[0].ID, svcModel.ID))
	require.NoError(t, err)

	_, err = svc.CreateReservation(context.Background(), cashInput(clients[1].ID, svcModel.ID))
	assert.ErrorIs(t, err, service.ErrSlotUnavailable)

	_, err = svc.CancelBooking(context.Background(), first.Booking.ID, service.Requester{ID: clients[0].ID, Role: models.RoleClient})
	require.NoError(t, err)

	second, err := svc.CreateReservation(context.Background(), cashInput(clients[1].ID, svcModel.ID))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, second.Booking.Status)
}

// Two overlapping field ranges race: only one reservation takes the shared
// 11:00 slot.
func TestConcurrentFieldRanges(t *testing.T) {
	cleanTables()
	field := createFieldWithSlots(t)
	clients := createClients(t, 2)
	svc := newBookingService()

	inputs := []service.CreateReservationInput{
		{
			UserID:        clients[0].ID,
			SportFieldID:  uintPtr(field.ID),
			Date:          "2026-09-07",
			StartTime:     "10:00",
			EndTime:       "11:30",
			PaymentMethod: models.PaymentCash,
		},
		{
			UserID:        clients[1].ID,
			SportFieldID:  uintPtr(field.ID),
			Date:          "2026-09-07",
			StartTime:     "11:00",
			EndTime:       "12:00",
			PaymentMethod: models.PaymentCash,
		},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	wg.Add(len(inputs))
	for _, in := range inputs {
		go func(in service.CreateReservationInput) {
			defer wg.Done()
			if _, err := svc.CreateReservation(context.Background(), in); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(in)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "overlapping ranges must not both commit")
}

// A webhook redelivery must not change the stored transaction id or
// release/retake slots.
func TestWebhookConfirmIdempotent(t *testing.T) {
	cleanTables()
	svcModel := createCoachWithService(t)
	clients := createClients(t, 1)
	svc := newBookingService()

	in := cashInput(clients[0].ID, svcModel.ID)
	in.PaymentMethod = models.PaymentOnline
	result, err := svc.CreateReservation(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, models.BookingPending, result.Booking.Status)

	require.NoError(t, svc.ConfirmFromWebhook(context.Background(), result.Booking.ID, "pi_first"))
	require.NoError(t, svc.ConfirmFromWebhook(context.Background(), result.Booking.ID, "pi_second"))

	var stored models.Booking
	require.NoError(t, testDB.First(&stored, result.Booking.ID).Error)
	assert.Equal(t, models.BookingConfirmed, stored.Status)
	assert.Equal(t, "pi_first", stored.Payment.TransactionID)

	var bookedSlots int64
	testDB.Model(&models.Slot{}).Where("service_id = ? AND is_booked", svcModel.ID).Count(&bookedSlots)
	assert.Equal(t, int64(1), bookedSlots)
}
