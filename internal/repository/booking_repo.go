package repository

import (
	"context"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByUserID(ctx context.Context, userID uint) ([]models.Booking, error)
	FindByServiceIDs(ctx context.Context, serviceIDs []uint) ([]models.Booking, error)
	FindByFieldIDs(ctx context.Context, fieldIDs []uint) ([]models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the given
// transaction. The webhook reconciler and the cancellation path both lock the
// booking row so their idempotency/terminal-state checks cannot race.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Save(booking).Error
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("SportField").
		Where("user_id = ?", userID).
		Order("date DESC, start_time DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindByServiceIDs(ctx context.Context, serviceIDs []uint) ([]models.Booking, error) {
	var bookings []models.Booking
	if len(serviceIDs) == 0 {
		return bookings, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Service").
		Where("service_id IN ?", serviceIDs).
		Order("date DESC, start_time DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindByFieldIDs(ctx context.Context, fieldIDs []uint) ([]models.Booking, error) {
	var bookings []models.Booking
	if len(fieldIDs) == 0 {
		return bookings, nil
	}
	err := r.db.WithContext(ctx).
		Preload("SportField").
		Where("sport_field_id IN ?", fieldIDs).
		Order("date DESC, start_time DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
