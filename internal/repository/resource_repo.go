package repository

import (
	"context"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResourceRepository persists the two bookable resource kinds and their
// availability slots. Slot reads that precede a commit/release must go
// through the ForUpdate variants so the owning resource row is locked first.
type ResourceRepository interface {
	FindServiceByID(ctx context.Context, id uint) (*models.Service, error)
	FindServiceByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Service, error)
	FindFieldByID(ctx context.Context, id uint) (*models.SportField, error)
	FindFieldByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.SportField, error)

	ServiceDaySlots(ctx context.Context, tx *gorm.DB, serviceID uint, weekday string) ([]models.Slot, error)
	FieldDaySlots(ctx context.Context, tx *gorm.DB, fieldID uint, weekday string) ([]models.Slot, error)
	SaveSlots(ctx context.Context, tx *gorm.DB, slots []models.Slot) error

	ServiceIDsByProvider(ctx context.Context, providerID uint) ([]uint, error)
	FieldIDsByOwner(ctx context.Context, ownerID uint) ([]uint, error)
}

type resourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) FindServiceByID(ctx context.Context, id uint) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).First(&service, id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

// FindServiceByIDForUpdate locks the service row, serializing concurrent slot
// mutations for the same service.
func (r *resourceRepository) FindServiceByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Service, error) {
	var service models.Service
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&service, id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *resourceRepository) FindFieldByID(ctx context.Context, id uint) (*models.SportField, error) {
	var field models.SportField
	if err := r.db.WithContext(ctx).First(&field, id).Error; err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *resourceRepository) FindFieldByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.SportField, error) {
	var field models.SportField
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&field, id).Error; err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *resourceRepository) ServiceDaySlots(ctx context.Context, tx *gorm.DB, serviceID uint, weekday string) ([]models.Slot, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var slots []models.Slot
	err := db.WithContext(ctx).
		Where("service_id = ? AND weekday = ?", serviceID, weekday).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *resourceRepository) FieldDaySlots(ctx context.Context, tx *gorm.DB, fieldID uint, weekday string) ([]models.Slot, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var slots []models.Slot
	err := db.WithContext(ctx).
		Where("sport_field_id = ? AND weekday = ?", fieldID, weekday).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *resourceRepository) SaveSlots(ctx context.Context, tx *gorm.DB, slots []models.Slot) error {
	for i := range slots {
		if err := tx.WithContext(ctx).Save(&slots[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *resourceRepository) ServiceIDsByProvider(ctx context.Context, providerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Service{}).
		Where("provider_id = ?", providerID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *resourceRepository) FieldIDsByOwner(ctx context.Context, ownerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.SportField{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error
	return ids, err
}
