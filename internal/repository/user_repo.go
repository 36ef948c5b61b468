package repository

import (
	"context"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	AddProviderClient(ctx context.Context, tx *gorm.DB, providerID, clientID uint) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// AddProviderClient records the client in the provider's client list.
// Repeat bookings with the same provider are a no-op.
func (r *userRepository) AddProviderClient(ctx context.Context, tx *gorm.DB, providerID, clientID uint) error {
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProviderClient{ProviderID: providerID, ClientID: clientID}).Error
}
