package database

import (
	"log"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.SportField{},
		&models.Slot{},
		&models.Booking{},
		&models.ProviderClient{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// One schedule entry per service slot: a service cannot define the same
	// weekday start twice.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_service_slot_def
		ON slots (service_id, weekday, start_time)
		WHERE service_id IS NOT NULL
	`)
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_field_slot_def
		ON slots (sport_field_id, weekday, start_time)
		WHERE sport_field_id IS NOT NULL
	`)

	return db
}
