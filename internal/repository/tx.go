package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager runs a function inside a database transaction. Services depend
// on this instead of *gorm.DB directly so transactional flows stay mockable.
type TxManager interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type txManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &txManager{db: db}
}

func (m *txManager) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
