package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vendor-service/internal/model"
	"vendor-service/pkg/database"
	"vendor-service/prometheus"
)

// AccountStore persists upstream OAuth token pairs
type AccountStore interface {
	Upsert(ctx context.Context, account *model.Account) error
	Get(ctx context.Context, userID uint) (*model.Account, error)
}

// AccountRepository implements AccountStore on gorm
type AccountRepository struct {
	db      *gorm.DB
	metrics *prometheus.Metrics
}

// NewAccountRepository creates an AccountRepository
func NewAccountRepository(db *gorm.DB, metrics *prometheus.Metrics) *AccountRepository {
	return &AccountRepository{db: db, metrics: metrics}
}

// Upsert inserts account or replaces the token pair of an existing user
func (r *AccountRepository) Upsert(ctx context.Context, account *model.Account) error {
	defer r.metrics.TrackDBOperation("account_upsert")(time.Now())

	err := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
	}).Create(account).Error
	if err != nil {
		return fmt.Errorf("upsert account %d: %w", account.UserID, err)
	}
	return nil
}

// Get returns the account of userID
func (r *AccountRepository) Get(ctx context.Context, userID uint) (*model.Account, error) {
	defer r.metrics.TrackDBOperation("account_get")(time.Now())

	var account model.Account
	err := database.Conn(ctx, r.db).First(&account, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %d: %w", userID, err)
	}
	return &account, nil
}
