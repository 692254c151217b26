package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/densematrix/study_api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntitlementRepository owns token balances and free trial tombstones.
// Every mutation is a single conditional statement so concurrent callers
// for the same device are serialized by the database.
type EntitlementRepository struct {
	BaseRepository
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetBalance returns the device's balance, or a zero balance when none exists yet.
func (r *EntitlementRepository) GetBalance(ctx context.Context, deviceID string) (*model.TokenBalance, error) {
	return getBalance(r.conn(ctx), deviceID)
}

func (r *EntitlementRepository) HasUsedFreeTrial(ctx context.Context, deviceID string) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&model.FreeTrialUsage{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ConsumeToken decrements the balance by one if it is positive.
// ok is false when the device had no token to spend.
func (r *EntitlementRepository) ConsumeToken(ctx context.Context, deviceID string) (remaining int, ok bool, err error) {
	err = r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TokenBalance{}).
			Where("device_id = ? AND tokens_remaining > 0", deviceID).
			Updates(map[string]interface{}{
				"tokens_remaining": gorm.Expr("tokens_remaining - 1"),
				"updated_at":       time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		ok = true
		balance, err := getBalance(tx, deviceID)
		if err != nil {
			return err
		}
		remaining = balance.TokensRemaining
		return nil
	})
	return remaining, ok, err
}

// ClaimFreeTrial writes the device's tombstone. It reports false when the
// trial had already been claimed, including by a concurrent request.
func (r *EntitlementRepository) ClaimFreeTrial(ctx context.Context, deviceID string) (bool, error) {
	now := time.Now()
	usage := model.FreeTrialUsage{
		ID:       newID(),
		DeviceID: deviceID,
		UsedAt:   now,
	}

	res := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoNothing: true,
		}).
		Create(&usage)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GrantTokens adds count to both counters, creating the balance if needed,
// and returns the updated row.
func (r *EntitlementRepository) GrantTokens(ctx context.Context, deviceID string, count int) (*model.TokenBalance, error) {
	var balance *model.TokenBalance
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = grantTokens(tx, deviceID, count)
		return err
	})
	return balance, err
}

func grantTokens(db *gorm.DB, deviceID string, count int) (*model.TokenBalance, error) {
	row := model.TokenBalance{
		ID:              newID(),
		DeviceID:        deviceID,
		TokensRemaining: count,
		TokensTotal:     count,
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tokens_remaining": gorm.Expr("token_balances.tokens_remaining + excluded.tokens_remaining"),
			"tokens_total":     gorm.Expr("token_balances.tokens_total + excluded.tokens_total"),
			"updated_at":       time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	return getBalance(db, deviceID)
}

func getBalance(db *gorm.DB, deviceID string) (*model.TokenBalance, error) {
	var balance model.TokenBalance
	err := db.Where("device_id = ?", deviceID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.TokenBalance{DeviceID: deviceID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}
