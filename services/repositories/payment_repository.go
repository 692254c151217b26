package repositories

import (
	"context"
	"time"

	"github.com/densematrix/study_api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionResult describes what CompleteCheckout did.
type CompletionResult struct {
	Transaction *model.PaymentTransaction
	// Credited is true only for the call that moved the transaction to completed.
	Credited bool
	Balance  *model.TokenBalance
}

type PaymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *PaymentRepository) Create(ctx context.Context, txn *model.PaymentTransaction) error {
	if txn.ID == "" {
		txn.ID = newTypeID(PrefixPayment)
	}
	if txn.Status == "" {
		txn.Status = model.PaymentStatusPending
	}
	return r.conn(ctx).Create(txn).Error
}

// EnsurePending inserts txn unless a transaction with the same checkout id exists.
func (r *PaymentRepository) EnsurePending(ctx context.Context, txn *model.PaymentTransaction) (bool, error) {
	if txn.ID == "" {
		txn.ID = newTypeID(PrefixPayment)
	}
	txn.Status = model.PaymentStatusPending

	res := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "checkout_id"}},
		DoNothing: true,
	}).Create(txn)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetByCheckoutID returns gorm.ErrRecordNotFound for unknown checkouts.
func (r *PaymentRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	if err := r.conn(ctx).Where("checkout_id = ?", checkoutID).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// CompleteCheckout moves a checkout to completed and credits its tokens in one transaction.
//
// When no transaction exists, synthesize builds one; returning an error from it
// aborts without writing anything. apply may copy event details onto the
// transaction before it is completed. Replays of an already completed checkout
// return Credited=false and change nothing.
func (r *PaymentRepository) CompleteCheckout(
	ctx context.Context,
	checkoutID string,
	synthesize func() (*model.PaymentTransaction, error),
	apply func(txn *model.PaymentTransaction),
) (*CompletionResult, error) {
	result := &CompletionResult{}

	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := lockByCheckoutID(tx, checkoutID)
		if IsNotFound(err) {
			txn, err = synthesize()
			if err != nil {
				return err
			}
			txn.ID = newTypeID(PrefixPayment)
			txn.CheckoutID = checkoutID
			txn.Status = model.PaymentStatusPending

			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "checkout_id"}},
				DoNothing: true,
			}).Create(txn).Error
			if err != nil {
				return err
			}

			txn, err = lockByCheckoutID(tx, checkoutID)
		}
		if err != nil {
			return err
		}

		result.Transaction = txn
		if txn.IsCompleted() {
			return nil
		}

		if apply != nil {
			apply(txn)
		}
		now := time.Now()

		res := tx.Model(&model.PaymentTransaction{}).
			Where("id = ? AND status = ?", txn.ID, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":       model.PaymentStatusCompleted,
				"amount_cents": txn.AmountCents,
				"currency":     txn.Currency,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another delivery completed it first.
			return nil
		}

		txn.Status = model.PaymentStatusCompleted
		txn.CompletedAt = &now

		balance, err := grantTokens(tx, txn.DeviceID, txn.TokensGranted)
		if err != nil {
			return err
		}

		result.Credited = true
		result.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func lockByCheckoutID(tx *gorm.DB, checkoutID string) (*model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("checkout_id = ?", checkoutID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
