package seeders

import (
	"context"
	"errors"
	"log"

	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/model"
	"github.com/densematrix/study_api/services/repositories"
	"gorm.io/gorm"
)

// LedgerSeeder writes token grants and completed purchases for local testing.
type LedgerSeeder struct {
	entitlements *repositories.EntitlementRepository
	payments     *repositories.PaymentRepository
	sessions     *repositories.SessionRepository
}

func NewLedgerSeeder(db *gorm.DB) *LedgerSeeder {
	return &LedgerSeeder{
		entitlements: repositories.NewEntitlementRepository(db),
		payments:     repositories.NewPaymentRepository(db),
		sessions:     repositories.NewSessionRepository(db),
	}
}

// GrantTokens credits tokens outside of any checkout.
func (s *LedgerSeeder) GrantTokens(ctx context.Context, deviceID string, tokens int) (*model.TokenBalance, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	if tokens <= 0 {
		return nil, errors.New("tokens must be positive")
	}

	balance, err := s.entitlements.GrantTokens(ctx, deviceID, tokens)
	if err != nil {
		return nil, err
	}
	log.Printf("Granted %d tokens to %s (remaining %d, lifetime %d)", tokens, deviceID, balance.TokensRemaining, balance.TokensTotal)
	return balance, nil
}

// CompleteCheckout runs a purchase through the same completion path the webhook uses.
// Running it twice for one checkout id credits once.
func (s *LedgerSeeder) CompleteCheckout(ctx context.Context, deviceID, checkoutID, sku string) (*repositories.CompletionResult, error) {
	if deviceID == "" || checkoutID == "" {
		return nil, errors.New("device id and checkout id are required")
	}

	product := config.ProductOrDefault(sku)
	result, err := s.payments.CompleteCheckout(ctx, checkoutID, func() (*model.PaymentTransaction, error) {
		return &model.PaymentTransaction{
			DeviceID:      deviceID,
			ProductSKU:    product.SKU,
			Currency:      "usd",
			TokensGranted: product.Tokens,
		}, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	if result.Credited {
		log.Printf("Checkout %s completed: %d tokens credited to %s", checkoutID, product.Tokens, result.Transaction.DeviceID)
	} else {
		log.Printf("Checkout %s was already completed, nothing credited", checkoutID)
	}
	return result, nil
}

// PrintHistory logs the device's most recent study sessions.
func (s *LedgerSeeder) PrintHistory(ctx context.Context, deviceID string, limit int) error {
	sessions, err := s.sessions.ListByDevice(ctx, deviceID, limit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		log.Printf("No study sessions for %s", deviceID)
		return nil
	}
	for _, session := range sessions {
		log.Printf("%s  %-30q %d/%d correct  +%d xp", session.CreatedAt.Format("2006-01-02 15:04"), session.Topic, session.CorrectCount, session.QuestionsCount, session.XPEarned)
	}
	return nil
}
