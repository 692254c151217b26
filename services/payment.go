package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/model"
	"github.com/densematrix/study_api/services/repositories"
	"github.com/rs/zerolog/log"
)

const PAYMENT_SVC = "payment_svc"

const defaultCurrency = "usd"

type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, session CheckoutSession) (*OpenedCheckout, error)
}

type PaymentStore interface {
	Create(ctx context.Context, txn *model.PaymentTransaction) error
	EnsurePending(ctx context.Context, txn *model.PaymentTransaction) (bool, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*model.PaymentTransaction, error)
	CompleteCheckout(
		ctx context.Context,
		checkoutID string,
		synthesize func() (*model.PaymentTransaction, error),
		apply func(txn *model.PaymentTransaction),
	) (*repositories.CompletionResult, error)
}

type BalanceReader interface {
	GetBalance(ctx context.Context, deviceID string) (*model.TokenBalance, error)
}

// PaymentService opens checkouts and reconciles provider webhooks into the token ledger.
type PaymentService struct {
	appContext.DefaultService

	cfg config.Config

	provider CheckoutProvider
	payments PaymentStore
	balances BalanceReader
	events   EventPublisher
	dbSvc    Database
}

func NewPaymentService(cfg config.Config) *PaymentService {
	return &PaymentService{cfg: cfg}
}

func (svc PaymentService) Id() string {
	return PAYMENT_SVC
}

func (svc *PaymentService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *PaymentService) Start() error {
	svc.dbSvc = svc.Service(DATABASE_SVC).(Database)
	svc.provider = svc.Service(CREEM_SVC).(*CreemService)
	svc.events = svc.Service(EVENT_SVC).(*EventService)
	svc.payments = repositories.NewPaymentRepository(svc.dbSvc.Db())
	svc.balances = repositories.NewEntitlementRepository(svc.dbSvc.Db())
	return nil
}

func (svc *PaymentService) Shutdown() {}

// WithDependencies wires collaborators directly, bypassing the service context.
func (svc *PaymentService) WithDependencies(provider CheckoutProvider, payments PaymentStore, balances BalanceReader, events EventPublisher) *PaymentService {
	svc.provider = provider
	svc.payments = payments
	svc.balances = balances
	svc.events = events
	return svc
}

// Products lists the catalog and whether each tier can currently be bought.
func (svc *PaymentService) Products() []dto.ProductResponse {
	catalog := config.Products()
	out := make([]dto.ProductResponse, 0, len(catalog))
	for _, p := range catalog {
		_, mapped := svc.cfg.ProductID(p.SKU)
		out = append(out, dto.ProductResponse{
			SKU:        p.SKU,
			Name:       p.Name,
			Tokens:     p.Tokens,
			Configured: mapped && svc.cfg.PaymentConfigured(),
		})
	}
	return out
}

func (svc *PaymentService) CreateCheckout(ctx context.Context, req dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error) {
	if strings.TrimSpace(req.DeviceID) == "" {
		return nil, ErrMissingDeviceIdentity
	}

	product, ok := config.LookupProduct(req.ProductSKU)
	if !ok {
		return nil, ErrInvalidProduct
	}
	productID, ok := svc.cfg.ProductID(product.SKU)
	if !ok {
		log.Error().Str("product_sku", product.SKU).Msg("No provider product id configured")
		return nil, ErrProductNotConfigured
	}
	if !svc.cfg.PaymentConfigured() {
		log.Error().Msg("CREEM_API_KEY not set")
		return nil, ErrPaymentNotConfigured
	}

	opened, err := svc.provider.CreateCheckout(ctx, CheckoutSession{
		ProductID:  productID,
		ProductSKU: product.SKU,
		DeviceID:   req.DeviceID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		log.Error().Err(err).Str("product_sku", product.SKU).Msg("Failed to create checkout")
		return nil, err
	}

	err = svc.payments.Create(ctx, &model.PaymentTransaction{
		CheckoutID:    opened.ID,
		DeviceID:      req.DeviceID,
		ProductSKU:    product.SKU,
		ProductID:     productID,
		Currency:      defaultCurrency,
		Status:        model.PaymentStatusPending,
		TokensGranted: product.Tokens,
	})
	if err != nil {
		return nil, svc.handleError(err)
	}

	log.Info().Str("checkout_id", opened.ID).Str("device_id", req.DeviceID).Str("product_sku", product.SKU).Msg("Checkout created")

	return &dto.CheckoutResponse{CheckoutURL: opened.URL, CheckoutID: opened.ID}, nil
}

// VerifySignature checks a hex HMAC-SHA256 of body under secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// HandleWebhook processes one provider event. An unsigned body is accepted; a
// signed body must verify or nothing is processed.
func (svc *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if signature != "" && !VerifySignature(svc.cfg.PaymentWebhookSecret, body, signature) {
		log.Warn().Msg("Webhook signature mismatch")
		return ErrInvalidSignature
	}

	var payload dto.WebhookPayload
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return ErrInvalidPayload
	}
	event := payload.Normalize()

	switch {
	case event.IsCompletion():
		if event.CheckoutID == "" {
			return ErrInvalidPayload
		}
		return svc.completeCheckout(ctx, event)
	case event.EventType == dto.EventCheckoutCreated:
		if event.CheckoutID == "" {
			return ErrInvalidPayload
		}
		return svc.ensurePending(ctx, event)
	default:
		log.Debug().Str("event_type", event.EventType).Msg("Ignoring webhook event")
		return nil
	}
}

func (svc *PaymentService) completeCheckout(ctx context.Context, event dto.WebhookEvent) error {
	synthesize := func() (*model.PaymentTransaction, error) {
		if strings.TrimSpace(event.Metadata.DeviceID) == "" {
			return nil, ErrMissingDeviceMetadata
		}
		return newTransactionFromEvent(event), nil
	}
	apply := func(txn *model.PaymentTransaction) {
		if event.Amount != nil {
			txn.AmountCents = *event.Amount
		}
		if event.Currency != "" {
			txn.Currency = strings.ToLower(event.Currency)
		}
	}

	result, err := svc.payments.CompleteCheckout(ctx, event.CheckoutID, synthesize, apply)
	if err != nil {
		if errors.Is(err, ErrMissingDeviceMetadata) {
			log.Warn().Str("checkout_id", event.CheckoutID).Msg("Completion for unknown checkout without device metadata")
			return err
		}
		return svc.handleError(err)
	}

	txn := result.Transaction
	if !result.Credited {
		log.Info().Str("checkout_id", event.CheckoutID).Msg("Checkout already completed, skipping")
		return nil
	}

	RecordPayment(txn.ProductSKU, txn.AmountCents)
	log.Info().
		Str("checkout_id", txn.CheckoutID).
		Str("device_id", txn.DeviceID).
		Int("tokens_granted", txn.TokensGranted).
		Int("tokens_remaining", result.Balance.TokensRemaining).
		Msg("Checkout completed")

	svc.publish(ctx, Event{
		Type:     EventPaymentCompleted,
		DeviceID: txn.DeviceID,
		Payload: map[string]interface{}{
			"checkout_id":      txn.CheckoutID,
			"product_sku":      txn.ProductSKU,
			"tokens_granted":   txn.TokensGranted,
			"tokens_remaining": result.Balance.TokensRemaining,
			"amount_cents":     txn.AmountCents,
			"currency":         txn.Currency,
		},
	})
	return nil
}

func (svc *PaymentService) ensurePending(ctx context.Context, event dto.WebhookEvent) error {
	_, err := svc.payments.GetByCheckoutID(ctx, event.CheckoutID)
	if err == nil {
		return nil
	}
	if !repositories.IsNotFound(err) {
		return svc.handleError(err)
	}

	if strings.TrimSpace(event.Metadata.DeviceID) == "" {
		return ErrMissingDeviceMetadata
	}

	if _, err := svc.payments.EnsurePending(ctx, newTransactionFromEvent(event)); err != nil {
		return svc.handleError(err)
	}
	return nil
}

// newTransactionFromEvent builds a pending record for a checkout this service never opened.
// Unknown skus fall back to the smallest tier.
func newTransactionFromEvent(event dto.WebhookEvent) *model.PaymentTransaction {
	product := config.ProductOrDefault(event.Metadata.ProductSKU)

	txn := &model.PaymentTransaction{
		CheckoutID:    event.CheckoutID,
		DeviceID:      event.Metadata.DeviceID,
		ProductSKU:    product.SKU,
		ProductID:     event.ProductID,
		Currency:      defaultCurrency,
		Status:        model.PaymentStatusPending,
		TokensGranted: product.Tokens,
	}
	if event.Amount != nil {
		txn.AmountCents = *event.Amount
	}
	if event.Currency != "" {
		txn.Currency = strings.ToLower(event.Currency)
	}
	return txn
}

func (svc *PaymentService) CheckoutStatus(ctx context.Context, checkoutID string) (*dto.CheckoutStatusResponse, error) {
	if strings.TrimSpace(checkoutID) == "" {
		return nil, ErrCheckoutNotFound
	}

	txn, err := svc.payments.GetByCheckoutID(ctx, checkoutID)
	if repositories.IsNotFound(err) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, svc.handleError(err)
	}

	if !txn.IsCompleted() {
		return &dto.CheckoutStatusResponse{
			Status:  txn.Status,
			Message: "Payment is being processed. Please refresh in a few seconds.",
		}, nil
	}

	balance, err := svc.balances.GetBalance(ctx, txn.DeviceID)
	if err != nil {
		return nil, svc.handleError(err)
	}

	tokensAdded := txn.TokensGranted
	remaining := balance.TokensRemaining
	return &dto.CheckoutStatusResponse{
		Status:          txn.Status,
		TokensAdded:     &tokensAdded,
		TokensRemaining: &remaining,
	}, nil
}

func (svc *PaymentService) publish(ctx context.Context, event Event) {
	if svc.events != nil {
		svc.events.Publish(ctx, event)
	}
}

func (svc *PaymentService) handleError(err error) error {
	if svc.dbSvc != nil {
		return svc.dbSvc.HandleError(err)
	}
	return err
}
