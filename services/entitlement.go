package services

import (
	"context"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/model"
	"github.com/densematrix/study_api/services/repositories"
	"github.com/rs/zerolog/log"
)

const ENTITLEMENT_SVC = "entitlement_svc"

// EntitlementStore is the persistence the ledger needs.
type EntitlementStore interface {
	GetBalance(ctx context.Context, deviceID string) (*model.TokenBalance, error)
	HasUsedFreeTrial(ctx context.Context, deviceID string) (bool, error)
	ConsumeToken(ctx context.Context, deviceID string) (remaining int, ok bool, err error)
	ClaimFreeTrial(ctx context.Context, deviceID string) (bool, error)
	GrantTokens(ctx context.Context, deviceID string, count int) (*model.TokenBalance, error)
}

// EntitlementService decides whether a device may generate a quiz.
// Paid tokens are always spent before the one-time free trial.
type EntitlementService struct {
	appContext.DefaultService

	store EntitlementStore
	dbSvc Database
}

func NewEntitlementService(store EntitlementStore) *EntitlementService {
	return &EntitlementService{store: store}
}

func (svc EntitlementService) Id() string {
	return ENTITLEMENT_SVC
}

func (svc *EntitlementService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *EntitlementService) Start() error {
	svc.dbSvc = svc.Service(DATABASE_SVC).(Database)
	if svc.store == nil {
		svc.store = repositories.NewEntitlementRepository(svc.dbSvc.Db())
	}
	return nil
}

func (svc *EntitlementService) Shutdown() {}

// Check reports how the next generation would be paid for without changing anything.
func (svc *EntitlementService) Check(ctx context.Context, deviceID string) (*dto.EntitlementStatus, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingDeviceIdentity
	}

	balance, err := svc.store.GetBalance(ctx, deviceID)
	if err != nil {
		return nil, svc.handleError(err)
	}
	if balance.TokensRemaining > 0 {
		return &dto.EntitlementStatus{Allowed: true, TokensRemaining: balance.TokensRemaining}, nil
	}

	used, err := svc.store.HasUsedFreeTrial(ctx, deviceID)
	if err != nil {
		return nil, svc.handleError(err)
	}
	if !used {
		return &dto.EntitlementStatus{Allowed: true, UsingFreeTrial: true}, nil
	}

	return nil, ErrEntitlementExhausted
}

// Consume spends one unit after a generation has succeeded. It re-derives the
// payment source instead of trusting an earlier Check, since either source may
// have been spent concurrently. tokensRemaining is only meaningful when
// usingFreeTrial is false.
func (svc *EntitlementService) Consume(ctx context.Context, deviceID string) (usingFreeTrial bool, tokensRemaining int, err error) {
	if strings.TrimSpace(deviceID) == "" {
		return false, 0, ErrMissingDeviceIdentity
	}

	remaining, ok, err := svc.store.ConsumeToken(ctx, deviceID)
	if err != nil {
		return false, 0, svc.handleError(err)
	}
	if ok {
		RecordConsumption(false)
		return false, remaining, nil
	}

	claimed, err := svc.store.ClaimFreeTrial(ctx, deviceID)
	if err != nil {
		return false, 0, svc.handleError(err)
	}
	if claimed {
		RecordConsumption(true)
		return true, 0, nil
	}

	log.Warn().Str("device_id", deviceID).Msg("Entitlement exhausted between check and consume")
	return false, 0, ErrEntitlementExhausted
}

// Grant adds count tokens to the device's balance and lifetime total.
func (svc *EntitlementService) Grant(ctx context.Context, deviceID string, count int) (*model.TokenBalance, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingDeviceIdentity
	}

	balance, err := svc.store.GrantTokens(ctx, deviceID, count)
	if err != nil {
		return nil, svc.handleError(err)
	}
	return balance, nil
}

func (svc *EntitlementService) Status(ctx context.Context, deviceID string) (*dto.TokenStatusResponse, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingDeviceIdentity
	}

	balance, err := svc.store.GetBalance(ctx, deviceID)
	if err != nil {
		return nil, svc.handleError(err)
	}
	used, err := svc.store.HasUsedFreeTrial(ctx, deviceID)
	if err != nil {
		return nil, svc.handleError(err)
	}

	return &dto.TokenStatusResponse{
		TokensRemaining: balance.TokensRemaining,
		TokensTotal:     balance.TokensTotal,
		HasFreeTrial:    !used,
		FreeTrialUsed:   used,
	}, nil
}

func (svc *EntitlementService) handleError(err error) error {
	if svc.dbSvc != nil {
		return svc.dbSvc.HandleError(err)
	}
	return err
}
