package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/dto"
	"github.com/rs/zerolog/log"
)

const RATE_LIMIT_SVC = "rate_limit_svc"

const (
	EndpointGenerate = "generate"
	EndpointCheckout = "checkout"
)

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	Description  string
}

// WindowCounter is the storage a fixed-window limiter needs.
type WindowCounter interface {
	Enabled() bool
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	counter WindowCounter
	now     func() time.Time
}

func NewRateLimitService(cfg config.Config) *RateLimitService {
	return &RateLimitService{
		configs: map[string]*RateLimitConfig{
			EndpointGenerate: {
				EndpointType: EndpointGenerate,
				MaxRequests:  cfg.GenerateRateLimit,
				WindowSize:   cfg.GenerateRateWindow,
				Description:  "Quiz generation rate limit per device",
			},
			EndpointCheckout: {
				EndpointType: EndpointCheckout,
				MaxRequests:  cfg.CheckoutRateLimit,
				WindowSize:   cfg.CheckoutRateWindow,
				Description:  "Checkout creation rate limit per device",
			},
		},
		now: time.Now,
	}
}

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	if svc.counter == nil {
		svc.counter = svc.Service(REDIS_SVC).(*RedisService)
	}
	return nil
}

func (svc *RateLimitService) Shutdown() {}

// WithCounter swaps the backing store. Used by tests and the seed CLI.
func (svc *RateLimitService) WithCounter(counter WindowCounter) *RateLimitService {
	svc.counter = counter
	return svc
}

// IsAllowed counts one request from identifier against endpointType's window.
// Requests are allowed when the endpoint has no limit or the counter store is
// unavailable.
func (svc *RateLimitService) IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	svc.mutex.RLock()
	cfg, exists := svc.configs[endpointType]
	svc.mutex.RUnlock()

	if !exists || cfg.MaxRequests <= 0 || svc.counter == nil || !svc.counter.Enabled() {
		return true, &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", endpointType, identifier)
	count, ttl, err := svc.counter.IncrementWindow(ctx, key, cfg.WindowSize)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpointType).Msg("Rate limit check failed, allowing request")
		return true, &dto.RateLimitInfo{Allowed: true, Limit: cfg.MaxRequests, Remaining: -1}, nil
	}

	reset := svc.now().Add(ttl)
	info := &dto.RateLimitInfo{
		Allowed:   count <= int64(cfg.MaxRequests),
		Limit:     cfg.MaxRequests,
		Remaining: max(cfg.MaxRequests-int(count), 0),
		ResetTime: &reset,
	}

	return info.Allowed, info, nil
}
