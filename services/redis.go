package services

import (
	"context"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisService is optional. With no REDIS_ADDR the client stays nil and
// every call reports errRedisDisabled.
type RedisService struct {
	appContext.DefaultService
	redis *redis.Client

	addr     string
	password string
	db       int
}

const REDIS_SVC = "redis_svc"

var errRedisDisabled = fmt.Errorf("redis client not initialized")

func NewRedisService(cfg config.Config) *RedisService {
	return &RedisService{
		addr:     cfg.RedisAddr,
		password: cfg.RedisPassword,
		db:       cfg.RedisDB,
	}
}

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	if svc.addr != "" {
		svc.redis = redis.NewClient(&redis.Options{
			Addr:     svc.addr,
			Password: svc.password,
			DB:       svc.db,
		})
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *RedisService) Start() error {
	if svc.redis == nil {
		log.Info().Msg("Redis not configured, rate limiting disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.redis.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", svc.addr).Msg("Redis unreachable, rate limiting will fail open")
	}
	return nil
}

func (svc *RedisService) Shutdown() {
	if svc.redis != nil {
		_ = svc.redis.Close()
	}
}

func (svc *RedisService) Enabled() bool {
	return svc.redis != nil
}

func (svc *RedisService) GetClient() *redis.Client {
	return svc.redis
}

// IncrementWindow bumps a fixed-window counter. The expiry is set only when the
// key is created so the window does not slide.
func (svc *RedisService) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if svc.redis == nil {
		return 0, 0, errRedisDisabled
	}

	count, err := svc.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := svc.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := svc.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// Key lost its expiry; restart the window.
		_ = svc.redis.Expire(ctx, key, window).Err()
		ttl = window
	}
	return count, ttl, nil
}
