package main

import (
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/services"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	setLogLevel(cfg.LogLevel)

	ctx, err := newContext(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build service context")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service context stopped")
		return
	}
}

// newContext registers every service. HttpService blocks in Start, so it goes last.
func newContext(cfg config.Config) (*context.Context, error) {
	if cfg.DatabaseDriver == config.DriverPostgres {
		return context.NewCtx(
			services.NewPostgresService(cfg),
			services.NewRedisService(cfg),
			services.NewRateLimitService(cfg),
			services.NewEventService(cfg),
			services.NewMonitoringService(cfg),
			services.NewGeneratorService(cfg, nil),
			services.NewCreemService(cfg, nil),
			services.NewEntitlementService(nil),
			services.NewQuizService(cfg),
			services.NewPaymentService(cfg),

			services.NewHttpService(cfg),
		)
	}

	return context.NewCtx(
		services.NewSqliteService(cfg),
		services.NewRedisService(cfg),
		services.NewRateLimitService(cfg),
		services.NewEventService(cfg),
		services.NewMonitoringService(cfg),
		services.NewGeneratorService(cfg, nil),
		services.NewCreemService(cfg, nil),
		services.NewEntitlementService(nil),
		services.NewQuizService(cfg),
		services.NewPaymentService(cfg),

		services.NewHttpService(cfg),
	)
}

func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
