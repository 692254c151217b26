package services

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const MONITORING_SVC = "monitoring_svc"

// HTTP Metrics
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Business Metrics
var (
	quizGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_generations_total",
			Help: "Quizzes generated successfully",
		},
		[]string{"difficulty"},
	)

	quizGenerationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_generation_failures_total",
			Help: "Quiz generations that failed",
		},
		[]string{"reason"},
	)

	quizSubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Quiz submissions graded",
		},
	)

	correctAnswersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "correct_answers_total",
			Help: "Correct answers across all submissions",
		},
	)

	xpEarnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_earned_total",
			Help: "XP awarded across all devices",
		},
	)

	tokensConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tokens_consumed_total",
			Help: "Paid tokens spent on generations",
		},
	)

	freeTrialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "free_trials_total",
			Help: "Free trials consumed",
		},
	)

	paymentSuccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_success_total",
			Help: "Checkouts credited",
		},
		[]string{"product_sku"},
	)

	paymentRevenueCents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_revenue_cents_total",
			Help: "Revenue reported by completed checkouts, in cents",
		},
	)
)

// System Metrics
var (
	heapAllocBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "heap_alloc_bytes",
			Help: "Heap memory allocated in bytes",
		},
	)
)

const runtimeSampleInterval = 15 * time.Second

type MonitoringService struct {
	appContext.DefaultService

	appName  string
	port     int
	registry *prometheus.Registry

	closed chan struct{}
	server *fiber.App
}

func NewMonitoringService(cfg config.Config) *MonitoringService {
	return &MonitoringService{appName: cfg.AppName, port: cfg.PrometheusPort}
}

func (svc MonitoringService) Id() string {
	return MONITORING_SVC
}

func (svc *MonitoringService) Configure(ctx *appContext.Context) error {
	svc.registry = NewMetricsRegistry()
	return svc.DefaultService.Configure(ctx)
}

// NewMetricsRegistry registers the Go runtime collectors and every service metric.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

		httpRequestsTotal,
		httpRequestDurationSeconds,

		quizGenerationsTotal,
		quizGenerationFailuresTotal,
		quizSubmissionsTotal,
		correctAnswersTotal,
		xpEarnedTotal,
		tokensConsumedTotal,
		freeTrialsTotal,
		paymentSuccessTotal,
		paymentRevenueCents,

		heapAllocBytes,
	)
	return reg
}

func (svc *MonitoringService) Start() error {
	svc.closed = make(chan struct{}, 1)

	go svc.sampleRuntime()

	svc.server = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error().Err(err).Str("path", c.Path()).Msg("Metrics listener error")
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	svc.server.Use(recover.New())

	svc.server.Get("/metrics", svc.metricsHandler)
	svc.server.Get("/health", svc.healthHandler)

	go func() {
		log.Info().Int("port", svc.port).Msg("Metrics listener started")
		if err := svc.server.Listen(fmt.Sprintf(":%v", svc.port)); err != nil {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	return nil
}

func (svc *MonitoringService) Shutdown() {
	if svc.closed != nil {
		svc.closed <- struct{}{}
	}
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *MonitoringService) metricsHandler(c *fiber.Ctx) error {
	return adaptor.HTTPHandler(promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{}))(c)
}

func (svc *MonitoringService) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": svc.appName,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (svc *MonitoringService) sampleRuntime() {
	ticker := time.NewTicker(runtimeSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			heapAllocBytes.Set(float64(stats.HeapAlloc))
		case <-svc.closed:
			return
		}
	}
}

func RecordGeneration(difficulty string) {
	quizGenerationsTotal.WithLabelValues(difficulty).Inc()
}

func RecordGenerationFailure(reason string) {
	quizGenerationFailuresTotal.WithLabelValues(reason).Inc()
}

func RecordSubmission(correct, xp int) {
	quizSubmissionsTotal.Inc()
	correctAnswersTotal.Add(float64(correct))
	xpEarnedTotal.Add(float64(xp))
}

func RecordConsumption(usingFreeTrial bool) {
	if usingFreeTrial {
		freeTrialsTotal.Inc()
		return
	}
	tokensConsumedTotal.Inc()
}

func RecordPayment(productSKU string, amountCents int) {
	paymentSuccessTotal.WithLabelValues(productSKU).Inc()
	if amountCents > 0 {
		paymentRevenueCents.Add(float64(amountCents))
	}
}

// MonitoringMiddleware records request count and latency per route pattern.
func MonitoringMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method := c.Method()

		err := c.Next()

		// Route is only resolved after Next.
		endpoint := c.Route().Path

		status := c.Response().StatusCode()
		if err != nil {
			status = toAppError(err).StatusCode
		}
		statusLabel := strconv.Itoa(status)

		httpRequestsTotal.WithLabelValues(endpoint, method, statusLabel).Inc()
		httpRequestDurationSeconds.WithLabelValues(endpoint, method, statusLabel).Observe(time.Since(start).Seconds())

		return err
	}
}
