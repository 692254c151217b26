package services

import (
	"errors"
	"fmt"
	"os"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/docs"
	"github.com/densematrix/study_api/middleware"
	"github.com/densematrix/study_api/services/handlers"
	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"
)

const HTTP_SVC = "http_svc"

type HttpService struct {
	appContext.DefaultService

	quizSvc        handlers.QuizServiceInterface
	entitlementSvc handlers.EntitlementServiceInterface
	paymentSvc     handlers.PaymentServiceInterface
	rateLimiter    middleware.RateLimiter

	cfg    config.Config
	port   int
	server *fiber.App
}

func NewHttpService(cfg config.Config) *HttpService {
	return &HttpService{cfg: cfg, port: cfg.HTTPPort}
}

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.quizSvc = svc.Service(QUIZ_SVC).(*QuizService)
	svc.entitlementSvc = svc.Service(ENTITLEMENT_SVC).(*EntitlementService)
	svc.paymentSvc = svc.Service(PAYMENT_SVC).(*PaymentService)
	svc.rateLimiter = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)

	svc.server = svc.App()

	log.Info().Int("port", svc.port).Msg("HTTP server starting")
	return svc.server.Listen(fmt.Sprintf(":%v", svc.port))
}

// WithDependencies wires collaborators directly, bypassing the service context.
func (svc *HttpService) WithDependencies(quizSvc handlers.QuizServiceInterface, entitlementSvc handlers.EntitlementServiceInterface, paymentSvc handlers.PaymentServiceInterface, rateLimiter middleware.RateLimiter) *HttpService {
	svc.quizSvc = quizSvc
	svc.entitlementSvc = entitlementSvc
	svc.paymentSvc = paymentSvc
	svc.rateLimiter = rateLimiter
	return svc
}

// App builds the fiber application with every route registered.
func (svc *HttpService) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               svc.cfg.AppName,
		DisableStartupMessage: true,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          svc.errorHandler,
	})

	docs.SwaggerInfo.BasePath = ""
	app.Use(recover.New())

	if os.Getenv("LOG_LEVEL") == "TRACE" {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, " + shared.HeaderDeviceID + ", " + shared.HeaderPaymentSignature,
	}))
	app.Use(MonitoringMiddleware())

	//Validation endpoints
	app.Get("/ping", svc.ping)
	app.Get("/swagger/*", swagger.HandlerDefault)

	quizHandler := handlers.NewQuizHandler(svc.quizSvc, svc.entitlementSvc)
	paymentHandler := handlers.NewPaymentHandler(svc.paymentSvc)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)
	v1.Get("/achievements", quizHandler.GetAchievements)

	device := middleware.RequireDevice()

	quiz := v1.Group("/quiz", device)
	quiz.Post("/generate", middleware.RateLimit(svc.rateLimiter, EndpointGenerate), quizHandler.Generate)
	quiz.Post("/submit", quizHandler.Submit)

	v1.Get("/progress", device, quizHandler.GetProgress)
	v1.Get("/tokens", device, quizHandler.GetTokens)

	payment := v1.Group("/payment")
	payment.Get("/products", paymentHandler.GetProducts)
	payment.Post("/checkout", middleware.RateLimit(svc.rateLimiter, EndpointCheckout), paymentHandler.CreateCheckout)
	payment.Post("/webhook", paymentHandler.Webhook)
	payment.Get("/success", paymentHandler.CheckoutStatus)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	return app
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")
	return shared.ResponseOK(c, "pong")
}

func (svc *HttpService) errorHandler(c *fiber.Ctx, err error) error {
	appErr := toAppError(err)
	if appErr.StatusCode >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("code", appErr.Code).Msg("Request failed")
	}
	return shared.ResponseError(c, appErr)
}

var errorMappings = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{ErrMissingDeviceIdentity, fiber.StatusBadRequest, shared.CodeDeviceIDRequired, "X-Device-Id header is required"},
	{ErrEntitlementExhausted, fiber.StatusPaymentRequired, shared.CodePaymentRequired, "No tokens remaining. Purchase more to continue."},
	{ErrMalformedGenerationOutput, fiber.StatusBadGateway, shared.CodeMalformedGenerationOutput, "Quiz generator returned an unreadable quiz"},
	{ErrGenerationFailed, fiber.StatusBadGateway, shared.CodeGenerationFailed, "Quiz generation failed. Please try again."},
	{ErrInvalidProduct, fiber.StatusBadRequest, shared.CodeInvalidProduct, "Invalid product"},
	{ErrProductNotConfigured, fiber.StatusInternalServerError, shared.CodeProductNotConfigured, "Product not configured"},
	{ErrPaymentNotConfigured, fiber.StatusInternalServerError, shared.CodePaymentNotConfigured, "Payment system not configured"},
	{ErrPaymentProvider, fiber.StatusBadGateway, shared.CodePaymentProviderError, "Payment provider error"},
	{ErrCheckoutNotFound, fiber.StatusNotFound, shared.CodeCheckoutNotFound, "Checkout not found"},
	{ErrInvalidSignature, fiber.StatusUnauthorized, shared.CodeInvalidSignature, "Invalid signature"},
	{ErrMissingDeviceMetadata, fiber.StatusBadRequest, shared.CodeMissingDeviceMetadata, "Missing device_id in metadata"},
	{ErrInvalidPayload, fiber.StatusBadRequest, shared.CodeInvalidPayload, "Invalid payload"},
	{ErrRateLimited, fiber.StatusTooManyRequests, shared.CodeRateLimited, "Too many requests. Please try again later."},
}

// toAppError maps any error a handler returns onto the client-facing envelope.
func toAppError(err error) *shared.AppError {
	if appErr, ok := shared.GetAppError(err); ok {
		return appErr
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return shared.NewAppError(m.status, m.code, err, m.message)
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code == fiber.StatusNotFound {
			return shared.NewNotFoundError(err, fiberErr.Message)
		}
		code := shared.CodeInternalError
		if fiberErr.Code < fiber.StatusInternalServerError {
			code = shared.CodeInvalidPayload
		}
		return shared.NewAppError(fiberErr.Code, code, err, fiberErr.Message)
	}

	return shared.NewInternalError(err, "")
}
