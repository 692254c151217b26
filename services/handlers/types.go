package handlers

import (
	"context"

	"github.com/densematrix/study_api/dto"
)

type QuizServiceInterface interface {
	Generate(ctx context.Context, deviceID string, req dto.GenerateQuizRequest) (*dto.GenerateQuizResponse, error)
	Submit(ctx context.Context, deviceID string, req dto.SubmitQuizRequest) (*dto.SubmitQuizResponse, error)
	Progress(ctx context.Context, deviceID string) (*dto.ProgressResponse, error)
	Achievements() *dto.AchievementCatalogResponse
}

type EntitlementServiceInterface interface {
	Status(ctx context.Context, deviceID string) (*dto.TokenStatusResponse, error)
}

type PaymentServiceInterface interface {
	Products() []dto.ProductResponse
	CreateCheckout(ctx context.Context, req dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	CheckoutStatus(ctx context.Context, checkoutID string) (*dto.CheckoutStatusResponse, error)
}
