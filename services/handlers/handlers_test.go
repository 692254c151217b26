package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
)

type fakeQuizService struct {
	gotDevice string
	gotReq    dto.GenerateQuizRequest
}

func (f *fakeQuizService) Generate(ctx context.Context, deviceID string, req dto.GenerateQuizRequest) (*dto.GenerateQuizResponse, error) {
	f.gotDevice = deviceID
	f.gotReq = req
	return &dto.GenerateQuizResponse{Topic: req.Topic, IsFreeTrial: true}, nil
}

func (f *fakeQuizService) Submit(ctx context.Context, deviceID string, req dto.SubmitQuizRequest) (*dto.SubmitQuizResponse, error) {
	f.gotDevice = deviceID
	return &dto.SubmitQuizResponse{TotalQuestions: len(req.Questions)}, nil
}

func (f *fakeQuizService) Progress(ctx context.Context, deviceID string) (*dto.ProgressResponse, error) {
	return &dto.ProgressResponse{Level: 1}, nil
}

func (f *fakeQuizService) Achievements() *dto.AchievementCatalogResponse {
	return &dto.AchievementCatalogResponse{}
}

type fakePaymentService struct {
	checkout  dto.CreateCheckoutRequest
	body      []byte
	signature string
	err       error
}

func (f *fakePaymentService) Products() []dto.ProductResponse { return nil }

func (f *fakePaymentService) CreateCheckout(ctx context.Context, req dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error) {
	f.checkout = req
	return &dto.CheckoutResponse{CheckoutID: "chk_1", CheckoutURL: "https://pay.example"}, nil
}

func (f *fakePaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	f.body = body
	f.signature = signature
	return f.err
}

func (f *fakePaymentService) CheckoutStatus(ctx context.Context, checkoutID string) (*dto.CheckoutStatusResponse, error) {
	return &dto.CheckoutStatusResponse{Status: "pending"}, nil
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := shared.GetAppError(err); ok {
				return shared.ResponseError(c, appErr)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})
}

func withDevice(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(shared.DeviceID, id)
		return c.Next()
	}
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestGenerateAppliesDefaultsAndPassesDevice(t *testing.T) {
	quiz := &fakeQuizService{}
	h := NewQuizHandler(quiz, nil)
	app := newApp()
	app.Post("/generate", withDevice("dev-1"), h.Generate)

	status, body := send(t, app, jsonRequest(http.MethodPost, "/generate", `{"topic":"Cells"}`))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	if quiz.gotDevice != "dev-1" {
		t.Fatalf("device = %q, want dev-1", quiz.gotDevice)
	}
	if quiz.gotReq.NumQuestions != 5 || quiz.gotReq.Difficulty != "medium" || quiz.gotReq.Language != "en" {
		t.Fatalf("defaults not applied: %+v", quiz.gotReq)
	}
}

func TestGenerateRejectsInvalidBody(t *testing.T) {
	h := NewQuizHandler(&fakeQuizService{}, nil)
	app := newApp()
	app.Post("/generate", withDevice("dev-1"), h.Generate)

	status, body := send(t, app, jsonRequest(http.MethodPost, "/generate", `{"topic":`))
	if status != http.StatusBadRequest || !strings.Contains(body, shared.CodeInvalidPayload) {
		t.Fatalf("malformed JSON = (%d, %s)", status, body)
	}

	status, body = send(t, app, jsonRequest(http.MethodPost, "/generate", `{"topic":""}`))
	if status != http.StatusBadRequest || !strings.Contains(body, shared.CodeValidationFailed) {
		t.Fatalf("empty topic = (%d, %s)", status, body)
	}

	var env struct {
		Data struct {
			Fields []dto.ValidationError `json:"fields"`
		} `json:"data"`
	}
	if err := sonic.UnmarshalString(body, &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(env.Data.Fields) == 0 || env.Data.Fields[0].Field != "topic" {
		t.Fatalf("expected a topic field error, got %+v", env.Data.Fields)
	}
}

func TestSubmitRequiresQuestions(t *testing.T) {
	h := NewQuizHandler(&fakeQuizService{}, nil)
	app := newApp()
	app.Post("/submit", withDevice("dev-1"), h.Submit)

	status, body := send(t, app, jsonRequest(http.MethodPost, "/submit", `{"questions":[],"answers":[]}`))
	if status != http.StatusBadRequest || !strings.Contains(body, shared.CodeValidationFailed) {
		t.Fatalf("empty questions = (%d, %s)", status, body)
	}
}

func TestCheckoutFallsBackToHeaderDevice(t *testing.T) {
	payments := &fakePaymentService{}
	h := NewPaymentHandler(payments)
	app := newApp()
	app.Post("/checkout", h.CreateCheckout)

	req := jsonRequest(http.MethodPost, "/checkout", `{"product_sku":"quiz_5","success_url":"https://app.example/ok"}`)
	req.Header.Set(shared.HeaderDeviceID, "dev-9")
	status, body := send(t, app, req)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	if payments.checkout.DeviceID != "dev-9" {
		t.Fatalf("device = %q, want dev-9", payments.checkout.DeviceID)
	}

	status, body = send(t, app, jsonRequest(http.MethodPost, "/checkout", `{"product_sku":"quiz_5","success_url":"not a url","device_id":"dev-1"}`))
	if status != http.StatusBadRequest || !strings.Contains(body, shared.CodeValidationFailed) {
		t.Fatalf("bad success_url = (%d, %s)", status, body)
	}
}

func TestWebhookPassesRawBodyAndSignature(t *testing.T) {
	payments := &fakePaymentService{}
	h := NewPaymentHandler(payments)
	app := newApp()
	app.Post("/webhook", h.Webhook)

	raw := `{"event_type":"checkout.completed", "checkout_id":"chk_1"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(raw))
	req.Header.Set(shared.HeaderPaymentSignature, "abc123")

	status, _ := send(t, app, req)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if string(payments.body) != raw || payments.signature != "abc123" {
		t.Fatalf("handler altered the webhook: body=%q sig=%q", payments.body, payments.signature)
	}
}

func TestWebhookPropagatesServiceError(t *testing.T) {
	payments := &fakePaymentService{err: errors.New("boom")}
	h := NewPaymentHandler(payments)
	app := newApp()
	app.Post("/webhook", h.Webhook)

	status, _ := send(t, app, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`)))
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
}

func TestCheckoutStatusRequiresID(t *testing.T) {
	h := NewPaymentHandler(&fakePaymentService{})
	app := newApp()
	app.Get("/success", h.CheckoutStatus)

	if status, _ := send(t, app, httptest.NewRequest(http.MethodGet, "/success", nil)); status != http.StatusBadRequest {
		t.Fatalf("missing checkout_id status = %d, want 400", status)
	}
	if status, body := send(t, app, httptest.NewRequest(http.MethodGet, "/success?checkout_id=chk_1", nil)); status != http.StatusOK || !strings.Contains(body, "pending") {
		t.Fatalf("status = (%d, %s)", status, body)
	}
}
