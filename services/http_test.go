package services

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
)

type envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func newTestApp(t *testing.T, generateLimit int) *fiber.App {
	t.Helper()

	quiz := newQuizFixture(t)
	payments := newPaymentFixture(t, configuredPayments())
	limiter := NewRateLimitService(config.Config{
		GenerateRateLimit:  generateLimit,
		GenerateRateWindow: time.Minute,
	}).WithCounter(&memoryCounter{counts: map[string]int64{}})

	svc := NewHttpService(config.Config{AppName: "test"}).
		WithDependencies(quiz.quiz, quiz.entitlements, payments.payments, limiter)
	return svc.App()
}

func doRequest(t *testing.T, app *fiber.App, method, path, deviceID, body string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if deviceID != "" {
		req.Header.Set(shared.HeaderDeviceID, deviceID)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		t.Fatalf("%s %s returned non-JSON body %q: %v", method, path, raw, err)
	}
	return resp.StatusCode, env
}

func TestHTTPGenerateFlow(t *testing.T) {
	app := newTestApp(t, 0)

	status, env := doRequest(t, app, http.MethodPost, "/api/v1/quiz/generate", "", `{"topic":"Math"}`)
	if status != http.StatusBadRequest || env.Data["code"] != shared.CodeDeviceIDRequired {
		t.Fatalf("missing device = (%d, %v), want 400 device_id_required", status, env.Data)
	}

	status, env = doRequest(t, app, http.MethodPost, "/api/v1/quiz/generate", "dev-1", `{"topic":"Math"}`)
	if status != http.StatusOK || env.Data["is_free_trial"] != true {
		t.Fatalf("first generate = (%d, %v), want free trial", status, env.Data)
	}

	status, env = doRequest(t, app, http.MethodPost, "/api/v1/quiz/generate", "dev-1", `{"topic":"Math"}`)
	if status != http.StatusPaymentRequired || env.Data["code"] != shared.CodePaymentRequired {
		t.Fatalf("second generate = (%d, %v), want 402 payment_required", status, env.Data)
	}
	if _, ok := env.Data["error"].(string); !ok {
		t.Fatalf("error detail must carry a string error field: %v", env.Data)
	}
}

func TestHTTPGenerateValidation(t *testing.T) {
	app := newTestApp(t, 0)

	tests := []string{
		`{"topic":"   "}`,
		`{"topic":"Math","num_questions":11}`,
		`{"topic":"Math","difficulty":"extreme"}`,
		`{"topic":"Math","language":"xx"}`,
	}
	for _, body := range tests {
		status, env := doRequest(t, app, http.MethodPost, "/api/v1/quiz/generate", "dev-1", body)
		if status != http.StatusBadRequest || env.Data["code"] != shared.CodeValidationFailed {
			t.Fatalf("body %s = (%d, %v), want 400 validation_failed", body, status, env.Data)
		}
	}
}

func TestHTTPGenerateRateLimited(t *testing.T) {
	app := newTestApp(t, 1)

	if status, _ := doRequest(t, app, http.MethodPost, "/api/v1/quiz/generate", "dev-1", `{"topic":"Math"}`); status != http.StatusOK {
		t.Fatalf("first request status = %d", status)
	}
	status, env := doRequest(t, app, http.MethodPost, "/api/v1/quiz/generate", "dev-1", `{"topic":"Math"}`)
	if status != http.StatusTooManyRequests || env.Data["code"] != shared.CodeRateLimited {
		t.Fatalf("second request = (%d, %v), want 429 rate_limited", status, env.Data)
	}
}

func TestHTTPSubmitAndProgress(t *testing.T) {
	app := newTestApp(t, 0)

	body := `{"topic":"Math","questions":[{"id":"q1","type":"true_false","question":"?","correct_answer":"True"}],"answers":[{"question_id":"q1","answer":"true"}]}`
	status, env := doRequest(t, app, http.MethodPost, "/api/v1/quiz/submit", "dev-1", body)
	if status != http.StatusOK {
		t.Fatalf("submit status = %d, body %v", status, env)
	}
	if env.Data["xp_earned"] != float64(30) {
		t.Fatalf("xp_earned = %v, want 30", env.Data["xp_earned"])
	}

	status, env = doRequest(t, app, http.MethodGet, "/api/v1/progress", "dev-1", "")
	if status != http.StatusOK || env.Data["xp"] != float64(30) || env.Data["accuracy_percent"] != float64(100) {
		t.Fatalf("progress = (%d, %v)", status, env.Data)
	}

	status, env = doRequest(t, app, http.MethodGet, "/api/v1/tokens", "dev-1", "")
	if status != http.StatusOK || env.Data["has_free_trial"] != true {
		t.Fatalf("tokens = (%d, %v)", status, env.Data)
	}
}

func TestHTTPPaymentRoutes(t *testing.T) {
	app := newTestApp(t, 0)

	status, env := doRequest(t, app, http.MethodPost, "/api/v1/payment/checkout", "",
		`{"product_sku":"quiz_20","success_url":"https://app.example/ok"}`)
	if status != http.StatusBadRequest || env.Data["code"] != shared.CodeDeviceIDRequired {
		t.Fatalf("checkout without device = (%d, %v)", status, env.Data)
	}

	status, env = doRequest(t, app, http.MethodPost, "/api/v1/payment/checkout", "dev-1",
		`{"product_sku":"quiz_999","success_url":"https://app.example/ok"}`)
	if status != http.StatusBadRequest || env.Data["code"] != shared.CodeInvalidProduct {
		t.Fatalf("invalid sku = (%d, %v)", status, env.Data)
	}

	status, env = doRequest(t, app, http.MethodPost, "/api/v1/payment/checkout", "dev-1",
		`{"product_sku":"quiz_20","success_url":"https://app.example/ok"}`)
	if status != http.StatusOK || env.Data["checkout_id"] != "chk_1" {
		t.Fatalf("checkout = (%d, %v)", status, env.Data)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/webhook",
		strings.NewReader(`{"event_type":"checkout.completed","checkout_id":"chk_1"}`))
	req.Header.Set(shared.HeaderPaymentSignature, "deadbeef")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad signature status = %d, want 401", resp.StatusCode)
	}

	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/payment/webhook", "",
		`{"event_type":"checkout.completed","checkout_id":"chk_1"}`)
	if status != http.StatusOK {
		t.Fatalf("unsigned webhook status = %d", status)
	}

	status, env = doRequest(t, app, http.MethodGet, "/api/v1/payment/success?checkout_id=chk_1", "", "")
	if status != http.StatusOK || env.Data["status"] != "completed" || env.Data["tokens_added"] != float64(20) {
		t.Fatalf("checkout status = (%d, %v)", status, env.Data)
	}

	status, env = doRequest(t, app, http.MethodGet, "/api/v1/payment/success?checkout_id=nope", "", "")
	if status != http.StatusNotFound || env.Data["code"] != shared.CodeCheckoutNotFound {
		t.Fatalf("unknown checkout = (%d, %v)", status, env.Data)
	}
}

func TestHTTPUnknownRoute(t *testing.T) {
	app := newTestApp(t, 0)

	status, env := doRequest(t, app, http.MethodGet, "/api/v1/nope", "", "")
	if status != http.StatusNotFound || env.Data["code"] != shared.CodeNotFound {
		t.Fatalf("unknown route = (%d, %v)", status, env.Data)
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrMissingDeviceIdentity, http.StatusBadRequest, shared.CodeDeviceIDRequired},
		{ErrEntitlementExhausted, http.StatusPaymentRequired, shared.CodePaymentRequired},
		{fmt.Errorf("%w: timeout", ErrGenerationFailed), http.StatusBadGateway, shared.CodeGenerationFailed},
		{ErrMalformedGenerationOutput, http.StatusBadGateway, shared.CodeMalformedGenerationOutput},
		{ErrInvalidProduct, http.StatusBadRequest, shared.CodeInvalidProduct},
		{ErrProductNotConfigured, http.StatusInternalServerError, shared.CodeProductNotConfigured},
		{ErrPaymentNotConfigured, http.StatusInternalServerError, shared.CodePaymentNotConfigured},
		{fmt.Errorf("%w: status 500", ErrPaymentProvider), http.StatusBadGateway, shared.CodePaymentProviderError},
		{ErrCheckoutNotFound, http.StatusNotFound, shared.CodeCheckoutNotFound},
		{ErrInvalidSignature, http.StatusUnauthorized, shared.CodeInvalidSignature},
		{ErrMissingDeviceMetadata, http.StatusBadRequest, shared.CodeMissingDeviceMetadata},
		{ErrInvalidPayload, http.StatusBadRequest, shared.CodeInvalidPayload},
		{fiber.ErrNotFound, http.StatusNotFound, shared.CodeNotFound},
		{errors.New("disk full"), http.StatusInternalServerError, shared.CodeInternalError},
	}

	for _, tt := range tests {
		appErr := toAppError(tt.err)
		if appErr.StatusCode != tt.status || appErr.Code != tt.code {
			t.Errorf("toAppError(%v) = (%d, %s), want (%d, %s)", tt.err, appErr.StatusCode, appErr.Code, tt.status, tt.code)
		}
	}
}
