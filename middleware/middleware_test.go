package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
)

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := shared.GetAppError(err); ok {
				return shared.ResponseError(c, appErr)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
}

func TestRequireDevice(t *testing.T) {
	app := newApp()
	app.Get("/", RequireDevice(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(shared.DeviceID).(string))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing header status = %d, want 400", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(shared.HeaderDeviceID, "  dev-1 ")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "dev-1" {
		t.Fatalf("got (%d, %q), want (200, dev-1)", resp.StatusCode, body)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(shared.HeaderDeviceID, strings.Repeat("x", 256))
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized device id status = %d, want 400", resp.StatusCode)
	}
}

type fakeLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func (f *fakeLimiter) IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	if f.err != nil {
		return false, nil, f.err
	}
	f.seen[identifier]++
	reset := time.Now().Add(time.Minute)
	allowed := f.seen[identifier] <= f.limit
	return allowed, &dto.RateLimitInfo{
		Allowed:   allowed,
		Limit:     f.limit,
		Remaining: max(f.limit-f.seen[identifier], 0),
		ResetTime: &reset,
	}, nil
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := &fakeLimiter{limit: 1, seen: map[string]int{}}
	app := newApp()
	app.Post("/", RateLimit(limiter, "generate"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(shared.HeaderDeviceID, "dev-1")
		return req
	}

	resp, _ := app.Test(newReq(), -1)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("first request = (%d, remaining %q)", resp.StatusCode, resp.Header.Get("X-RateLimit-Remaining"))
	}

	resp, _ = app.Test(newReq(), -1)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get(fiber.HeaderRetryAfter) == "" {
		t.Fatalf("429 must carry Retry-After")
	}
}

func TestRateLimitIdentifiesByBodyDevice(t *testing.T) {
	limiter := &fakeLimiter{limit: 5, seen: map[string]int{}}
	app := newApp()
	app.Post("/", RateLimit(limiter, "checkout"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"device_id":"dev-body"}`))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req, -1); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if limiter.seen["dev-body"] != 1 {
		t.Fatalf("expected the body device id to be counted, seen %v", limiter.seen)
	}
}

func TestRateLimitFailsOpenOnError(t *testing.T) {
	app := newApp()
	app.Post("/", RateLimit(&fakeLimiter{err: errors.New("down")}, "generate"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/", nil), -1)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
