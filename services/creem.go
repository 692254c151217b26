package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/config"
)

const CREEM_SVC = "creem_svc"

// CheckoutSession is the outbound request to open a hosted checkout.
type CheckoutSession struct {
	ProductID  string
	ProductSKU string
	DeviceID   string
	SuccessURL string
	CancelURL  string
}

type OpenedCheckout struct {
	ID  string
	URL string
}

// CreemService is the payment provider client.
type CreemService struct {
	appContext.DefaultService

	baseURL string
	apiKey  string
	client  *http.Client
}

type creemCheckoutRequest struct {
	ProductID  string            `json:"product_id"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

type creemCheckoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

func NewCreemService(cfg config.Config, client *http.Client) *CreemService {
	if client == nil {
		client = &http.Client{Timeout: cfg.PaymentTimeout}
	}
	return &CreemService{
		baseURL: cfg.PaymentAPIURL,
		apiKey:  cfg.PaymentAPIKey,
		client:  client,
	}
}

func (svc CreemService) Id() string {
	return CREEM_SVC
}

func (svc *CreemService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *CreemService) Start() error {
	return nil
}

func (svc *CreemService) Shutdown() {}

// CreateCheckout opens a checkout. Every failure wraps ErrPaymentProvider.
func (svc *CreemService) CreateCheckout(ctx context.Context, session CheckoutSession) (*OpenedCheckout, error) {
	cancelURL := session.CancelURL
	if cancelURL == "" {
		cancelURL = session.SuccessURL
	}

	body, err := sonic.Marshal(creemCheckoutRequest{
		ProductID:  session.ProductID,
		SuccessURL: session.SuccessURL,
		CancelURL:  cancelURL,
		Metadata: map[string]string{
			"device_id":   session.DeviceID,
			"product_sku": session.ProductSKU,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+"/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+svc.apiKey)

	resp, err := svc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrPaymentProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrPaymentProvider, resp.StatusCode, truncate(raw, maxErrorBodyBytes))
	}

	var out creemCheckoutResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrPaymentProvider, err)
	}
	if out.ID == "" || out.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: response missing id or checkout_url", ErrPaymentProvider)
	}

	return &OpenedCheckout{ID: out.ID, URL: out.CheckoutURL}, nil
}
