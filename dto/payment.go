package dto

import "strings"

const (
	EventCheckoutCreated   = "checkout.created"
	EventCheckoutCompleted = "checkout.completed"
	EventPaymentCompleted  = "payment.completed"
)

type CreateCheckoutRequest struct {
	ProductSKU string `json:"product_sku" validate:"required" example:"quiz_20"`
	DeviceID   string `json:"device_id" validate:"required,max=255" example:"device-123"`
	SuccessURL string `json:"success_url" validate:"required,url" example:"https://example.com/success"`
	CancelURL  string `json:"cancel_url,omitempty" validate:"omitempty,url"`
}

func (r CreateCheckoutRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	CheckoutID  string `json:"checkout_id"`
}

type CheckoutStatusResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	TokensAdded     *int   `json:"tokens_added,omitempty"`
	TokensRemaining *int   `json:"tokens_remaining,omitempty"`
}

type ProductResponse struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Tokens     int    `json:"tokens"`
	Configured bool   `json:"configured"`
}

type WebhookMetadata struct {
	DeviceID   string `json:"device_id"`
	ProductSKU string `json:"product_sku"`
}

// WebhookPayload is the raw provider body. Fields may sit at the top level or under data.
type WebhookPayload struct {
	EventType  string           `json:"event_type"`
	Type       string           `json:"type"`
	CheckoutID string           `json:"checkout_id"`
	ProductID  string           `json:"product_id"`
	Amount     *int             `json:"amount"`
	Currency   string           `json:"currency"`
	Metadata   *WebhookMetadata `json:"metadata"`
	Data       *WebhookPayload  `json:"data"`
}

// WebhookEvent is the flattened form the reconciliation logic consumes.
type WebhookEvent struct {
	EventType  string
	CheckoutID string
	ProductID  string
	Amount     *int
	Currency   string
	Metadata   WebhookMetadata
}

// Normalize prefers top-level fields and falls back to the nested data object.
func (p WebhookPayload) Normalize() WebhookEvent {
	ev := WebhookEvent{
		EventType:  firstNonEmpty(p.EventType, p.Type),
		CheckoutID: p.CheckoutID,
		ProductID:  p.ProductID,
		Amount:     p.Amount,
		Currency:   p.Currency,
	}
	if p.Metadata != nil {
		ev.Metadata = *p.Metadata
	}

	if p.Data == nil {
		return ev
	}

	nested := p.Data.Normalize()
	ev.EventType = firstNonEmpty(ev.EventType, nested.EventType)
	ev.CheckoutID = firstNonEmpty(ev.CheckoutID, nested.CheckoutID)
	ev.ProductID = firstNonEmpty(ev.ProductID, nested.ProductID)
	ev.Currency = firstNonEmpty(ev.Currency, nested.Currency)
	if ev.Amount == nil {
		ev.Amount = nested.Amount
	}
	if p.Metadata == nil {
		ev.Metadata = nested.Metadata
	}
	return ev
}

func (e WebhookEvent) IsCompletion() bool {
	return e.EventType == EventCheckoutCompleted || e.EventType == EventPaymentCompleted
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
