package services

import "errors"

// Quiz workflow errors.
var (
	ErrMissingDeviceIdentity     = errors.New("quiz: device id is required")
	ErrEntitlementExhausted      = errors.New("quiz: no tokens remaining and free trial already used")
	ErrGenerationFailed          = errors.New("quiz: generation failed")
	ErrMalformedGenerationOutput = errors.New("quiz: generator returned malformed output")
)

// Payment errors.
var (
	ErrInvalidProduct        = errors.New("payment: invalid product")
	ErrProductNotConfigured  = errors.New("payment: product not configured")
	ErrPaymentNotConfigured  = errors.New("payment: provider not configured")
	ErrPaymentProvider       = errors.New("payment: provider request failed")
	ErrCheckoutNotFound      = errors.New("payment: checkout not found")
	ErrInvalidSignature      = errors.New("payment: invalid webhook signature")
	ErrInvalidPayload        = errors.New("payment: invalid webhook payload")
	ErrMissingDeviceMetadata = errors.New("payment: missing device_id in metadata")
)

var ErrRateLimited = errors.New("rate limit exceeded")
