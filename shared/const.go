package shared

const (
	// DeviceID is the fiber Locals key the device middleware stores the caller's identity under.
	DeviceID = "device_id"

	HeaderDeviceID         = "X-Device-Id"
	HeaderPaymentSignature = "X-Creem-Signature"
)

// Machine-readable error codes returned in every error body.
const (
	CodeDeviceIDRequired          = "device_id_required"
	CodePaymentRequired           = "payment_required"
	CodeGenerationFailed          = "generation_failed"
	CodeMalformedGenerationOutput = "malformed_generation_output"
	CodeInvalidProduct            = "invalid_product"
	CodeCheckoutNotFound          = "checkout_not_found"
	CodeInvalidSignature          = "invalid_signature"
	CodeMissingDeviceMetadata     = "missing_device_metadata"
	CodeInvalidPayload            = "invalid_payload"
	CodePaymentProviderError      = "payment_provider_error"
	CodePaymentNotConfigured      = "payment_not_configured"
	CodeProductNotConfigured      = "product_not_configured"
	CodeRateLimited               = "rate_limited"
	CodeValidationFailed          = "validation_failed"
	CodeNotFound                  = "not_found"
	CodeInternalError             = "internal_error"
)
