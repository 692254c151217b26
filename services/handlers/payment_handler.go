package handlers

import (
	"strings"

	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/shared"
	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	paymentSvc PaymentServiceInterface
}

func NewPaymentHandler(paymentSvc PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// @Summary List Products
// @Tags payment
// @Produce json
// @Success 200 {object} shared.Response{data=[]dto.ProductResponse}
// @Router /api/v1/payment/products [get]
func (h *PaymentHandler) GetProducts(c *fiber.Ctx) error {
	return shared.ResponseOK(c, h.paymentSvc.Products())
}

// @Summary Create Checkout
// @Description Opens a hosted checkout for a token bundle. device_id falls back to the X-Device-Id header.
// @Tags payment
// @Accept  json
// @Produce json
// @Param createCheckoutRequest body dto.CreateCheckoutRequest true "Create checkout request"
// @Success 200 {object} shared.Response{data=dto.CheckoutResponse}
// @Failure 400 {object} shared.Response{data=shared.ErrorDetail}
// @Failure 502 {object} shared.Response{data=shared.ErrorDetail}
// @Router /api/v1/payment/checkout [post]
func (h *PaymentHandler) CreateCheckout(c *fiber.Ctx) error {
	var req dto.CreateCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if strings.TrimSpace(req.DeviceID) == "" {
		req.DeviceID = strings.TrimSpace(c.Get(shared.HeaderDeviceID))
	}
	if req.DeviceID == "" {
		return shared.NewAppError(fiber.StatusBadRequest, shared.CodeDeviceIDRequired, nil, "X-Device-Id header or device_id is required")
	}

	if err := req.Validate(); err != nil {
		return shared.NewValidationError(err, dto.FormatValidationErrors(err))
	}

	resp, err := h.paymentSvc.CreateCheckout(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Payment Webhook
// @Description Receives payment provider events. A present X-Creem-Signature must verify.
// @Tags payment
// @Accept  json
// @Produce json
// @Param X-Creem-Signature header string false "Hex HMAC-SHA256 of the body"
// @Success 200 {object} shared.Response
// @Failure 401 {object} shared.Response{data=shared.ErrorDetail}
// @Router /api/v1/payment/webhook [post]
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	// fiber reuses the body buffer after the handler returns.
	body := append([]byte(nil), c.Body()...)

	if err := h.paymentSvc.HandleWebhook(c.UserContext(), body, c.Get(shared.HeaderPaymentSignature)); err != nil {
		return err
	}

	return shared.ResponseOK(c, fiber.Map{"status": "ok"})
}

// @Summary Checkout Status
// @Tags payment
// @Produce json
// @Param checkout_id query string true "Checkout ID"
// @Success 200 {object} shared.Response{data=dto.CheckoutStatusResponse}
// @Failure 404 {object} shared.Response{data=shared.ErrorDetail}
// @Router /api/v1/payment/success [get]
func (h *PaymentHandler) CheckoutStatus(c *fiber.Ctx) error {
	checkoutID := strings.TrimSpace(c.Query("checkout_id"))
	if checkoutID == "" {
		return shared.NewAppError(fiber.StatusBadRequest, shared.CodeInvalidPayload, nil, "checkout_id is required")
	}

	resp, err := h.paymentSvc.CheckoutStatus(c.UserContext(), checkoutID)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, resp)
}
