package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/agrocloud-api/internal/application/billing"
	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/domain"
)

// SignatureHeader cabecera con la firma HMAC del webhook.
const SignatureHeader = "X-Signature"

// BillingHandler checkout, webhook y gestión de la suscripción.
type BillingHandler struct {
	webhook      *billing.WebhookReconciler
	checkout     *billing.CheckoutUseCase
	subscription *billing.SubscriptionUseCase
	log          zerolog.Logger
}

// NewBillingHandler construye el handler.
func NewBillingHandler(webhook *billing.WebhookReconciler, checkout *billing.CheckoutUseCase, subscription *billing.SubscriptionUseCase, log zerolog.Logger) *BillingHandler {
	return &BillingHandler{webhook: webhook, checkout: checkout, subscription: subscription, log: log}
}

// Webhook godoc
// @Summary      Webhook del proveedor de suscripciones
// @Description  Verifica la firma HMAC del cuerpo crudo, deduplica el evento y concilia el estado de cobro.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        X-Signature  header  string  true  "HMAC-SHA256 hex del cuerpo"
// @Success      200  {object}  dto.WebhookResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/billing/webhook [post]
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	// fasthttp reutiliza el buffer del cuerpo al terminar el handler
	body := append([]byte(nil), c.Body()...)
	res, err := h.webhook.Handle(c.UserContext(), body, c.Get(SignatureHeader))
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid signature"})
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
		default:
			h.log.Error().Err(err).Msg("webhook de facturación")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
		}
	}
	return c.JSON(dto.WebhookResponse{
		Received:  true,
		Processed: res.Processed,
		TenantID:  res.TenantID,
		Reason:    res.Reason,
	})
}

// Checkout godoc
// @Summary      Crear checkout de suscripción
// @Description  Registra la intención de compra y devuelve la URL del checkout; la organización se crea al confirmarse el pago.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckoutRequest  true  "Datos de la organización y del contacto"
// @Success      200   {object}  dto.CheckoutResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/billing/checkout [post]
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	var in dto.CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.checkout.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// TenantCheckout godoc
// @Summary      Checkout para una organización existente
// @Tags         billing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la organización"
// @Param        body  body  dto.ChangePlanRequest  true  "plan"
// @Success      200   {object}  dto.CheckoutResponse
// @Router       /api/tenant/{id}/subscription/checkout [post]
func (h *BillingHandler) TenantCheckout(c *fiber.Ctx) error {
	var in dto.ChangePlanRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.checkout.CreateForTenant(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar suscripción al final del período
// @Tags         billing
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la organización"
// @Success      200  {object}  dto.SubscriptionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/tenant/{id}/subscription/cancel [post]
func (h *BillingHandler) Cancel(c *fiber.Ctx) error {
	out, err := h.subscription.Cancel(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Resume godoc
// @Summary      Reanudar suscripción cancelada
// @Tags         billing
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la organización"
// @Success      200  {object}  dto.SubscriptionResponse
// @Router       /api/tenant/{id}/subscription/resume [post]
func (h *BillingHandler) Resume(c *fiber.Ctx) error {
	out, err := h.subscription.Resume(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ChangePlan godoc
// @Summary      Cambiar plan de la suscripción
// @Tags         billing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la organización"
// @Param        body  body  dto.ChangePlanRequest  true  "plan"
// @Success      200   {object}  dto.SubscriptionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/tenant/{id}/subscription/plan [put]
func (h *BillingHandler) ChangePlan(c *fiber.Ctx) error {
	var in dto.ChangePlanRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.subscription.ChangePlan(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
