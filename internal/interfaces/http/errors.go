package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/domain"
)

// errorStatus traduce un error de dominio a código HTTP y código de error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidSignature):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrInvitationEmail):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrInvitationNotFound),
		errors.Is(err, domain.ErrMembershipNotFound),
		errors.Is(err, domain.ErrCheckoutNotFound),
		errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvitationExpired), errors.Is(err, domain.ErrInvitationConsumed):
		return fiber.StatusGone, "INVITATION_GONE"
	case errors.Is(err, domain.ErrSeatLimitReached):
		return fiber.StatusConflict, "SEAT_LIMIT"
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return fiber.StatusConflict, "EMAIL_EXISTS"
	case errors.Is(err, domain.ErrSlugTaken):
		return fiber.StatusConflict, "SLUG_TAKEN"
	case errors.Is(err, domain.ErrMembershipExists),
		errors.Is(err, domain.ErrInvitationExists),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrOwnerRemoval),
		errors.Is(err, domain.ErrNoSubscription):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrVariantNotConfigured):
		return fiber.StatusUnprocessableEntity, "PLAN_UNAVAILABLE"
	}
	var up *domain.UpstreamError
	if errors.As(err, &up) {
		return fiber.StatusInternalServerError, "UPSTREAM"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde {success:false, error} o {success:false, errors} para validaciones.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{Success: false, Errors: verr.Fields})
	}
	status, code := errorStatus(err)
	return c.Status(status).JSON(dto.ErrorResponse{Success: false, Error: err.Error(), Code: code})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Success: false, Error: "cuerpo inválido", Code: "INVALID_BODY"})
}
