package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/invitation"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// InvitationHandler invitaciones a una organización.
type InvitationHandler struct {
	uc     *invitation.UseCase
	access accessChecker
}

// NewInvitationHandler construye el handler.
func NewInvitationHandler(uc *invitation.UseCase, access accessChecker) *InvitationHandler {
	return &InvitationHandler{uc: uc, access: access}
}

// Invite godoc
// @Summary      Invitar usuario a la organización
// @Description  Si el email ya tiene cuenta se crea la membresía directamente; si no, se envía una invitación.
// @Tags         invitations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.InviteRequest  true  "tenantId, email, roleCode"
// @Success      200   {object}  dto.InviteResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/tenant/invite [post]
func (h *InvitationHandler) Invite(c *fiber.Ctx) error {
	var in dto.InviteRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	callerID := GetUserID(c)
	// sin tenantId el caso de uso responde con el error de validación
	if tenantID := strings.TrimSpace(in.TenantID); tenantID != "" {
		if _, err := h.access.RequireRole(c.UserContext(), tenantID, callerID, entity.RoleOwner, entity.RoleAdmin); err != nil {
			return writeError(c, err)
		}
	}
	out, err := h.uc.Invite(c.UserContext(), in, callerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Accept godoc
// @Summary      Aceptar invitación
// @Tags         invitations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AcceptInvitationRequest  true  "token y datos opcionales del usuario"
// @Success      200   {object}  dto.AcceptInvitationResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      410   {object}  dto.ErrorResponse
// @Router       /api/invitations/accept [post]
func (h *InvitationHandler) Accept(c *fiber.Ctx) error {
	var in dto.AcceptInvitationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Accept(c.UserContext(), in, GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Preview godoc
// @Summary      Vista previa de una invitación
// @Tags         invitations
// @Produce      json
// @Param        token  path  string  true  "Token de la invitación"
// @Success      200    {object}  dto.InvitationPreviewResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Router       /api/invitations/{token} [get]
func (h *InvitationHandler) Preview(c *fiber.Ctx) error {
	out, err := h.uc.Preview(c.UserContext(), c.Params("token"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Revoke godoc
// @Summary      Revocar invitación pendiente
// @Tags         invitations
// @Security     Bearer
// @Produce      json
// @Param        id            path  string  true  "ID de la organización"
// @Param        invitationId  path  string  true  "ID de la invitación"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      410  {object}  dto.ErrorResponse
// @Router       /api/tenant/{id}/invitations/{invitationId}/revoke [post]
func (h *InvitationHandler) Revoke(c *fiber.Ctx) error {
	if err := h.uc.Revoke(c.UserContext(), c.Params("id"), c.Params("invitationId")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// List godoc
// @Summary      Listar invitaciones pendientes
// @Tags         invitations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la organización"
// @Success      200  {object}  dto.InvitationListResponse
// @Router       /api/tenant/{id}/invitations [get]
func (h *InvitationHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.ListPending(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
