package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/tenant"
	"github.com/jhoicas/agrocloud-api/internal/application/usecase"
)

// TenantHandler alta de organizaciones, cupos, miembros y trabajadores.
type TenantHandler struct {
	register *tenant.RegisterUseCase
	limits   *usecase.LimitsUseCase
	members  *usecase.MembershipUseCase
	modules  *usecase.ModuleService
}

// NewTenantHandler construye el handler.
func NewTenantHandler(
	register *tenant.RegisterUseCase,
	limits *usecase.LimitsUseCase,
	members *usecase.MembershipUseCase,
	modules *usecase.ModuleService,
) *TenantHandler {
	return &TenantHandler{register: register, limits: limits, members: members, modules: modules}
}

// Register godoc
// @Summary      Registrar organización con su propietario
// @Tags         tenant
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterTenantRequest  true  "Datos de la organización y del propietario"
// @Success      200   {object}  dto.RegisterTenantResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/tenant/register [post]
func (h *TenantHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterTenantRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.register.Register(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Limits godoc
// @Summary      Uso de cupos de usuarios
// @Tags         tenant
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la organización"
// @Success      200  {object}  dto.LimitsResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tenant/{id}/limits [get]
func (h *TenantHandler) Limits(c *fiber.Ctx) error {
	out, err := h.limits.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Members godoc
// @Summary      Listar membresías
// @Tags         tenant
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la organización"
// @Success      200  {object}  dto.MembersResponse
// @Router       /api/tenant/{id}/members [get]
func (h *TenantHandler) Members(c *fiber.Ctx) error {
	out, err := h.members.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RemoveMember godoc
// @Summary      Retirar un miembro
// @Description  Inactiva la membresía y su perfil de trabajador y libera el cupo. El propietario no se puede retirar.
// @Tags         tenant
// @Security     Bearer
// @Produce      json
// @Param        id            path  string  true  "ID de la organización"
// @Param        membershipId  path  string  true  "ID de la membresía"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/tenant/{id}/members/{membershipId} [delete]
func (h *TenantHandler) RemoveMember(c *fiber.Ctx) error {
	if err := h.members.Remove(c.UserContext(), c.Params("id"), c.Params("membershipId"), GetUserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Workers godoc
// @Summary      Listar trabajadores
// @Tags         tenant
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la organización"
// @Success      200  {object}  dto.WorkersResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/tenant/{id}/workers [get]
func (h *TenantHandler) Workers(c *fiber.Ctx) error {
	out, err := h.members.ListWorkers(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Modules godoc
// @Summary      Módulos habilitados
// @Tags         tenant
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la organización"
// @Success      200  {object}  dto.ModulesResponse
// @Router       /api/tenant/{id}/modules [get]
func (h *TenantHandler) Modules(c *fiber.Ctx) error {
	codes, err := h.modules.Enabled(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ModulesResponse{Success: true, Modules: make([]string, 0, len(codes))}
	for _, m := range codes {
		out.Modules = append(out.Modules, string(m))
	}
	return c.JSON(out)
}
