package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
)

// accessChecker lo implementa *usecase.AccessService.
type accessChecker interface {
	RequireRole(ctx context.Context, tenantID, userID string, roles ...entity.Role) (*entity.Membership, error)
}

// moduleChecker es el contrato mínimo que necesita el middleware para verificar módulos.
// Lo implementa *usecase.ModuleService.
type moduleChecker interface {
	HasActiveModule(ctx context.Context, tenantID, moduleName string) (bool, error)
}

// RequireTenantRole exige una membresía activa del usuario autenticado en la organización
// del parámetro :id y, si se indican, uno de los roles. Debe usarse DESPUÉS de AuthMiddleware.
func RequireTenantRole(access accessChecker, roles ...entity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Error: "usuario no autenticado"})
		}
		m, err := access.RequireRole(c.UserContext(), c.Params("id"), userID, roles...)
		if err != nil {
			if errors.Is(err, domain.ErrForbidden) {
				return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Error: "no tiene permisos en esta organización"})
			}
			return writeError(c, err)
		}
		c.Locals(LocalMembership, m)
		return c.Next()
	}
}

// GetMembership devuelve la membresía cargada por RequireTenantRole.
func GetMembership(c *fiber.Ctx) *entity.Membership {
	m, _ := c.Locals(LocalMembership).(*entity.Membership)
	return m
}

// RequireModule verifica que la organización del parámetro :id tenga el módulo habilitado.
//
// Comportamiento:
//   - 403 Forbidden  → módulo no habilitado.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la DB.
func RequireModule(moduleName string, checker moduleChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := c.Params("id")
		if tenantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Error: "id es requerido"})
		}

		active, err := checker.HasActiveModule(c.UserContext(), tenantID, moduleName)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:  "MODULE_CHECK_FAILED",
				Error: "no se pudo verificar el módulo, intente más tarde",
			})
		}

		if !active {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:  "MODULE_DISABLED",
				Error: "el módulo '" + moduleName + "' no está activo para esta organización",
			})
		}

		return c.Next()
	}
}
