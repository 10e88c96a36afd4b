package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/agrocloud-api/internal/application/auth"
	"github.com/jhoicas/agrocloud-api/internal/application/dto"
)

// AuthHandler login con el proveedor de identidad local.
type AuthHandler struct {
	uc *auth.LoginUseCase
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.LoginUseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.Login(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
