package auth

import (
	"context"
	"strings"

	"github.com/jhoicas/agrocloud-api/internal/application/dto"
	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/pkg/jwt"
	"github.com/jhoicas/agrocloud-api/pkg/validation"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// LoginUseCase login contra el proveedor de identidad local. Con el proveedor hosted
// el cliente obtiene el token directamente del proveedor y este caso de uso no se monta.
type LoginUseCase struct {
	verifier ports.PasswordVerifier
	jwtCfg   JWTConfig
}

// NewLoginUseCase construye el caso de uso de login.
func NewLoginUseCase(verifier ports.PasswordVerifier, jwtCfg JWTConfig) *LoginUseCase {
	return &LoginUseCase{verifier: verifier, jwtCfg: jwtCfg}
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Credenciales inválidas o usuario inexistente devuelven ErrUnauthorized, sin distinguir.
func (uc *LoginUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	in.Email = entity.NormalizeEmail(in.Email)
	if fields := validation.Struct(in); fields != nil {
		return nil, domain.NewValidationError(fields)
	}
	user, err := uc.verifier.VerifyPassword(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Email, jwt.PurposeAccess, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User: dto.UserSummary{
			ID:       user.ID,
			Email:    user.Email,
			FullName: strings.TrimSpace(user.FullName),
		},
	}, nil
}
