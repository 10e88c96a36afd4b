package dto

// LoginRequest entrada para login con el proveedor de identidad local.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}
