package dto

// ErrorResponse cuerpo de error HTTP ({success:false, error}).
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// ValidationErrorResponse cuerpo 400 con todos los errores por campo.
type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors"`
}

// UserSummary usuario de identidad expuesto en respuestas.
type UserSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}
