package ports

import "context"

// MailMessage correo HTML a enviar.
type MailMessage struct {
	To      string
	Subject string
	HTML    string
}

// Mailer puerto de envío de correo (SMTP o log en desarrollo).
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
