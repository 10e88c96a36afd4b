// Package mail implementaciones de ports.Mailer.
package mail

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/agrocloud-api/internal/application/ports"
	"github.com/jhoicas/agrocloud-api/pkg/config"
)

var (
	_ ports.Mailer = (*SMTPMailer)(nil)
	_ ports.Mailer = (*LogMailer)(nil)
)

// dialer abstrae gomail.Dialer para pruebas.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer envía correos HTML por SMTP.
type SMTPMailer struct {
	dialer dialer
	from   string
	log    zerolog.Logger
}

// NewSMTPMailer construye el mailer a partir de la configuración SMTP.
func NewSMTPMailer(cfg config.SMTPConfig, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		log:    log,
	}
}

// Message arma el mensaje gomail.
func (m *SMTPMailer) Message(msg ports.MailMessage) *gomail.Message {
	g := gomail.NewMessage()
	g.SetHeader("From", m.from)
	g.SetHeader("To", msg.To)
	g.SetHeader("Subject", msg.Subject)
	g.SetBody("text/html", msg.HTML)
	return g
}

func (m *SMTPMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.Message(msg)); err != nil {
		m.log.Error().Err(err).Str("to", msg.To).Msg("error enviando correo")
		return fmt.Errorf("smtp: %w", err)
	}
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("correo enviado")
	return nil
}

// LogMailer escribe el correo en el log; para desarrollo sin SMTP.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg ports.MailMessage) error {
	m.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Str("html", msg.HTML).Msg("correo (sin SMTP)")
	return nil
}
