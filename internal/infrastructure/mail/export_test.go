package mail

import "gopkg.in/gomail.v2"

// WithDialer reemplaza el dialer SMTP en pruebas.
func (m *SMTPMailer) WithDialer(d func(...*gomail.Message) error) *SMTPMailer {
	m.dialer = dialerFunc(d)
	return m
}

type dialerFunc func(...*gomail.Message) error

func (f dialerFunc) DialAndSend(m ...*gomail.Message) error { return f(m...) }
